// Standalone launcher for the opgate watch TUI, for operators who only
// monitor and never administer the gateway.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/opgate/internal/tui/watch"
)

func main() {
	apiURL := flag.String("api-url", "http://localhost:8710", "Gateway API URL")
	flag.Parse()

	m := watch.New(*apiURL)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
