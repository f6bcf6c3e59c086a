package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyFileHash verifies a file against an expected BLAKE3 hash.
func VerifyFileHash(filePath, expectedHash string) error {
	actualHash, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if actualHash != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actualHash)
	}
	return nil
}

// ChecksumPath returns the path of the lock file holding a config's hash.
func ChecksumPath(configPath string) string {
	return configPath + ".b3sum"
}

// WriteChecksum records the current BLAKE3 hash of configPath alongside it.
func WriteChecksum(configPath string) (string, error) {
	hash, err := ComputeBlake3Hash(configPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(ChecksumPath(configPath), []byte(hash+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write checksum: %w", err)
	}
	return hash, nil
}

// VerifyChecksum checks configPath against its recorded hash. A missing
// lock file is not an error; the config is simply unlocked.
func VerifyChecksum(configPath string) error {
	data, err := os.ReadFile(ChecksumPath(configPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read checksum: %w", err)
	}

	expected := string(data)
	for len(expected) > 0 && (expected[len(expected)-1] == '\n' || expected[len(expected)-1] == '\r') {
		expected = expected[:len(expected)-1]
	}
	return VerifyFileHash(configPath, expected)
}
