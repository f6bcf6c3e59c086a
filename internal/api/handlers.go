package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mattjoyce/opgate/internal/disptable"
	"github.com/mattjoyce/opgate/internal/journal"
	"github.com/mattjoyce/opgate/internal/metrics"
	"github.com/mattjoyce/opgate/internal/protocol"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"

	// maxCallBody caps the request envelope size; argument buffers are
	// small by construction.
	maxCallBody = 1 << 20
)

// HealthzResponse is the GET /healthz payload.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	OpsRegistered int    `json:"ops_registered"`
}

// OpInfo is the wire view of a registered descriptor.
type OpInfo struct {
	Opcode   string `json:"opcode"`
	Name     string `json:"name"`
	Args     string `json:"args"`
	Ret      string `json:"ret"`
	RetOwner string `json:"ret_owner"`
	HasFunc  bool   `json:"has_func"`
}

func opInfoFrom(op *disptable.Op) OpInfo {
	return OpInfo{
		Opcode:   disptable.EncodeKey(op.Opcode),
		Name:     op.Name,
		Args:     op.Args.String(),
		Ret:      op.Ret.String(),
		RetOwner: op.RetOwner.String(),
		HasFunc:  op.Func != nil,
	}
}

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		OpsRegistered: s.table.Len(),
	})
}

// handleCall handles POST /v1/call: decode the envelope, dispatch, encode
// the result in the caller's codec.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	useCBOR := r.Header.Get("Content-Type") == contentTypeCBOR

	body := http.MaxBytesReader(w, r.Body, maxCallBody)
	req, err := decodeCallRequest(body, useCBOR)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	key := disptable.EncodeKey(req.Opcode)
	opName := ""
	if op, ok := s.table.Lookup(req.Opcode); ok {
		opName = op.Name
	}
	logger := s.logger.With("request_id", req.RequestID, "opcode", key)

	start := time.Now()
	s.dispatchMu.Lock()
	status, callErr := s.table.CheckAndCall(req.Opcode, s.owner, req.Args)
	var ret []byte
	if callErr == nil {
		ret = s.snapshotReturn(req.Opcode)
	}
	s.dispatchMu.Unlock()
	elapsed := time.Since(start)

	outcome, httpStatus := classifyCallError(callErr)

	resp := &protocol.Response{
		Protocol:  protocol.Version,
		RequestID: req.RequestID,
	}
	if callErr != nil {
		resp.Status = "error"
		resp.Error = callErr.Error()
		logger.Warn("dispatch failed", "outcome", string(outcome), "error", callErr)
	} else {
		resp.Status = "ok"
		resp.Code = status
		resp.Ret = ret
		logger.Debug("dispatched", "status", status, "duration", elapsed)
	}

	metrics.ObserveDispatch(key, string(outcome), elapsed)
	s.appendJournal(r, &journal.Record{
		ID:       req.RequestID,
		Opcode:   key,
		OpName:   opName,
		Outcome:  outcome,
		Status:   status,
		Duration: elapsed,
	})

	encodeCallResponse(w, resp, useCBOR, httpStatus)
}

// snapshotReturn copies the entry's return slot. The slot is a reusable
// scratch buffer, so the response must not alias it.
func (s *Server) snapshotReturn(opcode uint32) []byte {
	slot, err := s.table.ReturnSlot(opcode)
	if err != nil || slot == nil {
		return nil
	}
	out := make([]byte, len(slot))
	copy(out, slot)
	return out
}

func (s *Server) appendJournal(r *http.Request, rec *journal.Record) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(r.Context(), rec); err != nil {
		s.logger.Error("failed to append call journal", "error", err)
	}
}

func classifyCallError(err error) (journal.Outcome, int) {
	switch {
	case err == nil:
		return journal.OutcomeOK, http.StatusOK
	case errors.Is(err, disptable.ErrNotFound):
		return journal.OutcomeNotFound, http.StatusNotFound
	case errors.Is(err, disptable.ErrInvalidArgs):
		return journal.OutcomeInvalidArgs, http.StatusUnprocessableEntity
	default:
		return journal.OutcomeError, http.StatusInternalServerError
	}
}

func decodeCallRequest(body io.Reader, useCBOR bool) (*protocol.Request, error) {
	if useCBOR {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		return protocol.UnmarshalRequest(data)
	}
	return protocol.DecodeRequest(body)
}

func encodeCallResponse(w http.ResponseWriter, resp *protocol.Response, useCBOR bool, httpStatus int) {
	if useCBOR {
		data, err := protocol.MarshalResponse(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.WriteHeader(httpStatus)
		_, _ = w.Write(data)
		return
	}

	var buf bytes.Buffer
	if err := protocol.EncodeResponse(&buf, resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(httpStatus)
	_, _ = buf.WriteTo(w)
}

// handleListOps handles GET /v1/ops.
func (s *Server) handleListOps(w http.ResponseWriter, r *http.Request) {
	ops := s.table.Ops()
	infos := make([]OpInfo, 0, len(ops))
	for _, op := range ops {
		infos = append(infos, opInfoFrom(op))
	}
	respondJSON(w, http.StatusOK, map[string]any{"ops": infos})
}

// handleGetOp handles GET /v1/ops/{opcode}, where opcode is the fixed
// eight-digit hex key.
func (s *Server) handleGetOp(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "opcode")

	opcode, err := disptable.DecodeKey(key)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed opcode key")
		return
	}

	op, ok := s.table.Lookup(opcode)
	if !ok {
		s.writeError(w, http.StatusNotFound, "opcode not registered")
		return
	}
	respondJSON(w, http.StatusOK, opInfoFrom(op))
}

// handleJournal handles GET /v1/journal?limit=N and
// GET /v1/journal?stats=1.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusServiceUnavailable, "journal not configured")
		return
	}

	if r.URL.Query().Get("stats") != "" {
		stats, err := s.journal.Stats(r.Context())
		if err != nil {
			s.logger.Error("failed to read journal stats", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to read journal stats")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"stats": stats})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			s.writeError(w, http.StatusBadRequest, "limit must be 1..1000")
			return
		}
		limit = n
	}

	recs, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read journal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"calls": recs})
}
