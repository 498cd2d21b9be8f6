package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/listdiff"
)

// DiffRequest is the body of POST /v1/diff.
type DiffRequest struct {
	Old *document.Document `json:"old"`
	New *document.Document `json:"new"`

	// CrossSectionMoves overrides the server default when set.
	CrossSectionMoves *bool `json:"crossSectionMoves,omitempty"`
}

// StageResponse is one stage of a DiffResponse.
type StageResponse struct {
	Operations []listdiff.Operation `json:"operations"`
	Result     *document.Document   `json:"result"`
}

// DiffResponse is the body returned by POST /v1/diff.
type DiffResponse struct {
	Stages []StageResponse       `json:"stages"`
	Raw    []listdiff.Operation `json:"raw"`
	Counts map[string]int       `json:"counts"`
}

// NewDiffResponse converts a changeset for the wire.
func NewDiffResponse(cs *listdiff.Changeset[document.Header, document.Element]) *DiffResponse {
	resp := &DiffResponse{
		Stages: make([]StageResponse, len(cs.Stages)),
		Raw:    cs.Raw,
		Counts: make(map[string]int),
	}
	if resp.Raw == nil {
		resp.Raw = []listdiff.Operation{}
	}
	for i, st := range cs.Stages {
		resp.Stages[i] = StageResponse{
			Operations: st.Operations,
			Result:     document.FromSnapshot(st.Result),
		}
		for _, op := range st.Operations {
			resp.Counts[op.Op.String()]++
		}
	}
	return resp
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	// Two documents plus envelope.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.config.MaxDocumentBytes+1024)

	var req DiffRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(w, errors.New("E142").WithDetailf("request exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, errors.New("E120").Wrap(err))
		return
	}
	if req.Old == nil || req.New == nil {
		s.writeError(w, errors.New("E120").WithDetail("both old and new are required"))
		return
	}
	for _, doc := range []*document.Document{req.Old, req.New} {
		if err := doc.Validate(); err != nil {
			s.writeError(w, err)
			return
		}
	}

	cross := s.config.CrossSectionMoves
	if req.CrossSectionMoves != nil {
		cross = *req.CrossSectionMoves
	}

	cs, err := s.diff(r.Context(), req.Old, req.New, cross)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewDiffResponse(cs))
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"kinds": s.config.Registry.Names()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response write failed", "error", err)
	}
}

// writeError writes a coded error as JSON with a status derived from its
// category.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	le := errors.FromError(err, "E101")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(le))
	w.Write([]byte(le.FormatJSON()))
	w.Write([]byte("\n"))
}

func statusOf(le *errors.ListError) int {
	switch {
	case le.Code == "E142":
		return http.StatusRequestEntityTooLarge
	case le.Category == errors.CategoryDocument:
		return http.StatusBadRequest
	case le.Category == errors.CategoryStore:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
