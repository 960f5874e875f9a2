package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/store"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ChildrenResponse is the body of a children listing.
type ChildrenResponse struct {
	Entities []*asset.Entity `json:"entities"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, ok := s.entityType(w, r)
	if !ok {
		return
	}
	e, err := s.store.Get(r.Context(), t, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	ref, err := asset.ParseRef(r.URL.Query().Get("ref"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
		return
	}
	e, err := s.store.Find(r.Context(), ref)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	children, err := s.store.Children(r.Context(), asset.CleanPath(q.Get("path")), q.Get("site"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChildrenResponse{Entities: children})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	e, ok := readEntity(w, r)
	if !ok {
		return
	}
	created, err := s.store.Create(r.Context(), e)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.entityType(w, r)
	if !ok {
		return
	}
	e, ok := readEntity(w, r)
	if !ok {
		return
	}
	if e.Type != t || e.ID != chi.URLParam(r, "id") {
		writeError(w, http.StatusBadRequest, CodeInvalid, "body type and id must match the url")
		return
	}
	updated, err := s.store.Update(r.Context(), e)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) entityType(w http.ResponseWriter, r *http.Request) (asset.Type, bool) {
	t, err := asset.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
		return "", false
	}
	return t, true
}

// readEntity decodes a JSON entity body with a size limit.
func readEntity(w http.ResponseWriter, r *http.Request) (*asset.Entity, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var e asset.Entity
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeInvalid, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, CodeInvalid, "invalid request body")
		}
		return nil, false
	}
	return &e, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, store.ErrParentNotFound):
		writeError(w, http.StatusUnprocessableEntity, CodeParentNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
	default:
		s.logger.Error("store request failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
