package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/goodtune/daybook/internal/export"
	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/goodtune/daybook/internal/timeofday"
	"github.com/gorilla/mux"
)

// AddSegmentRequest is the body of POST /api/days/{date}/segments.
type AddSegmentRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// EditSegmentRequest is the body of PATCH /api/days/{date}/segments/{id}.
type EditSegmentRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// StartActivityRequest is the body of POST /api/activity/start.
type StartActivityRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Day(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAddSegment(w http.ResponseWriter, r *http.Request) {
	var req AddSegmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start, err := timeofday.Parse(req.Start)
	if err != nil {
		s.writeTrackerError(w, r, &timeline.ValidationError{Field: "start", Value: req.Start, Err: err})
		return
	}
	end, err := timeofday.Parse(req.End)
	if err != nil {
		s.writeTrackerError(w, r, &timeline.ValidationError{Field: "end", Value: req.End, Err: err})
		return
	}

	view, err := s.tracker.Add(r.Context(), mux.Vars(r)["date"], start, end, req.Label)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleEditSegment(w http.ResponseWriter, r *http.Request) {
	var req EditSegmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	field, err := timeline.ParseField(req.Field)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	view, err := s.tracker.Edit(r.Context(), vars["date"], vars["id"], field, req.Value)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := s.tracker.Delete(r.Context(), vars["date"], vars["id"])
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	view, err := s.tracker.Close(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReopenDay(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	deleted, err := s.tracker.Reopen(r.Context(), date)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":           date,
		"blocks_deleted": deleted,
	})
}

func (s *Server) handleExportDay(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	view, err := s.tracker.Day(r.Context(), date)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}

	segments := make([]storage.Segment, len(view.Segments))
	for i, sv := range view.Segments {
		segments[i] = sv.Segment
	}

	var buf bytes.Buffer
	if err := export.WriteDay(&buf, segments, view.Blocks); err != nil {
		s.writeTrackerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="daybook-`+date+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	active, err := s.tracker.Active(r.Context())
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}

func (s *Server) handleStartActivity(w http.ResponseWriter, r *http.Request) {
	var req StartActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	started, err := s.tracker.Start(r.Context(), req.Label)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, started)
}

func (s *Server) handleStopActivity(w http.ResponseWriter, r *http.Request) {
	stopped, err := s.tracker.Stop(r.Context())
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stopped)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	suggestions, err := s.labels.Suggest(r.Context(), r.URL.Query().Get("prefix"), limit)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"labels": suggestions,
		"count":  len(suggestions),
	})
}
