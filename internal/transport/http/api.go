package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

// API exposes the assessment use cases as JSON endpoints.
type API struct {
	service *app.AssessmentService
	format  app.ReportFormat
}

type beginRequest struct {
	Participant string `json:"participant"`
}

type answerRequest struct {
	Choice string `json:"choice"`
}

type navigateRequest struct {
	Index *int `json:"index"`
}

func (a *API) begin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "bad json"})
		return
	}
	snap, err := a.service.Begin(r.Context(), req.Participant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (a *API) snapshot(w http.ResponseWriter, r *http.Request) {
	a.respond(w, func() (domain.Snapshot, error) {
		return a.service.Snapshot(r.Context(), sessionID(r))
	})
}

func (a *API) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "bad json"})
		return
	}
	a.respond(w, func() (domain.Snapshot, error) {
		return a.service.Answer(r.Context(), sessionID(r), req.Choice)
	})
}

func (a *API) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "index required"})
		return
	}
	a.respond(w, func() (domain.Snapshot, error) {
		return a.service.Navigate(r.Context(), sessionID(r), *req.Index)
	})
}

func (a *API) next(w http.ResponseWriter, r *http.Request) {
	a.respond(w, func() (domain.Snapshot, error) {
		return a.service.Next(r.Context(), sessionID(r))
	})
}

func (a *API) previous(w http.ResponseWriter, r *http.Request) {
	a.respond(w, func() (domain.Snapshot, error) {
		return a.service.Previous(r.Context(), sessionID(r))
	})
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	a.respond(w, func() (domain.Snapshot, error) {
		return a.service.Submit(r.Context(), sessionID(r))
	})
}

func (a *API) abandon(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Abandon(r.Context(), sessionID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// report serves the scored report as a download. The handoff record is
// consumed, so a second request for the same session gets 404.
func (a *API) report(w http.ResponseWriter, r *http.Request) {
	format := a.format
	if raw := r.URL.Query().Get("format"); raw != "" {
		parsed, err := app.ParseReportFormat(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
			return
		}
		format = parsed
	}

	report, err := a.service.Report(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	name := app.ReportFileName(report.Participant, report.CompletedAt, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := app.EncodeReport(w, report, format); err != nil {
		log.Printf("encode report %s: %v", report.SessionID, err)
	}
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	reports, err := a.service.History(r.Context(), r.URL.Query().Get("participant"))
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (a *API) respond(w http.ResponseWriter, op func() (domain.Snapshot, error)) {
	snap, err := op()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}
