// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/ballot-gate/middleware"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/voting"
)

type ResultsHandler struct {
	svc      *voting.Service
	sessions *session.Manager
}

func NewResultsHandler(svc *voting.Service, sessions *session.Manager) *ResultsHandler {
	return &ResultsHandler{svc: svc, sessions: sessions}
}

// GetOptions handles GET /options
func (h *ResultsHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.OptionsResponse{
		Options: h.svc.Options(),
	})
}

// GetResults handles GET /results
// The tally is sealed from voters while the policy hides it; the admin
// always sees it.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	_, isAdmin := h.sessions.Current()
	if !h.svc.Policy().ResultsVisible && !isAdmin {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until the admin reveals them")
		return
	}

	tally := h.svc.Results()
	var total int
	for _, n := range tally {
		total += n
	}
	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Tally: tally,
		Total: total,
	})
}
