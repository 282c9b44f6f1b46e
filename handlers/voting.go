// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ballot-gate/middleware"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/verify"
	"github.com/danielhkuo/ballot-gate/voting"
)

type VotingHandler struct {
	svc      *voting.Service
	sessions *session.Manager
}

func NewVotingHandler(svc *voting.Service, sessions *session.Manager) *VotingHandler {
	return &VotingHandler{svc: svc, sessions: sessions}
}

// CastVote handles POST /vote
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	username, isAdmin := h.sessions.Current()
	if username == "" {
		if isAdmin {
			middleware.ErrorResponse(w, http.StatusForbidden, "The admin session cannot vote")
			return
		}
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Log in to vote")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Option == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option is required")
		return
	}

	err := h.svc.CastVote(r.Context(), username, req.Option, nil)
	if err != nil {
		switch {
		case errors.Is(err, voting.ErrVotingClosed):
			middleware.ErrorResponse(w, http.StatusConflict, "Voting is currently closed")
		case errors.Is(err, voting.ErrAlreadyVoted):
			middleware.ErrorResponse(w, http.StatusConflict, "You have already voted")
		case errors.Is(err, voting.ErrUnknownOption):
			middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown option: "+req.Option)
		case errors.Is(err, verify.ErrNotEnrolled):
			middleware.ErrorResponse(w, http.StatusForbidden, "Verification required but no method is enrolled")
		case errors.Is(err, verify.ErrCaptureUnavailable):
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Capture device unavailable")
		case errors.Is(err, verify.ErrTimeout),
			errors.Is(err, verify.ErrNoMatch),
			errors.Is(err, verify.ErrBadEmbedding):
			middleware.ErrorResponse(w, http.StatusForbidden, "Identity verification failed")
		default:
			slog.Error("failed to cast vote", "error", err, "username", username)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to cast vote")
		}
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		Option:  req.Option,
		Message: "Vote recorded",
	})
}

// MyVote handles GET /vote/mine
func (h *VotingHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	username, _ := h.sessions.Current()
	if username == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Log in first")
		return
	}

	option, voted := h.svc.VoteOf(username)
	middleware.JSONResponse(w, http.StatusOK, models.MyVoteResponse{
		Option: option,
		Voted:  voted,
	})
}
