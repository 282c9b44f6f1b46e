// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ballot-gate/middleware"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/registry"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/verify"
)

type AuthHandler struct {
	reg      *registry.Registry
	gate     *verify.Gate
	sessions *session.Manager
}

func NewAuthHandler(reg *registry.Registry, gate *verify.Gate, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{reg: reg, gate: gate, sessions: sessions}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// A face enrollment supplied with registration is captured up front so
	// duplicate detection can run before anything is stored.
	var embedding []float64
	if req.EnrollFace {
		var err error
		embedding, err = h.gate.CaptureEmbedding(r.Context())
		if err != nil {
			writeVerifyError(w, err)
			return
		}
	}

	if err := h.reg.Register(req.Username, req.Password, embedding); err != nil {
		switch {
		case errors.Is(err, registry.ErrInvalidUsername),
			errors.Is(err, registry.ErrWeakPassword):
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, registry.ErrDuplicateUsername):
			middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
		case errors.Is(err, registry.ErrDuplicateBiometric):
			middleware.ErrorResponse(w, http.StatusConflict, "This face is already enrolled for another account")
		default:
			slog.Error("registration failed", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		}
		return
	}

	// Registration doubles as login.
	if err := h.sessions.LoginUser(req.Username); err != nil {
		slog.Error("failed to start session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{Username: req.Username})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.reg.Authenticate(req.Username, req.Password); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	if err := h.sessions.LoginUser(req.Username); err != nil {
		slog.Error("failed to start session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{Username: req.Username})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(); err != nil {
		slog.Error("failed to end session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, isAdmin := h.sessions.Current()
	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{
		Username: username,
		IsAdmin:  isAdmin,
	})
}

// FaceEnroll handles POST /auth/face/enroll
// Enrolls a biometric artifact for the logged-in identity.
func (h *AuthHandler) FaceEnroll(w http.ResponseWriter, r *http.Request) {
	username, _ := h.sessions.Current()
	if username == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Log in first")
		return
	}

	if err := h.gate.Enroll(r.Context(), username, verify.Biometric{}); err != nil {
		writeVerifyError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{Username: username})
}

// FaceLogin handles POST /auth/face/login
// Verifies the claimed identity against its stored embedding; a detected
// face alone is never enough.
func (h *AuthHandler) FaceLogin(w http.ResponseWriter, r *http.Request) {
	var req models.FaceLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !h.reg.Exists(req.Username) {
		// Same shape as a failed verification; no account enumeration.
		middleware.ErrorResponse(w, http.StatusForbidden, "Face verification failed")
		return
	}

	if err := h.gate.Verify(r.Context(), req.Username, verify.Biometric{}); err != nil {
		writeVerifyError(w, err)
		return
	}

	if err := h.sessions.LoginUser(req.Username); err != nil {
		slog.Error("failed to start session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{Username: req.Username})
}

// writeVerifyError maps gate errors to HTTP statuses.
func writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verify.ErrCaptureUnavailable):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Capture device unavailable")
	case errors.Is(err, verify.ErrNotEnrolled):
		middleware.ErrorResponse(w, http.StatusForbidden, "No enrollment for this verification method")
	case errors.Is(err, verify.ErrTimeout):
		middleware.ErrorResponse(w, http.StatusForbidden, "Face verification timed out")
	case errors.Is(err, verify.ErrDuplicateIdentity):
		middleware.ErrorResponse(w, http.StatusConflict, "This face is already enrolled for another account")
	case errors.Is(err, verify.ErrNoMatch), errors.Is(err, verify.ErrBadEmbedding):
		middleware.ErrorResponse(w, http.StatusForbidden, "Face verification failed")
	default:
		slog.Error("verification failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Verification failed")
	}
}
