// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/ballot-gate/auth"
	"github.com/danielhkuo/ballot-gate/cliparse"
	"github.com/danielhkuo/ballot-gate/middleware"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/voting"
)

// Imports larger than this are rejected before parsing.
const maxImportBytes = 8 << 20

type AdminHandler struct {
	svc      *voting.Service
	sessions *session.Manager
	cfg      cliparse.Config
}

func NewAdminHandler(svc *voting.Service, sessions *session.Manager, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{svc: svc, sessions: sessions, cfg: cfg}
}

// requireAdmin writes a 401 and returns false unless the admin is acting.
func (h *AdminHandler) requireAdmin(w http.ResponseWriter) bool {
	if _, isAdmin := h.sessions.Current(); !isAdmin {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Admin login required")
		return false
	}
	return true
}

// Login handles POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	userOK := auth.ConstantTimeEquals(req.Username, h.cfg.AdminUsername)
	passOK := auth.ConstantTimeEquals(req.Password, h.cfg.AdminPassword)
	if !userOK || !passOK {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin credentials")
		return
	}

	h.sessions.LoginAdmin()
	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{IsAdmin: true})
}

// AddOption handles POST /admin/options
func (h *AdminHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.svc.AddOption(req.Name); err != nil {
		switch {
		case errors.Is(err, voting.ErrInvalidOptionName):
			middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		case errors.Is(err, voting.ErrDuplicateOption):
			middleware.ErrorResponse(w, http.StatusConflict, "Option already exists")
		default:
			slog.Error("failed to add option", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add option")
		}
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.OptionsResponse{Options: h.svc.Options()})
}

// RemoveOption handles DELETE /admin/options/{name}
func (h *AdminHandler) RemoveOption(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	name := r.PathValue("name")
	if name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.svc.RemoveOption(name); err != nil {
		if errors.Is(err, voting.ErrUnknownOption) {
			middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
			return
		}
		slog.Error("failed to remove option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to remove option")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.OptionsResponse{Options: h.svc.Options()})
}

// GetPolicy handles GET /admin/policy
func (h *AdminHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.svc.Policy())
}

// SetPolicy handles PUT /admin/policy
func (h *AdminHandler) SetPolicy(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	var policy models.Policy
	if err := middleware.ParseJSONBody(r, &policy); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.svc.SetPolicy(policy); err != nil {
		slog.Error("failed to update policy", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update policy")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, policy)
}

// ResetVotes handles POST /admin/reset-votes
func (h *AdminHandler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	if err := h.svc.ResetVotes(); err != nil {
		slog.Error("failed to reset votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to reset votes")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Tally: h.svc.Results(),
	})
}

// Export handles GET /admin/export
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	doc, err := h.svc.ExportSnapshot()
	if err != nil {
		slog.Error("failed to export snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to export")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="ballot-gate-export.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

// Import handles POST /admin/import
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w) {
		return
	}

	doc, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	r.Body.Close()
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Failed to read document")
		return
	}

	if err := h.svc.ImportSnapshot(doc); err != nil {
		if errors.Is(err, voting.ErrMalformedDocument) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Malformed snapshot document")
			return
		}
		slog.Error("failed to import snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to import")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.OptionsResponse{Options: h.svc.Options()})
}
