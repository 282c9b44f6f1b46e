// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/danielhkuo/ballot-gate/cliparse"
	"github.com/danielhkuo/ballot-gate/handlers"
	"github.com/danielhkuo/ballot-gate/middleware"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/registry"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/store"
	"github.com/danielhkuo/ballot-gate/verify"
	"github.com/danielhkuo/ballot-gate/voting"
)

// Services carries everything the handlers need. One instance of each is
// shared across the whole process.
type Services struct {
	Registry *registry.Registry
	Gate     *verify.Gate
	Voting   *voting.Service
	Sessions *session.Manager
	Store    *store.Store
	State    *models.State
	Mu       *sync.Mutex
	// Ledger is shared with the gate's platform capability so finished
	// passkey ceremonies count as verification proof. May be nil.
	Ledger *verify.AssertionLedger
	Config cliparse.Config
}

func NewRouter(s Services) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(s.Registry, s.Gate, s.Sessions)
	votingHandler := handlers.NewVotingHandler(s.Voting, s.Sessions)
	resultsHandler := handlers.NewResultsHandler(s.Voting, s.Sessions)
	adminHandler := handlers.NewAdminHandler(s.Voting, s.Sessions, s.Config)

	origins := []string{fmt.Sprintf("http://localhost:%d", s.Config.Port)}
	webauthnHandler, err := handlers.NewWebAuthnHandler(s.Registry, s.Sessions, s.Store, s.State, s.Mu, s.Ledger, origins)
	if err != nil {
		return nil, fmt.Errorf("webauthn init: %w", err)
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Identity registration and sessions
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(authHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("POST /auth/logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("GET /auth/me", middleware.WithLogging(authHandler.Me))

	// Face enrollment and login
	mux.HandleFunc("POST /auth/face/enroll", middleware.WithLogging(authHandler.FaceEnroll))
	mux.HandleFunc("POST /auth/face/login", middleware.WithLogging(authHandler.FaceLogin))

	// Passkey ceremonies
	mux.HandleFunc("POST /auth/webauthn/register/begin", middleware.WithLogging(webauthnHandler.RegisterBegin))
	mux.HandleFunc("POST /auth/webauthn/register/finish", middleware.WithLogging(webauthnHandler.RegisterFinish))
	mux.HandleFunc("POST /auth/webauthn/login/begin", middleware.WithLogging(webauthnHandler.LoginBegin))
	mux.HandleFunc("POST /auth/webauthn/login/finish", middleware.WithLogging(webauthnHandler.LoginFinish))

	// Voting operations
	mux.HandleFunc("POST /vote", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("GET /vote/mine", middleware.WithLogging(votingHandler.MyVote))

	// Options and results (public, with sealed results)
	mux.HandleFunc("GET /options", middleware.WithLogging(resultsHandler.GetOptions))
	mux.HandleFunc("GET /results", middleware.WithLogging(resultsHandler.GetResults))

	// Admin operations
	mux.HandleFunc("POST /admin/login", middleware.WithLogging(adminHandler.Login))
	mux.HandleFunc("POST /admin/logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("POST /admin/options", middleware.WithLogging(adminHandler.AddOption))
	mux.HandleFunc("DELETE /admin/options/{name}", middleware.WithLogging(adminHandler.RemoveOption))
	mux.HandleFunc("GET /admin/policy", middleware.WithLogging(adminHandler.GetPolicy))
	mux.HandleFunc("PUT /admin/policy", middleware.WithLogging(adminHandler.SetPolicy))
	mux.HandleFunc("POST /admin/reset-votes", middleware.WithLogging(adminHandler.ResetVotes))
	mux.HandleFunc("GET /admin/export", middleware.WithLogging(adminHandler.Export))
	mux.HandleFunc("POST /admin/import", middleware.WithLogging(adminHandler.Import))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ballot-gate API v1"))
	})

	return mux, nil
}
