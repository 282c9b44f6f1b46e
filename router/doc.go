// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Ballot Gate API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux, err := router.NewRouter(router.Services{...})

# Endpoints

Health:

	GET /health

Identity and sessions:

	POST /auth/register - Register (optionally enrolling a face)
	POST /auth/login    - Password login
	POST /auth/logout   - End the current session
	GET  /auth/me       - Current session info

Face verification:

	POST /auth/face/enroll - Enroll a face for the current session
	POST /auth/face/login  - Log in by face match

Platform credentials (passkeys):

	POST /auth/webauthn/register/begin
	POST /auth/webauthn/register/finish
	POST /auth/webauthn/login/begin
	POST /auth/webauthn/login/finish

Voting:

	POST /vote      - Cast a ballot
	GET  /vote/mine - The caller's recorded ballot
	GET  /options   - Ballot options
	GET  /results   - Tally (admin-only while results are sealed)

Administration:

	POST   /admin/login
	POST   /admin/logout
	POST   /admin/options
	DELETE /admin/options/{name}
	GET    /admin/policy
	PUT    /admin/policy
	POST   /admin/reset-votes
	GET    /admin/export
	POST   /admin/import

# Handler Initialization

The router creates handler instances with dependency injection:

	authHandler := handlers.NewAuthHandler(reg, gate, sessions)
	votingHandler := handlers.NewVotingHandler(svc, sessions)
	resultsHandler := handlers.NewResultsHandler(svc, sessions)
	adminHandler := handlers.NewAdminHandler(svc, sessions, cfg)

All handlers receive the services they depend on through Services.
*/
package router
