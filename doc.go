// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Ballot Gate API server.

Ballot Gate is a small voting service where every ballot is tied to a
registered identity and, when policy demands it, a completed identity
verification: a password check, a platform credential (passkey), or a
face match against an enrolled embedding.

# Starting the Server

The server runs on SQLite out of the box:

	go run main.go

Or against PostgreSQL:

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... go run main.go

# Configuration

Optional settings (flags override environment variables):

  - PORT (-p): Server port (default: 3342)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - DATABASE_URL (-d): Connection string or SQLite file path
  - ADMIN_USERNAME / ADMIN_PASSWORD: Admin credentials
  - MATCH_THRESHOLD: Embedding distance threshold for a face match
  - REMEMBER_LOGIN: Restore the last session on startup

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (auth, voting, results, admin, webauthn)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Domain state and request/response types
  - store: Key-value persistence and state loading
  - registry: Identity registration and authentication
  - verify: Verification gate (password, platform credential, face)
  - voting: Vote casting, tallying, and admin operations
  - session: Session tracking and remembered logins
  - auth: Token and challenge generation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
