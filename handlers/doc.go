// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Ballot Gate API.

# Handler Types

Each handler is a struct holding the services it depends on:

  - AuthHandler: Registration, password login, face enrollment and login
  - WebAuthnHandler: Passkey registration and login ceremonies
  - VotingHandler: Ballot casting and the caller's recorded ballot
  - ResultsHandler: Options and tally retrieval
  - AdminHandler: Admin login, ballot shaping, policy, and snapshots

Handlers are created via constructor functions:

	authHandler := handlers.NewAuthHandler(reg, gate, sessions)

# Session Model

This is a single-operator deployment: one session at a time, tracked in
memory by session.Manager. Handlers that mutate state resolve the caller
through the manager rather than per-request tokens.

# Verification

Where the active policy requires verification, CastVote runs the caller
through the verification gate before the ballot mutates any state. A
failed or timed-out verification leaves the tally untouched.

# Passkey Ceremonies

WebAuthn registration and login are two-step ceremonies. The begin
endpoint returns creation or request options plus a ceremony token; the
finish endpoint consumes the token exactly once and validates the
authenticator response:

	POST /auth/webauthn/register/begin  → options + ceremony_token
	POST /auth/webauthn/register/finish → credential stored

Pending ceremonies expire after five minutes. A finished ceremony is also
recorded in the shared verify.AssertionLedger, so a completed assertion
doubles as platform-credential proof when a gated vote follows.

# Snapshots

Export writes the portable state document as a JSON attachment; Import
validates and reconciles an uploaded document before replacing state.
Verification enrollments never travel with a snapshot.
*/
package handlers
