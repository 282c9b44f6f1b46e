// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types shared by every
component.

# Domain Types

The central type is State, the in-memory aggregate holding everything the
ledger persists:

  - Identities: username -> password credential
  - Options: ordered option set
  - Tally: option -> accepted vote count
  - VoteRecords: username -> chosen option (single-vote policy only)
  - Policy: the four admin-controlled flags
  - CredentialRefs / BiometricEnrolled / Embeddings: verification enrollments
  - LastIdentity: session remember-marker

Three invariants tie the aggregate together:

 1. Tally keys always equal the current option set.
 2. Every VoteRecords value references a live option.
 3. The tally sum equals the number of accepted casts since the last reset.

Every mutation in the registry, verify, and voting packages preserves all
three before persisting.

# Snapshot

Snapshot is the export/import document with exactly five fields:

	{users, votes, options, userVotes, settings}

Verification enrollments never appear in the document, and an import
never touches them either.

# Request and Response Types

Types for parsing incoming JSON and encoding responses for the HTTP surface:
RegisterRequest, LoginRequest, FaceLoginRequest, CastVoteRequest,
AddOptionRequest, AdminLoginRequest, SessionResponse, CastVoteResponse,
OptionsResponse, ResultsResponse, MyVoteResponse, ErrorResponse.

# Constants

Verification modalities:

	ModalityPassword = "password"
	ModalityPlatform = "platform"
	ModalityFace     = "face"
*/
package models
