// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides random identifier, token, and challenge generation.

# ID Generation

Random hex IDs for stored records:

	id, err := auth.GenerateID(16)  // 32 hex characters

# Verification Challenges

Platform-credential verification issues a fresh 32-byte challenge per
attempt:

	challenge, err := auth.GenerateChallenge()

Challenges are single-use; the gate generates a new one for every assertion
request and never accepts a stale one.

# Session Tokens

Random 24-byte (192-bit) URL-safe tokens key in-progress verification
ceremonies:

	token, err := auth.GenerateSessionToken()

# Credential Comparison

ConstantTimeEquals compares secrets without leaking the position of the
first mismatch:

	ok := auth.ConstantTimeEquals(stored, supplied)
*/
package auth
