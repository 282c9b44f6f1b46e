// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package verify implements the verification gate: given a claimed identity
and a chosen modality, it either confirms a match or fails, and it performs
duplicate-embedding detection at enrollment.

# Modalities

Modality is a sealed variant set dispatched by Enroll and Verify:

  - Password: exact credential match (enrollment lives in the registry)
  - PlatformCredential: challenge/assertion through the platform capability
  - Biometric: embedding distance against the stored vector

# Capabilities

The gate consumes, never implements, the capture boundary: Camera,
Embedder, PresenceDetector, PlatformAuthenticator. Any may be nil, in which
case verification over it fails with ErrCaptureUnavailable.

# Duplicate Detection

Enrollment computes the Euclidean distance from the candidate embedding to
every already-enrolled embedding; any distance under the configured
threshold (default 0.55) rejects the enrollment with ErrDuplicateIdentity.

# Face Verification

Verification polls the camera: up to CaptureAttempts samples on a fixed
CaptureInterval, cancellable through the context. Each sample is gated by a
presence-confidence floor and then compared against the claimed identity's
stored embedding with the same threshold used at enrollment - presence
alone never authenticates. An exhausted budget fails with ErrTimeout; an
unacquirable device with ErrCaptureUnavailable. The gate mutates no vote
state; callers abort their own operation on error.

# Platform Credentials

Verification generates a fresh 32-byte challenge per attempt and succeeds
only when the capability returns a non-empty assertion for it.

AssertionLedger is the server-side PlatformAuthenticator: the passkey
ceremony surface records each finished assertion in it, and Verify consumes
the record exactly once within its TTL. Enrollment never runs through the
ledger; it belongs to the ceremony endpoints.
*/
package verify
