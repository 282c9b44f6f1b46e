// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package verify

import "context"

// Frame is one opaque biometric sample produced by a capture device.
type Frame []byte

// Camera acquires biometric samples. Implementations live outside the core
// (a real camera, a test fake); the gate only polls them.
type Camera interface {
	// CaptureFrame acquires one sample. Implementations return an error
	// wrapping ErrCaptureUnavailable when the device cannot be acquired.
	CaptureFrame(ctx context.Context) (Frame, error)
}

// Embedder turns a frame into a fixed-dimension embedding vector.
type Embedder interface {
	Embed(frame Frame) ([]float64, error)
}

// PresenceDetector reports whether a frame contains a subject at all, with
// a confidence in [0, 1]. Used only as a floor before embedding; presence
// alone never authenticates anyone.
type PresenceDetector interface {
	DetectPresence(frame Frame) (confidence float64, ok bool)
}

// PlatformAuthenticator is the opaque platform-credential capability
// (a WebAuthn-style ceremony at the outer surface).
type PlatformAuthenticator interface {
	// CreateCredential enrolls the identity and returns an opaque ref.
	CreateCredential(ctx context.Context, username string) (ref string, err error)

	// GetAssertion proves possession of the credential for a challenge the
	// gate generated. A nil/empty proof means the ceremony failed.
	GetAssertion(ctx context.Context, ref string, challenge []byte) (proof []byte, err error)
}
