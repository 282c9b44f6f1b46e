// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package verify

import "github.com/danielhkuo/ballot-gate/models"

// Modality is the sealed set of ways an identity can prove itself. Each
// variant carries its own payload; Enroll and Verify dispatch on the
// concrete type.
type Modality interface {
	Kind() string
}

// Password proves identity by exact credential match. Enrollment is handled
// by the identity registry, not the gate.
type Password struct {
	Password string
}

// PlatformCredential proves identity through the platform authenticator
// capability (create-credential at enrollment, challenge assertion at
// verification).
type PlatformCredential struct{}

// Biometric proves identity by embedding distance. Embedding, when set,
// supplies a pre-extracted vector (the registration path); when nil the
// gate drives the capture capability itself.
type Biometric struct {
	Embedding []float64
}

func (Password) Kind() string           { return models.ModalityPassword }
func (PlatformCredential) Kind() string { return models.ModalityPlatform }
func (Biometric) Kind() string          { return models.ModalityFace }
