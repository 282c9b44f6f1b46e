// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/danielhkuo/ballot-gate/auth"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/store"
)

var (
	ErrNotEnrolled         = errors.New("identity has no enrollment for this modality")
	ErrCaptureUnavailable  = errors.New("capture capability unavailable")
	ErrTimeout             = errors.New("no match within the attempt budget")
	ErrNoMatch             = errors.New("verification proof rejected")
	ErrDuplicateIdentity   = errors.New("biometric already enrolled for another identity")
	ErrUnsupportedModality = errors.New("modality cannot be enrolled through the gate")
	ErrBadEmbedding        = errors.New("embedding has wrong dimension")
)

// PresenceFloor is the minimum detection confidence before a frame is worth
// embedding. This only skips empty frames; matching is always by distance.
const PresenceFloor = 0.5

// Config tunes the gate. Thresholds are configuration, not derived values.
type Config struct {
	MatchThreshold  float64
	EmbeddingDim    int
	CaptureAttempts int
	CaptureInterval time.Duration
}

// Gate is the capability-polymorphic verification surface. It confirms a
// claimed identity for a chosen modality and performs duplicate-embedding
// detection at enrollment.
type Gate struct {
	st    *store.Store
	state *models.State
	mu    *sync.Mutex
	cfg   Config

	camera   Camera
	embedder Embedder
	presence PresenceDetector
	platform PlatformAuthenticator
}

// Capabilities groups the external capabilities the gate consumes. Any of
// them may be nil; verification over a missing capability fails with
// ErrCaptureUnavailable.
type Capabilities struct {
	Camera   Camera
	Embedder Embedder
	Presence PresenceDetector
	Platform PlatformAuthenticator
}

func NewGate(st *store.Store, state *models.State, mu *sync.Mutex, cfg Config, caps Capabilities) *Gate {
	return &Gate{
		st:       st,
		state:    state,
		mu:       mu,
		cfg:      cfg,
		camera:   caps.Camera,
		embedder: caps.Embedder,
		presence: caps.Presence,
		platform: caps.Platform,
	}
}

// Distance is the Euclidean distance between two embeddings.
func Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CheckDuplicate fails with ErrDuplicateIdentity when the candidate
// embedding is within the match threshold of any enrolled embedding.
// Caller must hold the state lock.
func (g *Gate) CheckDuplicate(candidate []float64) error {
	if len(candidate) != g.cfg.EmbeddingDim {
		return ErrBadEmbedding
	}
	for username, enrolled := range g.state.Embeddings {
		if len(enrolled) != len(candidate) {
			continue
		}
		if Distance(candidate, enrolled) < g.cfg.MatchThreshold {
			slog.Warn("duplicate embedding rejected", "conflicts_with", username)
			return ErrDuplicateIdentity
		}
	}
	return nil
}

// StoreEmbedding records an embedding and enrollment flag without
// persisting. Caller must hold the state lock and call SaveAll.
func (g *Gate) StoreEmbedding(username string, embedding []float64) {
	g.state.Embeddings[username] = embedding
	g.state.BiometricEnrolled[username] = true
}

// CaptureEmbedding acquires a single frame, applies the presence floor, and
// embeds it. Used by enrollment, which is single-shot (verification polls).
func (g *Gate) CaptureEmbedding(ctx context.Context) ([]float64, error) {
	if g.camera == nil || g.embedder == nil {
		return nil, ErrCaptureUnavailable
	}
	frame, err := g.camera.CaptureFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	if g.presence != nil {
		confidence, ok := g.presence.DetectPresence(frame)
		if !ok || confidence < PresenceFloor {
			return nil, fmt.Errorf("%w: no subject in frame", ErrNoMatch)
		}
	}
	embedding, err := g.embedder.Embed(frame)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(embedding) != g.cfg.EmbeddingDim {
		return nil, ErrBadEmbedding
	}
	return embedding, nil
}

// Enroll stores a verification artifact for the identity. For Biometric it
// runs duplicate detection first; for PlatformCredential it delegates to
// the platform capability. Password enrollment belongs to the registry.
func (g *Gate) Enroll(ctx context.Context, username string, m Modality) error {
	switch m := m.(type) {
	case Biometric:
		embedding := m.Embedding
		if embedding == nil {
			var err error
			embedding, err = g.CaptureEmbedding(ctx)
			if err != nil {
				return err
			}
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		if len(embedding) != g.cfg.EmbeddingDim {
			return ErrBadEmbedding
		}
		if err := g.CheckDuplicate(embedding); err != nil {
			return err
		}
		g.StoreEmbedding(username, embedding)
		if err := g.st.SaveAll(g.state); err != nil {
			return err
		}
		slog.Info("biometric enrolled", "username", username)
		return nil

	case PlatformCredential:
		if g.platform == nil {
			return ErrCaptureUnavailable
		}
		ref, err := g.platform.CreateCredential(ctx, username)
		if err != nil {
			return fmt.Errorf("credential creation failed: %w", err)
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		g.state.CredentialRefs[username] = ref
		if err := g.st.SaveAll(g.state); err != nil {
			return err
		}
		slog.Info("platform credential enrolled", "username", username)
		return nil

	default:
		return ErrUnsupportedModality
	}
}

// Verify confirms the claimed identity for the chosen modality. It mutates
// nothing: a caller aborts its own operation on error.
func (g *Gate) Verify(ctx context.Context, username string, m Modality) error {
	switch m := m.(type) {
	case Password:
		g.mu.Lock()
		stored, ok := g.state.Identities[username]
		g.mu.Unlock()
		if !ok || !auth.ConstantTimeEquals(stored, m.Password) {
			return ErrNoMatch
		}
		return nil

	case PlatformCredential:
		g.mu.Lock()
		ref, ok := g.state.CredentialRefs[username]
		g.mu.Unlock()
		if !ok {
			return ErrNotEnrolled
		}
		if g.platform == nil {
			return ErrCaptureUnavailable
		}
		// Fresh challenge per attempt; never reused.
		challenge, err := auth.GenerateChallenge()
		if err != nil {
			return err
		}
		proof, err := g.platform.GetAssertion(ctx, ref, challenge)
		if err != nil {
			return fmt.Errorf("assertion failed: %w", err)
		}
		if len(proof) == 0 {
			return ErrNoMatch
		}
		return nil

	case Biometric:
		g.mu.Lock()
		enrolled := g.state.BiometricEnrolled[username]
		stored := g.state.Embeddings[username]
		g.mu.Unlock()
		if !enrolled || stored == nil {
			return ErrNotEnrolled
		}
		return g.verifyFace(ctx, username, stored)

	default:
		return ErrUnsupportedModality
	}
}

// Attempt is one step of the face verification polling loop.
type Attempt struct {
	Confidence float64
	Distance   float64
	Matched    bool
	Err        error
}

// verifyFace polls the capture capability: up to CaptureAttempts samples on
// a fixed interval, each compared against the stored embedding by distance.
// Cancelling the context abandons the loop without mutating anything.
func (g *Gate) verifyFace(ctx context.Context, username string, stored []float64) error {
	if g.camera == nil || g.embedder == nil {
		return ErrCaptureUnavailable
	}

	for i := 0; i < g.cfg.CaptureAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.cfg.CaptureInterval):
			}
		}

		attempt := g.sampleOnce(ctx, stored)
		if attempt.Err != nil {
			// A dead device ends the loop; a bad frame is just a miss.
			if errors.Is(attempt.Err, ErrCaptureUnavailable) {
				return attempt.Err
			}
			continue
		}
		if attempt.Matched {
			slog.Info("face verified", "username", username, "attempt", i+1, "distance", attempt.Distance)
			return nil
		}
	}
	return ErrTimeout
}

// sampleOnce captures and scores a single frame. Matching compares the live
// embedding against the stored one; presence confidence only gates whether
// the frame is embedded at all.
func (g *Gate) sampleOnce(ctx context.Context, stored []float64) Attempt {
	frame, err := g.camera.CaptureFrame(ctx)
	if err != nil {
		return Attempt{Err: err}
	}
	var confidence float64 = 1
	if g.presence != nil {
		var ok bool
		confidence, ok = g.presence.DetectPresence(frame)
		if !ok || confidence < PresenceFloor {
			return Attempt{Confidence: confidence, Err: ErrNoMatch}
		}
	}
	embedding, err := g.embedder.Embed(frame)
	if err != nil {
		return Attempt{Confidence: confidence, Err: err}
	}
	if len(embedding) != len(stored) {
		return Attempt{Confidence: confidence, Err: ErrBadEmbedding}
	}
	d := Distance(embedding, stored)
	return Attempt{
		Confidence: confidence,
		Distance:   d,
		Matched:    d < g.cfg.MatchThreshold,
	}
}

// Preferred picks the strongest enrolled modality for an identity:
// biometric, then platform credential. Returns ErrNotEnrolled when neither
// artifact exists.
func (g *Gate) Preferred(username string) (Modality, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.BiometricEnrolled[username] && g.state.Embeddings[username] != nil {
		return Biometric{}, nil
	}
	if _, ok := g.state.CredentialRefs[username]; ok {
		return PlatformCredential{}, nil
	}
	return nil, ErrNotEnrolled
}
