// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/ballot-gate/cliparse"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/registry"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/store"
	"github.com/danielhkuo/ballot-gate/verify"
	"github.com/danielhkuo/ballot-gate/voting"
)

// TestEmbeddingDim keeps test vectors small and readable.
const TestEmbeddingDim = 4

// SetupTestStore opens a fresh in-memory database with the full schema.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := store.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := store.CreateSchema(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return store.New(db)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:               3342,
		DatabaseType:       "sqlite",
		DatabaseURL:        ":memory:",
		AdminUsername:      "admin",
		AdminPassword:      "admin123",
		FaceMatchThreshold: 0.55,
		EmbeddingDim:       TestEmbeddingDim,
		CaptureAttempts:    3,
		CaptureInterval:    time.Millisecond,
	}
}

// GetTestGateConfig mirrors GetTestConfig for the gate alone.
func GetTestGateConfig() verify.Config {
	cfg := GetTestConfig()
	return verify.Config{
		MatchThreshold:  cfg.FaceMatchThreshold,
		EmbeddingDim:    cfg.EmbeddingDim,
		CaptureAttempts: cfg.CaptureAttempts,
		CaptureInterval: cfg.CaptureInterval,
	}
}

// EmbeddingFrame encodes an embedding as a frame so FakeEmbedder can decode
// it back. Tests choose exactly what the "camera" sees.
func EmbeddingFrame(embedding []float64) verify.Frame {
	raw, _ := json.Marshal(embedding)
	return verify.Frame(raw)
}

// Embedding builds a constant vector of the test dimension.
func Embedding(value float64) []float64 {
	e := make([]float64, TestEmbeddingDim)
	for i := range e {
		e[i] = value
	}
	return e
}

// FakeCamera serves queued frames, repeating the last one once the queue is
// drained. A non-nil Err wins over the queue.
type FakeCamera struct {
	mu     sync.Mutex
	Frames []verify.Frame
	Err    error
	Calls  int
}

func (c *FakeCamera) CaptureFrame(ctx context.Context) (verify.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	if len(c.Frames) == 0 {
		return nil, verify.ErrCaptureUnavailable
	}
	frame := c.Frames[0]
	if len(c.Frames) > 1 {
		c.Frames = c.Frames[1:]
	}
	return frame, nil
}

// FakeEmbedder decodes frames produced by EmbeddingFrame.
type FakeEmbedder struct {
	Err error
}

func (e *FakeEmbedder) Embed(frame verify.Frame) ([]float64, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	var embedding []float64
	if err := json.Unmarshal([]byte(frame), &embedding); err != nil {
		return nil, err
	}
	return embedding, nil
}

// FakePresence reports a fixed confidence for every frame.
type FakePresence struct {
	Confidence float64
	OK         bool
}

func (p *FakePresence) DetectPresence(frame verify.Frame) (float64, bool) {
	return p.Confidence, p.OK
}

// FakePlatform is a canned platform authenticator. LastChallenge records
// what the gate asked it to sign.
type FakePlatform struct {
	mu            sync.Mutex
	Ref           string
	Proof         []byte
	CreateErr     error
	AssertErr     error
	LastChallenge []byte
}

func (p *FakePlatform) CreateCredential(ctx context.Context, username string) (string, error) {
	if p.CreateErr != nil {
		return "", p.CreateErr
	}
	return p.Ref, nil
}

func (p *FakePlatform) GetAssertion(ctx context.Context, ref string, challenge []byte) ([]byte, error) {
	p.mu.Lock()
	p.LastChallenge = challenge
	p.mu.Unlock()
	if p.AssertErr != nil {
		return nil, p.AssertErr
	}
	return p.Proof, nil
}

// Env is a fully wired service graph over a fresh in-memory database.
type Env struct {
	Store    *store.Store
	State    *models.State
	Mu       *sync.Mutex
	Gate     *verify.Gate
	Registry *registry.Registry
	Voting   *voting.Service
	Sessions *session.Manager
	Camera   *FakeCamera
	Platform *FakePlatform
	Config   cliparse.Config
}

// NewEnv builds an Env with working fake capture capabilities. The camera
// starts empty; tests queue frames before exercising face paths.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	platform := &FakePlatform{Ref: "platform-cred-ref", Proof: []byte("signed")}
	env := newEnv(t, platform)
	env.Platform = platform
	return env
}

// NewPasskeyEnv wires the gate's platform capability to a real assertion
// ledger instead of a scripted fake, the way the server build does.
// Env.Platform is nil in this shape.
func NewPasskeyEnv(t *testing.T) (*Env, *verify.AssertionLedger) {
	t.Helper()

	ledger := verify.NewAssertionLedger(0)
	return newEnv(t, ledger), ledger
}

func newEnv(t *testing.T, platform verify.PlatformAuthenticator) *Env {
	t.Helper()

	st := SetupTestStore(t)
	state, err := st.LoadState()
	if err != nil {
		t.Fatalf("Failed to load state: %v", err)
	}

	cfg := GetTestConfig()
	var mu sync.Mutex
	camera := &FakeCamera{}

	gate := verify.NewGate(st, state, &mu, GetTestGateConfig(), verify.Capabilities{
		Camera:   camera,
		Embedder: &FakeEmbedder{},
		Presence: &FakePresence{Confidence: 0.9, OK: true},
		Platform: platform,
	})

	return &Env{
		Store:    st,
		State:    state,
		Mu:       &mu,
		Gate:     gate,
		Registry: registry.New(st, state, &mu, gate),
		Voting:   voting.New(st, state, &mu, gate),
		Sessions: session.New(st, state, &mu, false),
		Camera:   camera,
		Config:   cfg,
	}
}

// RegisterTestUser registers an identity with a password only.
func RegisterTestUser(t *testing.T, env *Env, username, password string) {
	t.Helper()
	if err := env.Registry.Register(username, password, nil); err != nil {
		t.Fatalf("Failed to register test user %q: %v", username, err)
	}
}

// EnrollTestFace registers an identity with both a password and a face.
func EnrollTestFace(t *testing.T, env *Env, username, password string, embedding []float64) {
	t.Helper()
	if err := env.Registry.Register(username, password, embedding); err != nil {
		t.Fatalf("Failed to enroll test user %q: %v", username, err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
