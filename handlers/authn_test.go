// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/testutil"
	"github.com/danielhkuo/ballot-gate/verify"
)

func newAuthHandler(env *testutil.Env) *AuthHandler {
	return NewAuthHandler(env.Registry, env.Gate, env.Sessions)
}

func TestRegister_Handler(t *testing.T) {
	t.Run("success logs the identity in", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)

		req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
			Username: "alice", Password: "secret123",
		}, nil)
		w := httptest.NewRecorder()
		h.Register(w, req)

		testutil.AssertStatus(t, w, http.StatusCreated)

		var resp models.SessionResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Username != "alice" {
			t.Errorf("expected session for alice, got %q", resp.Username)
		}
		if username, _ := env.Sessions.Current(); username != "alice" {
			t.Error("registration should log the identity in")
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name       string
			body       any
			wantStatus int
		}{
			{"invalid JSON", "not json", http.StatusBadRequest},
			{"short username", models.RegisterRequest{Username: "ab", Password: "secret123"}, http.StatusBadRequest},
			{"weak password", models.RegisterRequest{Username: "alice", Password: "12345"}, http.StatusBadRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				env := testutil.NewEnv(t)
				h := newAuthHandler(env)

				req := testutil.MakeRequest("POST", "/auth/register", tt.body, nil)
				w := httptest.NewRecorder()
				h.Register(w, req)

				testutil.AssertStatus(t, w, tt.wantStatus)
			})
		}
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)
		testutil.RegisterTestUser(t, env, "alice", "secret123")

		req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
			Username: "alice", Password: "other456",
		}, nil)
		w := httptest.NewRecorder()
		h.Register(w, req)

		testutil.AssertStatus(t, w, http.StatusConflict)
	})

	t.Run("register with face enrollment", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)
		env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(testutil.Embedding(0.3))}

		req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
			Username: "alice", Password: "secret123", EnrollFace: true,
		}, nil)
		w := httptest.NewRecorder()
		h.Register(w, req)

		testutil.AssertStatus(t, w, http.StatusCreated)

		env.Mu.Lock()
		enrolled := env.State.BiometricEnrolled["alice"]
		env.Mu.Unlock()
		if !enrolled {
			t.Error("expected biometric enrollment alongside registration")
		}
	})

	t.Run("duplicate face blocks registration entirely", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)
		testutil.EnrollTestFace(t, env, "alice", "secret123", testutil.Embedding(0.3))
		env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(testutil.Embedding(0.3))}

		req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
			Username: "mallory", Password: "secret123", EnrollFace: true,
		}, nil)
		w := httptest.NewRecorder()
		h.Register(w, req)

		testutil.AssertStatus(t, w, http.StatusConflict)
		if env.Registry.Exists("mallory") {
			t.Error("rejected registration must leave no identity behind")
		}
	})

	t.Run("no camera fails face registration", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)

		req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
			Username: "alice", Password: "secret123", EnrollFace: true,
		}, nil)
		w := httptest.NewRecorder()
		h.Register(w, req)

		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	})
}

func TestLogin_Handler(t *testing.T) {
	env := testutil.NewEnv(t)
	h := newAuthHandler(env)
	testutil.RegisterTestUser(t, env, "alice", "secret123")
	env.Sessions.Logout()

	t.Run("correct credentials", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{
			Username: "alice", Password: "secret123",
		}, nil)
		w := httptest.NewRecorder()
		h.Login(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		if username, _ := env.Sessions.Current(); username != "alice" {
			t.Error("login should start a session")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		env.Sessions.Logout()
		req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{
			Username: "alice", Password: "wrong",
		}, nil)
		w := httptest.NewRecorder()
		h.Login(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
		if username, _ := env.Sessions.Current(); username != "" {
			t.Error("failed login must not start a session")
		}
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{
			Username: "nobody", Password: "secret123",
		}, nil)
		w := httptest.NewRecorder()
		h.Login(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})
}

func TestMe_Handler(t *testing.T) {
	env := testutil.NewEnv(t)
	h := newAuthHandler(env)

	req := testutil.MakeRequest("GET", "/auth/me", nil, nil)
	w := httptest.NewRecorder()
	h.Me(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SessionResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Username != "" || resp.IsAdmin {
		t.Errorf("expected empty session, got %+v", resp)
	}

	env.Sessions.LoginUser("alice")
	w = httptest.NewRecorder()
	h.Me(w, testutil.MakeRequest("GET", "/auth/me", nil, nil))
	testutil.AssertJSON(t, w, &resp)
	if resp.Username != "alice" {
		t.Errorf("expected alice, got %q", resp.Username)
	}
}

func TestFaceEnroll_Handler(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)

		req := testutil.MakeRequest("POST", "/auth/face/enroll", nil, nil)
		w := httptest.NewRecorder()
		h.FaceEnroll(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("enrolls the logged-in identity", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)
		testutil.RegisterTestUser(t, env, "alice", "secret123")
		env.Sessions.LoginUser("alice")
		env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(testutil.Embedding(0.3))}

		req := testutil.MakeRequest("POST", "/auth/face/enroll", nil, nil)
		w := httptest.NewRecorder()
		h.FaceEnroll(w, req)

		testutil.AssertStatus(t, w, http.StatusCreated)
	})
}

func TestFaceLogin_Handler(t *testing.T) {
	stored := testutil.Embedding(0.1)

	t.Run("matching face logs in", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)
		testutil.EnrollTestFace(t, env, "alice", "secret123", stored)
		env.Sessions.Logout()
		env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(stored)}

		req := testutil.MakeRequest("POST", "/auth/face/login", models.FaceLoginRequest{Username: "alice"}, nil)
		w := httptest.NewRecorder()
		h.FaceLogin(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		if username, _ := env.Sessions.Current(); username != "alice" {
			t.Error("face login should start a session")
		}
	})

	t.Run("imposter face times out", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)
		testutil.EnrollTestFace(t, env, "alice", "secret123", stored)
		env.Sessions.Logout()
		env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(testutil.Embedding(0.9))}

		req := testutil.MakeRequest("POST", "/auth/face/login", models.FaceLoginRequest{Username: "alice"}, nil)
		w := httptest.NewRecorder()
		h.FaceLogin(w, req)

		testutil.AssertStatus(t, w, http.StatusForbidden)
		if username, _ := env.Sessions.Current(); username != "" {
			t.Error("failed face login must not start a session")
		}
	})

	t.Run("unknown user indistinguishable from mismatch", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)

		req := testutil.MakeRequest("POST", "/auth/face/login", models.FaceLoginRequest{Username: "ghost"}, nil)
		w := httptest.NewRecorder()
		h.FaceLogin(w, req)

		testutil.AssertStatus(t, w, http.StatusForbidden)
	})

	t.Run("no camera reports unavailable", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newAuthHandler(env)
		testutil.EnrollTestFace(t, env, "alice", "secret123", stored)
		env.Camera.Err = verify.ErrCaptureUnavailable

		req := testutil.MakeRequest("POST", "/auth/face/login", models.FaceLoginRequest{Username: "alice"}, nil)
		w := httptest.NewRecorder()
		h.FaceLogin(w, req)

		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	})
}
