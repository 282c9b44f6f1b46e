// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/testutil"
	"github.com/danielhkuo/ballot-gate/verify"
)

func newWebAuthnHandler(t *testing.T, env *testutil.Env) *WebAuthnHandler {
	t.Helper()
	h, err := NewWebAuthnHandler(env.Registry, env.Sessions, env.Store, env.State, env.Mu, verify.NewAssertionLedger(0), []string{"http://localhost:3342"})
	if err != nil {
		t.Fatalf("NewWebAuthnHandler() error = %v", err)
	}
	return h
}

type beginResponse struct {
	Options       json.RawMessage `json:"options"`
	CeremonyToken string          `json:"ceremony_token"`
}

func TestWebAuthnRegisterBegin(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newWebAuthnHandler(t, env)

		req := testutil.MakeRequest("POST", "/auth/webauthn/register/begin", nil, nil)
		w := httptest.NewRecorder()
		h.RegisterBegin(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("issues creation options and a ceremony token", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newWebAuthnHandler(t, env)
		testutil.RegisterTestUser(t, env, "alice", "secret123")
		env.Sessions.LoginUser("alice")

		req := testutil.MakeRequest("POST", "/auth/webauthn/register/begin", nil, nil)
		w := httptest.NewRecorder()
		h.RegisterBegin(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var resp beginResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.CeremonyToken == "" {
			t.Error("expected a ceremony token")
		}
		if len(resp.Options) == 0 {
			t.Error("expected creation options")
		}

		// The options carry a challenge and the relying party id
		var options struct {
			PublicKey struct {
				Challenge string `json:"challenge"`
				RP        struct {
					ID string `json:"id"`
				} `json:"rp"`
				User struct {
					Name string `json:"name"`
				} `json:"user"`
			} `json:"publicKey"`
		}
		if err := json.Unmarshal(resp.Options, &options); err != nil {
			t.Fatalf("options do not parse: %v", err)
		}
		if options.PublicKey.Challenge == "" {
			t.Error("expected a challenge in the creation options")
		}
		if options.PublicKey.RP.ID != "localhost" {
			t.Errorf("expected rp id localhost, got %q", options.PublicKey.RP.ID)
		}
		if options.PublicKey.User.Name != "alice" {
			t.Errorf("expected user name alice, got %q", options.PublicKey.User.Name)
		}
	})
}

func TestWebAuthnRegisterFinish_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	h := newWebAuthnHandler(t, env)
	testutil.RegisterTestUser(t, env, "alice", "secret123")
	env.Sessions.LoginUser("alice")

	t.Run("unknown ceremony token", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"ceremony_token": "bogus",
			"response":       map[string]any{},
		})
		req := httptest.NewRequest("POST", "/auth/webauthn/register/finish", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.RegisterFinish(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("ceremony tokens are single use", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/auth/webauthn/register/begin", nil, nil)
		w := httptest.NewRecorder()
		h.RegisterBegin(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var begin beginResponse
		testutil.AssertJSON(t, w, &begin)

		// A garbage response consumes the ceremony...
		body, _ := json.Marshal(map[string]any{
			"ceremony_token": begin.CeremonyToken,
			"response":       map[string]any{"id": "x"},
		})
		req = httptest.NewRequest("POST", "/auth/webauthn/register/finish", bytes.NewReader(body))
		w = httptest.NewRecorder()
		h.RegisterFinish(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)

		// ...so replaying the same token fails identically
		req = httptest.NewRequest("POST", "/auth/webauthn/register/finish", bytes.NewReader(body))
		w = httptest.NewRecorder()
		h.RegisterFinish(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("requires a session", func(t *testing.T) {
		env.Sessions.Logout()
		defer env.Sessions.LoginUser("alice")

		req := testutil.MakeRequest("POST", "/auth/webauthn/register/finish", map[string]any{}, nil)
		w := httptest.NewRecorder()
		h.RegisterFinish(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})
}

func TestWebAuthnLoginBegin(t *testing.T) {
	t.Run("no passkey enrolled", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newWebAuthnHandler(t, env)
		testutil.RegisterTestUser(t, env, "alice", "secret123")

		req := testutil.MakeRequest("POST", "/auth/webauthn/login/begin", models.FaceLoginRequest{Username: "alice"}, nil)
		w := httptest.NewRecorder()
		h.LoginBegin(w, req)

		testutil.AssertStatus(t, w, http.StatusForbidden)
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		env := testutil.NewEnv(t)
		h := newWebAuthnHandler(t, env)

		req := testutil.MakeRequest("POST", "/auth/webauthn/login/begin", models.FaceLoginRequest{Username: "ghost"}, nil)
		w := httptest.NewRecorder()
		h.LoginBegin(w, req)

		testutil.AssertStatus(t, w, http.StatusForbidden)
	})
}

func TestWebAuthnLoginFinish_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	h := newWebAuthnHandler(t, env)

	t.Run("unknown ceremony token", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{
			"ceremony_token": "bogus",
			"response":       map[string]any{},
		})
		req := httptest.NewRequest("POST", "/auth/webauthn/login/finish", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.LoginFinish(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
		if username, _ := env.Sessions.Current(); username != "" {
			t.Error("rejected assertion must not start a session")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/auth/webauthn/login/finish", bytes.NewReader([]byte(`{{{`)))
		w := httptest.NewRecorder()
		h.LoginFinish(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}
