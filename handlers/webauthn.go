// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	ballotauth "github.com/danielhkuo/ballot-gate/auth"
	"github.com/danielhkuo/ballot-gate/middleware"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/registry"
	"github.com/danielhkuo/ballot-gate/session"
	"github.com/danielhkuo/ballot-gate/store"
	"github.com/danielhkuo/ballot-gate/verify"
)

// ceremonyTTL bounds how long a begin/finish ceremony may stay open.
const ceremonyTTL = 5 * time.Minute

// webAuthnUser adapts a registered identity to the webauthn.User interface.
type webAuthnUser struct {
	username string
	creds    []webauthn.Credential
}

func (u *webAuthnUser) WebAuthnID() []byte {
	// Stable per-username handle; never reveals the username to the
	// authenticator.
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(u.username))
	return id[:]
}

func (u *webAuthnUser) WebAuthnName() string                       { return u.username }
func (u *webAuthnUser) WebAuthnDisplayName() string                { return u.username }
func (u *webAuthnUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

// ceremony is one in-progress begin/finish exchange.
type ceremony struct {
	session   *webauthn.SessionData
	username  string
	expiresAt time.Time
}

type WebAuthnHandler struct {
	web      *webauthn.WebAuthn
	reg      *registry.Registry
	sessions *session.Manager
	st       *store.Store
	state    *models.State
	mu       *sync.Mutex
	ledger   *verify.AssertionLedger

	ceremonyMu sync.Mutex
	ceremonies map[string]*ceremony
}

// NewWebAuthnHandler builds the passkey ceremony surface. Finished
// ceremonies are recorded in the ledger (shared with the verification gate)
// so a completed assertion doubles as platform-credential proof for gated
// votes. A nil ledger skips recording.
func NewWebAuthnHandler(reg *registry.Registry, sessions *session.Manager, st *store.Store, state *models.State, mu *sync.Mutex, ledger *verify.AssertionLedger, origins []string) (*WebAuthnHandler, error) {
	web, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "ballot-gate",
		RPID:          "localhost",
		RPOrigins:     origins,
	})
	if err != nil {
		return nil, err
	}
	return &WebAuthnHandler{
		web:        web,
		reg:        reg,
		sessions:   sessions,
		st:         st,
		state:      state,
		mu:         mu,
		ledger:     ledger,
		ceremonies: make(map[string]*ceremony),
	}, nil
}

func (h *WebAuthnHandler) putCeremony(token, username string, s *webauthn.SessionData) {
	h.ceremonyMu.Lock()
	defer h.ceremonyMu.Unlock()
	now := time.Now()
	for k, c := range h.ceremonies {
		if now.After(c.expiresAt) {
			delete(h.ceremonies, k)
		}
	}
	h.ceremonies[token] = &ceremony{session: s, username: username, expiresAt: now.Add(ceremonyTTL)}
}

func (h *WebAuthnHandler) takeCeremony(token string) (*ceremony, bool) {
	h.ceremonyMu.Lock()
	defer h.ceremonyMu.Unlock()
	c, ok := h.ceremonies[token]
	if !ok {
		return nil, false
	}
	delete(h.ceremonies, token)
	if time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c, true
}

// storedCredentials loads the identity's enrolled passkey, if any.
func (h *WebAuthnHandler) storedCredentials(username string) []webauthn.Credential {
	h.mu.Lock()
	raw, ok := h.state.CredentialRefs[username]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	var cred webauthn.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		slog.Warn("discarding malformed stored credential", "username", username, "error", err)
		return nil
	}
	return []webauthn.Credential{cred}
}

type ceremonyFinishRequest struct {
	CeremonyToken string          `json:"ceremony_token"`
	Response      json.RawMessage `json:"response"`
}

// RegisterBegin handles POST /auth/webauthn/register/begin
// Starts passkey enrollment for the logged-in identity.
func (h *WebAuthnHandler) RegisterBegin(w http.ResponseWriter, r *http.Request) {
	username, _ := h.sessions.Current()
	if username == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Log in first")
		return
	}

	waUser := &webAuthnUser{username: username, creds: h.storedCredentials(username)}
	options, sessionData, err := h.web.BeginRegistration(waUser)
	if err != nil {
		slog.Error("failed to begin passkey registration", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start registration")
		return
	}

	token, err := ballotauth.GenerateSessionToken()
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start registration")
		return
	}
	h.putCeremony(token, username, sessionData)

	middleware.JSONResponse(w, http.StatusOK, struct {
		Options       *protocol.CredentialCreation `json:"options"`
		CeremonyToken string                       `json:"ceremony_token"`
	}{options, token})
}

// RegisterFinish handles POST /auth/webauthn/register/finish
func (h *WebAuthnHandler) RegisterFinish(w http.ResponseWriter, r *http.Request) {
	username, _ := h.sessions.Current()
	if username == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Log in first")
		return
	}

	var req ceremonyFinishRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, ok := h.takeCeremony(req.CeremonyToken)
	if !ok || c.username != username {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid or expired ceremony")
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Response))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid authenticator response")
		return
	}

	waUser := &webAuthnUser{username: username, creds: h.storedCredentials(username)}
	credential, err := h.web.CreateCredential(waUser, *c.session, parsed)
	if err != nil {
		slog.Error("failed to verify passkey credential", "error", err)
		middleware.ErrorResponse(w, http.StatusBadRequest, "Failed to verify credential")
		return
	}

	raw, err := json.Marshal(credential)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save credential")
		return
	}

	h.mu.Lock()
	h.state.CredentialRefs[username] = string(raw)
	err = h.st.SaveAll(h.state)
	h.mu.Unlock()
	if err != nil {
		slog.Error("failed to persist credential", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save credential")
		return
	}

	// Creating the credential proved possession; let it satisfy the gate.
	if h.ledger != nil {
		h.ledger.Record(string(raw), credential.ID)
	}

	slog.Info("passkey enrolled", "username", username)
	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{Username: username})
}

// LoginBegin handles POST /auth/webauthn/login/begin
// Starts a passkey assertion for a claimed username.
func (h *WebAuthnHandler) LoginBegin(w http.ResponseWriter, r *http.Request) {
	var req models.FaceLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	creds := h.storedCredentials(req.Username)
	if !h.reg.Exists(req.Username) || len(creds) == 0 {
		// Indistinguishable from a failed assertion; no enumeration.
		middleware.ErrorResponse(w, http.StatusForbidden, "Passkey login failed")
		return
	}

	waUser := &webAuthnUser{username: req.Username, creds: creds}
	options, sessionData, err := h.web.BeginLogin(waUser)
	if err != nil {
		slog.Error("failed to begin passkey login", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start login")
		return
	}

	token, err := ballotauth.GenerateSessionToken()
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start login")
		return
	}
	h.putCeremony(token, req.Username, sessionData)

	middleware.JSONResponse(w, http.StatusOK, struct {
		Options       *protocol.CredentialAssertion `json:"options"`
		CeremonyToken string                        `json:"ceremony_token"`
	}{options, token})
}

// LoginFinish handles POST /auth/webauthn/login/finish
func (h *WebAuthnHandler) LoginFinish(w http.ResponseWriter, r *http.Request) {
	var req ceremonyFinishRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, ok := h.takeCeremony(req.CeremonyToken)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid or expired ceremony")
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Response))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid authenticator response")
		return
	}

	waUser := &webAuthnUser{username: c.username, creds: h.storedCredentials(c.username)}
	credential, err := h.web.ValidateLogin(waUser, *c.session, parsed)
	if err != nil {
		slog.Warn("passkey assertion rejected", "username", c.username, "error", err)
		middleware.ErrorResponse(w, http.StatusForbidden, "Passkey login failed")
		return
	}

	// Persist the updated sign count so clone detection keeps working.
	if raw, err := json.Marshal(credential); err == nil {
		h.mu.Lock()
		h.state.CredentialRefs[c.username] = string(raw)
		if err := h.st.SaveAll(h.state); err != nil {
			slog.Error("failed to persist credential", "error", err)
		}
		h.mu.Unlock()

		// The finished assertion is platform-credential proof for the gate,
		// keyed by the ref as just persisted.
		if h.ledger != nil {
			h.ledger.Record(string(raw), credential.ID)
		}
	}

	if err := h.sessions.LoginUser(c.username); err != nil {
		slog.Error("failed to start session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{Username: c.username})
}
