// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package registry

import (
	"errors"
	"log/slog"
	"regexp"
	"sync"

	"github.com/danielhkuo/ballot-gate/auth"
	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/store"
	"github.com/danielhkuo/ballot-gate/verify"
)

var (
	ErrInvalidUsername    = errors.New("username must be at least 3 characters of letters, digits, or underscore")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrDuplicateUsername  = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrDuplicateBiometric is the registration-time name for the gate's
	// duplicate-embedding rejection; errors.Is matches either.
	ErrDuplicateBiometric = verify.ErrDuplicateIdentity
)

const minPasswordLen = 6

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,}$`)

// Registry owns identity records: account creation and password
// authentication. Verification artifacts are checked through the gate so
// registration and standalone enrollment share one duplicate rule.
type Registry struct {
	st    *store.Store
	state *models.State
	mu    *sync.Mutex
	gate  *verify.Gate
}

func New(st *store.Store, state *models.State, mu *sync.Mutex, gate *verify.Gate) *Registry {
	return &Registry{st: st, state: state, mu: mu, gate: gate}
}

// Register creates an identity. embedding, when non-nil, is a biometric
// enrollment supplied alongside registration; it runs through duplicate
// detection before anything is stored, so a rejected registration leaves no
// trace.
func (r *Registry) Register(username, password string, embedding []float64) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.state.Identities[username]; exists {
		return ErrDuplicateUsername
	}
	if embedding != nil {
		if err := r.gate.CheckDuplicate(embedding); err != nil {
			return err
		}
	}

	// Password stored as given; hashing is a pending hardening step.
	r.state.Identities[username] = password
	if embedding != nil {
		r.gate.StoreEmbedding(username, embedding)
	}
	if err := r.st.SaveAll(r.state); err != nil {
		return err
	}

	slog.Info("identity registered", "username", username, "biometric", embedding != nil)
	return nil
}

// Authenticate checks an exact credential match. Unknown usernames and
// wrong passwords fail identically so the error cannot enumerate accounts.
func (r *Registry) Authenticate(username, password string) error {
	r.mu.Lock()
	stored, ok := r.state.Identities[username]
	r.mu.Unlock()

	if !ok || !auth.ConstantTimeEquals(stored, password) {
		return ErrInvalidCredentials
	}
	return nil
}

// Exists reports whether a username is registered.
func (r *Registry) Exists(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.state.Identities[username]
	return ok
}
