// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"log/slog"
	"sync"

	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/store"
)

// Manager holds the process-wide session: the current identity and the
// admin flag. The system assumes a single tab of control, so there is one
// session, not a token table.
type Manager struct {
	st       *store.Store
	state    *models.State
	mu       *sync.Mutex
	remember bool

	current string
	isAdmin bool
}

func New(st *store.Store, state *models.State, mu *sync.Mutex, remember bool) *Manager {
	return &Manager{st: st, state: state, mu: mu, remember: remember}
}

// Restore reinstates the remembered identity from the store, if the
// remember marker is enabled and the identity still exists.
func (m *Manager) Restore() {
	if !m.remember {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	last := m.state.LastIdentity
	if last == "" {
		return
	}
	if _, ok := m.state.Identities[last]; !ok {
		return
	}
	m.current = last
	slog.Info("session restored", "username", last)
}

// LoginUser makes username the current identity. Authentication happens
// before this call; the manager only tracks who is acting.
func (m *Manager) LoginUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = username
	m.isAdmin = false
	if m.remember {
		m.state.LastIdentity = username
		if err := m.st.SaveAll(m.state); err != nil {
			return err
		}
	}
	slog.Info("session started", "username", username)
	return nil
}

// LoginAdmin marks the session as the admin actor.
func (m *Manager) LoginAdmin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ""
	m.isAdmin = true
	slog.Info("admin session started")
}

// Logout clears the session and the remember marker.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = ""
	m.isAdmin = false
	if m.remember && m.state.LastIdentity != "" {
		m.state.LastIdentity = ""
		if err := m.st.SaveAll(m.state); err != nil {
			return err
		}
	}
	slog.Info("session ended")
	return nil
}

// Current returns the acting identity ("" when none) and the admin flag.
func (m *Manager) Current() (username string, isAdmin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.isAdmin
}
