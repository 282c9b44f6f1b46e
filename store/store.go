// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/ballot-gate/models"
)

// Namespace prefixes every canonical key. Legacy keys predate namespacing
// and are read unprefixed.
const Namespace = "ballotgate."

// Canonical key names with their legacy (pre-migration) fallbacks.
const (
	KeyIdentities   = "identities"
	KeyTally        = "tally"
	KeyOptions      = "options"
	KeyVoteRecords  = "voteRecords"
	KeyPolicy       = "policy"
	KeyCredentials  = "credentialRefs"
	KeyFaceFlags    = "biometricEnrollmentFlags"
	KeyEmbeddings   = "biometricEmbeddings"
	KeyLastIdentity = "lastIdentity"

	LegacyIdentities   = "users"
	LegacyTally        = "votes"
	LegacyOptions      = "options"
	LegacyVoteRecords  = "userVotes"
	LegacyPolicy       = "settings"
	LegacyCredentials  = "credentials"
	LegacyFaceFlags    = "faceRegistered"
	LegacyEmbeddings   = "faceDescriptors"
	LegacyLastIdentity = "lastLoggedInUser"
)

// Store is the single I/O boundary: a namespaced key-value device over SQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// getRaw reads the serialized value for a canonical key, falling back to the
// legacy key name. Returns false when neither key exists.
func (s *Store) getRaw(key, legacyKey string) (string, bool) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = $1`, Namespace+key).Scan(&raw)
	if err == nil {
		return raw, true
	}
	if err != sql.ErrNoRows {
		slog.Error("failed to read key", "key", key, "error", err)
		return "", false
	}
	if legacyKey == "" {
		return "", false
	}
	err = s.db.QueryRow(`SELECT value FROM kv WHERE key = $1`, legacyKey).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Error("failed to read legacy key", "key", legacyKey, "error", err)
		}
		return "", false
	}
	return raw, true
}

// has reports whether a value exists under the canonical or legacy key,
// regardless of whether it parses.
func (s *Store) has(key, legacyKey string) bool {
	_, ok := s.getRaw(key, legacyKey)
	return ok
}

// Load reads a typed value, falling back to the legacy key name, falling
// back to the default. Malformed stored content is treated as absent; Load
// never fails.
func Load[T any](s *Store, key, legacyKey string, def T) T {
	v, ok := LoadOK[T](s, key, legacyKey)
	if !ok {
		return def
	}
	return v
}

// LoadOK reads a typed value like Load but reports whether a usable value
// was found. Malformed stored content counts as absent, the same as a
// missing key.
func LoadOK[T any](s *Store, key, legacyKey string) (T, bool) {
	var v T
	raw, ok := s.getRaw(key, legacyKey)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		slog.Warn("discarding malformed stored value", "key", key, "error", err)
		var zero T
		return zero, false
	}
	return v, true
}

// Save serializes and writes one value unconditionally.
func (s *Store) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", key, err)
	}
	_, err = s.db.Exec(upsert, Namespace+key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

const upsert = `
	INSERT INTO kv (key, value) VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value
`

// SaveAll persists the entire aggregate as one logical batch. Callers must
// fully update in-memory state first and invoke SaveAll after every
// mutation.
func (s *Store) SaveAll(st *models.State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pairs := []struct {
		key string
		v   any
	}{
		{KeyIdentities, st.Identities},
		{KeyTally, st.Tally},
		{KeyOptions, st.Options},
		{KeyVoteRecords, st.VoteRecords},
		{KeyPolicy, st.Policy},
		{KeyCredentials, st.CredentialRefs},
		{KeyFaceFlags, st.BiometricEnrolled},
		{KeyEmbeddings, st.Embeddings},
		{KeyLastIdentity, st.LastIdentity},
	}

	for _, p := range pairs {
		raw, err := json.Marshal(p.v)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", p.key, err)
		}
		if _, err := tx.Exec(upsert, Namespace+p.key, string(raw)); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}
