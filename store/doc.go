// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store provides typed key-value persistence with legacy-key fallback
and default filling.

# Backends

Two interchangeable SQL backends hold a single kv(key, value) table:

  - sqlite (modernc.org/sqlite, pure Go): the default; url is a file path
    or ":memory:"
  - postgres (lib/pq): for shared deployments

	db, err := store.Open("sqlite", "ballot-gate.db")
	err = store.CreateSchema(db)
	s := store.New(db)

# Reading

Load is generic and never fails:

	tally := store.Load(s, store.KeyTally, store.LegacyTally, map[string]int{})

Lookup order is namespaced key, then legacy (pre-namespacing) key, then the
supplied default. Malformed stored JSON is treated as absent.

# Writing

Save writes one key unconditionally. SaveAll persists the whole aggregate in
one transaction and must be called after every mutation:

	err := s.SaveAll(state)

# Migration

LoadState rehydrates the aggregate and runs the single unconditional
migration step: a missing option list is inferred from tally keys (sorted)
or seeded with the defaults, tally entries are reconciled with the option
set, and the repaired state is persisted back before any further read.

Biometric embeddings are stored as ordered float sequences and round-trip
exactly through encoding/json.
*/
package store
