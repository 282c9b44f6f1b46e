// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/danielhkuo/ballot-gate/models"
)

// LoadState rehydrates the full aggregate, filling defaults for anything
// absent or malformed, and runs the one unconditional migration step: if the
// canonical option list is missing or unreadable it is inferred from the
// tally keys (or seeded with the default set), every option receives a zero
// tally entry,
// and the repaired aggregate is persisted back before any further read.
func (s *Store) LoadState() (*models.State, error) {
	st := models.NewState()

	st.Identities = Load(s, KeyIdentities, LegacyIdentities, map[string]string{})
	st.Tally = Load(s, KeyTally, LegacyTally, map[string]int{})
	st.VoteRecords = Load(s, KeyVoteRecords, LegacyVoteRecords, map[string]string{})
	st.Policy = Load(s, KeyPolicy, LegacyPolicy, models.DefaultPolicy())
	st.CredentialRefs = Load(s, KeyCredentials, LegacyCredentials, map[string]string{})
	st.BiometricEnrolled = Load(s, KeyFaceFlags, LegacyFaceFlags, map[string]bool{})
	st.Embeddings = Load(s, KeyEmbeddings, LegacyEmbeddings, map[string][]float64{})
	st.LastIdentity = Load(s, KeyLastIdentity, LegacyLastIdentity, "")

	if options, ok := LoadOK[[]string](s, KeyOptions, LegacyOptions); ok {
		st.Options = options
	} else if len(st.Tally) > 0 {
		// Pre-migration stores carried only a tally; rebuild the option
		// list from its keys. Sorted so the recovered order is stable.
		st.Options = make([]string, 0, len(st.Tally))
		for name := range st.Tally {
			st.Options = append(st.Options, name)
		}
		sort.Strings(st.Options)
		slog.Info("inferred option list from tally", "count", len(st.Options))
	} else {
		st.Options = append([]string{}, models.DefaultOptions...)
		slog.Info("seeded default option list")
	}

	// Every option must hold a tally entry, and the tally must not carry
	// entries for options that no longer exist.
	for _, name := range st.Options {
		if _, ok := st.Tally[name]; !ok {
			st.Tally[name] = 0
		}
	}
	current := make(map[string]bool, len(st.Options))
	for _, name := range st.Options {
		current[name] = true
	}
	for name := range st.Tally {
		if !current[name] {
			delete(st.Tally, name)
		}
	}
	for user, option := range st.VoteRecords {
		if !current[option] {
			delete(st.VoteRecords, user)
		}
	}

	if err := s.SaveAll(st); err != nil {
		return nil, fmt.Errorf("failed to persist migrated state: %w", err)
	}
	return st, nil
}
