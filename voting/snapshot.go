// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielhkuo/ballot-gate/models"
)

var ErrMalformedDocument = errors.New("snapshot document is malformed")

// ExportSnapshot serializes identities, tally, options, vote records, and
// policy as one document. Verification enrollments are excluded: an export
// never carries credential refs or embeddings.
func (s *Service) ExportSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		Users:     s.state.Identities,
		Votes:     s.state.Tally,
		Options:   s.state.Options,
		UserVotes: s.state.VoteRecords,
		Settings:  s.state.Policy,
	}
	doc, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	return doc, nil
}

// ImportSnapshot wholesale-replaces identities, tally, options, vote
// records, and policy with the document contents. Missing fields default;
// a parse or shape error leaves prior state untouched.
func (s *Service) ImportSnapshot(doc []byte) error {
	// Reject documents that are not a JSON object before touching state.
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(doc, &shape); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	// A literal null decodes to a nil map without error.
	if shape == nil {
		return fmt.Errorf("%w: document is null", ErrMalformedDocument)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	if snap.Users == nil {
		snap.Users = make(map[string]string)
	}
	if snap.Votes == nil {
		snap.Votes = make(map[string]int)
	}
	if snap.Options == nil {
		snap.Options = []string{}
	}
	if snap.UserVotes == nil {
		snap.UserVotes = make(map[string]string)
	}
	if _, ok := shape["settings"]; !ok {
		snap.Settings = models.DefaultPolicy()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Identities = snap.Users
	s.state.Options = snap.Options
	s.state.Tally = snap.Votes
	s.state.VoteRecords = snap.UserVotes
	s.state.Policy = snap.Settings

	// Imported documents predate no invariant: reconcile tally keys and
	// vote records with the imported option set.
	current := make(map[string]bool, len(s.state.Options))
	for _, name := range s.state.Options {
		current[name] = true
		if _, ok := s.state.Tally[name]; !ok {
			s.state.Tally[name] = 0
		}
	}
	for name := range s.state.Tally {
		if !current[name] {
			delete(s.state.Tally, name)
		}
	}
	for username, option := range s.state.VoteRecords {
		if !current[option] {
			delete(s.state.VoteRecords, username)
		}
	}

	if err := s.st.SaveAll(s.state); err != nil {
		return err
	}

	slog.Info("snapshot imported",
		"identities", len(s.state.Identities),
		"options", len(s.state.Options),
	)
	return nil
}
