// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/danielhkuo/ballot-gate/models"
)

var (
	ErrDuplicateOption   = errors.New("option already exists")
	ErrInvalidOptionName = errors.New("option name cannot be empty")
)

// AddOption appends a new option with a zero tally entry.
func (s *Service) AddOption(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidOptionName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.state.Options, name) {
		return ErrDuplicateOption
	}

	s.state.Options = append(s.state.Options, name)
	s.state.Tally[name] = 0
	if err := s.st.SaveAll(s.state); err != nil {
		s.state.Options = s.state.Options[:len(s.state.Options)-1]
		delete(s.state.Tally, name)
		return err
	}

	slog.Info("option added", "option", name)
	return nil
}

// RemoveOption deletes an option, discards its tally entry (the historical
// count is not redistributed), and purges every vote record pointing at it.
// Affected identities return to the not-voted state.
func (s *Service) RemoveOption(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.state.Options, name)
	if idx < 0 {
		return ErrUnknownOption
	}

	s.state.Options = slices.Delete(s.state.Options, idx, idx+1)
	delete(s.state.Tally, name)
	var released int
	for username, option := range s.state.VoteRecords {
		if option == name {
			delete(s.state.VoteRecords, username)
			released++
		}
	}
	if err := s.st.SaveAll(s.state); err != nil {
		return err
	}

	slog.Info("option removed", "option", name, "released_voters", released)
	return nil
}

// ResetVotes zeroes every tally entry and clears all vote records; the
// option set is untouched.
func (s *Service) ResetVotes() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.state.Tally {
		s.state.Tally[name] = 0
	}
	s.state.VoteRecords = make(map[string]string)
	if err := s.st.SaveAll(s.state); err != nil {
		return err
	}

	slog.Info("votes reset")
	return nil
}

// SetPolicy replaces the policy flags.
func (s *Service) SetPolicy(p models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Policy = p
	if err := s.st.SaveAll(s.state); err != nil {
		return err
	}

	slog.Info("policy updated",
		"voting_open", p.VotingOpen,
		"results_visible", p.ResultsVisible,
		"allow_multiple", p.AllowMultipleVotes,
		"require_verification", p.RequireVerification,
	)
	return nil
}
