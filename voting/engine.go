// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/store"
	"github.com/danielhkuo/ballot-gate/verify"
)

var (
	ErrUnauthenticated = errors.New("no identity is logged in")
	ErrVotingClosed    = errors.New("voting is closed")
	ErrAlreadyVoted    = errors.New("identity has already voted")
	ErrUnknownOption   = errors.New("option does not exist")
)

// Service is the voting engine plus the option/admin manager. Every
// mutation preserves the three-way invariant between options, tally, and
// vote records, and persists before returning.
type Service struct {
	st    *store.Store
	state *models.State
	mu    *sync.Mutex
	gate  *verify.Gate
}

func New(st *store.Store, state *models.State, mu *sync.Mutex, gate *verify.Gate) *Service {
	return &Service{st: st, state: state, mu: mu, gate: gate}
}

// CastVote records one vote for the identity. modality selects the
// verification method when policy requires one; nil picks the strongest
// enrolled modality.
//
// Verification is a separate phase: the precondition checks run, the gate
// verifies with no lock held (it can suspend across capture polling), and
// the preconditions are re-checked before the mutation so nothing that
// changed mid-verification is trusted.
func (s *Service) CastVote(ctx context.Context, username, option string, modality verify.Modality) error {
	if username == "" {
		return ErrUnauthenticated
	}

	s.mu.Lock()
	requireVerification := s.state.Policy.RequireVerification
	err := s.checkCastLocked(username, option)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if requireVerification {
		m := modality
		if m == nil {
			m, err = s.gate.Preferred(username)
			if err != nil {
				return err
			}
		}
		if err := s.gate.Verify(ctx, username, m); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Admin edits may have landed while verification was suspended.
	if err := s.checkCastLocked(username, option); err != nil {
		return err
	}

	s.state.Tally[option]++
	if !s.state.Policy.AllowMultipleVotes {
		s.state.VoteRecords[username] = option
	}
	if err := s.st.SaveAll(s.state); err != nil {
		// Roll the in-memory mutation back so state and store agree.
		s.state.Tally[option]--
		if !s.state.Policy.AllowMultipleVotes {
			delete(s.state.VoteRecords, username)
		}
		return err
	}

	slog.Info("vote cast", "username", username, "option", option)
	return nil
}

// checkCastLocked runs the cast preconditions in order: policy open,
// duplicate vote, option existence. Caller must hold the state lock.
func (s *Service) checkCastLocked(username, option string) error {
	if !s.state.Policy.VotingOpen {
		return ErrVotingClosed
	}
	if !s.state.Policy.AllowMultipleVotes {
		if _, voted := s.state.VoteRecords[username]; voted {
			return ErrAlreadyVoted
		}
	}
	if !slices.Contains(s.state.Options, option) {
		return ErrUnknownOption
	}
	return nil
}

// Read accessors used by the rendering surface.

// Options returns the option set in display order.
func (s *Service) Options() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.state.Options...)
}

// Results returns a copy of the tally.
func (s *Service) Results() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.state.Tally))
	for k, v := range s.state.Tally {
		out[k] = v
	}
	return out
}

// TotalVotes is the sum over the tally.
func (s *Service) TotalVotes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int
	for _, n := range s.state.Tally {
		total += n
	}
	return total
}

// VoteOf returns the identity's recorded option, if any.
func (s *Service) VoteOf(username string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	option, ok := s.state.VoteRecords[username]
	return option, ok
}

// Policy returns the current policy.
func (s *Service) Policy() models.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Policy
}
