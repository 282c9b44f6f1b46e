// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting implements the vote-casting state machine and the
option/admin manager over the shared state aggregate.

# Casting

CastVote enforces, in order: an identity is present, voting is open, the
identity has not already voted (single-vote policy), the option exists,
and - when policy requires it - the verification gate confirms the claimed
identity. Only then does it increment the tally, record the vote (single-
vote policy), and persist.

Verification is a separate phase: preconditions are checked under the state
lock, the gate runs unlocked (face capture can suspend across polling
attempts), and the preconditions are re-checked before the write so admin
edits that landed mid-verification are respected.

Under single-vote policy CastVote is idempotent in the failure sense: after
one success, every further cast for that identity fails with
ErrAlreadyVoted and the tally is untouched.

# Admin Operations

AddOption, RemoveOption, ResetVotes, SetPolicy. Every mutation preserves
the aggregate invariants:

 1. Tally keys == current option set (AddOption inserts a zero entry,
    RemoveOption deletes the entry).
 2. Every vote record references a live option (RemoveOption purges records
    pointing at the removed option; those identities may vote again).
 3. Historical counts are discarded with their option, never redistributed.

# Snapshots

ExportSnapshot produces the five-field document {users, votes, options,
userVotes, settings}; verification enrollments are excluded. ImportSnapshot
wholesale-replaces those five fields, defaults anything missing, reconciles
the invariants, and fails with ErrMalformedDocument - prior state
untouched - on a parse or shape error.
*/
package voting
