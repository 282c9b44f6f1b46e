// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

// Verification modality constants
const (
	ModalityPassword = "password"
	ModalityPlatform = "platform"
	ModalityFace     = "face"
)

// DefaultOptions is the option set seeded when a store has neither an
// option list nor a tally to infer one from.
var DefaultOptions = []string{"Option A", "Option B", "Option C"}

// Request types

type RegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	EnrollFace bool   `json:"enroll_face"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type FaceLoginRequest struct {
	Username string `json:"username"`
}

type CastVoteRequest struct {
	Option string `json:"option"`
}

type AddOptionRequest struct {
	Name string `json:"name"`
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Response types

type SessionResponse struct {
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
}

type CastVoteResponse struct {
	Option  string `json:"option"`
	Message string `json:"message"`
}

type OptionsResponse struct {
	Options []string `json:"options"`
}

type ResultsResponse struct {
	Tally map[string]int `json:"tally"`
	Total int            `json:"total"`
}

type MyVoteResponse struct {
	Option string `json:"option,omitempty"`
	Voted  bool   `json:"voted"`
}

// Domain types

// Policy is the admin-controlled global ruleset read on every vote attempt.
type Policy struct {
	VotingOpen          bool `json:"votingOpen"`
	ResultsVisible      bool `json:"resultsVisible"`
	AllowMultipleVotes  bool `json:"allowMultipleVotes"`
	RequireVerification bool `json:"requireVerification"`
}

// DefaultPolicy returns the policy applied to a fresh store.
func DefaultPolicy() Policy {
	return Policy{
		VotingOpen:          true,
		ResultsVisible:      true,
		AllowMultipleVotes:  false,
		RequireVerification: false,
	}
}

// State is the in-memory aggregate backing every component. Mutation
// functions fully update it before persisting, so a crash loses at most the
// last logical operation.
type State struct {
	// Identities maps username -> password credential. Passwords are stored
	// as given; hashing is a pending hardening step.
	Identities map[string]string

	// Options is the current option set in display order.
	Options []string

	// Tally maps option -> accepted vote count. Keys always equal the
	// current option set.
	Tally map[string]int

	// VoteRecords maps username -> chosen option; only meaningful while
	// multiple votes are disallowed. Every value references a live option.
	VoteRecords map[string]string

	Policy Policy

	// Verification enrollments, zero-or-one per modality per identity.
	CredentialRefs    map[string]string
	BiometricEnrolled map[string]bool
	Embeddings        map[string][]float64

	// LastIdentity is the persisted remember-marker for the session layer.
	LastIdentity string
}

// NewState returns an empty aggregate with all maps allocated.
func NewState() *State {
	return &State{
		Identities:        make(map[string]string),
		Options:           []string{},
		Tally:             make(map[string]int),
		VoteRecords:       make(map[string]string),
		Policy:            DefaultPolicy(),
		CredentialRefs:    make(map[string]string),
		BiometricEnrolled: make(map[string]bool),
		Embeddings:        make(map[string][]float64),
	}
}

// Snapshot is the export/import document. Exactly these five fields;
// verification enrollments never travel in it.
type Snapshot struct {
	Users     map[string]string `json:"users"`
	Votes     map[string]int    `json:"votes"`
	Options   []string          `json:"options"`
	UserVotes map[string]string `json:"userVotes"`
	Settings  Policy            `json:"settings"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
