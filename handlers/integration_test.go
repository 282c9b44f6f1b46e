// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/danielhkuo/ballot-gate/models"
	"github.com/danielhkuo/ballot-gate/testutil"
	"github.com/danielhkuo/ballot-gate/verify"
)

// TestFullVotingLifecycle walks the whole flow: registration, voting,
// sealed results, admin edits, export, and import into a fresh deployment.
func TestFullVotingLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	authH := newAuthHandler(env)
	votingH := newVotingHandler(env)
	resultsH := newResultsHandler(env)
	adminH := newAdminHandler(env)

	// 1. Admin reshapes the ballot before anyone arrives
	env.Sessions.LoginAdmin()
	for _, name := range []string{"Tea", "Coffee"} {
		w := httptest.NewRecorder()
		adminH.AddOption(w, testutil.MakeRequest("POST", "/admin/options", models.AddOptionRequest{Name: name}, nil))
		testutil.AssertStatus(t, w, http.StatusCreated)
	}
	for _, name := range []string{"Option A", "Option B", "Option C"} {
		req := testutil.MakeRequest("DELETE", "/admin/options/"+url.PathEscape(name), nil, nil)
		req.SetPathValue("name", name)
		w := httptest.NewRecorder()
		adminH.RemoveOption(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
	}

	// 2. Two voters register; registration logs each one in
	w := httptest.NewRecorder()
	authH.Register(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "alice", Password: "secret123",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	votingH.CastVote(w, testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Option: "Tea"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	authH.Register(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "bob", Password: "hunter22",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	votingH.CastVote(w, testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Option: "Coffee"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	// 3. Bob cannot vote twice
	w = httptest.NewRecorder()
	votingH.CastVote(w, testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Option: "Tea"}, nil))
	testutil.AssertStatus(t, w, http.StatusConflict)

	// 4. Admin seals results; a logged-out visitor is refused
	env.Sessions.LoginAdmin()
	p := env.Voting.Policy()
	p.ResultsVisible = false
	w = httptest.NewRecorder()
	adminH.SetPolicy(w, testutil.MakeRequest("PUT", "/admin/policy", p, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	env.Sessions.Logout()
	w = httptest.NewRecorder()
	resultsH.GetResults(w, testutil.MakeRequest("GET", "/results", nil, nil))
	testutil.AssertStatus(t, w, http.StatusForbidden)

	// 5. The admin still sees the tally and exports it
	env.Sessions.LoginAdmin()
	w = httptest.NewRecorder()
	resultsH.GetResults(w, testutil.MakeRequest("GET", "/results", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var results models.ResultsResponse
	testutil.AssertJSON(t, w, &results)
	if results.Tally["Tea"] != 1 || results.Tally["Coffee"] != 1 || results.Total != 2 {
		t.Errorf("unexpected final tally: %+v", results)
	}

	w = httptest.NewRecorder()
	adminH.Export(w, testutil.MakeRequest("GET", "/admin/export", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	doc := w.Body.String()

	// 6. Import the snapshot into a fresh deployment
	dst := testutil.NewEnv(t)
	dstAdmin := newAdminHandler(dst)
	dst.Sessions.LoginAdmin()

	w = httptest.NewRecorder()
	dstAdmin.Import(w, httptest.NewRequest("POST", "/admin/import", strings.NewReader(doc)))
	testutil.AssertStatus(t, w, http.StatusOK)

	if dst.Voting.Results()["Tea"] != 1 {
		t.Error("imported deployment lost the tally")
	}
	// Identities travel with the snapshot; alice can log in over there
	dstAuth := newAuthHandler(dst)
	w = httptest.NewRecorder()
	dstAuth.Login(w, testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{
		Username: "alice", Password: "secret123",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	// But verification enrollments do not
	dst.Mu.Lock()
	enrollments := len(dst.State.Embeddings)
	dst.Mu.Unlock()
	if enrollments != 0 {
		t.Error("snapshot import must not carry embeddings")
	}
}

// TestVerifiedVotingLifecycle covers the verification-required path end to
// end with a face enrollment.
func TestVerifiedVotingLifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	authH := newAuthHandler(env)
	votingH := newVotingHandler(env)
	adminH := newAdminHandler(env)
	face := testutil.Embedding(0.2)

	// Register with a face
	env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(face)}
	w := httptest.NewRecorder()
	authH.Register(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "alice", Password: "secret123", EnrollFace: true,
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	// Admin requires verification for every vote
	env.Sessions.LoginAdmin()
	p := env.Voting.Policy()
	p.RequireVerification = true
	w = httptest.NewRecorder()
	adminH.SetPolicy(w, testutil.MakeRequest("PUT", "/admin/policy", p, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	// Alice comes back through face login and votes; the camera now shows
	// her face again.
	env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(face)}
	w = httptest.NewRecorder()
	authH.FaceLogin(w, testutil.MakeRequest("POST", "/auth/face/login", models.FaceLoginRequest{Username: "alice"}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	env.Camera.Frames = []verify.Frame{testutil.EmbeddingFrame(face)}
	w = httptest.NewRecorder()
	votingH.CastVote(w, testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Option: "Option A"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	if env.Voting.Results()["Option A"] != 1 {
		t.Error("verified vote not tallied")
	}
}

// TestPasskeyVotingLifecycle covers the verification-required path for a
// passkey-enrolled identity: a finished assertion ceremony is the proof the
// gate consumes, and without one the vote is refused, not stuck.
func TestPasskeyVotingLifecycle(t *testing.T) {
	env, ledger := testutil.NewPasskeyEnv(t)
	authH := newAuthHandler(env)
	votingH := newVotingHandler(env)
	adminH := newAdminHandler(env)

	// Register alice and enroll a passkey ref as a finished registration
	// ceremony would.
	w := httptest.NewRecorder()
	authH.Register(w, testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "alice", Password: "secret123",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	env.Mu.Lock()
	env.State.CredentialRefs["alice"] = "stored-passkey"
	err := env.Store.SaveAll(env.State)
	env.Mu.Unlock()
	if err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	// Admin requires verification for every vote
	env.Sessions.LoginAdmin()
	p := env.Voting.Policy()
	p.RequireVerification = true
	w = httptest.NewRecorder()
	adminH.SetPolicy(w, testutil.MakeRequest("PUT", "/admin/policy", p, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	if err := env.Sessions.LoginUser("alice"); err != nil {
		t.Fatalf("LoginUser() error = %v", err)
	}

	// Without a finished ceremony the vote is refused and nothing counts
	w = httptest.NewRecorder()
	votingH.CastVote(w, testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Option: "Option A"}, nil))
	testutil.AssertStatus(t, w, http.StatusForbidden)
	if env.Voting.TotalVotes() != 0 {
		t.Error("refused vote must not count")
	}

	// A finished assertion ceremony unlocks the gated vote
	ledger.Record("stored-passkey", []byte("authenticator-data"))
	w = httptest.NewRecorder()
	votingH.CastVote(w, testutil.MakeRequest("POST", "/vote", models.CastVoteRequest{Option: "Option A"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	if env.Voting.Results()["Option A"] != 1 {
		t.Error("passkey-verified vote not tallied")
	}
}
