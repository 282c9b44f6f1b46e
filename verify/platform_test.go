// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package verify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/ballot-gate/testutil"
	"github.com/danielhkuo/ballot-gate/verify"
)

func TestVerify_PlatformLedger(t *testing.T) {
	env, ledger := testutil.NewPasskeyEnv(t)
	ctx := context.Background()
	testutil.RegisterTestUser(t, env, "alice", "secret123")

	// Enroll a passkey ref the way a finished registration ceremony does.
	env.Mu.Lock()
	env.State.CredentialRefs["alice"] = "stored-passkey"
	err := env.Store.SaveAll(env.State)
	env.Mu.Unlock()
	if err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	t.Run("no finished ceremony", func(t *testing.T) {
		err := env.Gate.Verify(ctx, "alice", verify.PlatformCredential{})
		if !errors.Is(err, verify.ErrNoMatch) {
			t.Errorf("expected ErrNoMatch without a finished ceremony, got %v", err)
		}
	})

	t.Run("finished ceremony verifies exactly once", func(t *testing.T) {
		ledger.Record("stored-passkey", []byte("authenticator-data"))

		if err := env.Gate.Verify(ctx, "alice", verify.PlatformCredential{}); err != nil {
			t.Fatalf("Verify() after finished ceremony error = %v", err)
		}

		// The record is consumed; a second verification needs a new ceremony
		err := env.Gate.Verify(ctx, "alice", verify.PlatformCredential{})
		if !errors.Is(err, verify.ErrNoMatch) {
			t.Errorf("expected ErrNoMatch after proof was consumed, got %v", err)
		}
	})

	t.Run("preferred modality routes through the ledger", func(t *testing.T) {
		m, err := env.Gate.Preferred("alice")
		if err != nil {
			t.Fatalf("Preferred() error = %v", err)
		}
		if _, ok := m.(verify.PlatformCredential); !ok {
			t.Fatalf("expected platform credential modality, got %T", m)
		}

		ledger.Record("stored-passkey", []byte("authenticator-data"))
		if err := env.Gate.Verify(ctx, "alice", m); err != nil {
			t.Errorf("Verify() with preferred modality error = %v", err)
		}
	})

	t.Run("enrollment is refused", func(t *testing.T) {
		err := env.Gate.Enroll(ctx, "alice", verify.PlatformCredential{})
		if !errors.Is(err, verify.ErrUnsupportedModality) {
			t.Errorf("expected ErrUnsupportedModality, got %v", err)
		}
	})
}

func TestAssertionLedger_Expiry(t *testing.T) {
	ledger := verify.NewAssertionLedger(time.Millisecond)
	ledger.Record("ref", []byte("proof"))

	time.Sleep(5 * time.Millisecond)

	_, err := ledger.GetAssertion(context.Background(), "ref", nil)
	if !errors.Is(err, verify.ErrNoMatch) {
		t.Errorf("expected ErrNoMatch for expired proof, got %v", err)
	}
}
