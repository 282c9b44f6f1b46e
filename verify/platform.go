// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package verify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultAssertionTTL bounds how long a finished ceremony counts as proof.
const DefaultAssertionTTL = 5 * time.Minute

type assertionRecord struct {
	proof     []byte
	expiresAt time.Time
}

// AssertionLedger bridges the asynchronous passkey ceremony to the gate's
// synchronous PlatformAuthenticator capability. The ceremony surface records
// proof of each finished assertion here; Verify consumes the record exactly
// once within the TTL. The challenge binding happened inside the ceremony
// itself, so GetAssertion only checks that a fresh record exists.
type AssertionLedger struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]assertionRecord
}

// NewAssertionLedger builds an empty ledger. A non-positive ttl takes
// DefaultAssertionTTL.
func NewAssertionLedger(ttl time.Duration) *AssertionLedger {
	if ttl <= 0 {
		ttl = DefaultAssertionTTL
	}
	return &AssertionLedger{ttl: ttl, records: make(map[string]assertionRecord)}
}

// Record stores proof of a finished ceremony for a credential ref, replacing
// any earlier record. Expired records are swept on the way in.
func (l *AssertionLedger) Record(ref string, proof []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for k, r := range l.records {
		if now.After(r.expiresAt) {
			delete(l.records, k)
		}
	}
	l.records[ref] = assertionRecord{proof: proof, expiresAt: now.Add(l.ttl)}
}

// CreateCredential implements PlatformAuthenticator. Passkey enrollment runs
// through the ceremony endpoints, never through the ledger.
func (l *AssertionLedger) CreateCredential(ctx context.Context, username string) (string, error) {
	return "", ErrUnsupportedModality
}

// GetAssertion implements PlatformAuthenticator: it consumes the recorded
// proof for the ref. A missing or expired record means no ceremony finished
// recently enough.
func (l *AssertionLedger) GetAssertion(ctx context.Context, ref string, challenge []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[ref]
	if !ok {
		return nil, fmt.Errorf("%w: no finished ceremony for credential", ErrNoMatch)
	}
	delete(l.records, ref)
	if time.Now().After(r.expiresAt) {
		return nil, fmt.Errorf("%w: ceremony proof expired", ErrNoMatch)
	}
	return r.proof, nil
}
