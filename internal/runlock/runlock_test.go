package runlock

import (
	"context"
	"testing"

	"github.com/ledgermail/ledgermail/internal/domain"
)

func TestNoopAcquire(t *testing.T) {
	t.Parallel()

	release, err := Noop{}.Acquire(context.Background(), domain.FingerprintText("Hello"))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if release == nil {
		t.Fatal("Acquire() returned nil release")
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release() error = %v", err)
	}
}

func TestLockKeyScopedByFingerprint(t *testing.T) {
	t.Parallel()

	a := lockKey(domain.FingerprintText("Hello"))
	b := lockKey(domain.FingerprintText("Goodbye"))
	if a == b {
		t.Fatal("distinct fingerprints must map to distinct lock keys")
	}
}
