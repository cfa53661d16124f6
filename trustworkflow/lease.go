package trustworkflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	libkv "github.com/contenox/pkgbot/libkvstore"
)

const leaseKeyPrefix = "pkgbot:trust-lease:"

// Lease marks a trust update for a recipe as in flight.
type Lease struct {
	Token      string    `json:"token"`
	RecipeID   string    `json:"recipe_id"`
	ErrorID    int64     `json:"error_id"`
	AcquiredAt time.Time `json:"acquired_at"`

	raw json.RawMessage
}

type LeaseStore interface {
	// Acquire stores lease unless one is already held for the recipe.
	Acquire(ctx context.Context, lease *Lease) (bool, error)
	// Get returns the held lease, or nil when there is none.
	Get(ctx context.Context, recipeID string) (*Lease, error)
	// Release drops lease if it is still the one held.
	Release(ctx context.Context, lease *Lease) error
}

type kvLeaseStore struct {
	kv  libkv.KVManager
	ttl time.Duration
}

// NewLeaseStore keeps leases in kv; they expire after ttl.
func NewLeaseStore(kv libkv.KVManager, ttl time.Duration) LeaseStore {
	return &kvLeaseStore{kv: kv, ttl: ttl}
}

func leaseKey(recipeID string) string {
	return leaseKeyPrefix + recipeID
}

func (s *kvLeaseStore) Acquire(ctx context.Context, lease *Lease) (bool, error) {
	exec, err := s.kv.Executor(ctx)
	if err != nil {
		return false, err
	}
	raw, err := json.Marshal(lease)
	if err != nil {
		return false, fmt.Errorf("failed to encode lease: %w", err)
	}
	ok, err := exec.SetIfAbsent(ctx, leaseKey(lease.RecipeID), raw, s.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if ok {
		lease.raw = raw
	}
	return ok, nil
}

func (s *kvLeaseStore) Get(ctx context.Context, recipeID string) (*Lease, error) {
	exec, err := s.kv.Executor(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := exec.Get(ctx, leaseKey(recipeID))
	if errors.Is(err, libkv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lease: %w", err)
	}
	var lease Lease
	if err := json.Unmarshal(raw, &lease); err != nil {
		return nil, fmt.Errorf("failed to decode lease: %w", err)
	}
	lease.raw = raw
	return &lease, nil
}

func (s *kvLeaseStore) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	exec, err := s.kv.Executor(ctx)
	if err != nil {
		return err
	}
	raw := lease.raw
	if raw == nil {
		if raw, err = json.Marshal(lease); err != nil {
			return fmt.Errorf("failed to encode lease: %w", err)
		}
	}
	if _, err := exec.DeleteIfEquals(ctx, leaseKey(lease.RecipeID), raw); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
