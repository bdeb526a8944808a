package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// memorySlotStore emulates the storage contract: the claim locks, checks the
// holder set, and binds before releasing.
type memorySlotStore struct {
	mu      sync.Mutex
	slots   []model.AccountSlot
	holders map[string]bool // account number -> held by a pending request
}

func newMemorySlotStore(kind model.PoolKind, n int) *memorySlotStore {
	s := &memorySlotStore{holders: make(map[string]bool)}
	for i := 0; i < n; i++ {
		s.slots = append(s.slots, model.AccountSlot{
			ID:            uint(i + 1),
			AccountNumber: fmt.Sprintf("10000000%02d", i),
			PoolKind:      kind,
			IsActive:      true,
		})
	}
	return s
}

func (s *memorySlotStore) ClaimPoolSlot(ctx context.Context, kind model.PoolKind, now time.Time, bind BindFunc) (*model.AccountSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots {
		slot := &s.slots[i]
		if slot.PoolKind != kind || !slot.IsActive || s.holders[slot.AccountNumber] {
			continue
		}
		if bind != nil {
			if err := bind(nil, slot); err != nil {
				return nil, err
			}
		}
		s.holders[slot.AccountNumber] = true
		out := *slot
		return &out, nil
	}
	return nil, ErrNoSlotAvailable
}

func (s *memorySlotStore) ClaimBusinessSlot(ctx context.Context, businessID uint, bind BindFunc) (*model.AccountSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots {
		slot := &s.slots[i]
		if slot.PoolKind == model.PoolBusinessSpecific && slot.BusinessID != nil && *slot.BusinessID == businessID {
			if bind != nil {
				if err := bind(nil, slot); err != nil {
					return nil, err
				}
			}
			out := *slot
			return &out, nil
		}
	}
	return nil, ErrNoSlotAvailable
}

func (s *memorySlotStore) release(accountNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holders, accountNumber)
}

func TestAssignExclusivityUnderConcurrency(t *testing.T) {
	const poolSize = 4
	const callers = 32

	store := newMemorySlotStore(model.PoolRegular, poolSize)
	mgr := NewManager(store)

	var wg sync.WaitGroup
	results := make(chan string, callers)
	var noSlot int32
	var noSlotMu sync.Mutex

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot, err := mgr.Assign(context.Background(), model.PoolRegular, nil, nil)
			if err != nil {
				if !errors.Is(err, ErrNoSlotAvailable) {
					t.Errorf("unexpected error: %v", err)
				}
				noSlotMu.Lock()
				noSlot++
				noSlotMu.Unlock()
				return
			}
			results <- slot.AccountNumber
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for acct := range results {
		if seen[acct] {
			t.Fatalf("account %s assigned to two concurrent callers", acct)
		}
		seen[acct] = true
	}
	if len(seen) != poolSize {
		t.Fatalf("expected exactly %d successful assignments, got %d", poolSize, len(seen))
	}
	if int(noSlot) != callers-poolSize {
		t.Fatalf("expected %d NoSlotAvailable failures, got %d", callers-poolSize, noSlot)
	}
}

func TestAssignSlotReusableAfterRelease(t *testing.T) {
	store := newMemorySlotStore(model.PoolRegular, 1)
	mgr := NewManager(store)

	slot, err := mgr.Assign(context.Background(), model.PoolRegular, nil, nil)
	if err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	if _, err := mgr.Assign(context.Background(), model.PoolRegular, nil, nil); !errors.Is(err, ErrNoSlotAvailable) {
		t.Fatalf("expected ErrNoSlotAvailable while slot is held, got %v", err)
	}

	// the holding request leaving pending frees the slot implicitly
	store.release(slot.AccountNumber)

	again, err := mgr.Assign(context.Background(), model.PoolRegular, nil, nil)
	if err != nil {
		t.Fatalf("assign after release failed: %v", err)
	}
	if again.AccountNumber != slot.AccountNumber {
		t.Fatalf("expected the released slot %s, got %s", slot.AccountNumber, again.AccountNumber)
	}
}

func TestAssignBindFailureAbortsClaim(t *testing.T) {
	store := newMemorySlotStore(model.PoolRegular, 1)
	mgr := NewManager(store)

	_, err := mgr.Assign(context.Background(), model.PoolRegular, nil, func(*gorm.DB, *model.AccountSlot) error {
		return errors.New("insert failed")
	})
	if err == nil {
		t.Fatal("expected bind error to propagate")
	}

	// the aborted claim must not leave the slot held
	if _, err := mgr.Assign(context.Background(), model.PoolRegular, nil, nil); err != nil {
		t.Fatalf("slot should still be assignable after aborted claim: %v", err)
	}
}

func TestAssignBusinessSpecific(t *testing.T) {
	store := newMemorySlotStore(model.PoolRegular, 0)
	bizID := uint(7)
	store.slots = append(store.slots, model.AccountSlot{
		ID:            99,
		AccountNumber: "5550001111",
		PoolKind:      model.PoolBusinessSpecific,
		BusinessID:    &bizID,
		IsActive:      true,
	})
	mgr := NewManager(store)

	slot, err := mgr.Assign(context.Background(), model.PoolBusinessSpecific, &bizID, nil)
	if err != nil {
		t.Fatalf("business slot lookup failed: %v", err)
	}
	if slot.AccountNumber != "5550001111" {
		t.Fatalf("wrong slot: %s", slot.AccountNumber)
	}

	if _, err := mgr.Assign(context.Background(), model.PoolBusinessSpecific, nil, nil); err == nil {
		t.Fatal("expected error without business id")
	}
}

func TestAssignRejectsUnknownKind(t *testing.T) {
	mgr := NewManager(newMemorySlotStore(model.PoolRegular, 1))
	if _, err := mgr.Assign(context.Background(), model.PoolKind("mystery"), nil, nil); err == nil {
		t.Fatal("expected error for unknown pool kind")
	}
}
