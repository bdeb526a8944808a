package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// ErrNoSlotAvailable is returned when every active slot of the requested
// kind is held by an in-flight pending payment. It is a retryable condition
// for the caller, not a fault.
var ErrNoSlotAvailable = errors.New("no account slot available")

// BindFunc runs inside the claim transaction to attach the chosen slot to
// its holding payment request. Because "in use" is derived from pending
// requests, the claim is only atomic if the request row that holds the slot
// is written before the claim's locks are released; tx is the open claim
// transaction (nil for stores without one) and returning an error aborts
// the claim.
type BindFunc func(tx *gorm.DB, slot *model.AccountSlot) error

// SlotStore performs the storage-level slot operations. ClaimPoolSlot must
// pick one active slot of the given kind not held by any pending,
// non-expired payment request, and invoke bind before releasing its locks,
// so two concurrent claims can never both succeed for the same slot.
// Implementations return ErrNoSlotAvailable when the pool is exhausted.
type SlotStore interface {
	ClaimPoolSlot(ctx context.Context, kind model.PoolKind, now time.Time, bind BindFunc) (*model.AccountSlot, error)
	ClaimBusinessSlot(ctx context.Context, businessID uint, bind BindFunc) (*model.AccountSlot, error)
}

// Manager assigns receiving account numbers to pending payments. Release is
// implicit: a slot becomes assignable again as soon as its holding request
// leaves pending or expires, because "in use" is derived from live pending
// requests rather than stored on the slot.
type Manager struct {
	store SlotStore
}

// NewManager creates a pool Manager over the given store.
func NewManager(store SlotStore) *Manager {
	return &Manager{store: store}
}

// Assign hands out a slot of the requested kind and binds it to its holding
// payment via bind. Pool kinds draw from the shared pool under the store's
// atomic claim; business-specific kinds bypass the pool exclusivity and look
// the slot up by business id, since those slots are never shared across
// businesses.
func (m *Manager) Assign(ctx context.Context, kind model.PoolKind, businessID *uint, bind BindFunc) (*model.AccountSlot, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown pool kind %q", kind)
	}

	if kind == model.PoolBusinessSpecific {
		if businessID == nil {
			return nil, fmt.Errorf("business id is required for business-specific slots")
		}
		return m.store.ClaimBusinessSlot(ctx, *businessID, bind)
	}

	slot, err := m.store.ClaimPoolSlot(ctx, kind, time.Now(), bind)
	if err != nil {
		if errors.Is(err, ErrNoSlotAvailable) {
			logrus.Warnf("Account pool %s exhausted", kind)
		}
		return nil, err
	}

	logrus.Infof("Assigned account %s from pool %s", slot.AccountNumber, kind)
	return slot, nil
}
