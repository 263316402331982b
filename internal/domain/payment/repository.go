package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// KeyKind discriminates the three transaction key spaces.
type KeyKind int

const (
	KeyKindID KeyKind = iota
	KeyKindReference
	KeyKindInternalID
)

// Key is a typed lookup key for a transaction. Use the constructors; a zero
// Key looks up primary id 0 and matches nothing.
type Key struct {
	Kind       KeyKind
	ID         int64
	Reference  string
	InternalID string
}

func ByID(id int64) Key            { return Key{Kind: KeyKindID, ID: id} }
func ByReference(ref string) Key   { return Key{Kind: KeyKindReference, Reference: ref} }
func ByInternalID(id string) Key   { return Key{Kind: KeyKindInternalID, InternalID: id} }

type Repository interface {
	// Create inserts a PENDING transaction and returns the stored row.
	// A unique violation on reference or internal id maps to
	// apperrors.ErrConflict so the caller can retry with fresh ids.
	Create(ctx context.Context, txn *Transaction) (*Transaction, error)

	Find(ctx context.Context, key Key) (*Transaction, error)

	// FindPendingByPhone returns PENDING transactions whose customer's phone
	// exactly matches, newest first, bounded by limit.
	FindPendingByPhone(ctx context.Context, phone string, limit int) ([]*Transaction, error)

	// FindPendingByPhoneTail relaxes the match to a phone digit suffix.
	FindPendingByPhoneTail(ctx context.Context, tail string, limit int) ([]*Transaction, error)

	FindLatestPendingByCustomer(ctx context.Context, customerID int64) (*Transaction, error)

	// FindStalePending returns PENDING transactions whose request was sent
	// before the cutoff, due for expiry.
	FindStalePending(ctx context.Context, cutoff time.Time) ([]*Transaction, error)

	// SetRequestSent records the outbound delivery timestamp after the row is
	// durably written.
	SetRequestSent(ctx context.Context, id int64, at time.Time) error

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// LockForUpdateInTx reads the transaction row under FOR UPDATE inside tx.
	// The terminal-state check and attempt increment must happen under this
	// lock so racing confirmations cannot both observe PENDING.
	LockForUpdateInTx(ctx context.Context, tx pgx.Tx, key Key) (*Transaction, error)

	// UpdateAttemptsInTx persists an incremented attempt counter without
	// changing state.
	UpdateAttemptsInTx(ctx context.Context, tx pgx.Tx, id int64, attempts int) error

	// MarkTerminalInTx moves a PENDING row to a terminal state. The UPDATE is
	// guarded on status = PENDING; zero rows affected means a concurrent
	// writer won the race and the caller's precondition fails harmlessly.
	MarkTerminalInTx(ctx context.Context, tx pgx.Tx, id int64, status Status, reason FailureReason, receiptCode string, processedAt time.Time) error
}
