package customer

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound = errors.New("customer not found")

	ErrDuplicatePhone = errors.New("phone number already registered to another customer")

	ErrUpdateConflict = errors.New("update conflict detected")
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	FindByCustomerNo(ctx context.Context, customerNo string) (*Customer, error)

	FindByPhone(ctx context.Context, phone string) (*Customer, error)

	// FindByPhoneTail matches customers whose phone ends with the given digit
	// suffix. The scan is bounded by limit, most recently created first.
	FindByPhoneTail(ctx context.Context, tail string, limit int) ([]*Customer, error)

	FindAll(ctx context.Context, activeOnly bool) ([]*Customer, error)

	// LockForUpdateInTx reads the customer row under FOR UPDATE inside the
	// caller's transaction so a confirmation's ledger write sees live balances.
	LockForUpdateInTx(ctx context.Context, tx pgx.Tx, customerID int64) (*Customer, error)

	// ApplyRepaymentInTx writes the post-payment balances, increments the
	// repayment total by amount, and soft-deactivates the customer when both
	// balances reach zero. Must run inside the same transaction that marks the
	// payment SUCCESS.
	ApplyRepaymentInTx(ctx context.Context, tx pgx.Tx, customerID int64, newLoanBalance, newArrears, amount float64) error
}
