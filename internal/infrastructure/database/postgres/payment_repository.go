package postgres

import (
	"collections-engine/internal/domain/payment"
	"collections-engine/internal/infrastructure/monitoring"
	"collections-engine/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

type PaymentRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var _ payment.Repository = (*PaymentRepository)(nil)

var errMsgFormat = "%w: %w"

const transactionColumns = `id, reference, internal_id, customer_id, amount, description,
        loan_balance_before, loan_balance_after, arrears_before, arrears_after,
        status, pin_attempts, failure_reason, receipt_code,
        created_at, request_sent_at, processed_at, updated_at`

func NewPaymentRepository(db DBPool, logger *slog.Logger) *PaymentRepository {
	return &PaymentRepository{db: db, logger: logger.With("component", "PaymentRepository")}
}

func (r *PaymentRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *PaymentRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *PaymentRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *PaymentRepository) Create(ctx context.Context, txn *payment.Transaction) (*payment.Transaction, error) {
	if txn == nil {
		return nil, fmt.Errorf("%w: transaction cannot be nil", apperrors.ErrInvalidArgument)
	}

	query := `
        INSERT INTO transactions (reference, internal_id, customer_id, amount, description,
            loan_balance_before, loan_balance_after, arrears_before, arrears_after,
            status, pin_attempts, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	status := "success"
	startTime := time.Now()
	err := r.db.QueryRow(ctx, query,
		txn.Reference, txn.InternalID, txn.CustomerID, txn.Amount, txn.Description,
		txn.LoanBalanceBefore, txn.LoanBalanceAfter, txn.ArrearsBefore, txn.ArrearsAfter,
		txn.Status, txn.PinAttempts,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateTransaction", status, time.Since(startTime))

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.WarnContext(ctx, "Transaction identifier collision",
				slog.String("reference", txn.Reference), slog.String("constraint", pgErr.ConstraintName))
			return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.ConstraintName)
		}
		r.logger.ErrorContext(ctx, "Failed to insert transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to insert transaction: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Transaction created in DB",
		slog.Int64("transaction_id", txn.ID), slog.String("reference", txn.Reference))
	return txn, nil
}

func keyPredicate(key payment.Key) (string, any) {
	switch key.Kind {
	case payment.KeyKindReference:
		return "reference = $1", key.Reference
	case payment.KeyKindInternalID:
		return "internal_id = $1", key.InternalID
	default:
		return "id = $1", key.ID
	}
}

func (r *PaymentRepository) Find(ctx context.Context, key payment.Key) (*payment.Transaction, error) {
	predicate, arg := keyPredicate(key)
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s`, transactionColumns, predicate)

	status := "success"
	startTime := time.Now()
	txn, err := r.scanTransaction(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindTransaction", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Transaction not found", slog.String("predicate", predicate))
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find transaction", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return txn, nil
}

func (r *PaymentRepository) FindPendingByPhone(ctx context.Context, phone string, limit int) ([]*payment.Transaction, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM transactions t
        WHERE t.status = 'PENDING'
          AND t.customer_id IN (SELECT id FROM customers WHERE phone = $1)
        ORDER BY t.created_at DESC
        LIMIT $2`, prefixColumns("t"))

	return r.queryTransactions(ctx, "FindPendingByPhone", query, phone, limit)
}

func (r *PaymentRepository) FindPendingByPhoneTail(ctx context.Context, tail string, limit int) ([]*payment.Transaction, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM transactions t
        WHERE t.status = 'PENDING'
          AND t.customer_id IN (SELECT id FROM customers WHERE phone LIKE '%%' || $1)
        ORDER BY t.created_at DESC
        LIMIT $2`, prefixColumns("t"))

	return r.queryTransactions(ctx, "FindPendingByPhoneTail", query, tail, limit)
}

func (r *PaymentRepository) FindLatestPendingByCustomer(ctx context.Context, customerID int64) (*payment.Transaction, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM transactions
        WHERE status = 'PENDING' AND customer_id = $1
        ORDER BY created_at DESC
        LIMIT 1`, transactionColumns)

	status := "success"
	startTime := time.Now()
	txn, err := r.scanTransaction(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindLatestPendingByCustomer", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find latest pending transaction",
			slog.Int64("customer_id", customerID), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return txn, nil
}

func (r *PaymentRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]*payment.Transaction, error) {
	// The pending window runs from the moment the confirmation prompt was
	// delivered; created_at only covers rows whose send-timestamp write failed.
	query := fmt.Sprintf(`
        SELECT %s FROM transactions
        WHERE status = 'PENDING' AND COALESCE(request_sent_at, created_at) < $1
        ORDER BY created_at ASC`, transactionColumns)

	return r.queryTransactions(ctx, "FindStalePending", query, cutoff)
}

func (r *PaymentRepository) SetRequestSent(ctx context.Context, id int64, at time.Time) error {
	query := `
        UPDATE transactions
        SET request_sent_at = $1, updated_at = NOW()
        WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to record request-sent timestamp",
			slog.Int64("transaction_id", id), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) LockForUpdateInTx(ctx context.Context, tx pgx.Tx, key payment.Key) (*payment.Transaction, error) {
	predicate, arg := keyPredicate(key)
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s FOR UPDATE`, transactionColumns, predicate)

	txn, err := r.scanTransaction(tx.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock transaction row", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return txn, nil
}

func (r *PaymentRepository) UpdateAttemptsInTx(ctx context.Context, tx pgx.Tx, id int64, attempts int) error {
	query := `
        UPDATE transactions
        SET pin_attempts = $1, updated_at = NOW()
        WHERE id = $2`

	cmdTag, err := tx.Exec(ctx, query, attempts, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update attempt counter",
			slog.Int64("transaction_id", id), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) MarkTerminalInTx(ctx context.Context, tx pgx.Tx, id int64, status payment.Status, reason payment.FailureReason, receiptCode string, processedAt time.Time) error {
	// The status='PENDING' guard makes the transition race-safe: a concurrent
	// writer that already finalized the row turns this into a no-op with zero
	// rows affected.
	query := `
        UPDATE transactions
        SET status = $1,
            failure_reason = NULLIF($2, ''),
            receipt_code = NULLIF($3, ''),
            processed_at = $4,
            updated_at = NOW()
        WHERE id = $5 AND status = 'PENDING'`

	cmdTag, err := tx.Exec(ctx, query, status, string(reason), receiptCode, processedAt, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to finalize transaction",
			slog.Int64("transaction_id", id), slog.String("status", string(status)), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d is not pending", apperrors.ErrInvalidState, id)
	}
	return nil
}

func (r *PaymentRepository) queryTransactions(ctx context.Context, operation, query string, args ...any) ([]*payment.Transaction, error) {
	status := "success"
	startTime := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		monitoring.RecordDBQuery(operation, "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query transactions",
			slog.String("operation", operation), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	transactions := make([]*payment.Transaction, 0)
	for rows.Next() {
		txn, err := r.scanTransaction(rows)
		if err != nil {
			monitoring.RecordDBQuery(operation, "error", time.Since(startTime))
			r.logger.ErrorContext(ctx, "Failed to scan transaction row",
				slog.String("operation", operation), slog.Any("error", err))
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		transactions = append(transactions, txn)
	}
	if err = rows.Err(); err != nil {
		monitoring.RecordDBQuery(operation, "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Error iterating transaction rows",
			slog.String("operation", operation), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery(operation, status, time.Since(startTime))
	return transactions, nil
}

func (r *PaymentRepository) scanTransaction(row pgx.Row) (*payment.Transaction, error) {
	var txn payment.Transaction
	var failureReason, receiptCode *string
	err := row.Scan(
		&txn.ID, &txn.Reference, &txn.InternalID, &txn.CustomerID, &txn.Amount, &txn.Description,
		&txn.LoanBalanceBefore, &txn.LoanBalanceAfter, &txn.ArrearsBefore, &txn.ArrearsAfter,
		&txn.Status, &txn.PinAttempts, &failureReason, &receiptCode,
		&txn.CreatedAt, &txn.RequestSentAt, &txn.ProcessedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if failureReason != nil {
		txn.FailureReason = payment.FailureReason(*failureReason)
	}
	if receiptCode != nil {
		txn.ReceiptCode = *receiptCode
	}
	return &txn, nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(transactionColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
