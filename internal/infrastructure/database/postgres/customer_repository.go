package postgres

import (
	"collections-engine/internal/domain/customer"
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
)

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

const customerColumns = `id, customer_no, internal_ref, name, phone, loan_balance, arrears,
        total_repayments, active, created_at, updated_at`

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, logger: logger.With("component", "CustomerRepository")}
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	if cust == nil {
		return fmt.Errorf("%w: customer cannot be nil", apperrors.ErrInvalidArgument)
	}
	if cust.CustomerID == 0 {
		return r.createCustomer(ctx, cust)
	}
	return r.updateCustomer(ctx, cust)
}

func (r *CustomerRepository) createCustomer(ctx context.Context, cust *customer.Customer) error {
	r.logger.InfoContext(ctx, "Attempting to insert new customer", slog.String("name", cust.Name))

	query := `
        INSERT INTO customers (customer_no, internal_ref, name, phone, loan_balance, arrears, total_repayments, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	status := "success"
	startTime := time.Now()
	err := r.db.QueryRow(ctx, query,
		cust.CustomerNo,
		cust.InternalRef,
		cust.Name,
		cust.Phone,
		cust.LoanBalance,
		cust.Arrears,
		cust.TotalRepayments,
		cust.Active,
	).Scan(
		&cust.CustomerID,
		&cust.CreateDate,
		&cust.UpdatedAt,
	)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateCustomer", status, time.Since(startTime))

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.WarnContext(ctx, "Failed to insert customer due to unique constraint violation",
				slog.String("constraint", pgErr.ConstraintName))
			if strings.Contains(pgErr.ConstraintName, "phone") {
				return customer.ErrDuplicatePhone
			}
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.ConstraintName)
		}
		r.logger.ErrorContext(ctx, "Failed to insert customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Customer inserted successfully", slog.Int64("customerID", cust.CustomerID))
	return nil
}

func (r *CustomerRepository) updateCustomer(ctx context.Context, cust *customer.Customer) error {
	r.logger.InfoContext(ctx, "Attempting to update customer", slog.Int64("customerID", cust.CustomerID))

	query := `
        UPDATE customers
        SET name = $1,
            phone = $2,
            loan_balance = $3,
            arrears = $4,
            total_repayments = $5,
            active = $6,
            updated_at = NOW()
        WHERE id = $7`

	cmdTag, err := r.db.Exec(ctx, query,
		cust.Name,
		cust.Phone,
		cust.LoanBalance,
		cust.Arrears,
		cust.TotalRepayments,
		cust.Active,
		cust.CustomerID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.WarnContext(ctx, "Failed to update customer due to unique constraint violation",
				slog.String("constraint", pgErr.ConstraintName))
			return customer.ErrDuplicatePhone
		}
		r.logger.ErrorContext(ctx, "Failed to update customer", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update customer: %w", apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, customer likely not found")
		return customer.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Customer updated successfully")
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns)
	return r.findOne(ctx, "FindCustomerByID", query, customerID)
}

func (r *CustomerRepository) FindByCustomerNo(ctx context.Context, customerNo string) (*customer.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE customer_no = $1`, customerColumns)
	return r.findOne(ctx, "FindCustomerByNo", query, customerNo)
}

func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE phone = $1`, customerColumns)
	return r.findOne(ctx, "FindCustomerByPhone", query, phone)
}

func (r *CustomerRepository) FindByPhoneTail(ctx context.Context, tail string, limit int) ([]*customer.Customer, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM customers
        WHERE phone LIKE '%%' || $1
        ORDER BY created_at DESC
        LIMIT $2`, customerColumns)

	status := "success"
	startTime := time.Now()
	rows, err := r.db.Query(ctx, query, tail, limit)
	if err != nil {
		monitoring.RecordDBQuery("FindCustomersByPhoneTail", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query customers by phone tail", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers, err := r.collectCustomers(rows)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindCustomersByPhoneTail", status, time.Since(startTime))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to scan customers by phone tail", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return customers, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context, activeOnly bool) ([]*customer.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers ORDER BY id`, customerColumns)
	if activeOnly {
		query = fmt.Sprintf(`SELECT %s FROM customers WHERE active = TRUE ORDER BY id`, customerColumns)
	}

	status := "success"
	startTime := time.Now()
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		monitoring.RecordDBQuery("FindAllCustomers", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query customers", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	customers, err := r.collectCustomers(rows)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindAllCustomers", status, time.Since(startTime))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to scan customers", slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return customers, nil
}

func (r *CustomerRepository) LockForUpdateInTx(ctx context.Context, tx pgx.Tx, customerID int64) (*customer.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1 FOR UPDATE`, customerColumns)

	cust, err := r.scanCustomer(tx.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock customer row",
			slog.Int64("customer_id", customerID), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cust, nil
}

func (r *CustomerRepository) ApplyRepaymentInTx(ctx context.Context, tx pgx.Tx, customerID int64, newLoanBalance, newArrears, amount float64) error {
	// active flips off automatically when the loan settles; a settled customer
	// cannot receive new payment requests.
	query := `
        UPDATE customers
        SET loan_balance = $1,
            arrears = $2,
            total_repayments = total_repayments + $3,
            active = CASE WHEN $1 <= 0 AND $2 <= 0 THEN FALSE ELSE active END,
            updated_at = NOW()
        WHERE id = $4`

	cmdTag, err := tx.Exec(ctx, query, newLoanBalance, newArrears, amount, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to apply repayment to customer ledger",
			slog.Int64("customer_id", customerID), slog.Any("error", err))
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Customer ledger updated",
		slog.Int64("customer_id", customerID),
		slog.Float64("loan_balance", newLoanBalance),
		slog.Float64("arrears", newArrears))
	return nil
}

func (r *CustomerRepository) findOne(ctx context.Context, operation, query string, arg any) (*customer.Customer, error) {
	status := "success"
	startTime := time.Now()
	cust, err := r.scanCustomer(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery(operation, status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to find customer",
			slog.String("operation", operation), slog.Any("error", err))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cust, nil
}

func (r *CustomerRepository) collectCustomers(rows pgx.Rows) ([]*customer.Customer, error) {
	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		cust, err := r.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, cust)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *CustomerRepository) scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var cust customer.Customer
	err := row.Scan(
		&cust.CustomerID, &cust.CustomerNo, &cust.InternalRef, &cust.Name, &cust.Phone,
		&cust.LoanBalance, &cust.Arrears, &cust.TotalRepayments, &cust.Active,
		&cust.CreateDate, &cust.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cust, nil
}
