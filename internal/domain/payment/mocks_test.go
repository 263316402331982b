package payment

import (
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/event"
	"collections-engine/internal/notifier"
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// FakeTx satisfies pgx.Tx for service tests; the embedded interface is never
// driven directly because every statement goes through the mocked repository.
type FakeTx struct {
	pgx.Tx
}

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (_m *MockRepository) Create(ctx context.Context, txn *Transaction) (*Transaction, error) {
	ret := _m.Called(ctx, txn)

	var r0 *Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) Find(ctx context.Context, key Key) (*Transaction, error) {
	ret := _m.Called(ctx, key)

	var r0 *Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindPendingByPhone(ctx context.Context, phone string, limit int) ([]*Transaction, error) {
	ret := _m.Called(ctx, phone, limit)

	var r0 []*Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindPendingByPhoneTail(ctx context.Context, tail string, limit int) ([]*Transaction, error) {
	ret := _m.Called(ctx, tail, limit)

	var r0 []*Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindLatestPendingByCustomer(ctx context.Context, customerID int64) (*Transaction, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]*Transaction, error) {
	ret := _m.Called(ctx, cutoff)

	var r0 []*Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) SetRequestSent(ctx context.Context, id int64, at time.Time) error {
	ret := _m.Called(ctx, id, at)
	return ret.Error(0)
}

func (_m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	ret := _m.Called(ctx)

	var r0 pgx.Tx
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(pgx.Tx)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

func (_m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	ret := _m.Called(ctx, tx)
	return ret.Error(0)
}

func (_m *MockRepository) LockForUpdateInTx(ctx context.Context, tx pgx.Tx, key Key) (*Transaction, error) {
	ret := _m.Called(ctx, tx, key)

	var r0 *Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Transaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockRepository) UpdateAttemptsInTx(ctx context.Context, tx pgx.Tx, id int64, attempts int) error {
	ret := _m.Called(ctx, tx, id, attempts)
	return ret.Error(0)
}

func (_m *MockRepository) MarkTerminalInTx(ctx context.Context, tx pgx.Tx, id int64, status Status, reason FailureReason, receiptCode string, processedAt time.Time) error {
	ret := _m.Called(ctx, tx, id, status, reason, receiptCode, processedAt)
	return ret.Error(0)
}

type MockCustomerService struct {
	mock.Mock
}

var _ customer.CustomerService = (*MockCustomerService)(nil)

func (_m *MockCustomerService) CreateNewCustomer(ctx context.Context, name, phone string, loanBalance, arrears float64) (*customer.Customer, error) {
	ret := _m.Called(ctx, name, phone, loanBalance, arrears)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) ResolveCustomer(ctx context.Context, ref string) (*customer.Customer, error) {
	ret := _m.Called(ctx, ref)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) ListActiveCustomers(ctx context.Context) ([]*customer.Customer, error) {
	ret := _m.Called(ctx)

	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) FindByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	ret := _m.Called(ctx, phone)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockCustomerService) FindByPhoneTail(ctx context.Context, tail string, limit int) ([]*customer.Customer, error) {
	ret := _m.Called(ctx, tail, limit)

	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

var _ customer.CustomerRepository = (*MockLedgerRepository)(nil)

func (_m *MockLedgerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	ret := _m.Called(ctx, cust)
	return ret.Error(0)
}

func (_m *MockLedgerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	ret := _m.Called(ctx, customerID)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) FindByCustomerNo(ctx context.Context, customerNo string) (*customer.Customer, error) {
	ret := _m.Called(ctx, customerNo)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) FindByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	ret := _m.Called(ctx, phone)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) FindByPhoneTail(ctx context.Context, tail string, limit int) ([]*customer.Customer, error) {
	ret := _m.Called(ctx, tail, limit)

	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) FindAll(ctx context.Context, activeOnly bool) ([]*customer.Customer, error) {
	ret := _m.Called(ctx, activeOnly)

	var r0 []*customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) LockForUpdateInTx(ctx context.Context, tx pgx.Tx, customerID int64) (*customer.Customer, error) {
	ret := _m.Called(ctx, tx, customerID)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) ApplyRepaymentInTx(ctx context.Context, tx pgx.Tx, customerID int64, newLoanBalance, newArrears, amount float64) error {
	ret := _m.Called(ctx, tx, customerID, newLoanBalance, newArrears, amount)
	return ret.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

var _ notifier.Notifier = (*MockNotifier)(nil)

func (_m *MockNotifier) Send(ctx context.Context, to, body string) (*notifier.Receipt, error) {
	ret := _m.Called(ctx, to, body)

	var r0 *notifier.Receipt
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*notifier.Receipt)
	}
	return r0, ret.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

var _ event.EventPublisher = (*MockEventPublisher)(nil)

func (_m *MockEventPublisher) PublishPaymentEvent(ctx context.Context, routingKey string, evt event.PaymentEvent) error {
	ret := _m.Called(ctx, routingKey, evt)
	return ret.Error(0)
}
