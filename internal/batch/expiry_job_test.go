package batch_test

import (
	"collections-engine/internal/batch"
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/domain/payment"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPaymentService struct {
	mock.Mock
}

func (_m *MockPaymentService) InitiatePayment(ctx context.Context, customerRef string, amount payment.Money, description string) (*payment.InitiationResult, error) {
	args := _m.Called(ctx, customerRef, amount, description)
	result, _ := args.Get(0).(*payment.InitiationResult)
	return result, args.Error(1)
}

func (_m *MockPaymentService) ConfirmPayment(ctx context.Context, key payment.Key, suppliedCode string) (*payment.ConfirmResult, error) {
	args := _m.Called(ctx, key, suppliedCode)
	result, _ := args.Get(0).(*payment.ConfirmResult)
	return result, args.Error(1)
}

func (_m *MockPaymentService) CancelPayment(ctx context.Context, key payment.Key) (*payment.Transaction, error) {
	args := _m.Called(ctx, key)
	txn, _ := args.Get(0).(*payment.Transaction)
	return txn, args.Error(1)
}

func (_m *MockPaymentService) MarkPaymentFailed(ctx context.Context, key payment.Key, reason payment.FailureReason) (*payment.Transaction, error) {
	args := _m.Called(ctx, key, reason)
	txn, _ := args.Get(0).(*payment.Transaction)
	return txn, args.Error(1)
}

func (_m *MockPaymentService) GetPayment(ctx context.Context, key payment.Key) (*payment.Transaction, *customer.Customer, error) {
	args := _m.Called(ctx, key)
	txn, _ := args.Get(0).(*payment.Transaction)
	cust, _ := args.Get(1).(*customer.Customer)
	return txn, cust, args.Error(2)
}

func (_m *MockPaymentService) ExpireStalePayments(ctx context.Context) (int, error) {
	args := _m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (_m *MockPaymentService) HandleInboundReply(ctx context.Context, fromAddress, body string) string {
	args := _m.Called(ctx, fromAddress, body)
	return args.String(0)
}

var _ payment.PaymentService = (*MockPaymentService)(nil)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpireStaleJobRun(t *testing.T) {
	t.Run("Sweeps stale payments", func(t *testing.T) {
		svc := new(MockPaymentService)
		svc.On("ExpireStalePayments", mock.Anything).Return(3, nil).Once()

		job := batch.NewExpireStaleJob(svc, 5*time.Second, newTestLogger())
		err := job.Run(context.Background())

		assert.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("Nothing to expire", func(t *testing.T) {
		svc := new(MockPaymentService)
		svc.On("ExpireStalePayments", mock.Anything).Return(0, nil).Once()

		job := batch.NewExpireStaleJob(svc, 0, newTestLogger())
		err := job.Run(context.Background())

		assert.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("Propagates sweep failure", func(t *testing.T) {
		svc := new(MockPaymentService)
		svc.On("ExpireStalePayments", mock.Anything).Return(0, errors.New("db unreachable")).Once()

		job := batch.NewExpireStaleJob(svc, 5*time.Second, newTestLogger())
		err := job.Run(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot run expiry sweep")
	})

	t.Run("Applies the run timeout to the context", func(t *testing.T) {
		svc := new(MockPaymentService)
		svc.On("ExpireStalePayments", mock.Anything).
			Run(func(args mock.Arguments) {
				ctx := args.Get(0).(context.Context)
				deadline, ok := ctx.Deadline()
				assert.True(t, ok)
				assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
			}).
			Return(0, nil).Once()

		job := batch.NewExpireStaleJob(svc, 5*time.Second, newTestLogger())
		err := job.Run(context.Background())

		assert.NoError(t, err)
	})
}
