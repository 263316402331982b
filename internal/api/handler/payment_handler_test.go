package handler

import (
	"bytes"
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/domain/payment"
	"collections-engine/internal/notifier"
	"collections-engine/internal/pkg/apperrors"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockPaymentService struct {
	mock.Mock
}

func (_m *mockPaymentService) InitiatePayment(ctx context.Context, customerRef string, amount payment.Money, description string) (*payment.InitiationResult, error) {
	args := _m.Called(ctx, customerRef, amount, description)
	result, _ := args.Get(0).(*payment.InitiationResult)
	return result, args.Error(1)
}

func (_m *mockPaymentService) ConfirmPayment(ctx context.Context, key payment.Key, suppliedCode string) (*payment.ConfirmResult, error) {
	args := _m.Called(ctx, key, suppliedCode)
	result, _ := args.Get(0).(*payment.ConfirmResult)
	return result, args.Error(1)
}

func (_m *mockPaymentService) CancelPayment(ctx context.Context, key payment.Key) (*payment.Transaction, error) {
	args := _m.Called(ctx, key)
	txn, _ := args.Get(0).(*payment.Transaction)
	return txn, args.Error(1)
}

func (_m *mockPaymentService) MarkPaymentFailed(ctx context.Context, key payment.Key, reason payment.FailureReason) (*payment.Transaction, error) {
	args := _m.Called(ctx, key, reason)
	txn, _ := args.Get(0).(*payment.Transaction)
	return txn, args.Error(1)
}

func (_m *mockPaymentService) GetPayment(ctx context.Context, key payment.Key) (*payment.Transaction, *customer.Customer, error) {
	args := _m.Called(ctx, key)
	txn, _ := args.Get(0).(*payment.Transaction)
	cust, _ := args.Get(1).(*customer.Customer)
	return txn, cust, args.Error(2)
}

func (_m *mockPaymentService) ExpireStalePayments(ctx context.Context) (int, error) {
	args := _m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (_m *mockPaymentService) HandleInboundReply(ctx context.Context, fromAddress, body string) string {
	args := _m.Called(ctx, fromAddress, body)
	return args.String(0)
}

var _ payment.PaymentService = (*mockPaymentService)(nil)

func newPaymentTestRouter(svc payment.PaymentService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewPaymentHandler(svc, logger)

	r := chi.NewRouter()
	r.Post("/payments", h.InitiatePayment)
	r.Get("/payments/{transactionRef}", h.GetPayment)
	r.Post("/payments/{transactionRef}/confirm", h.ConfirmPayment)
	r.Post("/payments/{transactionRef}/cancel", h.CancelPayment)
	r.Post("/payments/{transactionRef}/fail", h.MarkPaymentFailed)
	return r
}

func samplePendingTransaction() *payment.Transaction {
	now := time.Now()
	return &payment.Transaction{
		ID:                101,
		Reference:         "PMT-AAA111",
		InternalID:        "5f1c1111-2222-3333-4444-555566667777",
		CustomerID:        7,
		Amount:            30000,
		LoanBalanceBefore: 150000,
		LoanBalanceAfter:  145000,
		ArrearsBefore:     25000,
		ArrearsAfter:      0,
		Status:            payment.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestInitiatePaymentHandler(t *testing.T) {
	t.Run("Creates a pending transaction", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("InitiatePayment", mock.Anything, "CUST-0007", 30000.0, "weekly collection").
			Return(&payment.InitiationResult{
				Transaction: samplePendingTransaction(),
				Receipt:     &notifier.Receipt{MessageID: "simulated-1", Simulated: true},
			}, nil).Once()

		body := `{"customerRef":"CUST-0007","amount":"30000","description":"weekly collection"}`
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["deliverySimulated"])
		txn := resp["transaction"].(map[string]any)
		assert.Equal(t, "PMT-AAA111", txn["reference"])
		assert.Equal(t, "145000.00", txn["loanBalanceAfter"])
		svc.AssertExpectations(t)
	})

	t.Run("Rejects a non-numeric amount before touching the service", func(t *testing.T) {
		svc := new(mockPaymentService)

		body := `{"customerRef":"CUST-0007","amount":"lots"}`
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "InitiatePayment")
	})

	t.Run("Amount over the loan balance maps to 422", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("InitiatePayment", mock.Anything, "CUST-0007", 200000.0, "").
			Return(nil, apperrors.ErrBalanceExceeded).Once()

		body := `{"customerRef":"CUST-0007","amount":"200000"}`
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Unknown customer maps to 404", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("InitiatePayment", mock.Anything, "ghost", 100.0, "").
			Return(nil, apperrors.ErrNotFound).Once()

		body := `{"customerRef":"ghost","amount":"100"}`
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConfirmPaymentHandler(t *testing.T) {
	t.Run("Correct code settles the payment", func(t *testing.T) {
		svc := new(mockPaymentService)
		settled := samplePendingTransaction()
		settled.Status = payment.StatusSuccess
		settled.ReceiptCode = "RCT-AAAA1111"
		svc.On("ConfirmPayment", mock.Anything, payment.ByReference("PMT-AAA111"), "1234").
			Return(&payment.ConfirmResult{
				Succeeded:      true,
				Transaction:    settled,
				ReceiptCode:    "RCT-AAAA1111",
				NewLoanBalance: 145000,
				NewArrears:     0,
			}, nil).Once()

		body := `{"code":"1234"}`
		req := httptest.NewRequest(http.MethodPost, "/payments/PMT-AAA111/confirm", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["succeeded"])
		assert.Equal(t, "RCT-AAAA1111", resp["receiptCode"])
		assert.Equal(t, "145000.00", resp["newLoanBalance"])
	})

	t.Run("Exhausted attempts return 409 with the final transaction state", func(t *testing.T) {
		svc := new(mockPaymentService)
		failed := samplePendingTransaction()
		failed.Status = payment.StatusFailed
		failed.FailureReason = payment.ReasonMaxAttemptsExceeded
		failed.PinAttempts = 3
		svc.On("ConfirmPayment", mock.Anything, payment.ByID(101), "9999").
			Return(&payment.ConfirmResult{Succeeded: false, Transaction: failed}, apperrors.ErrMaxAttemptsExceeded).Once()

		body := `{"code":"9999"}`
		req := httptest.NewRequest(http.MethodPost, "/payments/101/confirm", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var resp map[string]any
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["succeeded"])
		txn := resp["transaction"].(map[string]any)
		assert.Equal(t, string(payment.StatusFailed), txn["status"])
	})

	t.Run("Missing code rejected before touching the service", func(t *testing.T) {
		svc := new(mockPaymentService)

		req := httptest.NewRequest(http.MethodPost, "/payments/PMT-AAA111/confirm", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "ConfirmPayment")
	})
}

func TestGetPaymentHandler(t *testing.T) {
	t.Run("UUID path segment resolves by internal id", func(t *testing.T) {
		svc := new(mockPaymentService)
		txn := samplePendingTransaction()
		svc.On("GetPayment", mock.Anything, payment.ByInternalID(txn.InternalID)).
			Return(txn, nil, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/payments/"+txn.InternalID, nil)
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Unknown transaction maps to 404", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("GetPayment", mock.Anything, payment.ByID(999)).
			Return(nil, nil, apperrors.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/payments/999", nil)
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCancelPaymentHandler(t *testing.T) {
	t.Run("Terminal transaction maps to 409", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("CancelPayment", mock.Anything, payment.ByReference("PMT-AAA111")).
			Return(nil, apperrors.ErrInvalidState).Once()

		req := httptest.NewRequest(http.MethodPost, "/payments/PMT-AAA111/cancel", nil)
		rec := httptest.NewRecorder()

		newPaymentTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
