package handler

import (
	"collections-engine/internal/api/handler/dto"
	"collections-engine/internal/domain/payment"
	"collections-engine/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type PaymentHandler struct {
	service payment.PaymentService
	logger  *slog.Logger
}

func NewPaymentHandler(s payment.PaymentService, l *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: s,
		logger:  l.With("component", "PaymentHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrBalanceExceeded):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperrors.ErrInvalidState):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrMaxAttemptsExceeded):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrStaleBalance):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		status, message = http.StatusConflict, err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

// getTransactionKeyFromURL accepts a numeric row id, a PMT- reference, or an
// internal UUID in the {transactionRef} path segment.
func getTransactionKeyFromURL(r *http.Request) (payment.Key, error) {
	ref := chi.URLParam(r, "transactionRef")
	if ref == "" {
		return payment.Key{}, fmt.Errorf("%w: transactionRef not found in URL path", apperrors.ErrInvalidArgument)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
		return payment.ByID(id), nil
	}
	if len(ref) == 36 {
		return payment.ByInternalID(ref), nil
	}
	return payment.ByReference(ref), nil
}

// InitiatePayment handles POST /payments.
//
// @Summary Initiate a payment request
// @Description Creates a PENDING payment transaction for a customer and sends a confirmation prompt to the customer's phone. The customer is looked up by numeric ID, customer number, or phone.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body dto.InitiatePaymentRequest true "Payment initiation payload"
// @Success 201 {object} dto.InitiatePaymentResponse "Payment request created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 422 {object} dto.ErrorResponse "Amount exceeds outstanding loan balance"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments [post]
// @Security BearerAuth
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req dto.InitiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	result, err := h.service.InitiatePayment(r.Context(), req.CustomerRef, req.AmountValue(), req.Description)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewInitiatePaymentResponse(result))
}

// ConfirmPayment handles POST /payments/{transactionRef}/confirm.
//
// @Summary Confirm a pending payment
// @Description Verifies the supplied confirmation code against the pending transaction. A correct code settles the payment and updates the customer ledger atomically; a wrong code consumes one of the three attempts.
// @Tags Payments
// @Accept json
// @Produce json
// @Param transactionRef path string true "Transaction id, reference, or internal UUID"
// @Param request body dto.ConfirmPaymentRequest true "Confirmation code payload"
// @Success 200 {object} dto.ConfirmPaymentResponse "Confirmation outcome"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Failure 409 {object} dto.ErrorResponse "Transaction already finalized or attempts exhausted"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/{transactionRef}/confirm [post]
// @Security BearerAuth
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	key, err := getTransactionKeyFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	result, err := h.service.ConfirmPayment(r.Context(), key, req.Code)
	if err != nil {
		if result != nil && (errors.Is(err, apperrors.ErrMaxAttemptsExceeded) || errors.Is(err, apperrors.ErrStaleBalance)) {
			// Terminal outcome with a body: the caller needs the final
			// transaction state, not just the error.
			respondJSON(w, http.StatusConflict, dto.NewConfirmPaymentResponse(result))
			return
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewConfirmPaymentResponse(result))
}

// CancelPayment handles POST /payments/{transactionRef}/cancel.
//
// @Summary Cancel a pending payment
// @Description Moves a PENDING transaction to CANCELLED. Terminal transactions cannot be cancelled.
// @Tags Payments
// @Produce json
// @Param transactionRef path string true "Transaction id, reference, or internal UUID"
// @Success 200 {object} dto.TransactionResponse "Cancelled transaction"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Failure 409 {object} dto.ErrorResponse "Transaction already finalized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/{transactionRef}/cancel [post]
// @Security BearerAuth
func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	key, err := getTransactionKeyFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	txn, err := h.service.CancelPayment(r.Context(), key)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTransactionResponse(txn))
}

// MarkPaymentFailed handles POST /payments/{transactionRef}/fail.
//
// @Summary Mark a pending payment as failed
// @Description Moves a PENDING transaction to FAILED with an operator-supplied reason. Terminal transactions cannot be failed again.
// @Tags Payments
// @Accept json
// @Produce json
// @Param transactionRef path string true "Transaction id, reference, or internal UUID"
// @Param request body dto.MarkFailedRequest false "Failure reason payload"
// @Success 200 {object} dto.TransactionResponse "Failed transaction"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Failure 409 {object} dto.ErrorResponse "Transaction already finalized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/{transactionRef}/fail [post]
// @Security BearerAuth
func (h *PaymentHandler) MarkPaymentFailed(w http.ResponseWriter, r *http.Request) {
	key, err := getTransactionKeyFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.MarkFailedRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
			return
		}
	}

	txn, err := h.service.MarkPaymentFailed(r.Context(), key, payment.FailureReason(req.Reason))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTransactionResponse(txn))
}

// GetPayment handles GET /payments/{transactionRef}.
//
// @Summary Retrieve a payment transaction
// @Description Returns the transaction and, when resolvable, the owning customer.
// @Tags Payments
// @Produce json
// @Param transactionRef path string true "Transaction id, reference, or internal UUID"
// @Success 200 {object} dto.TransactionStatusResponse "Transaction details"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/{transactionRef} [get]
// @Security BearerAuth
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	key, err := getTransactionKeyFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	txn, cust, err := h.service.GetPayment(r.Context(), key)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTransactionStatusResponse(txn, cust))
}
