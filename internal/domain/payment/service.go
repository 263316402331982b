package payment

import (
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/event"
	"collections-engine/internal/infrastructure/monitoring"
	"collections-engine/internal/notifier"
	"collections-engine/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type Money = float64

// InitiationResult is everything the agent-facing caller gets back from a
// successful initiation: the created transaction, the customer with its
// before/after snapshot, and whatever delivery receipt the notifier returned.
type InitiationResult struct {
	Transaction *Transaction
	Customer    *customer.Customer
	Receipt     *notifier.Receipt
}

// ConfirmResult reports a confirmation attempt's outcome. On success the new
// balances and receipt code are set; on a wrong code AttemptsLeft says how
// many tries remain.
type ConfirmResult struct {
	Succeeded      bool
	Transaction    *Transaction
	ReceiptCode    string
	NewLoanBalance Money
	NewArrears     Money
	AttemptsLeft   int
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, customerRef string, amount Money, description string) (*InitiationResult, error)

	ConfirmPayment(ctx context.Context, key Key, suppliedCode string) (*ConfirmResult, error)

	CancelPayment(ctx context.Context, key Key) (*Transaction, error)

	MarkPaymentFailed(ctx context.Context, key Key, reason FailureReason) (*Transaction, error)

	GetPayment(ctx context.Context, key Key) (*Transaction, *customer.Customer, error)

	// ExpireStalePayments force-fails transactions pending longer than the
	// configured timeout. Returns the number expired; system-invoked only.
	ExpireStalePayments(ctx context.Context) (int, error)

	// HandleInboundReply maps an inbound channel message to a confirmation
	// attempt. It always returns a reply body for the channel; raw errors
	// never reach the customer.
	HandleInboundReply(ctx context.Context, fromAddress, body string) string
}

type paymentServiceImpl struct {
	repo           Repository
	customerRepo   customer.CustomerRepository
	customers      customer.CustomerService
	correlator     *Correlator
	verifier       CodeVerifier
	expectedCode   string
	notify         notifier.Notifier
	publisher      event.EventPublisher
	pendingTimeout time.Duration
	logger         *slog.Logger
}

func NewPaymentService(
	repo Repository,
	customerRepo customer.CustomerRepository,
	customers customer.CustomerService,
	verifier CodeVerifier,
	expectedCode string,
	notify notifier.Notifier,
	publisher event.EventPublisher,
	countryCode string,
	pendingTimeout time.Duration,
	logger *slog.Logger,
) PaymentService {
	if repo == nil || customerRepo == nil || customers == nil || verifier == nil || notify == nil || publisher == nil {
		panic("payment service dependencies cannot be nil")
	}
	if pendingTimeout <= 0 {
		pendingTimeout = DefaultPendingTimeout
	}
	return &paymentServiceImpl{
		repo:           repo,
		customerRepo:   customerRepo,
		customers:      customers,
		correlator:     NewCorrelator(repo, customers, countryCode, logger),
		verifier:       verifier,
		expectedCode:   expectedCode,
		notify:         notify,
		publisher:      publisher,
		pendingTimeout: pendingTimeout,
		logger:         logger.With(slog.String("component", "paymentService")),
	}
}

func (s *paymentServiceImpl) InitiatePayment(ctx context.Context, customerRef string, amount Money, description string) (*InitiationResult, error) {
	s.logger.InfoContext(ctx, "Initiating payment request", slog.String("customerRef", customerRef), slog.Float64("amount", amount))

	if amount <= 0 {
		monitoring.RecordInitiation("rejected_amount")
		return nil, fmt.Errorf("%w: amount must be a positive number", apperrors.ErrValidation)
	}

	cust, err := s.customers.ResolveCustomer(ctx, customerRef)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			monitoring.RecordInitiation("rejected_customer")
			return nil, fmt.Errorf("%w: customer %q not found", apperrors.ErrNotFound, customerRef)
		}
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}
	if !cust.Active {
		monitoring.RecordInitiation("rejected_customer")
		return nil, fmt.Errorf("%w: customer %d is not active", apperrors.ErrValidation, cust.CustomerID)
	}
	if amount > cust.LoanBalance {
		s.logger.WarnContext(ctx, "Payment amount exceeds loan balance, no transaction created",
			slog.Int64("customerID", cust.CustomerID), slog.Float64("loanBalance", cust.LoanBalance))
		monitoring.RecordInitiation("rejected_balance")
		return nil, fmt.Errorf("%w: amount %.2f exceeds loan balance %.2f", apperrors.ErrBalanceExceeded, amount, cust.LoanBalance)
	}

	afterBalance, afterArrears := ApplyPayment(cust.LoanBalance, cust.Arrears, amount)
	txn := &Transaction{
		Reference:         NewReference(),
		InternalID:        NewInternalID(),
		CustomerID:        cust.CustomerID,
		Amount:            amount,
		Description:       description,
		LoanBalanceBefore: cust.LoanBalance,
		LoanBalanceAfter:  afterBalance,
		ArrearsBefore:     cust.Arrears,
		ArrearsAfter:      afterArrears,
		Status:            StatusPending,
	}

	created, err := s.repo.Create(ctx, txn)
	if errors.Is(err, apperrors.ErrConflict) {
		// Reference collision is extremely rare; retry once with fresh ids
		// before surfacing.
		s.logger.WarnContext(ctx, "Transaction id collision on create, retrying with fresh ids")
		txn.Reference = NewReference()
		txn.InternalID = NewInternalID()
		created, err = s.repo.Create(ctx, txn)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist transaction", slog.Any("error", err))
		monitoring.RecordInitiation("failure_internal")
		return nil, fmt.Errorf("%w: failed to persist transaction: %v", apperrors.ErrInternalServer, err)
	}
	logCtx := s.logger.With(slog.String("reference", created.Reference), slog.Int64("customerID", cust.CustomerID))
	logCtx.InfoContext(ctx, "Transaction created")

	s.emit(ctx, event.RoutingKeyPaymentInitiated, created)

	// Initiation happened the moment the row was durably written. Delivery is
	// attempted after the commit, never inside it.
	receipt, sendErr := s.notify.Send(ctx, cust.Phone, s.promptBody(created))
	if sendErr != nil {
		logCtx.ErrorContext(ctx, "Confirmation prompt delivery failed, marking transaction failed", slog.Any("error", sendErr))
		failed, markErr := s.markTerminal(ctx, ByID(created.ID), StatusFailed, ReasonDeliveryFailed)
		if markErr != nil {
			logCtx.ErrorContext(ctx, "Failed to record delivery failure", slog.Any("error", markErr))
		} else {
			created = failed
		}
		s.emit(ctx, event.RoutingKeyPaymentFailed, created)
		monitoring.RecordInitiation("failure_delivery")
		return &InitiationResult{Transaction: created, Customer: cust}, nil
	}

	sentAt := time.Now()
	if err := s.repo.SetRequestSent(ctx, created.ID, sentAt); err != nil {
		logCtx.ErrorContext(ctx, "Failed to record request-sent timestamp", slog.Any("error", err))
	} else {
		created.RequestSentAt = &sentAt
	}

	monitoring.RecordInitiation("success")
	logCtx.InfoContext(ctx, "Payment request initiated",
		slog.Bool("simulated_delivery", receipt.Simulated), slog.String("message_id", receipt.MessageID))
	return &InitiationResult{Transaction: created, Customer: cust, Receipt: receipt}, nil
}

func (s *paymentServiceImpl) ConfirmPayment(ctx context.Context, key Key, suppliedCode string) (result *ConfirmResult, err error) {
	s.logger.InfoContext(ctx, "Confirming payment")

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	committed := false
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if !committed {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	txn, err := s.repo.LockForUpdateInTx(ctx, tx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: transaction not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: could not lock transaction: %v", apperrors.ErrInternalServer, err)
	}
	logCtx := s.logger.With(slog.String("reference", txn.Reference))

	if txn.Status.Terminal() {
		logCtx.WarnContext(ctx, "Confirmation attempted on terminal transaction", slog.String("status", string(txn.Status)))
		monitoring.RecordConfirmation("rejected_state")
		return nil, fmt.Errorf("%w: transaction is %s", apperrors.ErrInvalidState, txn.Status)
	}

	if txn.PinAttempts >= MaxPinAttempts {
		// Attempts already exhausted; force the terminal transition without
		// consuming another attempt.
		if err := s.repo.MarkTerminalInTx(ctx, tx, txn.ID, StatusFailed, ReasonMaxAttemptsExceeded, "", time.Now()); err != nil {
			return nil, fmt.Errorf("%w: could not fail exhausted transaction: %v", apperrors.ErrInternalServer, err)
		}
		if err := s.repo.CommitTx(ctx, tx); err != nil {
			return nil, fmt.Errorf("%w: could not commit: %v", apperrors.ErrInternalServer, err)
		}
		committed = true
		txn.Status = StatusFailed
		txn.FailureReason = ReasonMaxAttemptsExceeded
		s.emit(ctx, event.RoutingKeyPaymentFailed, txn)
		monitoring.RecordConfirmation("failure_attempts")
		return &ConfirmResult{Transaction: txn, AttemptsLeft: 0}, apperrors.ErrMaxAttemptsExceeded
	}

	// Every call consumes exactly one attempt, whatever the code check says.
	txn.PinAttempts++
	if err := s.repo.UpdateAttemptsInTx(ctx, tx, txn.ID, txn.PinAttempts); err != nil {
		return nil, fmt.Errorf("%w: could not persist attempt count: %v", apperrors.ErrInternalServer, err)
	}

	if !s.verifier.Verify(ctx, txn.ID, suppliedCode) {
		if txn.PinAttempts >= MaxPinAttempts {
			if err := s.repo.MarkTerminalInTx(ctx, tx, txn.ID, StatusFailed, ReasonMaxAttemptsExceeded, "", time.Now()); err != nil {
				return nil, fmt.Errorf("%w: could not fail transaction: %v", apperrors.ErrInternalServer, err)
			}
			if err := s.repo.CommitTx(ctx, tx); err != nil {
				return nil, fmt.Errorf("%w: could not commit: %v", apperrors.ErrInternalServer, err)
			}
			committed = true
			txn.Status = StatusFailed
			txn.FailureReason = ReasonMaxAttemptsExceeded
			logCtx.WarnContext(ctx, "Final confirmation attempt failed, transaction failed")
			s.emit(ctx, event.RoutingKeyPaymentFailed, txn)
			monitoring.RecordConfirmation("failure_attempts")
			return &ConfirmResult{Transaction: txn, AttemptsLeft: 0}, apperrors.ErrMaxAttemptsExceeded
		}

		if err := s.repo.CommitTx(ctx, tx); err != nil {
			return nil, fmt.Errorf("%w: could not commit: %v", apperrors.ErrInternalServer, err)
		}
		committed = true
		logCtx.WarnContext(ctx, "Wrong confirmation code", slog.Int("attemptsLeft", txn.AttemptsLeft()))
		monitoring.RecordConfirmation("failure_code")
		return &ConfirmResult{Transaction: txn, AttemptsLeft: txn.AttemptsLeft()}, nil
	}

	// Code verified: apply the ledger change against the customer's live
	// balances inside the same atomic unit as the SUCCESS write. The
	// initiation-time snapshot is not trusted; an intervening payment for the
	// same customer may have landed since.
	cust, err := s.customerRepo.LockForUpdateInTx(ctx, tx, txn.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not lock customer: %v", apperrors.ErrInternalServer, err)
	}
	if txn.Amount > cust.LoanBalance {
		if err := s.repo.MarkTerminalInTx(ctx, tx, txn.ID, StatusFailed, ReasonStaleBalance, "", time.Now()); err != nil {
			return nil, fmt.Errorf("%w: could not fail stale transaction: %v", apperrors.ErrInternalServer, err)
		}
		if err := s.repo.CommitTx(ctx, tx); err != nil {
			return nil, fmt.Errorf("%w: could not commit: %v", apperrors.ErrInternalServer, err)
		}
		committed = true
		txn.Status = StatusFailed
		txn.FailureReason = ReasonStaleBalance
		logCtx.WarnContext(ctx, "Live balance no longer covers payment amount",
			slog.Float64("amount", txn.Amount), slog.Float64("loanBalance", cust.LoanBalance))
		s.emit(ctx, event.RoutingKeyPaymentFailed, txn)
		monitoring.RecordConfirmation("failure_stale")
		return &ConfirmResult{Transaction: txn, AttemptsLeft: txn.AttemptsLeft()}, apperrors.ErrStaleBalance
	}

	newBalance, newArrears := ApplyPayment(cust.LoanBalance, cust.Arrears, txn.Amount)
	receiptCode := NewReceiptCode()
	processedAt := time.Now()

	if err := s.repo.MarkTerminalInTx(ctx, tx, txn.ID, StatusSuccess, "", receiptCode, processedAt); err != nil {
		return nil, fmt.Errorf("%w: could not mark transaction successful: %v", apperrors.ErrInternalServer, err)
	}
	if err := s.customerRepo.ApplyRepaymentInTx(ctx, tx, cust.CustomerID, newBalance, newArrears, txn.Amount); err != nil {
		return nil, fmt.Errorf("%w: could not apply repayment to ledger: %v", apperrors.ErrInternalServer, err)
	}
	if err := s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit payment: %v", apperrors.ErrInternalServer, err)
	}
	committed = true

	txn.Status = StatusSuccess
	txn.ReceiptCode = receiptCode
	txn.ProcessedAt = &processedAt
	logCtx.InfoContext(ctx, "Payment confirmed",
		slog.String("receiptCode", receiptCode), slog.Float64("newLoanBalance", newBalance))
	monitoring.RecordConfirmation("success")
	s.emit(ctx, event.RoutingKeyPaymentSucceeded, txn)

	// Receipt delivery is best-effort; a notifier failure must never fail the
	// already-committed payment.
	if _, sendErr := s.notify.Send(ctx, cust.Phone, s.receiptBody(txn, newBalance, newArrears)); sendErr != nil {
		logCtx.WarnContext(ctx, "Receipt delivery failed after successful payment", slog.Any("error", sendErr))
	}

	return &ConfirmResult{
		Succeeded:      true,
		Transaction:    txn,
		ReceiptCode:    receiptCode,
		NewLoanBalance: newBalance,
		NewArrears:     newArrears,
		AttemptsLeft:   txn.AttemptsLeft(),
	}, nil
}

func (s *paymentServiceImpl) CancelPayment(ctx context.Context, key Key) (*Transaction, error) {
	txn, err := s.markTerminal(ctx, key, StatusCancelled, ReasonCancelledByAgent)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, event.RoutingKeyPaymentCancelled, txn)
	return txn, nil
}

func (s *paymentServiceImpl) MarkPaymentFailed(ctx context.Context, key Key, reason FailureReason) (*Transaction, error) {
	if reason == "" {
		reason = ReasonManual
	}
	txn, err := s.markTerminal(ctx, key, StatusFailed, reason)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, event.RoutingKeyPaymentFailed, txn)
	return txn, nil
}

// markTerminal moves a PENDING transaction straight to a terminal state with
// no ledger effect, under the same atomicity discipline as confirmation.
func (s *paymentServiceImpl) markTerminal(ctx context.Context, key Key, status Status, reason FailureReason) (result *Transaction, err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	txn, err := s.repo.LockForUpdateInTx(ctx, tx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: transaction not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: could not lock transaction: %v", apperrors.ErrInternalServer, err)
	}
	if txn.Status.Terminal() {
		return nil, fmt.Errorf("%w: transaction is %s", apperrors.ErrInvalidState, txn.Status)
	}

	processedAt := time.Now()
	if err := s.repo.MarkTerminalInTx(ctx, tx, txn.ID, status, reason, "", processedAt); err != nil {
		return nil, fmt.Errorf("%w: could not update transaction state: %v", apperrors.ErrInternalServer, err)
	}
	if err := s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit: %v", apperrors.ErrInternalServer, err)
	}
	committed = true

	txn.Status = status
	txn.FailureReason = reason
	txn.ProcessedAt = &processedAt
	s.logger.InfoContext(ctx, "Transaction moved to terminal state",
		slog.String("reference", txn.Reference), slog.String("status", string(status)), slog.String("reason", string(reason)))
	return txn, nil
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, key Key) (*Transaction, *customer.Customer, error) {
	txn, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: transaction not found", apperrors.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("%w: failed to load transaction: %v", apperrors.ErrInternalServer, err)
	}

	cust, err := s.customers.GetCustomer(ctx, txn.CustomerID)
	if err != nil {
		s.logger.WarnContext(ctx, "Transaction's customer could not be resolved",
			slog.String("reference", txn.Reference), slog.Any("error", err))
		return txn, nil, nil
	}
	return txn, cust, nil
}

func (s *paymentServiceImpl) ExpireStalePayments(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.pendingTimeout)
	stale, err := s.repo.FindStalePending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to query stale pending transactions: %w", err)
	}

	expired := 0
	for _, txn := range stale {
		updated, err := s.markTerminal(ctx, ByID(txn.ID), StatusExpired, ReasonTimeout)
		if err != nil {
			// A concurrent confirm/cancel won the race; the precondition
			// check fails harmlessly.
			if errors.Is(err, apperrors.ErrInvalidState) || errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			s.logger.ErrorContext(ctx, "Failed to expire stale transaction",
				slog.String("reference", txn.Reference), slog.Any("error", err))
			continue
		}
		s.emit(ctx, event.RoutingKeyPaymentExpired, updated)
		expired++
	}

	if expired > 0 {
		monitoring.RecordExpiry(expired)
	}
	return expired, nil
}

const (
	replyHelpText = "To approve the payment request, reply with your confirmation code, or reply YES to confirm."

	replyNoPendingText = "We could not find a pending payment request for this number. Please contact your collections agent."

	replyFailureGenericText = "We could not process your payment confirmation. Please contact your collections agent."
)

func (s *paymentServiceImpl) HandleInboundReply(ctx context.Context, fromAddress, body string) string {
	logCtx := s.logger.With(slog.String("from", fromAddress))
	logCtx.InfoContext(ctx, "Handling inbound reply")

	code := ExtractCode(body, s.expectedCode)
	if code == "" {
		logCtx.InfoContext(ctx, "No confirmation code recognized in reply body")
		monitoring.RecordInboundReply("no_code")
		return replyHelpText
	}

	txn, err := s.correlator.Resolve(ctx, fromAddress)
	if err != nil {
		if errors.Is(err, ErrNoPendingMatch) {
			monitoring.RecordInboundReply("no_match")
			return replyNoPendingText
		}
		logCtx.ErrorContext(ctx, "Inbound correlation failed", slog.Any("error", err))
		monitoring.RecordInboundReply("error")
		return replyFailureGenericText
	}

	result, err := s.ConfirmPayment(ctx, ByID(txn.ID), code)
	switch {
	case err == nil && result.Succeeded:
		monitoring.RecordInboundReply("confirmed")
		return fmt.Sprintf("Payment of %.2f received. Receipt: %s. New loan balance: %.2f.",
			txn.Amount, result.ReceiptCode, result.NewLoanBalance)
	case err == nil:
		monitoring.RecordInboundReply("wrong_code")
		return fmt.Sprintf("That code was not accepted. You have %d attempt(s) left.", result.AttemptsLeft)
	default:
		logCtx.WarnContext(ctx, "Inbound confirmation failed", slog.Any("error", err))
		monitoring.RecordInboundReply("failed")
		return replyFailureGenericText
	}
}

func (s *paymentServiceImpl) promptBody(txn *Transaction) string {
	return fmt.Sprintf("A loan repayment of %.2f has been requested (ref %s). Reply with your confirmation code to approve.",
		txn.Amount, txn.Reference)
}

func (s *paymentServiceImpl) receiptBody(txn *Transaction, newBalance, newArrears Money) string {
	return fmt.Sprintf("Payment of %.2f confirmed. Receipt: %s. Loan balance: %.2f, arrears: %.2f.",
		txn.Amount, txn.ReceiptCode, newBalance, newArrears)
}

func (s *paymentServiceImpl) emit(ctx context.Context, routingKey string, txn *Transaction) {
	evt := event.PaymentEvent{
		TransactionID: txn.ID,
		Reference:     txn.Reference,
		InternalID:    txn.InternalID,
		CustomerID:    txn.CustomerID,
		Amount:        txn.Amount,
		Status:        string(txn.Status),
		FailureReason: string(txn.FailureReason),
		ReceiptCode:   txn.ReceiptCode,
		Timestamp:     time.Now(),
	}
	if err := s.publisher.PublishPaymentEvent(ctx, routingKey, evt); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish payment event", slog.String("routingKey", routingKey), slog.Any("error", err))
	}
}
