package payment

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxPinAttempts caps confirmation attempts per transaction. The third
	// wrong code moves the transaction to FAILED, not before.
	MaxPinAttempts = 3

	DefaultPendingTimeout = 30 * time.Second
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// Terminal reports whether the status is a sink. No transition ever leaves a
// terminal state.
func (s Status) Terminal() bool {
	return s != StatusPending
}

type FailureReason string

const (
	ReasonMaxAttemptsExceeded FailureReason = "MAX_ATTEMPTS_EXCEEDED"
	ReasonDeliveryFailed      FailureReason = "DELIVERY_FAILED"
	ReasonTimeout             FailureReason = "TIMEOUT"
	ReasonStaleBalance        FailureReason = "STALE_BALANCE"
	ReasonCancelledByAgent    FailureReason = "CANCELLED_BY_AGENT"
	ReasonManual              FailureReason = "MANUAL"
)

// Transaction is one payment request's state machine instance. Rows are
// append-only for audit value; terminal transitions set ProcessedAt and never
// delete.
type Transaction struct {
	ID          int64  `json:"id"`
	Reference   string `json:"reference"`
	InternalID  string `json:"internalId"`
	CustomerID  int64  `json:"customerId"`
	Amount      float64 `json:"amount"`
	Description string `json:"description"`

	// Balance snapshots taken at initiation. The After values are provisional
	// until confirmation commits; confirmation recomputes from live balances
	// and these remain as the initiation-time estimate for audit.
	LoanBalanceBefore float64 `json:"loanBalanceBefore"`
	LoanBalanceAfter  float64 `json:"loanBalanceAfter"`
	ArrearsBefore     float64 `json:"arrearsBefore"`
	ArrearsAfter      float64 `json:"arrearsAfter"`

	Status        Status        `json:"status"`
	PinAttempts   int           `json:"pinAttempts"`
	FailureReason FailureReason `json:"failureReason,omitempty"`
	ReceiptCode   string        `json:"receiptCode,omitempty"`

	CreatedAt     time.Time  `json:"createdAt"`
	RequestSentAt *time.Time `json:"requestSentAt,omitempty"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (t *Transaction) AttemptsLeft() int {
	left := MaxPinAttempts - t.PinAttempts
	if left < 0 {
		return 0
	}
	return left
}

// ApplyPayment allocates a payment arrears-first: arrears absorb the payment
// in full or in part, any remainder reduces the loan balance, and the balance
// is floored at zero. Callers must reject amounts exceeding the loan balance
// before calling.
func ApplyPayment(loanBalance, arrears, amount float64) (newLoanBalance, newArrears float64) {
	newArrears = arrears - amount
	remainder := 0.0
	if newArrears < 0 {
		remainder = -newArrears
		newArrears = 0
	}
	newLoanBalance = loanBalance - remainder
	if newLoanBalance < 0 {
		newLoanBalance = 0
	}
	return newLoanBalance, newArrears
}

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReference generates the short human-readable transaction id, e.g.
// "PMT-7KQ2XR". Collisions are possible in principle; creation retries once
// with a fresh reference on a unique violation.
func NewReference() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is not recoverable here; fall back to a
		// time-derived suffix rather than panicking in a request path.
		return fmt.Sprintf("PMT-%06X", time.Now().UnixNano()&0xFFFFFF)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return "PMT-" + string(buf)
}

// NewInternalID generates the internal externally-facing identifier.
func NewInternalID() string {
	return uuid.NewString()
}

// NewReceiptCode generates the proof-of-payment code assigned on SUCCESS.
func NewReceiptCode() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("RCT%010d", time.Now().UnixNano()%1e10)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return "RCT" + string(buf)
}
