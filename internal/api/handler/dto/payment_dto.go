package dto

import (
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/domain/payment"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InitiatePaymentRequest struct {
	CustomerRef string `json:"customerRef"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

func (r *InitiatePaymentRequest) Validate() error {
	if strings.TrimSpace(r.CustomerRef) == "" {
		return fmt.Errorf("customerRef cannot be empty")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || r.Amount == "" {
		return fmt.Errorf("invalid payment amount: %w", err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}
	return nil
}

// AmountValue parses the validated amount string.
func (r *InitiatePaymentRequest) AmountValue() float64 {
	d, _ := decimal.NewFromString(r.Amount)
	v, _ := d.Float64()
	return v
}

type ConfirmPaymentRequest struct {
	Code string `json:"code"`
}

func (r *ConfirmPaymentRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("code cannot be empty")
	}
	return nil
}

type MarkFailedRequest struct {
	Reason string `json:"reason,omitempty"`
}

type TransactionResponse struct {
	ID                string     `json:"id"`
	Reference         string     `json:"reference"`
	InternalID        string     `json:"internalId"`
	CustomerID        string     `json:"customerId"`
	Amount            string     `json:"amount"`
	Description       string     `json:"description,omitempty"`
	LoanBalanceBefore string     `json:"loanBalanceBefore"`
	LoanBalanceAfter  string     `json:"loanBalanceAfter"`
	ArrearsBefore     string     `json:"arrearsBefore"`
	ArrearsAfter      string     `json:"arrearsAfter"`
	Status            string     `json:"status"`
	PinAttempts       int        `json:"pinAttempts"`
	AttemptsLeft      int        `json:"attemptsLeft"`
	FailureReason     string     `json:"failureReason,omitempty"`
	ReceiptCode       string     `json:"receiptCode,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	RequestSentAt     *time.Time `json:"requestSentAt,omitempty"`
	ProcessedAt       *time.Time `json:"processedAt,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type InitiatePaymentResponse struct {
	Transaction       TransactionResponse `json:"transaction"`
	Customer          *CustomerResponse   `json:"customer,omitempty"`
	DeliverySimulated bool                `json:"deliverySimulated"`
	DeliveryMessageID string              `json:"deliveryMessageId,omitempty"`
}

type ConfirmPaymentResponse struct {
	Succeeded      bool                `json:"succeeded"`
	Transaction    TransactionResponse `json:"transaction"`
	ReceiptCode    string              `json:"receiptCode,omitempty"`
	NewLoanBalance string              `json:"newLoanBalance,omitempty"`
	NewArrears     string              `json:"newArrears,omitempty"`
	AttemptsLeft   int                 `json:"attemptsLeft"`
}

type TransactionStatusResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Customer    *CustomerResponse   `json:"customer,omitempty"`
}

type InboundMessageRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
}

func (r *InboundMessageRequest) Validate() error {
	if strings.TrimSpace(r.From) == "" {
		return fmt.Errorf("from cannot be empty")
	}
	return nil
}

type InboundMessageResponse struct {
	Reply string `json:"reply"`
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func NewTransactionResponse(txn *payment.Transaction) TransactionResponse {
	if txn == nil {
		return TransactionResponse{}
	}
	return TransactionResponse{
		ID:                strconv.FormatInt(txn.ID, 10),
		Reference:         txn.Reference,
		InternalID:        txn.InternalID,
		CustomerID:        strconv.FormatInt(txn.CustomerID, 10),
		Amount:            formatMoney(txn.Amount),
		Description:       txn.Description,
		LoanBalanceBefore: formatMoney(txn.LoanBalanceBefore),
		LoanBalanceAfter:  formatMoney(txn.LoanBalanceAfter),
		ArrearsBefore:     formatMoney(txn.ArrearsBefore),
		ArrearsAfter:      formatMoney(txn.ArrearsAfter),
		Status:            string(txn.Status),
		PinAttempts:       txn.PinAttempts,
		AttemptsLeft:      txn.AttemptsLeft(),
		FailureReason:     string(txn.FailureReason),
		ReceiptCode:       txn.ReceiptCode,
		CreatedAt:         txn.CreatedAt,
		RequestSentAt:     txn.RequestSentAt,
		ProcessedAt:       txn.ProcessedAt,
		UpdatedAt:         txn.UpdatedAt,
	}
}

func NewInitiatePaymentResponse(result *payment.InitiationResult) InitiatePaymentResponse {
	resp := InitiatePaymentResponse{
		Transaction: NewTransactionResponse(result.Transaction),
	}
	if result.Customer != nil {
		c := NewCustomerResponse(result.Customer)
		resp.Customer = &c
	}
	if result.Receipt != nil {
		resp.DeliverySimulated = result.Receipt.Simulated
		resp.DeliveryMessageID = result.Receipt.MessageID
	}
	return resp
}

func NewConfirmPaymentResponse(result *payment.ConfirmResult) ConfirmPaymentResponse {
	resp := ConfirmPaymentResponse{
		Succeeded:    result.Succeeded,
		Transaction:  NewTransactionResponse(result.Transaction),
		ReceiptCode:  result.ReceiptCode,
		AttemptsLeft: result.AttemptsLeft,
	}
	if result.Succeeded {
		resp.NewLoanBalance = formatMoney(result.NewLoanBalance)
		resp.NewArrears = formatMoney(result.NewArrears)
	}
	return resp
}

func NewTransactionStatusResponse(txn *payment.Transaction, cust *customer.Customer) TransactionStatusResponse {
	resp := TransactionStatusResponse{Transaction: NewTransactionResponse(txn)}
	if cust != nil {
		c := NewCustomerResponse(cust)
		resp.Customer = &c
	}
	return resp
}
