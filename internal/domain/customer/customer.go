package customer

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	CustomerID      int64     `json:"customerId"`
	CustomerNo      string    `json:"customerNo"`
	InternalRef     string    `json:"internalRef"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	LoanBalance     float64   `json:"loanBalance"`
	Arrears         float64   `json:"arrears"`
	TotalRepayments float64   `json:"totalRepayments"`
	Active          bool      `json:"active"`
	CreateDate      time.Time `json:"createDate"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func NewCustomer(name, phone string, loanBalance, arrears float64) *Customer {
	now := time.Now()
	return &Customer{
		CustomerNo:  NewCustomerNo(),
		InternalRef: uuid.NewString(),
		Name:        name,
		Phone:       phone,
		LoanBalance: loanBalance,
		Arrears:     arrears,
		Active:      true,
		CreateDate:  now,
		UpdatedAt:   now,
	}
}

const customerNoAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCustomerNo generates the business-facing customer code, e.g.
// "CUST-9X2KQR". Both it and the internal ref are unique columns; collisions
// surface as a save conflict.
func NewCustomerNo() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("CUST-%06X", time.Now().UnixNano()&0xFFFFFF)
	}
	for i, b := range buf {
		buf[i] = customerNoAlphabet[int(b)%len(customerNoAlphabet)]
	}
	return "CUST-" + string(buf)
}

// Outstanding is the full amount still owed: principal plus past-due portion.
func (c *Customer) Outstanding() float64 {
	return c.LoanBalance + c.Arrears
}

// Settled reports whether the loan is fully repaid. Settled customers are
// soft-deactivated, never deleted.
func (c *Customer) Settled() bool {
	return c.LoanBalance <= 0 && c.Arrears <= 0
}

func (c *Customer) Deactivate() {
	if c.Active {
		c.Active = false
		c.UpdatedAt = time.Now()
	}
}
