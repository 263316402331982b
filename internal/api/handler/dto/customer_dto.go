package dto

import (
	"collections-engine/internal/domain/customer"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreateCustomerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	LoanBalance string `json:"loanBalance"`
	Arrears     string `json:"arrears,omitempty"`
}

func (r *CreateCustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("phone cannot be empty")
	}
	balance, err := decimal.NewFromString(r.LoanBalance)
	if err != nil || r.LoanBalance == "" {
		return fmt.Errorf("invalid loanBalance: %w", err)
	}
	if balance.IsNegative() {
		return fmt.Errorf("loanBalance cannot be negative")
	}
	if r.Arrears != "" {
		arrears, err := decimal.NewFromString(r.Arrears)
		if err != nil {
			return fmt.Errorf("invalid arrears: %w", err)
		}
		if arrears.IsNegative() {
			return fmt.Errorf("arrears cannot be negative")
		}
	}
	return nil
}

func (r *CreateCustomerRequest) LoanBalanceValue() float64 {
	d, _ := decimal.NewFromString(r.LoanBalance)
	v, _ := d.Float64()
	return v
}

func (r *CreateCustomerRequest) ArrearsValue() float64 {
	if r.Arrears == "" {
		return 0
	}
	d, _ := decimal.NewFromString(r.Arrears)
	v, _ := d.Float64()
	return v
}

type CustomerResponse struct {
	CustomerID      string    `json:"customerId"`
	CustomerNo      string    `json:"customerNo"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	LoanBalance     string    `json:"loanBalance"`
	Arrears         string    `json:"arrears"`
	TotalRepayments string    `json:"totalRepayments"`
	Active          bool      `json:"active"`
	CreateDate      time.Time `json:"createDate"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		CustomerID:      strconv.FormatInt(cust.CustomerID, 10),
		CustomerNo:      cust.CustomerNo,
		Name:            cust.Name,
		Phone:           cust.Phone,
		LoanBalance:     formatMoney(cust.LoanBalance),
		Arrears:         formatMoney(cust.Arrears),
		TotalRepayments: formatMoney(cust.TotalRepayments),
		Active:          cust.Active,
		CreateDate:      cust.CreateDate,
		UpdatedAt:       cust.UpdatedAt,
	}
}
