package handler

import (
	"collections-engine/internal/api/handler/dto"
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type CustomerHandler struct {
	service customer.CustomerService
	logger  *slog.Logger
}

func NewCustomerHandler(s customer.CustomerService, l *slog.Logger) *CustomerHandler {
	if s == nil {
		panic("customer service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &CustomerHandler{
		service: s,
		logger:  l.With("component", "CustomerHandler"),
	}
}

func getCustomerRefFromURL(r *http.Request) (string, error) {
	ref := chi.URLParam(r, "customerRef")
	if ref == "" {
		return "", fmt.Errorf("%w: customerRef not found in URL path", apperrors.ErrInvalidArgument)
	}
	return ref, nil
}

// CreateCustomer handles POST /customers
// @Summary Create a new customer
// @Description Creates a customer record with name, phone, and opening loan balances.
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body dto.CreateCustomerRequest true "Customer creation request"
// @Success 201 {object} dto.CustomerResponse "Customer successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Phone already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error during creation"
// @Router /customers [post]
// @Security BearerAuth
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received create customer request")

	var req dto.CreateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Create customer validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	createdCustomer, err := h.service.CreateNewCustomer(r.Context(), req.Name, req.Phone, req.LoanBalanceValue(), req.ArrearsValue())
	if err != nil {
		if errors.Is(err, customer.ErrDuplicatePhone) {
			respondError(w, fmt.Errorf("%w: %v", apperrors.ErrAlreadyExists, err))
			return
		}
		h.logger.ErrorContext(r.Context(), "Service failed to create customer", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewCustomerResponse(createdCustomer)
	h.logger.InfoContext(r.Context(), "Customer created successfully", slog.String("customerID", resp.CustomerID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetCustomer handles GET /customers/{customerRef}
// @Summary Retrieve customer details
// @Description Looks up a customer by numeric ID, customer number, or phone.
// @Tags Customers
// @Produce json
// @Param customerRef path string true "Customer id, number, or phone"
// @Success 200 {object} dto.CustomerResponse "Customer details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer reference"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerRef} [get]
// @Security BearerAuth
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	ref, err := getCustomerRefFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	cust, err := h.service.ResolveCustomer(r.Context(), ref)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			respondError(w, apperrors.ErrNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "Service failed to resolve customer", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCustomerResponse(cust))
}

// ListCustomers handles GET /customers
// @Summary List customers
// @Description Lists active customers with outstanding balances.
// @Tags Customers
// @Produce json
// @Success 200 {array} dto.CustomerResponse "Customer list"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers [get]
// @Security BearerAuth
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListActiveCustomers(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list customers", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.CustomerResponse, 0, len(customers))
	for _, cust := range customers {
		resp = append(resp, dto.NewCustomerResponse(cust))
	}
	respondJSON(w, http.StatusOK, resp)
}
