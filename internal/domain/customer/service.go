package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const customerNotFound = "Customer not found by repository"

type CustomerService interface {
	CreateNewCustomer(ctx context.Context, name, phone string, loanBalance, arrears float64) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	// ResolveCustomer accepts a caller-supplied reference and tries, in order,
	// the numeric primary id, the business-facing customer number, and the
	// canonical phone address.
	ResolveCustomer(ctx context.Context, ref string) (*Customer, error)
	ListActiveCustomers(ctx context.Context) ([]*Customer, error)
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
	FindByPhoneTail(ctx context.Context, tail string, limit int) ([]*Customer, error)
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}

	return &customerService{
		repo:   repo,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func (s *customerService) CreateNewCustomer(ctx context.Context, name, phone string, loanBalance, arrears float64) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, errors.New("customer name cannot be empty")
	}
	if phone == "" {
		s.logger.WarnContext(ctx, "Validation failed: phone is empty", slog.String("name", name))
		return nil, errors.New("customer phone cannot be empty")
	}
	if loanBalance < 0 || arrears < 0 {
		s.logger.WarnContext(ctx, "Validation failed: negative opening balance")
		return nil, errors.New("opening balances cannot be negative")
	}

	cust := NewCustomer(name, phone, loanBalance, arrears)

	s.logger.InfoContext(ctx, "Calling repository Save")
	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		if errors.Is(err, ErrDuplicatePhone) {
			return nil, ErrDuplicatePhone
		}
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully created new customer", slog.Int64("customerID", cust.CustomerID))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to get customer by ID", slog.Int64("customerID", customerID))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound, slog.Int64("customerID", customerID))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}

	return cust, nil
}

func (s *customerService) ResolveCustomer(ctx context.Context, ref string) (*Customer, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("customer reference cannot be empty")
	}
	s.logger.InfoContext(ctx, "Resolving customer reference", slog.String("ref", ref))

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 && len(ref) < 9 {
		cust, err := s.repo.FindByID(ctx, id)
		if err == nil {
			return cust, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve customer by id %d: %w", id, err)
		}
	}

	cust, err := s.repo.FindByCustomerNo(ctx, ref)
	if err == nil {
		return cust, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve customer by number %q: %w", ref, err)
	}

	cust, err = s.repo.FindByPhone(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound, slog.String("ref", ref))
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve customer by phone %q: %w", ref, err)
	}
	return cust, nil
}

func (s *customerService) ListActiveCustomers(ctx context.Context) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to list all active customers")

	customers, err := s.repo.FindAll(ctx, true)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing active customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list active customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved active customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	cust, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound, slog.String("phone", phone))
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer by phone", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find customer by phone: %w", err)
	}
	return cust, nil
}

func (s *customerService) FindByPhoneTail(ctx context.Context, tail string, limit int) ([]*Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	customers, err := s.repo.FindByPhoneTail(ctx, tail, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error finding customers by phone tail", slog.Any("error", err))
		return nil, fmt.Errorf("failed to find customers by phone tail: %w", err)
	}
	return customers, nil
}
