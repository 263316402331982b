package payment

import (
	"collections-engine/internal/domain/customer"
	"collections-engine/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoPendingMatch means no pending transaction could be correlated with an
// inbound reply. The channel caller must send the generic no-pending reply and
// must not guess.
var ErrNoPendingMatch = errors.New("no pending transaction matches inbound reply")

const (
	// pendingScanLimit bounds the relaxed-match scans for cost control.
	pendingScanLimit = 25

	phoneTailDigits = 9
)

// NormalizePhone reduces an inbound address to the canonical digits-only form
// used at initiation, e.g. "whatsapp:+254 712-345678" -> "254712345678".
// A local "07XXXXXXXX" form gets the default country code prefix.
func NormalizePhone(raw, countryCode string) string {
	raw = strings.TrimSpace(raw)
	for _, prefix := range []string{"whatsapp:", "sms:", "tel:"} {
		raw = strings.TrimPrefix(raw, prefix)
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, "0") && countryCode != "" {
		digits = countryCode + digits[1:]
	}
	return digits
}

// LastNineDigits returns the phone's significant suffix, covering missing or
// garbled country-code prefixes.
func LastNineDigits(phone string) string {
	if len(phone) <= phoneTailDigits {
		return phone
	}
	return phone[len(phone)-phoneTailDigits:]
}

// Correlator maps an inbound reply, addressed by a possibly differently
// formatted phone address, to exactly one pending transaction.
type Correlator struct {
	repo        Repository
	customers   customer.CustomerService
	countryCode string
	logger      *slog.Logger
}

func NewCorrelator(repo Repository, customers customer.CustomerService, countryCode string, logger *slog.Logger) *Correlator {
	if repo == nil || customers == nil {
		panic("correlator dependencies cannot be nil")
	}
	return &Correlator{
		repo:        repo,
		customers:   customers,
		countryCode: countryCode,
		logger:      logger.With(slog.String("component", "Correlator")),
	}
}

// Resolve walks the ordered match ladder; first match wins.
func (c *Correlator) Resolve(ctx context.Context, fromAddress string) (*Transaction, error) {
	phone := NormalizePhone(fromAddress, c.countryCode)
	if phone == "" {
		c.logger.WarnContext(ctx, "Inbound address normalized to empty phone", slog.String("from", fromAddress))
		return nil, ErrNoPendingMatch
	}
	logCtx := c.logger.With(slog.String("phone", phone))

	pending, err := c.repo.FindPendingByPhone(ctx, phone, 1)
	if err != nil {
		return nil, fmt.Errorf("exact phone match lookup failed: %w", err)
	}
	if len(pending) > 0 {
		logCtx.InfoContext(ctx, "Correlated inbound reply by exact phone match", slog.String("reference", pending[0].Reference))
		return pending[0], nil
	}

	tail := LastNineDigits(phone)
	pending, err = c.repo.FindPendingByPhoneTail(ctx, tail, pendingScanLimit)
	if err != nil {
		return nil, fmt.Errorf("phone tail match lookup failed: %w", err)
	}
	if len(pending) > 0 {
		logCtx.InfoContext(ctx, "Correlated inbound reply by phone tail match",
			slog.String("tail", tail), slog.String("reference", pending[0].Reference))
		return pending[0], nil
	}

	customers, err := c.customers.FindByPhoneTail(ctx, tail, pendingScanLimit)
	if err != nil {
		return nil, fmt.Errorf("customer phone tail lookup failed: %w", err)
	}
	for _, cust := range customers {
		txn, err := c.repo.FindLatestPendingByCustomer(ctx, cust.CustomerID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("pending lookup for customer %d failed: %w", cust.CustomerID, err)
		}
		logCtx.InfoContext(ctx, "Correlated inbound reply via customer phone match",
			slog.Int64("customerID", cust.CustomerID), slog.String("reference", txn.Reference))
		return txn, nil
	}

	logCtx.InfoContext(ctx, "No pending transaction matched inbound reply")
	return nil, ErrNoPendingMatch
}

var confirmationWords = []string{"confirm", "yes", "ok"}

// ExtractCode interprets a free-text reply body as a confirmation code.
// The layered heuristic is deliberately permissive: exact code, code contained
// anywhere in the text, a natural-language confirmation word, or "pay"
// followed by digits equal to the code. Empty result means no code found and
// the caller should reply with help text instead of attempting confirmation.
func ExtractCode(body, expectedCode string) string {
	text := strings.TrimSpace(body)
	if text == "" || expectedCode == "" {
		return ""
	}

	if text == expectedCode {
		return expectedCode
	}
	if strings.Contains(text, expectedCode) {
		return expectedCode
	}

	lower := strings.ToLower(text)
	for _, word := range confirmationWords {
		if lower == word || strings.HasPrefix(lower, word+" ") || strings.HasSuffix(lower, " "+word) {
			return expectedCode
		}
	}

	if strings.HasPrefix(lower, "pay") {
		digits := strings.TrimSpace(lower[len("pay"):])
		if digits == expectedCode {
			return expectedCode
		}
	}

	return ""
}
