package payment

import (
	"context"
	"crypto/subtle"
	"strings"
)

// CodeVerifier checks a supplied confirmation code for a transaction.
// Production implementations call the payment gateway's verification step;
// StaticCodeVerifier is a stand-in that accepts one shared code.
type CodeVerifier interface {
	Verify(ctx context.Context, transactionID int64, suppliedCode string) bool
}

type StaticCodeVerifier struct {
	code string
}

func NewStaticCodeVerifier(code string) *StaticCodeVerifier {
	return &StaticCodeVerifier{code: code}
}

func (v *StaticCodeVerifier) Verify(_ context.Context, _ int64, suppliedCode string) bool {
	supplied := strings.TrimSpace(suppliedCode)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(v.code)) == 1
}

// ExpectedCode exposes the shared demo code so the inbound-reply interpreter
// can recognize it inside free text.
func (v *StaticCodeVerifier) ExpectedCode() string {
	return v.code
}
