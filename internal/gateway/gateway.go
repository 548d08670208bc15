package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/orchid/internal/models"
)

// PaymentEvent is the canonical form every gateway callback is reduced
// to before it reaches the confirmation service. It is never persisted.
type PaymentEvent struct {
	TransactionCode string
	ReportedStatus  models.PaymentStatus
	ReportedAmount  int64
	Gateway         string
	RawPayloadHash  string
}

// Gateway pairs the authenticity check and the normalization for one
// payment provider. Adapters are selected by the gateway tag on the
// inbound route, never by sniffing the payload shape.
type Gateway interface {
	// Name returns the gateway tag carried on PaymentEvent.
	Name() string
	// Verify checks payload authenticity. It must be called before
	// Normalize and must not mutate any state.
	Verify(params map[string]string) error
	// Normalize maps the raw payload to a PaymentEvent. Malformed
	// payloads degrade to ReportedStatus FAILED rather than erroring.
	Normalize(params map[string]string) PaymentEvent
}

var (
	// ErrInvalidSignature means the payload failed the HMAC check.
	ErrInvalidSignature = errors.New("invalid callback signature")
	// ErrVerificationDisabled means the gateway secret is not configured
	// and the unverified-callback opt-in is off. Fail closed.
	ErrVerificationDisabled = errors.New("callback verification disabled: gateway secret not configured")
)

// payloadHash fingerprints a callback for duplicate diagnostics. Keys are
// sorted so the same payload always hashes the same regardless of
// delivery order.
func payloadHash(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
