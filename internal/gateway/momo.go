package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"

	"github.com/example/orchid/internal/models"
)

// MoMo result codes. 0 is success; 1003 and 1006 are user-side
// cancellations.
const (
	momoCodeSuccess         = "0"
	momoCodeCancelledByUser = "1003"
	momoCodeDeclinedByUser  = "1006"
)

// momoSignedFields is the exact concatenation order MoMo signs. Field
// order is part of the gateway contract; changing it breaks every
// signature.
var momoSignedFields = []string{
	"accessKey",
	"amount",
	"extraData",
	"message",
	"orderId",
	"orderInfo",
	"orderType",
	"partnerCode",
	"payType",
	"requestId",
	"responseTime",
	"resultCode",
	"transId",
}

// MoMo verifies and normalizes MoMo IPN callbacks. The signature is
// HMAC-SHA256 over the fixed-order field concatenation, keyed with the
// partner secret; accessKey is injected from config rather than trusted
// from the payload.
type MoMo struct {
	accessKey       string
	secretKey       string
	allowUnverified bool
}

func NewMoMo(accessKey, secretKey string, allowUnverified bool) *MoMo {
	if secretKey == "" {
		log.Println("[MoMo] secret key not configured; signature verification DISABLED")
	}
	return &MoMo{accessKey: accessKey, secretKey: secretKey, allowUnverified: allowUnverified}
}

func (g *MoMo) Name() string { return "momo" }

// Verify checks the signature field against the recomputed digest.
func (g *MoMo) Verify(params map[string]string) error {
	if g.secretKey == "" {
		if g.allowUnverified {
			log.Printf("[MoMo] WARNING: accepting UNVERIFIED callback for order %q", params["orderId"])
			return nil
		}
		return ErrVerificationDisabled
	}

	supplied := params["signature"]
	if supplied == "" {
		return ErrInvalidSignature
	}

	if !hmac.Equal([]byte(supplied), []byte(g.sign(params))) {
		return ErrInvalidSignature
	}
	return nil
}

// sign builds the fixed-order raw string and computes its hex
// HMAC-SHA256 digest.
func (g *MoMo) sign(params map[string]string) string {
	raw := ""
	for i, field := range momoSignedFields {
		value := params[field]
		if field == "accessKey" {
			value = g.accessKey
		}
		if i > 0 {
			raw += "&"
		}
		raw += fmt.Sprintf("%s=%s", field, value)
	}

	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize maps a MoMo payload to a PaymentEvent. MoMo's orderId field
// carries our transaction code; amounts are already in minor units.
func (g *MoMo) Normalize(params map[string]string) PaymentEvent {
	event := PaymentEvent{
		TransactionCode: params["orderId"],
		ReportedStatus:  models.PaymentFailed,
		Gateway:         g.Name(),
		RawPayloadHash:  payloadHash(params),
	}

	if amount, err := strconv.ParseInt(params["amount"], 10, 64); err == nil {
		event.ReportedAmount = amount
	}

	switch params["resultCode"] {
	case momoCodeSuccess:
		event.ReportedStatus = models.PaymentPaid
	case momoCodeCancelledByUser, momoCodeDeclinedByUser:
		event.ReportedStatus = models.PaymentCancelled
	}

	return event
}
