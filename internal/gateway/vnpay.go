package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/example/orchid/internal/models"
)

// VNPay response codes. "00" is the success sentinel on the signed
// webhook path; the simplified return path reports 0 as an integer.
const (
	vnpCodeSuccess       = "00"
	vnpCodeCustomerAbort = "24"
)

// VNPay verifies and normalizes VNPay return/IPN callbacks.
//
// The signature is HMAC-SHA512 over the remaining parameters after
// vnp_SecureHash and vnp_SecureHashType are removed, sorted
// lexicographically by key and joined as a URL-encoded query string.
type VNPay struct {
	hashSecret      string
	allowUnverified bool
}

// NewVNPay builds the adapter. An empty secret puts it in the disabled
// state: Verify fails closed unless allowUnverified was opted into.
func NewVNPay(hashSecret string, allowUnverified bool) *VNPay {
	if hashSecret == "" {
		log.Println("[VNPay] hash secret not configured; signature verification DISABLED")
	}
	return &VNPay{hashSecret: hashSecret, allowUnverified: allowUnverified}
}

func (g *VNPay) Name() string { return "vnpay" }

// Verify checks vnp_SecureHash against the recomputed digest.
func (g *VNPay) Verify(params map[string]string) error {
	if g.hashSecret == "" {
		if g.allowUnverified {
			log.Printf("[VNPay] WARNING: accepting UNVERIFIED callback for txn %q", params["vnp_TxnRef"])
			return nil
		}
		return ErrVerificationDisabled
	}

	supplied := params["vnp_SecureHash"]
	if supplied == "" {
		return ErrInvalidSignature
	}

	expected := g.sign(params)
	if !hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// sign computes the hex HMAC-SHA512 digest of the canonical query string.
func (g *VNPay) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}

	mac := hmac.New(sha512.New, []byte(g.hashSecret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize maps a VNPay payload to a PaymentEvent. vnp_Amount is
// reported multiplied by 100 and is divided back here.
func (g *VNPay) Normalize(params map[string]string) PaymentEvent {
	event := PaymentEvent{
		TransactionCode: params["vnp_TxnRef"],
		ReportedStatus:  models.PaymentFailed,
		Gateway:         g.Name(),
		RawPayloadHash:  payloadHash(params),
	}

	if raw, err := strconv.ParseInt(params["vnp_Amount"], 10, 64); err == nil {
		event.ReportedAmount = raw / 100
	}

	switch params["vnp_ResponseCode"] {
	case vnpCodeSuccess, "0":
		event.ReportedStatus = models.PaymentPaid
	case vnpCodeCustomerAbort:
		event.ReportedStatus = models.PaymentCancelled
	}

	return event
}
