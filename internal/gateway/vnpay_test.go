package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/orchid/internal/models"
)

const vnpayTestSecret = "VNPAYSECRETKEY0123456789"

// signVNPayParams recomputes the signature independently of the adapter:
// sorted keys, URL-encoded pairs, HMAC-SHA512 hex.
func signVNPayParams(secret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func vnpayParams() map[string]string {
	return map[string]string{
		"vnp_TmnCode":       "DEMO0001",
		"vnp_TxnRef":        "TXN0A1B2C3D4E5F",
		"vnp_Amount":        "25000000",
		"vnp_ResponseCode":  "00",
		"vnp_TransactionNo": "14226112",
		"vnp_BankCode":      "NCB",
		"vnp_OrderInfo":     "Thanh toan don hang",
		"vnp_PayDate":       "20260829143000",
	}
}

func TestVNPayVerifyValidSignature(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	params := vnpayParams()
	params["vnp_SecureHash"] = signVNPayParams(vnpayTestSecret, params)

	require.NoError(t, g.Verify(params))
}

func TestVNPayVerifyIgnoresSecureHashType(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	params := vnpayParams()
	params["vnp_SecureHash"] = signVNPayParams(vnpayTestSecret, params)
	params["vnp_SecureHashType"] = "HmacSHA512"

	require.NoError(t, g.Verify(params))
}

func TestVNPayVerifyTamperedAmount(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	params := vnpayParams()
	params["vnp_SecureHash"] = signVNPayParams(vnpayTestSecret, params)
	params["vnp_Amount"] = "1000000"

	assert.ErrorIs(t, g.Verify(params), ErrInvalidSignature)
}

func TestVNPayVerifyMissingSignature(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	assert.ErrorIs(t, g.Verify(vnpayParams()), ErrInvalidSignature)
}

func TestVNPayVerifyWrongSecret(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	params := vnpayParams()
	params["vnp_SecureHash"] = signVNPayParams("some-other-secret", params)

	assert.ErrorIs(t, g.Verify(params), ErrInvalidSignature)
}

func TestVNPayVerifyAcceptsUppercaseDigest(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	params := vnpayParams()
	params["vnp_SecureHash"] = strings.ToUpper(signVNPayParams(vnpayTestSecret, params))

	require.NoError(t, g.Verify(params))
}

func TestVNPayVerifyNoSecretFailsClosed(t *testing.T) {
	g := NewVNPay("", false)

	params := vnpayParams()
	params["vnp_SecureHash"] = signVNPayParams(vnpayTestSecret, params)

	assert.ErrorIs(t, g.Verify(params), ErrVerificationDisabled)
}

func TestVNPayVerifyNoSecretOptIn(t *testing.T) {
	g := NewVNPay("", true)

	assert.NoError(t, g.Verify(vnpayParams()))
}

func TestVNPayNormalizeSuccess(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	event := g.Normalize(vnpayParams())

	assert.Equal(t, "TXN0A1B2C3D4E5F", event.TransactionCode)
	assert.Equal(t, models.PaymentPaid, event.ReportedStatus)
	// vnp_Amount arrives multiplied by 100.
	assert.Equal(t, int64(250000), event.ReportedAmount)
	assert.Equal(t, "vnpay", event.Gateway)
	assert.NotEmpty(t, event.RawPayloadHash)
}

func TestVNPayNormalizeResponseCodes(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	cases := []struct {
		code string
		want models.PaymentStatus
	}{
		{"00", models.PaymentPaid},
		{"0", models.PaymentPaid},
		{"24", models.PaymentCancelled},
		{"51", models.PaymentFailed},
		{"99", models.PaymentFailed},
		{"", models.PaymentFailed},
	}
	for _, tc := range cases {
		params := vnpayParams()
		params["vnp_ResponseCode"] = tc.code
		assert.Equal(t, tc.want, g.Normalize(params).ReportedStatus, "response code %q", tc.code)
	}
}

func TestVNPayNormalizeBadAmount(t *testing.T) {
	g := NewVNPay(vnpayTestSecret, false)

	params := vnpayParams()
	params["vnp_Amount"] = "not-a-number"

	assert.Equal(t, int64(0), g.Normalize(params).ReportedAmount)
}
