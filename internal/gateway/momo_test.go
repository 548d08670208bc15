package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/orchid/internal/models"
)

const (
	momoTestAccessKey = "F8BBA842ECF85"
	momoTestSecretKey = "K951B6PE1waDMi640xX08PD3vg6EkVlz"
)

// signMoMoParams recomputes the signature independently of the adapter.
// The concatenation order is fixed by the gateway contract.
func signMoMoParams(accessKey, secretKey string, params map[string]string) string {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		accessKey,
		params["amount"],
		params["extraData"],
		params["message"],
		params["orderId"],
		params["orderInfo"],
		params["orderType"],
		params["partnerCode"],
		params["payType"],
		params["requestId"],
		params["responseTime"],
		params["resultCode"],
		params["transId"],
	)
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func momoParams() map[string]string {
	return map[string]string{
		"partnerCode":  "MOMO0001",
		"orderId":      "TXN0A1B2C3D4E5F",
		"requestId":    "8f4b2c1a-req",
		"amount":       "250000",
		"orderInfo":    "Thanh toan don hang",
		"orderType":    "momo_wallet",
		"transId":      "4088878653",
		"resultCode":   "0",
		"message":      "Successful.",
		"payType":      "qr",
		"responseTime": "1774771200000",
		"extraData":    "",
	}
}

func TestMoMoVerifyValidSignature(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, momoTestSecretKey, false)

	params := momoParams()
	params["signature"] = signMoMoParams(momoTestAccessKey, momoTestSecretKey, params)

	require.NoError(t, g.Verify(params))
}

func TestMoMoVerifyTamperedResultCode(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, momoTestSecretKey, false)

	params := momoParams()
	params["resultCode"] = "1006"
	params["signature"] = signMoMoParams(momoTestAccessKey, momoTestSecretKey, params)
	// Attacker flips the outcome after signing.
	params["resultCode"] = "0"

	assert.ErrorIs(t, g.Verify(params), ErrInvalidSignature)
}

func TestMoMoVerifyMissingSignature(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, momoTestSecretKey, false)

	assert.ErrorIs(t, g.Verify(momoParams()), ErrInvalidSignature)
}

func TestMoMoVerifyIgnoresPayloadAccessKey(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, momoTestSecretKey, false)

	// A signature computed with an attacker-chosen accessKey must not
	// verify: the adapter signs with the configured key, not the payload's.
	params := momoParams()
	params["accessKey"] = "attacker-key"
	params["signature"] = signMoMoParams("attacker-key", momoTestSecretKey, params)

	assert.ErrorIs(t, g.Verify(params), ErrInvalidSignature)
}

// Guards the concatenation order: a digest over the same fields in the
// webhook JSON's order must not verify.
func TestMoMoVerifyRejectsWrongFieldOrder(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, momoTestSecretKey, false)

	params := momoParams()
	raw := fmt.Sprintf(
		"partnerCode=%s&orderId=%s&requestId=%s&amount=%s&orderInfo=%s&orderType=%s&transId=%s&resultCode=%s&message=%s&payType=%s&responseTime=%s&extraData=%s&accessKey=%s",
		params["partnerCode"], params["orderId"], params["requestId"],
		params["amount"], params["orderInfo"], params["orderType"],
		params["transId"], params["resultCode"], params["message"],
		params["payType"], params["responseTime"], params["extraData"],
		momoTestAccessKey,
	)
	mac := hmac.New(sha256.New, []byte(momoTestSecretKey))
	mac.Write([]byte(raw))
	params["signature"] = hex.EncodeToString(mac.Sum(nil))

	assert.ErrorIs(t, g.Verify(params), ErrInvalidSignature)
}

func TestMoMoVerifyNoSecretFailsClosed(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, "", false)

	params := momoParams()
	params["signature"] = signMoMoParams(momoTestAccessKey, momoTestSecretKey, params)

	assert.ErrorIs(t, g.Verify(params), ErrVerificationDisabled)
}

func TestMoMoVerifyNoSecretOptIn(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, "", true)

	assert.NoError(t, g.Verify(momoParams()))
}

func TestMoMoNormalizeSuccess(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, momoTestSecretKey, false)

	event := g.Normalize(momoParams())

	assert.Equal(t, "TXN0A1B2C3D4E5F", event.TransactionCode)
	assert.Equal(t, models.PaymentPaid, event.ReportedStatus)
	assert.Equal(t, int64(250000), event.ReportedAmount)
	assert.Equal(t, "momo", event.Gateway)
	assert.NotEmpty(t, event.RawPayloadHash)
}

func TestMoMoNormalizeResultCodes(t *testing.T) {
	g := NewMoMo(momoTestAccessKey, momoTestSecretKey, false)

	cases := []struct {
		code string
		want models.PaymentStatus
	}{
		{"0", models.PaymentPaid},
		{"1003", models.PaymentCancelled},
		{"1006", models.PaymentCancelled},
		{"9000", models.PaymentFailed},
		{"1001", models.PaymentFailed},
	}
	for _, tc := range cases {
		params := momoParams()
		params["resultCode"] = tc.code
		assert.Equal(t, tc.want, g.Normalize(params).ReportedStatus, "result code %q", tc.code)
	}
}

func TestPayloadHashStableAcrossOrdering(t *testing.T) {
	a := payloadHash(map[string]string{"x": "1", "y": "2", "z": "3"})
	b := payloadHash(map[string]string{"z": "3", "x": "1", "y": "2"})
	c := payloadHash(map[string]string{"x": "1", "y": "2", "z": "4"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
