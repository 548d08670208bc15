package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0 VND", FormatAmount(0, ""))
	assert.Equal(t, "950 VND", FormatAmount(950, "VND"))
	assert.Equal(t, "25,000 VND", FormatAmount(25000, "VND"))
	assert.Equal(t, "1,250,000 VND", FormatAmount(1250000, "VND"))
	assert.Equal(t, "100 USD", FormatAmount(100, "USD"))
}
