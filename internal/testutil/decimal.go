package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertDecimalEqual compares by numeric value, so "90" equals "90.00".
func AssertDecimalEqual(t *testing.T, actual decimal.Decimal, expected string, msgAndArgs ...any) bool {
	t.Helper()
	want, err := decimal.NewFromString(expected)
	require.NoError(t, err, "bad expected decimal %q", expected)

	if actual.Equal(want) {
		return true
	}
	return assert.Fail(t, "decimals differ: expected "+want.String()+", actual "+actual.String(), msgAndArgs...)
}
