package fingerprint

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerive_Deterministic(t *testing.T) {
	a := Derive("203.0.113.7", "Mozilla/5.0", "en-US,en;q=0.9")
	b := Derive("203.0.113.7", "Mozilla/5.0", "en-US,en;q=0.9")
	require.Equal(t, a, b)
}

func TestDerive_HexToken(t *testing.T) {
	fp := Derive("203.0.113.7", "Mozilla/5.0", "en-US")
	require.Len(t, fp, 64)
	_, err := hex.DecodeString(fp)
	require.NoError(t, err)
}

func TestDerive_DistinctInputsDistinctTokens(t *testing.T) {
	a := Derive("203.0.113.7", "Mozilla/5.0", "en-US")
	b := Derive("203.0.113.8", "Mozilla/5.0", "en-US")
	require.NotEqual(t, a, b)
}

func TestDerive_MissingComponentsUsePlaceholder(t *testing.T) {
	// Empty components must not error and must land on the placeholder,
	// so "" and "unknown" are the same principal.
	require.Equal(t, Derive("", "", ""), Derive("unknown", "unknown", "unknown"))
	require.Equal(t, Derive("  ", "ua", "en"), Derive("unknown", "ua", "en"))
}

func TestShort(t *testing.T) {
	fp := Derive("203.0.113.7", "Mozilla/5.0", "en-US")
	require.Equal(t, fp[:12], Short(fp))
	require.Equal(t, "abc", Short("abc"))
}
