package webhook

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/citywatch-app/citywatch/internal/errs"
)

const secret = "whsec_test"

func TestVerify_Valid(t *testing.T) {
	now := time.Now()
	body := []byte(`{"type":"payment.confirmed"}`)
	header := Sign(body, secret, now)
	require.NoError(t, Verify(body, header, secret, now))
}

func TestVerify_WrongSecret(t *testing.T) {
	now := time.Now()
	body := []byte(`{}`)
	header := Sign(body, "other-secret", now)
	require.ErrorIs(t, Verify(body, header, secret, now), errs.ErrInvalidSignature)
}

func TestVerify_TamperedBody(t *testing.T) {
	now := time.Now()
	header := Sign([]byte(`{"amount":1}`), secret, now)
	require.ErrorIs(t, Verify([]byte(`{"amount":9999}`), header, secret, now), errs.ErrInvalidSignature)
}

func TestVerify_StaleTimestamp(t *testing.T) {
	now := time.Now()
	body := []byte(`{}`)
	header := Sign(body, secret, now.Add(-301*time.Second))
	require.ErrorIs(t, Verify(body, header, secret, now), errs.ErrInvalidSignature)
}

func TestVerify_FutureTimestampBeyondSkew(t *testing.T) {
	now := time.Now()
	body := []byte(`{}`)
	header := Sign(body, secret, now.Add(301*time.Second))
	require.ErrorIs(t, Verify(body, header, secret, now), errs.ErrInvalidSignature)
}

func TestVerify_WithinSkew(t *testing.T) {
	now := time.Now()
	body := []byte(`{}`)
	require.NoError(t, Verify(body, Sign(body, secret, now.Add(-299*time.Second)), secret, now))
}

func TestVerify_MalformedHeaders(t *testing.T) {
	now := time.Now()
	body := []byte(`{}`)
	for _, header := range []string{
		"",
		"garbage",
		"t=123",
		"v1=abcd",
		"t=notanumber,v1=abcd",
		"t=123,v1=nothex!!",
	} {
		require.ErrorIs(t, Verify(body, header, secret, now), errs.ErrInvalidSignature, "header %q", header)
	}
}

func TestVerify_PartSwapStillParses(t *testing.T) {
	now := time.Now()
	body := []byte(`{}`)
	header := Sign(body, secret, now)
	// Re-order the parts; parsing is position independent.
	parts := strings.SplitN(header, ",", 2)
	require.NoError(t, Verify(body, parts[1]+","+parts[0], secret, now))
}
