package storage

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadTokenRoundTrip(t *testing.T) {
	signer := NewDownloadTokenSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("job-1", "CS101/job-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "job-1", parsed.JobID)
	require.Equal(t, "CS101/job-1.csv", parsed.Path)
	require.WithinDuration(t, expiresAt, parsed.ExpiresAt, time.Second)
}

func TestDownloadTokenExpired(t *testing.T) {
	signer := NewDownloadTokenSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("job-1", "CS101/job-1.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, err = signer.Verify(token)
	require.Error(t, err)
}

func TestDownloadTokenRejectsTampering(t *testing.T) {
	signer := NewDownloadTokenSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "CS101/job-1.csv")
	require.NoError(t, err)

	// Point the token at a different job without re-signing.
	encoded, sig, ok := strings.Cut(token, ".")
	require.True(t, ok)
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	forged := base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(raw), "job-1", "job-2", 1)))

	_, err = signer.Verify(forged + "." + sig)
	require.Error(t, err)
}

func TestDownloadTokenRejectsWrongSecret(t *testing.T) {
	signer := NewDownloadTokenSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "CS101/job-1.csv")
	require.NoError(t, err)

	other := NewDownloadTokenSigner("different", time.Hour)
	_, err = other.Verify(token)
	require.Error(t, err)
}
