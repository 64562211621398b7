package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)

	token, expiresAt, err := signer.Sign("job-1", "branch-1/day-sheet-2024-01-01.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	jobID, relPath, parsedExpiry, err := signer.Verify(token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "branch-1/day-sheet-2024-01-01.csv", relPath)
	assert.Equal(t, expiresAt.Unix(), parsedExpiry.Unix())
}

func TestDownloadSignerRejectsTamperedToken(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)

	token, _, err := signer.Sign("job-1", "a/report.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "job-2"
	_, _, _, err = signer.Verify(strings.Join(parts, "."), false)
	assert.Error(t, err)
}

func TestDownloadSignerRejectsForeignSecret(t *testing.T) {
	token, _, err := NewDownloadSigner("secret-a", time.Hour).Sign("job-1", "a/report.csv")
	require.NoError(t, err)

	_, _, _, err = NewDownloadSigner("secret-b", time.Hour).Verify(token, false)
	assert.Error(t, err)
}

func TestDownloadSignerExpiry(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Nanosecond)

	token, _, err := signer.Sign("job-1", "a/report.csv")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	_, _, _, err = signer.Verify(token, false)
	assert.Error(t, err)

	_, relPath, _, err := signer.Verify(token, true)
	require.NoError(t, err)
	assert.Equal(t, "a/report.csv", relPath)
}

func TestDownloadSignerRequiresInputs(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)

	_, _, err := signer.Sign("", "a/report.csv")
	assert.Error(t, err)

	_, _, _, err = signer.Verify("not.a.token", false)
	assert.Error(t, err)
}
