package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "clinic", TTL: time.Hour}
	tok, claims, err := j.Issue("acc-1", "ana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	got, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.UID)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, claims.ID, got.ID)
}

func TestParseRejectsExpiredAndForeign(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	j := &JWTer{Secret: []byte("k"), Issuer: "clinic", TTL: time.Minute, Now: func() time.Time { return now }}
	tok, _, err := j.Issue("acc-1", "a@b.c")
	require.NoError(t, err)

	now = now.Add(5 * time.Minute) // 超过 TTL + leeway
	_, err = j.Parse(tok)
	assert.Error(t, err)

	other := &JWTer{Secret: []byte("other"), Issuer: "clinic", TTL: time.Hour}
	tok2, _, err := other.Issue("acc-2", "x@y.z")
	require.NoError(t, err)
	_, err = j.Parse(tok2)
	assert.Error(t, err)
}
