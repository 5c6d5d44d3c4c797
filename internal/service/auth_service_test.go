package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("secret", time.Hour)
	token, err := auth.GenerateParticipantToken("s1", "ana", true)
	require.NoError(t, err)

	claims, err := auth.ValidateParticipantToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "ana", claims.Name)
	assert.True(t, claims.Facilitator)
}

func TestParticipantTokenRejections(t *testing.T) {
	auth := NewAuthService("secret", time.Hour)
	other := NewAuthService("other", time.Hour)
	expired := NewAuthService("secret", time.Nanosecond)

	foreign, err := other.GenerateParticipantToken("s1", "ana", false)
	require.NoError(t, err)
	_, err = auth.ValidateParticipantToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	stale, err := expired.GenerateParticipantToken("s1", "ana", false)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = auth.ValidateParticipantToken(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateParticipantToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	nameless, err := auth.GenerateParticipantToken("s1", "", false)
	require.NoError(t, err)
	_, err = auth.ValidateParticipantToken(nameless)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
