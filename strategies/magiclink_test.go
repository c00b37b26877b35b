package strategies

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandauth/secondfactor"
	"github.com/strandauth/secondfactor/replay"
)

func newMagicLinkFixture(t *testing.T) (*MagicLink, *secondfactor.Factor, *secondfactor.StrategyConfig, *emailRecorder) {
	t.Helper()
	emails := &emailRecorder{}
	cfg := newTestConfig(t, emails)
	strategy := NewMagicLink(replay.New(10), DefaultTokenLifetime)

	factor, err := strategy.Create(context.Background(), "owner-1", TypeMagicLink, cfg)
	require.NoError(t, err)
	return strategy, factor, cfg, emails
}

// ============================================================================
// Create
// ============================================================================

func TestMagicLink_Create_IsImmediatelyActive(t *testing.T) {
	_, factor, _, _ := newMagicLinkFixture(t)

	assert.Equal(t, secondfactor.StatusActive, factor.Status)
	assert.Empty(t, factor.Context)
}

// ============================================================================
// Prepare
// ============================================================================

func TestMagicLink_Prepare_RequestSentinelIssuesChallenge(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, emails := newMagicLinkFixture(t)

	action, err := strategy.Prepare(ctx, factor, secondfactor.MagicLinkRequestingEmail, cfg)
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Equal(t, secondfactor.MagicLinkServerToSendEmail, action.Action)
	assert.NotEmpty(t, action.Data["token"])

	require.Len(t, emails.calls, 1)
	assert.Equal(t, TypeMagicLink, emails.calls[0].messageType)
	assert.Equal(t, action.Data["token"], emails.calls[0].vars["token"])
}

func TestMagicLink_Prepare_OtherPayloadsFallThroughToValidation(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, emails := newMagicLinkFixture(t)

	for _, payload := range []any{"some-token", nil, 42} {
		action, err := strategy.Prepare(ctx, factor, payload, cfg)
		require.NoError(t, err)
		assert.Nil(t, action)
	}
	assert.Empty(t, emails.calls)
}

func TestMagicLink_Prepare_MissingSendEmailHookIsInternalError(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t, nil)
	strategy := NewMagicLink(replay.New(10), 0)

	factor, err := strategy.Create(ctx, "owner-1", TypeMagicLink, cfg)
	require.NoError(t, err)

	_, err = strategy.Prepare(ctx, factor, secondfactor.MagicLinkRequestingEmail, cfg)
	require.Error(t, err)
	assert.False(t, secondfactor.IsUserFacing(err))
}

func TestMagicLink_Prepare_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	first, err := strategy.Prepare(ctx, factor, secondfactor.MagicLinkRequestingEmail, cfg)
	require.NoError(t, err)
	second, err := strategy.Prepare(ctx, factor, secondfactor.MagicLinkRequestingEmail, cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first.Data["token"], second.Data["token"])
}

// ============================================================================
// Validate
// ============================================================================

func TestMagicLink_Validate_FreshTokenSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	action, err := strategy.Prepare(ctx, factor, secondfactor.MagicLinkRequestingEmail, cfg)
	require.NoError(t, err)
	token := action.Data["token"]

	valid, err := strategy.Validate(ctx, factor, token, cfg)
	require.NoError(t, err)
	assert.True(t, valid)

	// Immediate replay of the same token is rejected loudly.
	_, err = strategy.Validate(ctx, factor, token, cfg)
	require.Error(t, err)
	assert.True(t, secondfactor.IsUserFacing(err))
	assert.Contains(t, err.Error(), "already been used")
}

func TestMagicLink_Validate_NonStringPayloadIsUserFacingError(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	for _, payload := range []any{nil, 42, []byte("token")} {
		valid, err := strategy.Validate(ctx, factor, payload, cfg)
		assert.False(t, valid)
		require.Error(t, err)
		assert.True(t, secondfactor.IsUserFacing(err))
	}
}

func TestMagicLink_Validate_CorruptedTokenFailsQuietly(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	action, err := strategy.Prepare(ctx, factor, secondfactor.MagicLinkRequestingEmail, cfg)
	require.NoError(t, err)
	corrupted := action.Data["token"][:len(action.Data["token"])-4] + "AAA="

	valid, err := strategy.Validate(ctx, factor, corrupted, cfg)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestMagicLink_Validate_ExpiredTokenFails(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	expired := fmt.Sprintf("%s::%d::7", factor.ID, time.Now().Add(-time.Minute).UnixMilli())
	token, err := cfg.Crypto.EncodeSecret(TypeMagicLink, expired)
	require.NoError(t, err)

	valid, err := strategy.Validate(ctx, factor, token, cfg)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestMagicLink_Validate_TokenForAnotherFactorFails(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	other, err := strategy.Create(ctx, "owner-2", TypeMagicLink, cfg)
	require.NoError(t, err)

	action, err := strategy.Prepare(ctx, other, secondfactor.MagicLinkRequestingEmail, cfg)
	require.NoError(t, err)

	valid, err := strategy.Validate(ctx, factor, action.Data["token"], cfg)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestMagicLink_Validate_MalformedPlaintextFails(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	for _, plaintext := range []string{"no-delimiters", factor.ID + "::notanumber::1", factor.ID + "::"} {
		token, err := cfg.Crypto.EncodeSecret(TypeMagicLink, plaintext)
		require.NoError(t, err)

		valid, err := strategy.Validate(ctx, factor, token, cfg)
		require.NoError(t, err)
		assert.False(t, valid)
	}
}

// ============================================================================
// Secrets
// ============================================================================

func TestMagicLink_GetSecret_HasNothingToReveal(t *testing.T) {
	ctx := context.Background()
	strategy, factor, cfg, _ := newMagicLinkFixture(t)

	secret, err := strategy.GetSecret(ctx, factor, cfg)
	require.NoError(t, err)
	assert.Nil(t, secret)
}
