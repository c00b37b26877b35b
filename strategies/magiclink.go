package strategies

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/strandauth/secondfactor"
)

// TypeMagicLink is the factor type tag for the magic-link strategy.
const TypeMagicLink = "magic-link"

// DefaultTokenLifetime bounds how long an issued challenge token stays
// redeemable. The expiry is embedded in the encrypted token itself; no
// timer is scheduled.
const DefaultTokenLifetime = 10 * time.Minute

// TokenStore remembers redeemed tokens so they cannot be replayed within
// their validity window. replay.Ring is the standard implementation.
type TokenStore interface {
	Has(token string) bool
	Add(token string)
}

// MagicLink implements the email challenge strategy. A factor holds no
// secret material of its own: each challenge is a short-lived token of the
// form id::expiryUnixMs::seq, AES-GCM-encrypted under the "magic-link"
// key-id, delivered out of band through the host's SendEmail hook.
type MagicLink struct {
	tokens   TokenStore
	lifetime time.Duration
	sequence atomic.Uint64
}

// NewMagicLink builds the strategy around an explicitly owned token store.
// A non-positive lifetime selects DefaultTokenLifetime.
func NewMagicLink(tokens TokenStore, lifetime time.Duration) *MagicLink {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	s := &MagicLink{tokens: tokens, lifetime: lifetime}
	s.sequence.Store(rand.Uint64N(100))
	return s
}

// SecretType reports AES because challenge tokens are encrypted under this
// strategy's key-id, even though factors store no context.
func (s *MagicLink) SecretType() secondfactor.SecretType {
	return secondfactor.SecretTypeAES
}

// Create mints an immediately active factor: any active magic-link record
// can issue a challenge, so there is no separate enrollment proof.
func (s *MagicLink) Create(ctx context.Context, ownerID, factorType string, cfg *secondfactor.StrategyConfig) (*secondfactor.Factor, error) {
	return &secondfactor.Factor{
		ID:      cfg.GenerateID(),
		OwnerID: ownerID,
		Type:    factorType,
		Status:  secondfactor.StatusActive,
	}, nil
}

// Prepare issues a challenge when the client submits the well-known
// request sentinel; any other payload is a redemption attempt and falls
// through to Validate. The token is handed to the SendEmail hook and also
// returned in the server action for hosts that deliver it themselves.
func (s *MagicLink) Prepare(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (*secondfactor.ServerAction, error) {
	if payload != secondfactor.MagicLinkRequestingEmail {
		return nil, nil
	}

	expiry := nowFunc().Add(s.lifetime).UnixMilli()
	plaintext := fmt.Sprintf("%s::%d::%d", f.ID, expiry, s.sequence.Add(1))
	token, err := cfg.Crypto.EncodeSecret(f.Type, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt challenge token: %w", err)
	}

	vars := map[string]string{"token": token}
	if err := cfg.SendEmail(ctx, f.Type, vars); err != nil {
		return nil, err
	}

	return &secondfactor.ServerAction{
		Action: secondfactor.MagicLinkServerToSendEmail,
		Data:   vars,
	}, nil
}

// Validate redeems a challenge token: it must decrypt under this
// strategy's key, name this factor, be unexpired, and never have been
// redeemed before. Redemption is recorded in the token store even though
// tokens self-expire, closing the replay window.
func (s *MagicLink) Validate(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (bool, error) {
	token, ok := payload.(string)
	if !ok {
		return false, secondfactor.NewUserFacingError("unable to understand this magic link")
	}

	if s.tokens.Has(token) {
		return false, secondfactor.NewUserFacingError("this magic link has already been used")
	}

	decrypted, err := cfg.Crypto.DecodeSecret(f.Type, token)
	if errors.Is(err, secondfactor.ErrCiphertextInvalid) {
		// A garbled or forged token is a failed proof, not a fault.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	parts := strings.SplitN(decrypted, "::", 3)
	if len(parts) != 3 {
		return false, nil
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return false, nil
	}

	if parts[0] == f.ID && expiry > nowFunc().UnixMilli() {
		s.tokens.Add(token)
		return true, nil
	}
	return false, nil
}

// PostValidate is a no-op: redeeming a challenge leaves the factor as is.
func (s *MagicLink) PostValidate(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (*secondfactor.Factor, error) {
	return nil, nil
}

// GetSecret returns nil: magic-link factors have no user-revealable secret.
func (s *MagicLink) GetSecret(ctx context.Context, f *secondfactor.Factor, cfg *secondfactor.StrategyConfig) (any, error) {
	return nil, nil
}
