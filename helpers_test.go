package secondfactor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// stubStrategy satisfies Strategy for engine-level tests that never reach
// factor-specific behavior.
type stubStrategy struct{}

func (stubStrategy) SecretType() SecretType { return SecretTypeNone }

func (stubStrategy) Create(ctx context.Context, ownerID, factorType string, cfg *StrategyConfig) (*Factor, error) {
	return &Factor{
		ID:      cfg.GenerateID(),
		OwnerID: ownerID,
		Type:    factorType,
		Status:  StatusPending,
	}, nil
}

func (stubStrategy) Prepare(ctx context.Context, f *Factor, payload any, cfg *StrategyConfig) (*ServerAction, error) {
	return nil, nil
}

func (stubStrategy) Validate(ctx context.Context, f *Factor, payload any, cfg *StrategyConfig) (bool, error) {
	return payload == "proof", nil
}

func (stubStrategy) PostValidate(ctx context.Context, f *Factor, payload any, cfg *StrategyConfig) (*Factor, error) {
	return nil, nil
}

func (stubStrategy) GetSecret(ctx context.Context, f *Factor, cfg *StrategyConfig) (any, error) {
	return "stub-secret", nil
}

// stubCrypto is a minimal in-memory Crypto for engine-level tests.
type stubCrypto struct{}

func (stubCrypto) CurrentKeys() map[string]string               { return map[string]string{} }
func (stubCrypto) Update(keyID, rawKeyHex string) error         { return nil }
func (stubCrypto) EncodeSecret(keyID, p string) (string, error) { return p, nil }
func (stubCrypto) DecodeSecret(keyID, e string) (string, error) { return e, nil }

func (stubCrypto) GenerateSecret(n int) ([]byte, error) {
	out := make([]byte, n)
	_, err := rand.Read(out)
	return out, err
}

func (stubCrypto) GenerateSecretEncoded(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
