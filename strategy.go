package secondfactor

import (
	"context"
	"log/slog"
)

// SecretType describes how a strategy stores its secret material.
type SecretType string

const (
	// SecretTypeNone marks strategies with no stored secret.
	SecretTypeNone SecretType = "none"
	// SecretTypeAES marks strategies whose stored state is AES-GCM
	// ciphertext under a key-id equal to the factor type.
	SecretTypeAES SecretType = "aes"
)

// SendEmailFunc is the host-injected email side channel. The engine only
// calls it; delivery, retries, and templating belong to the host.
type SendEmailFunc func(ctx context.Context, messageType string, vars map[string]string) error

// Crypto is the envelope-encryption service consumed by strategies. The
// envelope package provides the production implementation.
type Crypto interface {
	// CurrentKeys returns a snapshot clone of the known raw key material,
	// keyed by key-id.
	CurrentKeys() map[string]string
	// Update registers a new key-id. Registering an existing key-id fails
	// with ErrKeyExists.
	Update(keyID, rawKeyHex string) error
	// EncodeSecret encrypts plaintext under the key for keyID and returns a
	// single opaque token safe to store in a factor's Context.
	EncodeSecret(keyID, plaintext string) (string, error)
	// DecodeSecret reverses EncodeSecret. Authentication failure surfaces
	// as ErrCiphertextInvalid; an unregistered keyID as ErrKeyNotFound.
	DecodeSecret(keyID, encrypted string) (string, error)
	// GenerateSecret returns n cryptographically secure random bytes.
	GenerateSecret(n int) ([]byte, error)
	// GenerateSecretEncoded returns n random bytes hex-encoded, suitable as
	// raw key material for Update.
	GenerateSecretEncoded(n int) (string, error)
}

// StrategyConfig is the shared dependency set handed to every strategy call.
type StrategyConfig struct {
	GenerateID func() string
	Crypto     Crypto
	SendEmail  SendEmailFunc
	Logger     *slog.Logger
}

// ServerAction instructs the host to perform an out-of-band step (such as
// sending an email) before validation can proceed. Action values are
// protocol constants; Data carries the action's parameters.
type ServerAction struct {
	Action string            `json:"action"`
	Data   map[string]string `json:"data"`
}

// Strategy is the per-factor-type lifecycle contract. Implementations must
// be safe for concurrent use; all stored state flows through the Factor
// records they are handed.
type Strategy interface {
	// SecretType reports how the strategy stores secrets. The engine mints
	// codec keys for every SecretTypeAES strategy during SyncSecrets.
	SecretType() SecretType
	// Create allocates a new factor for owner, producing its initial status
	// and Context.
	Create(ctx context.Context, ownerID, factorType string, cfg *StrategyConfig) (*Factor, error)
	// Prepare runs before validation. A non-nil ServerAction means the
	// protocol is mid-flight and the host must act before validating; nil
	// means proceed directly to Validate.
	Prepare(ctx context.Context, f *Factor, payload any, cfg *StrategyConfig) (*ServerAction, error)
	// Validate checks the untrusted payload against the stored factor.
	// Malformed input surfaces as a user-facing StrategyError; corrupted
	// stored state as a non-user-facing one.
	Validate(ctx context.Context, f *Factor, payload any, cfg *StrategyConfig) (bool, error)
	// PostValidate applies any post-success mutation (e.g. consuming a
	// backup code) and returns a new record for the caller to persist, or
	// nil when nothing changed.
	PostValidate(ctx context.Context, f *Factor, payload any, cfg *StrategyConfig) (*Factor, error)
	// GetSecret produces the plaintext-bearing, user-specific view of the
	// factor, or nil when the strategy has no revealable secret.
	GetSecret(ctx context.Context, f *Factor, cfg *StrategyConfig) (any, error)
}

// Serializer is implemented by strategies that override the default
// serialization. The engine falls back to DefaultSerialize otherwise.
type Serializer interface {
	Serialize(ctx context.Context, f *Factor, trusted bool, cfg *StrategyConfig) (*PublicFactor, error)
}

// DefaultSerialize clones the record into its public view, stripping
// Context. The strategy's secret view is attached only for trusted
// serializations of pending factors: secrets are revealable during the
// enrollment window and never after.
func DefaultSerialize(ctx context.Context, f *Factor, trusted bool, s Strategy, cfg *StrategyConfig) (*PublicFactor, error) {
	pub := &PublicFactor{
		ID:      f.ID,
		OwnerID: f.OwnerID,
		Type:    f.Type,
		Status:  f.Status,
	}
	if f.Extra != nil {
		pub.Extra = make(map[string]any, len(f.Extra))
		for k, v := range f.Extra {
			pub.Extra[k] = v
		}
	}

	if trusted && f.Status == StatusPending {
		secret, err := s.GetSecret(ctx, f, cfg)
		if err != nil {
			return nil, err
		}
		pub.Secret = secret
	}
	return pub, nil
}
