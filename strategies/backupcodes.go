package strategies

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/strandauth/secondfactor"
)

// TypeBackupCode is the factor type tag for the backup-code strategy.
const TypeBackupCode = "backup-code"

// DefaultCodeCount is how many codes Create mints when none is configured.
const DefaultCodeCount = 10

const backupCodeLength = 12

// BackupCodes implements one-time recovery codes. The full code list is
// stored joined and AES-GCM-encrypted under the "backup-code" key-id; each
// successful use removes the matched code from the list.
type BackupCodes struct {
	count int
}

// NewBackupCodes builds the strategy. A non-positive count selects
// DefaultCodeCount.
func NewBackupCodes(count int) *BackupCodes {
	if count <= 0 {
		count = DefaultCodeCount
	}
	return &BackupCodes{count: count}
}

// SecretType reports that backup codes store AES-GCM ciphertext.
func (s *BackupCodes) SecretType() secondfactor.SecretType {
	return secondfactor.SecretTypeAES
}

// Create mints the code list and stores it encrypted. The factor starts
// pending until the user acknowledges having seen the codes.
func (s *BackupCodes) Create(ctx context.Context, ownerID, factorType string, cfg *secondfactor.StrategyConfig) (*secondfactor.Factor, error) {
	codes := make([]string, s.count)
	for i := range codes {
		raw, err := cfg.Crypto.GenerateSecret(backupCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		digits := make([]byte, backupCodeLength)
		for j, b := range raw {
			digits[j] = '0' + b%10
		}
		codes[i] = string(digits)
	}

	encrypted, err := cfg.Crypto.EncodeSecret(factorType, strings.Join(codes, "|"))
	if err != nil {
		return nil, fmt.Errorf("encrypt backup codes: %w", err)
	}

	return &secondfactor.Factor{
		ID:      cfg.GenerateID(),
		OwnerID: ownerID,
		Type:    factorType,
		Status:  secondfactor.StatusPending,
		Context: encrypted,
	}, nil
}

// Prepare is a no-op: backup-code validation is single-step.
func (s *BackupCodes) Prepare(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (*secondfactor.ServerAction, error) {
	return nil, nil
}

// Validate accepts only the acknowledgement sentinel while the factor is
// pending; real codes must not activate it by accident. Once active, the
// payload is checked for membership in the remaining code list.
func (s *BackupCodes) Validate(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (bool, error) {
	if f.Status == secondfactor.StatusPending {
		return payload == secondfactor.BackupCodeActivationProof, nil
	}

	code, ok := payload.(string)
	if !ok {
		return false, nil
	}
	codes, err := s.decode(f, cfg)
	if err != nil {
		return false, err
	}
	return slices.Contains(codes, code), nil
}

// PostValidate consumes the just-used code: the remaining list is
// re-encrypted into a fresh record for the caller to persist. A nil return
// means no code matched and nothing was written.
func (s *BackupCodes) PostValidate(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (*secondfactor.Factor, error) {
	used, ok := payload.(string)
	if !ok {
		return nil, nil
	}

	codes, err := s.decode(f, cfg)
	if err != nil {
		return nil, err
	}

	remaining := slices.DeleteFunc(slices.Clone(codes), func(code string) bool {
		return code == used
	})
	if len(remaining) == len(codes) {
		return nil, nil
	}

	encrypted, err := cfg.Crypto.EncodeSecret(f.Type, strings.Join(remaining, "|"))
	if err != nil {
		return nil, fmt.Errorf("encrypt backup codes: %w", err)
	}

	updated := f.Clone()
	updated.Context = encrypted
	return updated, nil
}

// GetSecret returns the unused codes grouped 4-4-4 for display.
func (s *BackupCodes) GetSecret(ctx context.Context, f *secondfactor.Factor, cfg *secondfactor.StrategyConfig) (any, error) {
	codes, err := s.decode(f, cfg)
	if err != nil {
		return nil, err
	}

	formatted := make([]string, len(codes))
	for i, code := range codes {
		formatted[i] = code[:4] + "-" + code[4:8] + "-" + code[8:]
	}
	return formatted, nil
}

func (s *BackupCodes) decode(f *secondfactor.Factor, cfg *secondfactor.StrategyConfig) ([]string, error) {
	decrypted, err := cfg.Crypto.DecodeSecret(f.Type, f.Context)
	if err != nil {
		return nil, secondfactor.WrapInternalError("failed deserializing context", err)
	}
	if decrypted == "" {
		return nil, nil
	}
	return strings.Split(decrypted, "|"), nil
}
