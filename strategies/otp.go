// Package strategies provides the built-in factor strategies: TOTP,
// email magic links, and backup codes.
package strategies

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/strandauth/secondfactor"
)

// TypeOTP is the factor type tag for the TOTP strategy.
const TypeOTP = "otp"

// DefaultIssuer labels provisioning URLs when no issuer is configured.
const DefaultIssuer = "secondfactor"

// otpContextVersion tags the encrypted context payload so the stored format
// can evolve without breaking existing records.
const otpContextVersion = "0"

const (
	otpPeriod     = 30
	otpSkew       = 1
	otpSecretSize = 20
)

// Provisioning is the enrollment view of an OTP factor: the raw seed plus
// the otpauth URL and a QR code the user can scan.
type Provisioning struct {
	Secret        string `json:"secret"`
	URL           string `json:"url"`
	QRCodeDataURL string `json:"qr_code"`
}

// OTP implements RFC 6238 time-based one-time passwords. The shared seed is
// stored AES-GCM-encrypted under the "otp" key-id; codes are checked with a
// ±1 time-step window for clock drift.
type OTP struct {
	issuer string
}

// NewOTP builds the TOTP strategy. An empty issuer falls back to
// DefaultIssuer.
func NewOTP(issuer string) *OTP {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &OTP{issuer: issuer}
}

// SecretType reports that OTP stores AES-GCM ciphertext.
func (s *OTP) SecretType() secondfactor.SecretType {
	return secondfactor.SecretTypeAES
}

// Create mints a fresh shared seed and stores it encrypted. The factor
// starts pending: the owner must prove possession once before it counts.
func (s *OTP) Create(ctx context.Context, ownerID, factorType string, cfg *secondfactor.StrategyConfig) (*secondfactor.Factor, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: ownerID,
		SecretSize:  otpSecretSize,
		Period:      otpPeriod,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate TOTP secret: %w", err)
	}

	encrypted, err := cfg.Crypto.EncodeSecret(factorType, otpContextVersion+":"+key.Secret())
	if err != nil {
		return nil, fmt.Errorf("encrypt TOTP secret: %w", err)
	}

	return &secondfactor.Factor{
		ID:      cfg.GenerateID(),
		OwnerID: ownerID,
		Type:    factorType,
		Status:  secondfactor.StatusPending,
		Context: encrypted,
	}, nil
}

// Prepare is a no-op: OTP validation is single-step.
func (s *OTP) Prepare(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (*secondfactor.ServerAction, error) {
	return nil, nil
}

// Validate checks a submitted code against the stored seed.
func (s *OTP) Validate(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (bool, error) {
	code, ok := payload.(string)
	if !ok {
		return false, secondfactor.NewUserFacingError("invalid client payload")
	}

	seed, err := s.seed(f, cfg)
	if err != nil {
		return false, err
	}

	valid, err := totp.ValidateCustom(code, seed, nowFunc(), totp.ValidateOpts{
		Period:    otpPeriod,
		Skew:      otpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// Wrong-length or non-numeric codes land here; they simply fail.
		return false, nil
	}
	return valid, nil
}

// PostValidate is a no-op: a successful code leaves the stored seed as is.
func (s *OTP) PostValidate(ctx context.Context, f *secondfactor.Factor, payload any, cfg *secondfactor.StrategyConfig) (*secondfactor.Factor, error) {
	return nil, nil
}

// GetSecret returns the decrypted seed for reveal flows.
func (s *OTP) GetSecret(ctx context.Context, f *secondfactor.Factor, cfg *secondfactor.StrategyConfig) (any, error) {
	return s.seed(f, cfg)
}

// Serialize overrides the default so the trusted pending view carries full
// provisioning material (seed, otpauth URL, QR) instead of the bare seed.
func (s *OTP) Serialize(ctx context.Context, f *secondfactor.Factor, trusted bool, cfg *secondfactor.StrategyConfig) (*secondfactor.PublicFactor, error) {
	pub, err := secondfactor.DefaultSerialize(ctx, f, trusted, s, cfg)
	if err != nil {
		return nil, err
	}
	if pub.Secret != nil {
		provisioning, err := s.Provisioning(ctx, f, cfg)
		if err != nil {
			return nil, err
		}
		pub.Secret = provisioning
	}
	return pub, nil
}

// Provisioning builds the enrollment view from the stored seed.
func (s *OTP) Provisioning(ctx context.Context, f *secondfactor.Factor, cfg *secondfactor.StrategyConfig) (*Provisioning, error) {
	seed, err := s.seed(f, cfg)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("secret", seed)
	query.Set("issuer", s.issuer)
	query.Set("algorithm", "SHA1")
	query.Set("digits", "6")
	query.Set("period", fmt.Sprintf("%d", otpPeriod))

	provisioningURL := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + s.issuer + ":" + f.OwnerID,
		RawQuery: query.Encode(),
	}

	qr, err := qrcode.New(provisioningURL.String(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("create QR code: %w", err)
	}
	png, err := qr.PNG(200)
	if err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}

	return &Provisioning{
		Secret:        seed,
		URL:           provisioningURL.String(),
		QRCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

func (s *OTP) seed(f *secondfactor.Factor, cfg *secondfactor.StrategyConfig) (string, error) {
	decrypted, err := cfg.Crypto.DecodeSecret(f.Type, f.Context)
	if err != nil {
		return "", secondfactor.WrapInternalError("invalid server secret", err)
	}

	version, seed, found := strings.Cut(decrypted, ":")
	if !found || version != otpContextVersion {
		return "", secondfactor.NewInternalError("invalid server secret: unknown version")
	}
	return seed, nil
}
