package secondfactor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Config wires an Engine. Strategies and Crypto are required; everything
// else has a usable default.
type Config struct {
	// Strategies is the registry of factor types the engine dispatches to.
	Strategies map[string]Strategy `validate:"required,min=1"`
	// Crypto is the envelope-encryption service shared by all strategies.
	Crypto Crypto `validate:"required"`
	// GenerateID mints factor ids. Defaults to uuid.NewString.
	GenerateID func() string
	// SendEmail is the host's email side channel. The default implementation
	// fails, so hosts using the magic-link strategy must supply one.
	SendEmail SendEmailFunc
	// CustomStoredFields are merged onto every record returned by Create and
	// pass through serialization verbatim.
	CustomStoredFields map[string]any
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) withDefaults() (*Config, error) {
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	for factorType, strategy := range c.Strategies {
		if factorType == "" {
			return nil, fmt.Errorf("invalid engine config: empty strategy type key")
		}
		if strategy == nil {
			return nil, fmt.Errorf("invalid engine config: strategy %q is nil", factorType)
		}
	}

	cfg := *c
	if cfg.GenerateID == nil {
		cfg.GenerateID = uuid.NewString
	}
	if cfg.SendEmail == nil {
		cfg.SendEmail = func(context.Context, string, map[string]string) error {
			return NewInternalError("sendEmail was used but not provided when initializing the engine")
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &cfg, nil
}
