package secondfactor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// ValidationOutcome discriminates the result of Engine.Validate.
type ValidationOutcome string

const (
	// OutcomeServerActionRequired means the protocol is mid-flight: the
	// host must perform Result.Action before validation can proceed.
	OutcomeServerActionRequired ValidationOutcome = "serverActionRequired"
	// OutcomeValidationFailed means the payload did not prove possession.
	OutcomeValidationFailed ValidationOutcome = "validationFailed"
	// OutcomeValidationSucceeded means possession was proven. Updated, when
	// non-nil, is the mutated record the caller must persist.
	OutcomeValidationSucceeded ValidationOutcome = "validationSucceeded"
)

// ValidationResult is the discriminated outcome of Engine.Validate.
type ValidationResult struct {
	Outcome ValidationOutcome
	Action  *ServerAction
	Updated *Factor
}

// Engine routes factor operations to the registered strategy for the
// record's type, enforcing the status state machine and the serialization
// trust boundary on the way through.
type Engine struct {
	strategies map[string]Strategy
	cfg        *StrategyConfig
	custom     map[string]any
	logger     *slog.Logger
}

// New validates cfg, applies defaults, and builds an Engine. The strategy
// registry is resolved once here; an empty registry or a nil strategy is
// rejected immediately rather than at first dispatch.
func New(cfg Config) (*Engine, error) {
	resolved, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Engine{
		strategies: resolved.Strategies,
		cfg: &StrategyConfig{
			GenerateID: resolved.GenerateID,
			Crypto:     resolved.Crypto,
			SendEmail:  resolved.SendEmail,
			Logger:     resolved.Logger,
		},
		custom: resolved.CustomStoredFields,
		logger: resolved.Logger,
	}, nil
}

// strategyFor resolves the strategy for a record that already passed the
// trust boundary, so a miss is an internal fault.
func (e *Engine) strategyFor(f *Factor) (Strategy, error) {
	strategy, ok := e.strategies[f.Type]
	if !ok {
		return nil, NewInternalError("invalid strategy")
	}
	return strategy, nil
}

// Create builds a new factor of factorType for ownerID and merges the
// configured custom stored fields onto it. The caller persists the result.
func (e *Engine) Create(ctx context.Context, factorType, ownerID string) (*Factor, error) {
	strategy, ok := e.strategies[factorType]
	if !ok {
		return nil, NewUserFacingError(fmt.Sprintf("invalid type: %s", factorType))
	}

	factor, err := strategy.Create(ctx, ownerID, factorType, e.cfg)
	if err != nil {
		return nil, err
	}

	if len(e.custom) > 0 {
		if factor.Extra == nil {
			factor.Extra = make(map[string]any, len(e.custom))
		}
		for k, v := range e.custom {
			factor.Extra[k] = v
		}
	}

	e.logger.Info("factor created",
		slog.String("factor_id", factor.ID),
		slog.String("factor_type", factor.Type),
		slog.String("status", string(factor.Status)))
	return factor, nil
}

// Activate confirms a pending factor can become active based on a user
// proof. It is a single synchronous possession check: no Prepare, no
// PostValidate. The caller commits the status change after a true result
// (see AssertStatusTransition).
func (e *Engine) Activate(ctx context.Context, f *Factor, payload any) (bool, error) {
	if f.Status != StatusPending {
		return false, NewUserFacingError("strategy must be pending to activate")
	}

	strategy, err := e.strategyFor(f)
	if err != nil {
		return false, err
	}
	return strategy.Validate(ctx, f, payload, e.cfg)
}

// Validate runs the full verification flow for an active factor: Prepare
// may short-circuit with a server action; otherwise the proof is checked
// and, on success, the strategy's post-validation mutation is applied.
func (e *Engine) Validate(ctx context.Context, f *Factor, payload any) (*ValidationResult, error) {
	if f.Status != StatusActive {
		return nil, NewUserFacingError("inactive strategies cannot be used for verification")
	}

	strategy, err := e.strategyFor(f)
	if err != nil {
		return nil, err
	}

	action, err := strategy.Prepare(ctx, f, payload, e.cfg)
	if err != nil {
		return nil, err
	}
	if action != nil {
		return &ValidationResult{Outcome: OutcomeServerActionRequired, Action: action}, nil
	}

	valid, err := strategy.Validate(ctx, f, payload, e.cfg)
	if err != nil {
		return nil, err
	}
	if !valid {
		e.logger.Warn("factor validation failed",
			slog.String("factor_id", f.ID),
			slog.String("factor_type", f.Type))
		return &ValidationResult{Outcome: OutcomeValidationFailed}, nil
	}

	updated, err := strategy.PostValidate(ctx, f, payload, e.cfg)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{Outcome: OutcomeValidationSucceeded, Updated: updated}, nil
}

// Coerce is the boundary check for records read from storage of unknown
// provenance. It is identity-preserving: a registered type returns the
// same record, an unregistered one is an internal fault.
func (e *Engine) Coerce(f *Factor) (*Factor, error) {
	if _, ok := e.strategies[f.Type]; !ok {
		return nil, NewInternalError("invalid strategy")
	}
	return f, nil
}

// GetSecret returns the strategy's plaintext secret view of f, for reveal
// flows. Strategies without revealable secrets return nil.
func (e *Engine) GetSecret(ctx context.Context, f *Factor) (any, error) {
	strategy, err := e.strategyFor(f)
	if err != nil {
		return nil, err
	}
	return strategy.GetSecret(ctx, f, e.cfg)
}

// Serialize renders the public view of f. Run every record through here
// before it leaves a trusted context; the default serializer strips
// Context and reveals secrets only for trusted pending records.
func (e *Engine) Serialize(ctx context.Context, f *Factor, trusted bool) (*PublicFactor, error) {
	strategy, err := e.strategyFor(f)
	if err != nil {
		return nil, err
	}
	if serializer, ok := strategy.(Serializer); ok {
		return serializer.Serialize(ctx, f, trusted, e.cfg)
	}
	return DefaultSerialize(ctx, f, trusted, strategy, e.cfg)
}

// SerializeAll serializes a batch. A failure on any record aborts the whole
// batch; the caller never receives a result with silently dropped entries.
func (e *Engine) SerializeAll(ctx context.Context, factors []*Factor, trusted bool) ([]*PublicFactor, error) {
	out := make([]*PublicFactor, 0, len(factors))
	for _, f := range factors {
		pub, err := e.Serialize(ctx, f, trusted)
		if err != nil {
			return nil, err
		}
		out = append(out, pub)
	}
	return out, nil
}

// AssertStatusTransition checks that f may move to next. Exactly
// pending→active, active→disabled, and disabled→active are allowed;
// everything else, including no-op transitions, is rejected with a
// user-facing error. Callers run this before committing a status change.
func (e *Engine) AssertStatusTransition(f *Factor, next Status) error {
	current := f.Status
	allowed := current != next &&
		((current == StatusPending && next == StatusActive) ||
			(current == StatusActive && next == StatusDisabled) ||
			(current == StatusDisabled && next == StatusActive))
	if allowed {
		return nil
	}
	return NewUserFacingError(fmt.Sprintf("cannot change status from %s to %s", current, next))
}

// SyncSecrets mints a codec key for every AES-backed strategy whose key-id
// is missing, and returns the full key snapshot when anything was created.
// A nil return means no changes: the non-nil result is a one-shot "persist
// this" signal, not a current-state getter.
func (e *Engine) SyncSecrets() (map[string]string, error) {
	keys := e.cfg.Crypto.CurrentKeys()

	types := make([]string, 0, len(e.strategies))
	for factorType := range e.strategies {
		types = append(types, factorType)
	}
	sort.Strings(types)

	created := false
	for _, factorType := range types {
		if e.strategies[factorType].SecretType() != SecretTypeAES {
			continue
		}
		if _, ok := keys[factorType]; ok {
			continue
		}

		secret, err := e.cfg.Crypto.GenerateSecretEncoded(32)
		if err != nil {
			return nil, fmt.Errorf("generate key for %q: %w", factorType, err)
		}
		if err := e.cfg.Crypto.Update(factorType, secret); err != nil {
			return nil, fmt.Errorf("register key for %q: %w", factorType, err)
		}
		keys[factorType] = secret
		created = true
		e.logger.Info("encryption key minted", slog.String("key_id", factorType))
	}

	if !created {
		return nil, nil
	}
	return keys, nil
}
