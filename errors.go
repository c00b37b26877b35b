package secondfactor

import "errors"

// Sentinel errors surfaced by Crypto implementations
var (
	// ErrKeyNotFound indicates an operation referenced a key-id that was
	// never registered. This is a configuration fault, not an attack signal.
	ErrKeyNotFound = errors.New("encryption key not found")
	// ErrKeyExists indicates an attempt to overwrite an existing key-id.
	// Keys are append-only; rotation registers a new key-id.
	ErrKeyExists = errors.New("overriding keys is not supported")
	// ErrCiphertextInvalid indicates a ciphertext failed authentication or
	// was structurally malformed.
	ErrCiphertextInvalid = errors.New("ciphertext rejected")
)

// StrategyError is the single error kind produced by the engine and its
// strategies. UserFacing marks whether the message is safe to relay to the
// end user: malformed proof payloads and business-rule violations are,
// structural and configuration faults are not.
type StrategyError struct {
	Message    string
	UserFacing bool
	Cause      error
}

func (e *StrategyError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StrategyError) Unwrap() error {
	return e.Cause
}

// NewUserFacingError builds a StrategyError whose message may be shown to
// the end user.
func NewUserFacingError(message string) *StrategyError {
	return &StrategyError{Message: message, UserFacing: true}
}

// NewInternalError builds a StrategyError describing an internal or
// configuration fault. Hosts should log it and present a generic failure.
func NewInternalError(message string) *StrategyError {
	return &StrategyError{Message: message}
}

// WrapInternalError builds a non-user-facing StrategyError around cause.
func WrapInternalError(message string, cause error) *StrategyError {
	return &StrategyError{Message: message, Cause: cause}
}

// IsUserFacing reports whether err (or any error it wraps) is a
// StrategyError marked safe for end users.
func IsUserFacing(err error) bool {
	var se *StrategyError
	return errors.As(err, &se) && se.UserFacing
}
