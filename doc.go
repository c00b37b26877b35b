// Package secondfactor is an embeddable second-factor (MFA) engine.
//
// The engine manages the lifecycle of a user's authentication factors
// (time-based one-time passwords, email magic links, and backup codes)
// behind a single dispatch surface. Factor-specific cryptography and
// validation live in per-type strategies (see the strategies package);
// the engine routes by the stored factor type, enforces the factor status
// state machine, and gates plaintext secret material behind an explicit
// trust flag at serialization time.
//
// The engine performs no I/O of its own: every operation takes a factor
// record in and hands a (possibly updated) record back to the caller, who
// owns persistence. Sessions, rate limiting, and email delivery are the
// host application's responsibility; email sending is reached only through
// the injected SendEmail hook.
//
// Engine methods are safe for concurrent use. The only process-wide
// mutable state is the secret codec's key ring and the magic-link
// anti-replay store, both of which are explicitly constructed and injected
// so that two engines in one process never share state by accident.
package secondfactor
