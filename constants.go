package secondfactor

// Protocol constants shared between the engine, the built-in strategies,
// and integrating hosts. Hosts must recognize these to drive their UI and
// email flows.
const (
	// MagicLinkRequestingEmail is the payload a client submits to ask for a
	// fresh magic-link challenge rather than to redeem one.
	MagicLinkRequestingEmail = "magic_link_request_send"
	// MagicLinkServerToSendEmail is the ServerAction.Action instructing the
	// host to deliver the challenge token by email.
	MagicLinkServerToSendEmail = "magic_link_send_email"
	// BackupCodeActivationProof is the payload that activates a pending
	// backup-code factor, proving the user has seen their codes. Real codes
	// are deliberately rejected while pending.
	BackupCodeActivationProof = "acknowledged"
)
