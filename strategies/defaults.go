package strategies

import (
	"github.com/strandauth/secondfactor"
	"github.com/strandauth/secondfactor/replay"
)

// Defaults returns the built-in strategy set keyed by factor type, ready to
// hand to secondfactor.Config. A nil tokens store gets a private
// default-capacity ring, so separate engines never share replay state.
func Defaults(issuer string, tokens TokenStore) map[string]secondfactor.Strategy {
	if tokens == nil {
		tokens = replay.New(replay.DefaultCapacity)
	}
	return map[string]secondfactor.Strategy{
		TypeOTP:        NewOTP(issuer),
		TypeMagicLink:  NewMagicLink(tokens, DefaultTokenLifetime),
		TypeBackupCode: NewBackupCodes(DefaultCodeCount),
	}
}
