package strategies

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strandauth/secondfactor"
	"github.com/strandauth/secondfactor/envelope"
)

// emailRecorder captures SendEmail hook invocations.
type emailRecorder struct {
	calls []emailCall
}

type emailCall struct {
	messageType string
	vars        map[string]string
}

func (r *emailRecorder) hook() secondfactor.SendEmailFunc {
	return func(ctx context.Context, messageType string, vars map[string]string) error {
		r.calls = append(r.calls, emailCall{messageType: messageType, vars: vars})
		return nil
	}
}

var idCounter atomic.Uint64

func newTestConfig(t *testing.T, emails *emailRecorder) *secondfactor.StrategyConfig {
	t.Helper()

	codec, err := envelope.New(map[string]string{
		TypeOTP:        strings.Repeat("ab", 32),
		TypeMagicLink:  strings.Repeat("cd", 32),
		TypeBackupCode: strings.Repeat("ef", 32),
	})
	require.NoError(t, err)

	cfg := &secondfactor.StrategyConfig{
		GenerateID: func() string {
			return fmt.Sprintf("factor-%d", idCounter.Add(1))
		},
		Crypto: codec,
		Logger: slog.Default(),
	}
	if emails != nil {
		cfg.SendEmail = emails.hook()
	} else {
		cfg.SendEmail = func(context.Context, string, map[string]string) error {
			return secondfactor.NewInternalError("sendEmail not configured for this test")
		}
	}
	return cfg
}

// withFixedClock pins the strategy clock for the duration of a test.
func withFixedClock(t *testing.T, at time.Time) {
	t.Helper()
	previous := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = previous })
}
