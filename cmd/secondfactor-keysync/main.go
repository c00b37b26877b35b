// Command secondfactor-keysync bootstraps the encryption keys the built-in
// strategies need. It reads existing key material from the environment (and
// an optional .env file), mints keys for any AES-backed strategy that lacks
// one, and prints the newly minted keys as env-format lines for the
// operator to persist. Running it again with the printed keys in place
// reports nothing to do.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/strandauth/secondfactor"
	"github.com/strandauth/secondfactor/envelope"
	"github.com/strandauth/secondfactor/replay"
	"github.com/strandauth/secondfactor/strategies"
)

// keyEnvPrefix namespaces the key material variables, e.g.
// SECONDFACTOR_KEY_MAGIC_LINK for the "magic-link" key-id.
const keyEnvPrefix = "SECONDFACTOR_KEY_"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("keysync failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	_ = godotenv.Load()

	keys := keysFromEnv(os.Environ())
	logger.Info("loaded key material", slog.Int("keys", len(keys)))

	codec, err := envelope.New(keys)
	if err != nil {
		return fmt.Errorf("build secret codec: %w", err)
	}

	engine, err := secondfactor.New(secondfactor.Config{
		Strategies: strategies.Defaults("", replay.New(0)),
		Crypto:     codec,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	created, err := engine.SyncSecrets()
	if err != nil {
		return fmt.Errorf("sync secrets: %w", err)
	}
	if created == nil {
		logger.Info("all strategy keys present, nothing to do")
		return nil
	}

	for keyID, material := range created {
		if _, existed := keys[keyID]; existed {
			continue
		}
		fmt.Printf("%s%s=%s\n", keyEnvPrefix, envSuffix(keyID), material)
	}
	return nil
}

// keysFromEnv extracts key material from KEY=VALUE pairs, mapping env
// suffixes back to key-ids (underscores become hyphens, lowercased).
func keysFromEnv(environ []string) map[string]string {
	keys := make(map[string]string)
	for _, entry := range environ {
		name, value, found := strings.Cut(entry, "=")
		if !found || !strings.HasPrefix(name, keyEnvPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, keyEnvPrefix)
		if suffix == "" || value == "" {
			continue
		}
		keyID := strings.ToLower(strings.ReplaceAll(suffix, "_", "-"))
		keys[keyID] = value
	}
	return keys
}

func envSuffix(keyID string) string {
	return strings.ToUpper(strings.ReplaceAll(keyID, "-", "_"))
}
