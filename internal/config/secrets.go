package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/apresai/mulmoprep/internal/llm"
)

type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadKeys fetches each provider API key, plus any extra names, stored
// under prefix+KEY_NAME. Keys already present in the environment are not
// fetched. Missing secrets are logged and skipped; the provider then fails
// with a ConfigError when selected.
func LoadKeys(ctx context.Context, client secretsAPI, prefix string, providers map[llm.Provider]llm.ProviderConfig, logger *slog.Logger, extra ...string) *Keys {
	keys := &Keys{secrets: map[string]string{}}
	names := make([]string, 0, len(providers)+len(extra))
	for _, pc := range providers {
		names = append(names, pc.KeyEnv)
	}
	names = append(names, extra...)
	for _, envVar := range names {
		if envVar == "" || os.Getenv(envVar) != "" {
			continue
		}
		if _, done := keys.secrets[envVar]; done {
			continue
		}

		secretID := prefix + envVar
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: &secretID,
		})
		if err != nil {
			logger.Info("Secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			keys.secrets[envVar] = *result.SecretString
			logger.Info("Loaded secret", "secret_id", secretID)
		}
	}
	return keys
}
