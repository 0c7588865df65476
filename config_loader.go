package envmeta

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names read by LoadConfigFromEnvironment.
const (
	EnvAgeRecipients   = "ENVMETA_AGE_RECIPIENTS"
	EnvKMSKeyID        = "ENVMETA_KMS_KEY_ID"
	EnvKMSRegion       = "ENVMETA_KMS_REGION"
	EnvVaultTransitKey = "ENVMETA_VAULT_TRANSIT_KEY"
	EnvAuditDBPath     = "ENVMETA_AUDIT_DB_PATH"
)

// LoadConfigFromEnvironment builds a Config from ENVMETA_* environment
// variables, following the 12-factor convention the rest of the ecosystem
// uses. A local ".env" file, when present, is merged in first without
// overriding variables already exported.
//
// Variables:
//   - ENVMETA_AGE_RECIPIENTS: comma-separated age recipient keys
//   - ENVMETA_KMS_KEY_ID, ENVMETA_KMS_REGION: AWS KMS backend
//   - ENVMETA_VAULT_TRANSIT_KEY: Vault Transit backend
//   - ENVMETA_AUDIT_DB_PATH: optional wrap-event journal location
//
// At least one backend must end up configured or validation fails.
func LoadConfigFromEnvironment() (Config, error) {
	// Ignore a missing .env; exported variables are the source of truth.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("%w: loading .env: %w", ErrInvalidConfiguration, err)
		}
	}

	cfg := Config{
		AgeRecipients:   splitRecipients(os.Getenv(EnvAgeRecipients)),
		KMSKeyID:        os.Getenv(EnvKMSKeyID),
		KMSRegion:       os.Getenv(EnvKMSRegion),
		VaultTransitKey: os.Getenv(EnvVaultTransitKey),
		AuditDBPath:     os.Getenv(EnvAuditDBPath),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func splitRecipients(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	recipients := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}
