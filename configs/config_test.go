package configs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/email-auth/configs"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := configs.Load()
	require.NoError(t, err)
	require.Equal(t, "log", cfg.Email.Provider)
	require.True(t, cfg.Tokens.RevokeStale)
	require.Equal(t, 3, cfg.Tokens.InsertAttempts)
	require.Empty(t, cfg.Auth.EmailVerificationURL)
	require.Contains(t, cfg.Database.DSN, "dbname=email_auth")
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := configs.Load()
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidate_ProviderCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("EMAIL_PROVIDER", "sendgrid")

	_, err := configs.Load()
	require.ErrorContains(t, err, "SENDGRID_API_KEY")

	t.Setenv("EMAIL_PROVIDER", "postmark")
	_, err = configs.Load()
	require.ErrorContains(t, err, "POSTMARK_SERVER_TOKEN")
}

func TestValidate_URLTemplatePlaceholder(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PASSWORD_RESET_URL", "https://example.com/reset")

	_, err := configs.Load()
	require.ErrorContains(t, err, "PASSWORD_RESET_URL")

	t.Setenv("PASSWORD_RESET_URL", "https://example.com/reset/{token}")
	cfg, err := configs.Load()
	require.NoError(t, err)
	require.Equal(t, "https://example.com/reset/{token}", cfg.Auth.PasswordResetURL)
}
