package cli

import (
	"fmt"

	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/config"
)

// configPath returns --config or the default config file path.
func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// saveSession persists s as the signed-in session, keeping every other
// setting in the file.
func saveSession(path string, s *auth.Session) error {
	err := config.Update(path, func(c *config.Config) {
		c.Session = config.Session{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			UserID:       s.User.ID,
			Email:        s.User.Email,
			ExpiresAt:    s.ExpiresAt,
		}
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// clearSession removes the stored session.
func clearSession(path string) error {
	if err := config.Update(path, func(c *config.Config) { c.Session = config.Session{} }); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
