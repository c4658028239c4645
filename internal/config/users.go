package config

import "strings"

// UserRegistry maps forge logins to chat handles. Logins absent from the
// registry fall back to a normalized form of the login itself.
type UserRegistry struct {
	// Overrides maps a forge login to an explicit chat handle
	Overrides map[string]string `yaml:"overrides"`
}

// ChatName returns the chat handle for a forge login. If no override is
// configured, hyphens in the login are replaced with dots, which matches
// the common convention of "first-last" logins and "first.last" handles.
func (u *UserRegistry) ChatName(login string) string {
	if u.Overrides != nil {
		for k, v := range u.Overrides {
			if strings.EqualFold(k, login) {
				return v
			}
		}
	}
	return strings.ReplaceAll(login, "-", ".")
}

// Mention returns the direct-message address for a forge login
func (u *UserRegistry) Mention(login string) string {
	return "@" + u.ChatName(login)
}
