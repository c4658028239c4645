package config

import "strings"

// RepoConfig represents the notification settings for a single repository
type RepoConfig struct {
	// Host is the forge host name, e.g. "git.company.com"
	Host string `yaml:"host"`
	// FullName is the "owner/name" slug of the repository
	FullName string `yaml:"full_name"`
	// Channel is the chat channel that receives review notifications
	Channel string `yaml:"channel"`
}

// RepoRegistry maps repositories to their review channels
type RepoRegistry struct {
	Entries []RepoConfig `yaml:"entries"`
}

// Lookup returns the review channel configured for a repository.
// Host and full name comparisons are case-insensitive.
func (r *RepoRegistry) Lookup(host, fullName string) (string, bool) {
	for _, e := range r.Entries {
		if strings.EqualFold(e.Host, host) && strings.EqualFold(e.FullName, fullName) {
			return e.Channel, true
		}
	}
	return "", false
}

// IsConfigured reports whether a repository has a review channel
func (r *RepoRegistry) IsConfigured(host, fullName string) bool {
	_, ok := r.Lookup(host, fullName)
	return ok
}
