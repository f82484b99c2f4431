// Package household models the tenancy unit. Every event, item, and
// score is scoped by household key; nothing crosses that boundary.
package household

import (
	"regexp"
	"time"
)

// DefaultKey is the household used by development setups that skip
// token issuance.
const DefaultKey = "default"

// Household is one tenant.
type Household struct {
	Key        string
	Name       string
	SecretHash string
	Timezone   string
	CreatedAt  time.Time
}

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,62}[a-z0-9]$`)

// ValidKey reports whether a key is acceptable as a household
// identifier: lowercase alphanumerics with interior dashes or
// underscores, 3 to 64 characters.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
