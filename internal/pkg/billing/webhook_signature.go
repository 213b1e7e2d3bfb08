package billing

import (
	"crypto/subtle"
	"strings"
)

// VerifyNotificationAPIKey checks the merchant apiKey echoed in a PagHiper
// notification. With no configured key every delivery is accepted. Otherwise
// a delivery carrying a status must echo the matching key; notification-only
// deliveries may omit it since their status is fetched from the processor.
func VerifyNotificationAPIKey(n *Notification, configuredKey string) bool {
	want := strings.TrimSpace(configuredKey)
	if want == "" {
		return true
	}
	if n == nil {
		return false
	}
	got := strings.TrimSpace(n.APIKey)
	if got == "" {
		return n.NeedsStatusLookup()
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
