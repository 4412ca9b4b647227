package auth

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider       string // "discord" or "google"
	ProviderUserID string // Discord snowflake or Google sub
	Username       string // Discord username; empty for Google
	Email          string // verified email; empty for Discord
	EmailVerified  bool   // whether provider asserts email ownership
	Issuer         string // token issuer, set only for OIDC providers
}
