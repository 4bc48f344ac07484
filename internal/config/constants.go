package config

// Default paths for persisted state
const (
	// DefaultDatabasePath is the default path for the link/token database
	DefaultDatabasePath = "./persistence/kobosync.db"

	// DefaultSecretKeyPath holds the generated master secret when SECRET_KEY is unset
	DefaultSecretKeyPath = "./persistence/secret.key"

	// DefaultCoverCacheDir stores resized covers
	DefaultCoverCacheDir = "./persistence/covers"
)

// DefaultAPIKeyPattern accepts the base64 alphabet used by Prosa API keys.
const DefaultAPIKeyPattern = `^[A-Za-z0-9+/=]+$`
