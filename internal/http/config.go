package http

import (
	"time"

	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/database"
	"github.com/mrlokans/kobosync/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database   *database.Database
	Authorizer *auth.Authorizer

	// Throttles /v1/auth and /oauth; optional
	RateLimiter *auth.RateLimiter

	// Device identity and linking
	Devices DeviceStore
	Audit   AuditLog

	// Protocol translators
	Sync        Syncer
	Library     LibraryStore
	States      StateStore
	Annotations AnnotationStore
	Shelves     ShelfStore

	// Direct downloads
	Tokens TokenValidator
	Books  BookSource
	Covers CoverSource

	// Maintenance queue; nil disables the /tasks routes
	Tasks        TaskQueue
	TaskDefaults tasks.Defaults

	// PublicHost is the host advertised to devices. Empty means the host of
	// the incoming request.
	PublicHost string

	// TokenDuration is reported as expires_in by the OAuth token endpoint.
	TokenDuration time.Duration

	// Store proxy for routes this server does not implement
	ProxyEnabled  bool
	ProxyStoreURL string
	ProxyImageURL string

	// Extra /health checks next to the database ping
	HealthProbes []HealthProbe

	// Application info
	Version string
}
