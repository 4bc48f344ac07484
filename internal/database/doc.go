// Package database provides the data access layer for the middleware.
//
// The middleware owns no content. Everything stored here is either link state
// or short-lived bookkeeping derived from backend data.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── devices/         # Linked and unlinked device records
//	├── tokens/          # Book and cover access tokens
//	├── etags/           # Annotation entity tags per book
//	└── audit/           # Device lifecycle audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./persistence/kobosync.db")
//
//	deviceRepo := devices.NewRepository(db.DB)
//	tokenRepo := tokens.NewRepository(db.DB)
//
// # Consumers
//
// Services take the concrete repositories:
//
//   - devices.Repository: devices.Service (internal/devices)
//   - tokens.Repository: tokens.Issuer (internal/tokens)
//   - etags.Repository: annotations.Service (internal/annotations)
//   - audit.Repository: audit.Service (internal/audit)
package database
