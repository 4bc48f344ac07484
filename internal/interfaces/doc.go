// Package interfaces documents the core abstractions used throughout the application.
//
// Every consumer declares the narrow interface it needs next to itself; this
// package only lists them and pins the concrete implementations in checks.go.
//
// # Interface Categories
//
// ## Device Identity
//
//   - DeviceStore: authentication, refresh and linking (internal/http/stores.go)
//   - KeyLookup: API key behind a device identity (internal/auth/middleware.go)
//   - CapabilityResolver: what an API key may do (internal/auth/capabilities.go)
//   - AuditLog: recorded device events (internal/http/audit.go)
//
// ## Content Backend
//
// The Prosa client (internal/prosa) satisfies one Backend interface per
// translator: library, readingstate, annotations, shelves, changelog and
// the covers Source. Tests substitute an in-memory fake at the same seam.
//
// ## Protocol Translators
//
//   - Syncer: library sync (internal/changelog)
//   - LibraryStore: book metadata and removal (internal/library)
//   - StateStore: reading state, ratings and analytics (internal/readingstate)
//   - AnnotationStore: annotation listing and edits (internal/annotations)
//   - ShelfStore: shelf edits (internal/shelves)
//
// ## Maintenance
//
//   - TokenPurger, AuditEventCleaner, CoverPruner: task processors (internal/tasks)
//   - Enqueuer / TaskQueue: scheduled and manual task submission
//
// # Adding a New Backend Call
//
//  1. Add the method to prosa.Client, going through do() so errors map to
//     the prosa sentinel errors
//
//  2. Extend the Backend interface of the translator that needs it
//
//  3. Extend the fake backend in internal/http/prosa_fake_test.go
//
// # Adding a New Maintenance Task
//
//  1. Define the task and its processor in internal/tasks/maintenance.go
//
//     type RotateKeysTask struct{}
//
//     func (t RotateKeysTask) Config() backlite.QueueConfig
//
//  2. Register its queue in Maintenance.Queues and its kind in Kinds
//
//  3. Add a schedule to maintenanceJobs in entrypoint.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
