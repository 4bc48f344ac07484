package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/kobosync/internal/annotations"
	"github.com/mrlokans/kobosync/internal/audit"
	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/changelog"
	"github.com/mrlokans/kobosync/internal/covers"
	"github.com/mrlokans/kobosync/internal/devices"
	"github.com/mrlokans/kobosync/internal/http"
	"github.com/mrlokans/kobosync/internal/library"
	"github.com/mrlokans/kobosync/internal/prosa"
	"github.com/mrlokans/kobosync/internal/readingstate"
	"github.com/mrlokans/kobosync/internal/scheduler"
	"github.com/mrlokans/kobosync/internal/shelves"
	"github.com/mrlokans/kobosync/internal/tasks"
	"github.com/mrlokans/kobosync/internal/tokens"
)

// =============================================================================
// Device Identity
// =============================================================================

var _ http.DeviceStore = (*devices.Service)(nil)
var _ auth.KeyLookup = (*devices.Service)(nil)
var _ http.AuditLog = (*audit.Service)(nil)

// =============================================================================
// Content Backend
// =============================================================================

var _ library.Backend = (*prosa.Client)(nil)
var _ readingstate.Backend = (*prosa.Client)(nil)
var _ annotations.Backend = (*prosa.Client)(nil)
var _ shelves.Backend = (*prosa.Client)(nil)
var _ changelog.Backend = (*prosa.Client)(nil)
var _ covers.Source = (*prosa.Client)(nil)
var _ http.BookSource = (*prosa.Client)(nil)

// =============================================================================
// Protocol Translators
// =============================================================================

var _ http.Syncer = (*changelog.Engine)(nil)
var _ http.LibraryStore = (*library.Service)(nil)
var _ changelog.MetadataBuilder = (*library.Service)(nil)
var _ http.StateStore = (*readingstate.Translator)(nil)
var _ changelog.StateReader = (*readingstate.Translator)(nil)
var _ http.AnnotationStore = (*annotations.Service)(nil)
var _ changelog.ETagRotator = (*annotations.Service)(nil)
var _ library.ETagStore = (*annotations.Service)(nil)
var _ http.ShelfStore = (*shelves.Service)(nil)
var _ changelog.ShelfReader = (*shelves.Service)(nil)

// =============================================================================
// Tokens and Covers
// =============================================================================

var _ http.TokenValidator = (*tokens.Issuer)(nil)
var _ library.TokenIssuer = (*tokens.Issuer)(nil)
var _ http.CoverSource = (*covers.Cache)(nil)
var _ library.CoverCache = (*covers.Cache)(nil)
var _ changelog.CoverCache = (*covers.Cache)(nil)
var _ library.Auditor = (*audit.Service)(nil)

// =============================================================================
// Maintenance
// =============================================================================

var _ tasks.TokenPurger = (*tokens.Issuer)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.CoverPruner = (*covers.Cache)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
