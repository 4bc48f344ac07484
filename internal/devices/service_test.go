package devices

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/kobosync/internal/audit"
	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/config"
	"github.com/mrlokans/kobosync/internal/crypto"
	"github.com/mrlokans/kobosync/internal/database"
	auditRepo "github.com/mrlokans/kobosync/internal/database/audit"
	devicesRepo "github.com/mrlokans/kobosync/internal/database/devices"
	"github.com/mrlokans/kobosync/internal/entities"
)

const testAPIKey = "c2VjcmV0LWFwaS1rZXk="

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	store, err := database.NewDatabase(filepath.Join(t.TempDir(), "devices.db"))
	require.NoError(t, err)
	db := store.DB
	db.Logger = logger.Default.LogMode(logger.Silent)

	keyring, err := crypto.NewKeyring(make([]byte, crypto.KeySize))
	require.NoError(t, err)

	validator, err := NewKeyValidator(config.APIKey{Pattern: config.DefaultAPIKeyPattern, MinLength: 1, MaxLength: 512})
	require.NoError(t, err)

	auditService := audit.NewService(auditRepo.NewRepository(db))
	t.Cleanup(func() {
		auditService.Wait()
		store.Close()
	})

	svc := NewService(
		devicesRepo.NewRepository(db),
		keyring,
		auth.NewSessionTokens(keyring.SessionKey),
		validator,
		auditService,
		Options{TokenDuration: 15 * time.Minute, RefreshTokenDuration: time.Hour},
	)
	return svc, db
}

func authenticated(t *testing.T, svc *Service) string {
	t.Helper()
	session, err := svc.Authenticate("serial-123", "user-key", audit.Request{})
	require.NoError(t, err)
	return session.DeviceID
}

func TestIdentity(t *testing.T) {
	a := Identity("device", "key")
	assert.Equal(t, a, Identity("device", "key"), "identity is deterministic")
	assert.NotEqual(t, a, Identity("key", "device"), "identity is order sensitive")
	assert.NotContains(t, a, "/")
	assert.Len(t, a, 44)
}

func TestService_Authenticate(t *testing.T) {
	svc, db := setupTestService(t)

	first, err := svc.Authenticate("serial-123", "user-key", audit.Request{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, Identity("serial-123", "user-key"), first.DeviceID)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)

	second, err := svc.Authenticate("serial-123", "user-key", audit.Request{})
	require.NoError(t, err)
	assert.Equal(t, first.DeviceID, second.DeviceID)

	unlinked, err := svc.ListUnlinked()
	require.NoError(t, err)
	require.Len(t, unlinked, 1)
	assert.Equal(t, first.DeviceID, unlinked[0].DeviceID)

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&entities.AuditEvent{}).Where("action = ?", audit.ActionDeviceAuthenticate).Count(&count)
		return count == 1
	}, time.Second, 10*time.Millisecond)
}

func TestService_Refresh(t *testing.T) {
	svc, _ := setupTestService(t)

	session, err := svc.Authenticate("serial-123", "user-key", audit.Request{})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(session.RefreshToken, audit.Request{})
	require.NoError(t, err)
	assert.Equal(t, session.DeviceID, refreshed.DeviceID)

	_, err = svc.Refresh("garbage", audit.Request{})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestService_LinkLifecycle(t *testing.T) {
	svc, db := setupTestService(t)
	deviceID := authenticated(t, svc)

	_, err := svc.LinkedKey(deviceID)
	assert.ErrorIs(t, err, auth.ErrNotLinked)

	require.NoError(t, svc.Link(deviceID, testAPIKey, audit.Request{}))
	assert.ErrorIs(t, svc.Link(deviceID, testAPIKey, audit.Request{}), ErrAlreadyLinked)

	key, err := svc.LinkedKey(deviceID)
	require.NoError(t, err)
	assert.Equal(t, testAPIKey, key)

	var stored entities.LinkedDevice
	require.NoError(t, db.First(&stored, "device_id = ?", deviceID).Error)
	assert.NotContains(t, stored.APIKey, testAPIKey, "key is stored sealed")

	linked, err := svc.ListLinked(testAPIKey)
	require.NoError(t, err)
	assert.Equal(t, []string{deviceID}, linked)

	unlinked, err := svc.ListUnlinked()
	require.NoError(t, err)
	assert.Empty(t, unlinked)

	require.NoError(t, svc.Unlink(deviceID, testAPIKey, audit.Request{}))
	assert.ErrorIs(t, svc.Unlink(deviceID, testAPIKey, audit.Request{}), ErrAlreadyUnlinked)

	_, err = svc.LinkedKey(deviceID)
	assert.ErrorIs(t, err, auth.ErrNotLinked)

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&entities.AuditEvent{}).
			Where("action IN ?", []string{audit.ActionDeviceLink, audit.ActionDeviceUnlink}).
			Count(&count)
		return count == 4
	}, time.Second, 10*time.Millisecond)
}

func TestService_RepeatedLinkCyclesWithAudit(t *testing.T) {
	svc, db := setupTestService(t)

	const cycles = 50
	for i := 0; i < cycles; i++ {
		session, err := svc.Authenticate("serial-123", "user-key", audit.Request{})
		require.NoError(t, err, "cycle %d", i)
		require.NoError(t, svc.Link(session.DeviceID, testAPIKey, audit.Request{}), "cycle %d", i)
		require.NoError(t, svc.Unlink(session.DeviceID, testAPIKey, audit.Request{}), "cycle %d", i)
	}

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&entities.AuditEvent{}).
			Where("action IN ?", []string{audit.ActionDeviceLink, audit.ActionDeviceUnlink}).
			Count(&count)
		return count == 2*cycles
	}, 5*time.Second, 20*time.Millisecond, "no audit event is lost")
}

func TestService_LinkErrors(t *testing.T) {
	svc, _ := setupTestService(t)
	deviceID := authenticated(t, svc)

	tests := []struct {
		name     string
		deviceID string
		apiKey   string
		wantErr  error
	}{
		{"missing key", deviceID, "", ErrMissingAPIKey},
		{"malformed key", deviceID, "not a key!", ErrInvalidAPIKey},
		{"unknown device", "unknown", testAPIKey, ErrDeviceNotFound},
		{"invalid key wins over unknown device", "unknown", "bad key", ErrInvalidAPIKey},
		{"missing key wins over empty device", "", "", ErrMissingAPIKey},
		{"empty device", "", testAPIKey, ErrDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Link(tt.deviceID, tt.apiKey, audit.Request{}), tt.wantErr)
		})
	}
}

func TestService_UnlinkErrors(t *testing.T) {
	svc, _ := setupTestService(t)
	deviceID := authenticated(t, svc)
	require.NoError(t, svc.Link(deviceID, testAPIKey, audit.Request{}))

	assert.ErrorIs(t, svc.Unlink("unknown", testAPIKey, audit.Request{}), ErrDeviceNotFound)
	assert.ErrorIs(t, svc.Unlink(deviceID, "b3RoZXIta2V5", audit.Request{}), ErrDeviceNotFound,
		"a different key cannot see the device")
	assert.ErrorIs(t, svc.Unlink(deviceID, "", audit.Request{}), ErrMissingAPIKey)

	_, err := svc.ListLinked("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	_, err = svc.ListLinked("bad key")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestKeyValidator(t *testing.T) {
	validator, err := NewKeyValidator(config.APIKey{Pattern: `^[a-z]+$`, MinLength: 3, MaxLength: 5})
	require.NoError(t, err)

	assert.ErrorIs(t, validator.Validate(""), ErrMissingAPIKey)
	assert.ErrorIs(t, validator.Validate("ab"), ErrInvalidAPIKey)
	assert.ErrorIs(t, validator.Validate("abcdef"), ErrInvalidAPIKey)
	assert.ErrorIs(t, validator.Validate("ABC"), ErrInvalidAPIKey)
	assert.NoError(t, validator.Validate("abcd"))

	_, err = NewKeyValidator(config.APIKey{Pattern: "["})
	assert.Error(t, err)
}
