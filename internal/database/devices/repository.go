// Package devices provides database operations for device link state.
//
// A device identity is in exactly one of two tables: linked_devices when it
// holds an API key, unlinked_devices otherwise. Transitions move the row
// between tables inside a single transaction.
//
// # Interface Implementation
//
//	var _ devices.Store = (*Repository)(nil)
//
// # Usage
//
//	repo := devices.NewRepository(db)
//	err := repo.Link(&entities.LinkedDevice{DeviceID: id, APIKey: sealed, KeyFingerprint: fp})
package devices

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/kobosync/internal/entities"
)

var (
	// ErrNotFound indicates the device is unknown or not accessible with the given key.
	ErrNotFound = errors.New("device not found")

	// ErrAlreadyLinked indicates the device already holds a link.
	ErrAlreadyLinked = errors.New("device already linked")

	// ErrAlreadyUnlinked indicates the device holds no link.
	ErrAlreadyUnlinked = errors.New("device already unlinked")
)

// Repository handles all device database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new devices repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// EnsureKnown records a device as unlinked unless it is already known in
// either state. Returns true when a new record was created.
func (r *Repository) EnsureKnown(deviceID string, now time.Time) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		known, err := exists(tx, &entities.LinkedDevice{}, deviceID)
		if err != nil || known {
			return err
		}
		known, err = exists(tx, &entities.UnlinkedDevice{}, deviceID)
		if err != nil || known {
			return err
		}
		created = true
		return tx.Create(&entities.UnlinkedDevice{DeviceID: deviceID, Timestamp: now}).Error
	})
	return created, err
}

// GetLinked returns the link record for a device.
func (r *Repository) GetLinked(deviceID string) (*entities.LinkedDevice, error) {
	var device entities.LinkedDevice
	err := r.db.Where("device_id = ?", deviceID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Link moves a device from unlinked to linked.
func (r *Repository) Link(device *entities.LinkedDevice) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		linked, err := exists(tx, &entities.LinkedDevice{}, device.DeviceID)
		if err != nil {
			return err
		}
		if linked {
			return ErrAlreadyLinked
		}

		unlinked, err := exists(tx, &entities.UnlinkedDevice{}, device.DeviceID)
		if err != nil {
			return err
		}
		if !unlinked {
			return ErrNotFound
		}

		if err := tx.Create(device).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLinked
			}
			return err
		}

		return tx.Where("device_id = ?", device.DeviceID).Delete(&entities.UnlinkedDevice{}).Error
	})
}

// Unlink moves a device from linked to unlinked. The link must have been
// made with the key whose fingerprint is given; any other key sees the
// device as not found.
func (r *Repository) Unlink(deviceID, keyFingerprint string, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var device entities.LinkedDevice
		err := tx.Where("device_id = ?", deviceID).First(&device).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			unlinked, err := exists(tx, &entities.UnlinkedDevice{}, deviceID)
			if err != nil {
				return err
			}
			if unlinked {
				return ErrAlreadyUnlinked
			}
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if device.KeyFingerprint != keyFingerprint {
			return ErrNotFound
		}

		if err := tx.Delete(&device).Error; err != nil {
			return err
		}
		return tx.Create(&entities.UnlinkedDevice{DeviceID: deviceID, Timestamp: now}).Error
	})
}

// ListLinkedByFingerprint returns the ids of devices linked with the given key.
func (r *Repository) ListLinkedByFingerprint(keyFingerprint string) ([]string, error) {
	ids := []string{}
	err := r.db.Model(&entities.LinkedDevice{}).
		Where("key_fingerprint = ?", keyFingerprint).
		Order("created_at ASC").
		Pluck("device_id", &ids).Error
	return ids, err
}

// ListUnlinked returns all unlinked devices, oldest first.
func (r *Repository) ListUnlinked() ([]entities.UnlinkedDevice, error) {
	devices := []entities.UnlinkedDevice{}
	err := r.db.Order("timestamp ASC").Find(&devices).Error
	return devices, err
}

func exists(tx *gorm.DB, model any, deviceID string) (bool, error) {
	var count int64
	if err := tx.Model(model).Where("device_id = ?", deviceID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
