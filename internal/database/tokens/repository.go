// Package tokens provides database operations for scoped access tokens.
//
// # Interface Implementation
//
//	var _ tokens.Store = (*Repository)(nil)
//
// # Usage
//
//	repo := tokens.NewRepository(db)
//	token, err := repo.GetBookToken(value)
package tokens

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/kobosync/internal/entities"
)

// ErrNotFound indicates the token does not exist.
var ErrNotFound = errors.New("token not found")

// Repository handles book and cover token persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tokens repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBookToken stores a freshly minted book token.
func (r *Repository) CreateBookToken(token *entities.BookToken) error {
	return r.db.Create(token).Error
}

// GetBookToken retrieves a book token by value.
func (r *Repository) GetBookToken(value string) (*entities.BookToken, error) {
	var token entities.BookToken
	err := r.db.Where("token = ?", value).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteExpiredBookTokens removes book tokens that expired at or before now.
// Returns the number of deleted tokens.
func (r *Repository) DeleteExpiredBookTokens(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&entities.BookToken{})
	return result.RowsAffected, result.Error
}

// GetCoverTokenFor retrieves the cover token of a (book, device) pair.
func (r *Repository) GetCoverTokenFor(bookID, deviceID string) (*entities.CoverToken, error) {
	var token entities.CoverToken
	err := r.db.Where("book_id = ? AND device_id = ?", bookID, deviceID).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// CreateCoverToken stores a cover token. If another request created the
// token for the same pair first, the existing token is returned instead.
func (r *Repository) CreateCoverToken(token *entities.CoverToken) (*entities.CoverToken, error) {
	if err := r.db.Create(token).Error; err != nil {
		existing, getErr := r.GetCoverTokenFor(token.BookID, token.DeviceID)
		if getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return token, nil
}

// GetCoverToken retrieves a cover token by value.
func (r *Repository) GetCoverToken(value string) (*entities.CoverToken, error) {
	var token entities.CoverToken
	err := r.db.Where("token = ?", value).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteForBook removes every book and cover token issued for a book.
func (r *Repository) DeleteForBook(bookID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", bookID).Delete(&entities.BookToken{}).Error; err != nil {
			return err
		}
		return tx.Where("book_id = ?", bookID).Delete(&entities.CoverToken{}).Error
	})
}
