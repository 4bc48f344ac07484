// Package etags stores the annotation entity tag of each book.
package etags

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/kobosync/internal/entities"
)

// ErrNotFound indicates no entity tag is stored for the book.
var ErrNotFound = errors.New("etag not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored entity tag for a book.
func (r *Repository) Get(bookID string) (string, error) {
	var tag entities.AnnotationETag
	err := r.db.Where("book_id = ?", bookID).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return tag.ETag, nil
}

// GetMany returns the stored entity tags for the given books.
// Books without a stored tag are absent from the result.
func (r *Repository) GetMany(bookIDs []string) (map[string]string, error) {
	result := make(map[string]string, len(bookIDs))
	if len(bookIDs) == 0 {
		return result, nil
	}

	var tags []entities.AnnotationETag
	if err := r.db.Where("book_id IN ?", bookIDs).Find(&tags).Error; err != nil {
		return nil, err
	}
	for _, tag := range tags {
		result[tag.BookID] = tag.ETag
	}
	return result, nil
}

// Put stores or replaces the entity tag for a book.
func (r *Repository) Put(bookID, etag string) error {
	tag := entities.AnnotationETag{BookID: bookID, ETag: etag, UpdatedAt: time.Now()}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"etag", "updated_at"}),
	}).Create(&tag).Error
}

// Delete removes the entity tag for a book.
func (r *Repository) Delete(bookID string) error {
	return r.db.Where("book_id = ?", bookID).Delete(&entities.AnnotationETag{}).Error
}
