package entities

import "time"

// AnnotationETag is the concurrency token for one book's annotation set.
type AnnotationETag struct {
	BookID    string `gorm:"primaryKey;size:64"`
	ETag      string `gorm:"column:etag;size:64;not null"`
	UpdatedAt time.Time
}

func (AnnotationETag) TableName() string {
	return "annotation_etags"
}
