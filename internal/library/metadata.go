package library

import (
	"strconv"

	"github.com/mrlokans/kobosync/internal/kobo"
	"github.com/mrlokans/kobosync/internal/prosa"
)

const (
	defaultLanguage  = "eng"
	placeholderURL   = "placeholder"
	placeholderSize  = 1
	coverCacheBuster = 6
)

// NewBookMetadata maps Prosa metadata to the device view.
func NewBookMetadata(bookID string, meta prosa.Metadata, download DownloadURL, coverImageID string) BookMetadata {
	contributors := make([]Contributor, 0, len(meta.Contributors))
	names := make([]string, 0, len(meta.Contributors))
	for _, c := range meta.Contributors {
		contributors = append(contributors, Contributor{Name: c.Name, Role: c.Role})
		names = append(names, c.Name)
	}

	var series *Series
	if meta.Series != nil {
		series = &Series{
			ID:          meta.Series.Title,
			Name:        meta.Series.Title,
			Number:      strconv.FormatFloat(meta.Series.Number, 'f', -1, 64),
			NumberFloat: meta.Series.Number,
		}
	}

	var published *string
	if meta.PublicationDate != nil {
		formatted := kobo.FormatUnixMillis(*meta.PublicationDate)
		published = &formatted
	}

	language := defaultLanguage
	if meta.Language != nil && *meta.Language != "" {
		language = *meta.Language
	}

	return BookMetadata{
		CrossRevisionID:         bookID,
		RevisionID:              bookID,
		Publisher:               Publisher{Name: meta.Publisher, Imprint: meta.Publisher},
		PublicationDate:         published,
		Language:                meta.Language,
		ISBN:                    meta.ISBN,
		Subtitle:                meta.Subtitle,
		CoverImageID:            coverImageID,
		IsSocialEnabled:         true,
		WorkID:                  bookID,
		ExternalIDs:             []string{},
		ContributorRoles:        contributors,
		EntitlementID:           bookID,
		Title:                   meta.Title,
		Description:             meta.Description,
		Categories:              []string{},
		DownloadURLs:            []DownloadURL{download},
		Contributors:            names,
		Series:                  series,
		CurrentDisplayPrice:     CurrentDisplayPrice{TotalAmount: -1},
		CurrentLoveDisplayPrice: CurrentLoveDisplayPrice{},
		Locale:                  Locale{LanguageCode: language},
	}
}

// DefaultMetadata is the metadata sent for books the device should drop.
func DefaultMetadata(bookID string) BookMetadata {
	return NewBookMetadata(bookID, prosa.Metadata{}, newDownloadURL(placeholderURL, placeholderSize), bookID)
}

func newDownloadURL(url string, size int64) DownloadURL {
	return DownloadURL{
		DrmType:  "None",
		Format:   "KEPUB",
		URL:      url,
		Platform: "Generic",
		Size:     size,
	}
}
