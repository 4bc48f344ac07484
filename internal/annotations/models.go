package annotations

// Annotation is the device view of a highlight or note.
type Annotation struct {
	ClientLastModifiedUTC string   `json:"clientLastModifiedUtc"`
	ID                    string   `json:"id"`
	Location              Location `json:"location"`
	NoteText              *string  `json:"noteText"`
	Type                  string   `json:"type"`
}

type Location struct {
	Span Span `json:"span"`
}

// Span addresses a range of text. Paths are CSS-like selectors of the
// form span#<tag> with dots escaped.
type Span struct {
	ChapterFilename string `json:"chapterFilename"`
	EndChar         int    `json:"endChar"`
	EndPath         string `json:"endPath"`
	StartChar       int    `json:"startChar"`
	StartPath       string `json:"startPath"`
}

type ListResponse struct {
	Annotations         []Annotation `json:"annotations"`
	NextPageOffsetToken *string      `json:"nextPageOffsetToken"`
}

// PatchRequest carries upserts and deletions in one call.
type PatchRequest struct {
	UpdatedAnnotations   []Annotation `json:"updatedAnnotations"`
	DeletedAnnotationIDs []string     `json:"deletedAnnotationIds"`
}

// ContentCheck is one book and the entity tag the device last saw.
type ContentCheck struct {
	ContentID string `json:"ContentId"`
	ETag      string `json:"etag"`
}
