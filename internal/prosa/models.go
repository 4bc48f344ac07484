package prosa

// SyncResponse lists the ids changed since the requested point.
type SyncResponse struct {
	Book  BookChanges  `json:"book"`
	Shelf ShelfChanges `json:"shelf"`
}

type BookChanges struct {
	File        []string `json:"file"`
	Metadata    []string `json:"metadata"`
	Cover       []string `json:"cover"`
	State       []string `json:"state"`
	Annotations []string `json:"annotations"`
	Deleted     []string `json:"deleted"`
}

type ShelfChanges struct {
	Metadata []string `json:"metadata"`
	Contents []string `json:"contents"`
	Deleted  []string `json:"deleted"`
}

type FileMetadata struct {
	OwnerID  string `json:"owner_id"`
	FileSize int64  `json:"file_size"`
}

type Contributor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type Series struct {
	Title  string  `json:"title"`
	Number float64 `json:"number"`
}

// Metadata is the backend's descriptive record for a book.
// PublicationDate is unix milliseconds.
type Metadata struct {
	Title           *string       `json:"title"`
	Subtitle        *string       `json:"subtitle"`
	Description     *string       `json:"description"`
	Publisher       *string       `json:"publisher"`
	PublicationDate *int64        `json:"publication_date"`
	ISBN            *string       `json:"isbn"`
	Contributors    []Contributor `json:"contributors"`
	Genres          []string      `json:"genres"`
	Series          *Series       `json:"series"`
	PageCount       *int64        `json:"page_count"`
	Language        *string       `json:"language"`
}

type Location struct {
	Tag    string `json:"tag"`
	Source string `json:"source"`
}

type Statistics struct {
	Rating        *float64 `json:"rating,omitempty"`
	ReadingStatus string   `json:"reading_status"`
}

// State is the flat reading state record of a book.
type State struct {
	Location   *Location  `json:"location,omitempty"`
	Statistics Statistics `json:"statistics"`
}

// Annotation is an annotation as stored by the backend.
type Annotation struct {
	AnnotationID string  `json:"annotation_id"`
	Source       string  `json:"source"`
	StartTag     string  `json:"start_tag"`
	EndTag       string  `json:"end_tag"`
	StartChar    int     `json:"start_char"`
	EndChar      int     `json:"end_char"`
	Note         *string `json:"note,omitempty"`
}

// NewAnnotation is the request body for creating an annotation.
type NewAnnotation struct {
	Source    string  `json:"source"`
	StartTag  string  `json:"start_tag"`
	EndTag    string  `json:"end_tag"`
	StartChar int     `json:"start_char"`
	EndChar   int     `json:"end_char"`
	Note      *string `json:"note,omitempty"`
}

type ShelfMetadata struct {
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
	BookCount int    `json:"book_count"`
}
