package readingstate

// ReadingState is the device view of a book's reading progress. It is
// returned by the state endpoint and embedded in sync entitlements.
type ReadingState struct {
	EntitlementID     string          `json:"EntitlementId"`
	Created           string          `json:"Created"`
	LastModified      string          `json:"LastModified"`
	StatusInfo        StatusInfo      `json:"StatusInfo"`
	Statistics        Statistics      `json:"Statistics"`
	CurrentBookmark   CurrentBookmark `json:"CurrentBookmark"`
	PriorityTimestamp string          `json:"PriorityTimestamp"`
}

type StatusInfo struct {
	LastModified           string  `json:"LastModified"`
	Status                 string  `json:"Status"`
	TimesStartedReading    int     `json:"TimesStartedReading"`
	LastTimeStartedReading *string `json:"LastTimeStartedReading,omitempty"`
	LastTimeFinished       string  `json:"LastTimeFinished"`
}

type Statistics struct {
	LastModified         string `json:"LastModified"`
	SpentReadingMinutes  int    `json:"SpentReadingMinutes"`
	RemainingTimeMinutes int    `json:"RemainingTimeMinutes"`
}

type CurrentBookmark struct {
	LastModified                 string    `json:"LastModified"`
	ProgressPercent              float64   `json:"ProgressPercent"`
	ContentSourceProgressPercent float64   `json:"ContentSourceProgressPercent"`
	Location                     *Location `json:"Location,omitempty"`
}

// Location points into the book's content. Type is always KoboSpan.
type Location struct {
	Value  string `json:"Value"`
	Type   string `json:"Type"`
	Source string `json:"Source"`
}

// UpdateRequest is the body of a state update.
type UpdateRequest struct {
	ReadingStates []ReadingState `json:"ReadingStates"`
}

type Result struct {
	Result string `json:"Result"`
}

type UpdateResult struct {
	EntitlementID         string `json:"EntitlementId"`
	StatusInfoResult      Result `json:"StatusInfoResult"`
	StatisticsResult      Result `json:"StatisticsResult"`
	CurrentBookmarkResult Result `json:"CurrentBookmarkResult"`
}

// UpdateResponse reports per-section results of a state update.
type UpdateResponse struct {
	RequestResult string         `json:"RequestResult"`
	UpdateResults []UpdateResult `json:"UpdateResults"`
}

// RatingItem is one rated book in a reviews lookup.
type RatingItem struct {
	ID     string `json:"Id"`
	Rating int    `json:"Rating"`
}

type RatingsResponse struct {
	Items []RatingItem `json:"Items"`
}

// Event is one analytics event posted by the device.
type Event struct {
	ID         string         `json:"Id"`
	EventType  string         `json:"EventType"`
	Attributes map[string]any `json:"Attributes"`
	Metrics    map[string]any `json:"Metrics"`
}

type EventsRequest struct {
	Events []Event `json:"Events"`
}

type EventsResponse struct {
	AcceptedEvents []string       `json:"AcceptedEvents"`
	RejectedEvents map[string]any `json:"RejectedEvents"`
}

// ReviewsPage is the fixed reviews listing served to devices.
type ReviewsPage struct {
	ReviewSummary    map[string]any `json:"ReviewSummary"`
	Cursor           string         `json:"Cursor"`
	Items            []any          `json:"Items"`
	TotalPageCount   int            `json:"TotalPageCount"`
	CurrentPageIndex int            `json:"CurrentPageIndex"`
}
