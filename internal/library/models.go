package library

// BookMetadata is the device view of a book. Optional fields are sent as
// null rather than omitted; the device expects every key.
type BookMetadata struct {
	CrossRevisionID            string                  `json:"CrossRevisionId"`
	RevisionID                 string                  `json:"RevisionId"`
	Publisher                  Publisher               `json:"Publisher"`
	PublicationDate            *string                 `json:"PublicationDate"`
	Language                   *string                 `json:"Language"`
	ISBN                       *string                 `json:"Isbn"`
	Subtitle                   *string                 `json:"Subtitle"`
	Genre                      *string                 `json:"Genre"`
	Slug                       *string                 `json:"Slug"`
	CoverImageID               string                  `json:"CoverImageId"`
	IsSocialEnabled            bool                    `json:"IsSocialEnabled"`
	WorkID                     string                  `json:"WorkId"`
	ExternalIDs                []string                `json:"ExternalIds"`
	IsPreOrder                 bool                    `json:"IsPreOrder"`
	ContributorRoles           []Contributor           `json:"ContributorRoles"`
	IsInternetArchive          bool                    `json:"IsInternetArchive"`
	IsAnnotationExportDisabled bool                    `json:"IsAnnotationExportDisabled"`
	IsAISummaryDisabled        bool                    `json:"IsAiSummaryDisabled"`
	EntitlementID              string                  `json:"EntitlementId"`
	Title                      *string                 `json:"Title"`
	Description                *string                 `json:"Description"`
	Categories                 []string                `json:"Categories"`
	DownloadURLs               []DownloadURL           `json:"DownloadUrls"`
	Contributors               []string                `json:"Contributors"`
	Series                     *Series                 `json:"Series"`
	CurrentDisplayPrice        CurrentDisplayPrice     `json:"CurrentDisplayPrice"`
	CurrentLoveDisplayPrice    CurrentLoveDisplayPrice `json:"CurrentLoveDisplayPrice"`
	IsEligibleForKoboLove      bool                    `json:"IsEligibleForKoboLove"`
	PhoneticPronunciations     *string                 `json:"PhoneticPronunciations"`
	RelatedGroupID             *string                 `json:"RelatedGroupId"`
	Locale                     Locale                  `json:"Locale"`
}

type Publisher struct {
	Name    *string `json:"Name"`
	Imprint *string `json:"Imprint"`
}

type Contributor struct {
	Name string `json:"Name"`
	Role string `json:"Role"`
}

type DownloadURL struct {
	DrmType  string `json:"DrmType"`
	Format   string `json:"Format"`
	URL      string `json:"Url"`
	Platform string `json:"Platform"`
	Size     int64  `json:"Size"`
}

type Series struct {
	ID          string  `json:"Id"`
	Name        string  `json:"Name"`
	Number      string  `json:"Number"`
	NumberFloat float64 `json:"NumberFloat"`
}

type CurrentDisplayPrice struct {
	TotalAmount  int64  `json:"TotalAmount"`
	CurrencyCode string `json:"CurrencyCode"`
}

type CurrentLoveDisplayPrice struct {
	TotalAmount int64 `json:"TotalAmount"`
}

type Locale struct {
	LanguageCode string `json:"LanguageCode"`
	ScriptCode   string `json:"ScriptCode"`
	CountryCode  string `json:"CountryCode"`
}
