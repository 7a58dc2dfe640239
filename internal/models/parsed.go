package models

// ParsedTitle is the parser's view of a raw release title
type ParsedTitle struct {
	CleanTitle   string    `json:"clean_title"`
	Quality      QualityID `json:"quality"`
	Resolution   string    `json:"resolution,omitempty"`
	MediaSource  string    `json:"media_source,omitempty"`
	Codec        string    `json:"codec,omitempty"`
	ReleaseGroup string    `json:"release_group,omitempty"`
	Language     string    `json:"language,omitempty"`
	Sport        string    `json:"sport,omitempty"`
	Year         int       `json:"year,omitempty"`
	Round        string    `json:"round,omitempty"`
	IsPack       bool      `json:"is_pack,omitempty"`
}
