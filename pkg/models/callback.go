package models

// Result statuses the AI server reports in its webhook callback.
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"
)

// CallbackContentInfo carries the content metadata the AI server scraped
// alongside the extraction result.
type CallbackContentInfo struct {
	Title            string `json:"title"`
	ContentURL       string `json:"content_url"`
	ThumbnailURL     string `json:"thumbnail_url"`
	PlatformUploader string `json:"platform_uploader"`
}

// CallbackPlace is one extracted place as delivered by the AI server.
type CallbackPlace struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Country     string  `json:"country"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	RawData     string  `json:"raw_data"`
}
