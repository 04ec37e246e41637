package dto

type PublishReportRequest struct {
	UserID      string  `json:"user_id"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	// Image is a base64 data URI, e.g. "data:image/jpeg;base64,...".
	Image string `json:"image"`
}

// ReactionRequest is a vote. Confirm is a pointer so a missing field is
// rejected instead of read as a denunciation.
type ReactionRequest struct {
	UserID        string `json:"user_id"`
	Confirm       *bool  `json:"confirm"`
	Justification string `json:"justification"`
}
