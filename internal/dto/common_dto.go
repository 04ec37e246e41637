package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	// Reason is a machine-readable code, set for content rejections.
	Reason string `json:"reason,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Store     string `json:"store"`
	Driver    string `json:"driver"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
