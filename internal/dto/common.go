package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	DB         string `json:"db"`
	BadgeCount int    `json:"badge_count"`
	TierCount  int    `json:"tier_count"`
}
