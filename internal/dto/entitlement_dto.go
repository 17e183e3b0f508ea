package dto

import "time"

type EntitlementResponse struct {
	Tier               string     `json:"tier"`
	Status             string     `json:"status"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

type AdminOverrideRequest struct {
	Tier string `json:"tier"`
}

type InvalidateRequest struct {
	UserID     string   `json:"user_id"`
	Categories []string `json:"categories"`
}

type InvalidateResponse struct {
	UserID  string          `json:"user_id"`
	Results map[string]bool `json:"results"`
}

type FeatureLimitsRequest struct {
	Limits map[string]int64 `json:"limits"`
}
