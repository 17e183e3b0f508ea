package dashboard

// SubjectProgress aggregates attempt activity for one subject.
type SubjectProgress struct {
	Subject      string  `json:"subject"`
	Attempts     int64   `json:"attempts"`
	AverageScore float64 `json:"average_score"`
}

// SummaryResponse is the teacher-facing progress rollup.
type SummaryResponse struct {
	WindowDays    int               `json:"window_days"`
	TotalAttempts int64             `json:"total_attempts"`
	ActiveUsers   int64             `json:"active_users"`
	Subjects      []SubjectProgress `json:"subjects"`
}
