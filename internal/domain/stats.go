package domain

// Stats summarizes the dataset and outstanding reports.
type Stats struct {
	TotalAeds       int64            `json:"total_aeds"`
	PublicAeds      int64            `json:"public_aeds"`
	FlaggedAeds     int64            `json:"flagged_aeds"`
	TotalReports    int64            `json:"total_reports"`
	ReportsByStatus map[string]int64 `json:"reports_by_status"`
	ReportsByType   map[string]int64 `json:"reports_by_type"`
}

// RefreshJob is a queued request to re-import the AED dataset.
type RefreshJob struct {
	ID          string `json:"id"`
	RequestedBy string `json:"requested_by,omitempty"`
	EnqueuedAt  int64  `json:"enqueued_at"`
}

// RefreshResult summarizes a completed import.
type RefreshResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
