package domain

// NearbyQuery is a validated radius query. Fields are set once by the
// handler after validation and never mutated downstream.
type NearbyQuery struct {
	Lat        float64
	Lng        float64
	RadiusKM   float64
	Limit      int
	Offset     int
	PublicOnly bool
}

// SortedQuery orders all records by distance with no radius cutoff.
type SortedQuery struct {
	Lat    float64
	Lng    float64
	Limit  int
	Offset int
}

// ListAedsQuery pages through records with a whitelisted sort field.
type ListAedsQuery struct {
	Offset int
	Limit  int
	SortBy string
	Order  string
}

// ListReportsQuery filters report listings; empty filters match all.
type ListReportsQuery struct {
	AedID      int64
	ReportType string
	Status     string
	Offset     int
	Limit      int
}

// CreateReportRequest is the JSON body for filing an issue.
type CreateReportRequest struct {
	ReportType    string `json:"report_type" validate:"required,oneof=damaged missing incorrect_info other"`
	Description   string `json:"description" validate:"required,max=2000"`
	ReporterName  string `json:"reporter_name" validate:"omitempty,max=200"`
	ReporterEmail string `json:"reporter_email" validate:"omitempty,email"`
	ReporterPhone string `json:"reporter_phone" validate:"omitempty,max=40"`
}

// UpdateReportStatusRequest is the JSON body for a status transition.
type UpdateReportStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending investigating resolved rejected"`
}

// ReportPage is a paginated report listing.
type ReportPage struct {
	Reports []Report `json:"reports"`
	Total   int64    `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// AedPage is a paginated AED listing.
type AedPage struct {
	Aeds   []AED `json:"aeds"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
