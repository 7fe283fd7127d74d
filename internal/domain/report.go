package domain

import "time"

type ReportType string

const (
	ReportDamaged       ReportType = "damaged"
	ReportMissing       ReportType = "missing"
	ReportIncorrectInfo ReportType = "incorrect_info"
	ReportOther         ReportType = "other"
)

type ReportStatus string

const (
	StatusPending       ReportStatus = "pending"
	StatusInvestigating ReportStatus = "investigating"
	StatusResolved      ReportStatus = "resolved"
	StatusRejected      ReportStatus = "rejected"
)

// ReportStatuses lists every valid status; transitions are validated by
// membership only, any state is reachable from any other.
var ReportStatuses = []ReportStatus{StatusPending, StatusInvestigating, StatusResolved, StatusRejected}

// ValidStatus reports whether s is a member of the status enum.
func ValidStatus(s ReportStatus) bool {
	for _, v := range ReportStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Report is an issue filed against an AED. ID and CreatedAt are immutable
// after creation; Status is the only mutation path.
type Report struct {
	ID            int64        `json:"id"`
	AedID         int64        `json:"aed_id"`
	ReportType    ReportType   `json:"report_type"`
	Description   string       `json:"description"`
	ReporterName  string       `json:"reporter_name,omitempty"`
	ReporterEmail string       `json:"reporter_email,omitempty"`
	ReporterPhone string       `json:"reporter_phone,omitempty"`
	Status        ReportStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
}
