package domain

import (
	"fmt"
	"time"
)

// AED is a located defibrillator record. Rows are owned by the store;
// services read them and only the flagging fields mutate outside a refresh.
type AED struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Address          string     `json:"address"`
	LocationDetail   string     `json:"location_detail"`
	Latitude         float64    `json:"latitude" validate:"lat"`
	Longitude        float64    `json:"longitude" validate:"lng"`
	PublicUse        bool       `json:"public_use"`
	AllowedOperators string     `json:"allowed_operators"`
	AccessPersons    string     `json:"access_persons"`
	Category         string     `json:"category"`
	ServiceHours     string     `json:"service_hours"`
	Brand            string     `json:"brand"`
	Model            string     `json:"model"`
	Remark           string     `json:"remark"`
	IsFlagged        bool       `json:"is_flagged"`
	FlagReason       string     `json:"flag_reason,omitempty"`
	FlaggedAt        *time.Time `json:"flagged_at,omitempty"`
}

// AEDWithDistance augments an AED with its rounded great-circle distance
// from the query origin. DistanceKM is rounded to 2 decimal places by the
// store so ordering and the reported value agree.
type AEDWithDistance struct {
	AED
	DistanceKM      float64 `json:"distance_km"`
	DistanceDisplay string  `json:"distance_display"`
}

// FormatDistance renders a human-readable distance, "~500 m" under a
// kilometer and "~2.5 km" above.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("~%d m", int(km*1000))
	}
	return fmt.Sprintf("~%.1f km", km)
}
