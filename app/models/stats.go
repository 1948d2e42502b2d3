package models

// DailyStats represents aggregate counts for a single day
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
