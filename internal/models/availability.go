package models

import "time"

// AvailabilityInfo answers "can this entry satisfy a rental for [start, end]".
type AvailabilityInfo struct {
	CatalogID      string `json:"catalogEntryId"`
	AvailableCount int    `json:"availableCount"`
	TotalCount     int    `json:"totalCount"`
	IsAvailable    bool   `json:"isAvailable"`
}

// ExportTask represents a queued export job for the schedule sheet.
type ExportTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	BookingID   string     `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
