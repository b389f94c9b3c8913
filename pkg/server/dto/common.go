package dto

import (
	"errors"
	"time"
)

// Result represents a generic API result
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success wraps a payload in a successful Result.
func Success(data interface{}) Result {
	return Result{Success: true, Data: data}
}

// Error wraps a message in a failed Result.
func Error(msg string) Result {
	return Result{Success: false, Error: msg}
}

// SimilarRequest asks for the k nodes closest to a query vector.
type SimilarRequest struct {
	Vector   []float32 `json:"vector" binding:"required"`
	K        int       `json:"k"`
	MinScore float64   `json:"min_score"`
	Metric   string    `json:"metric"`
}

// Validate performs validation on SimilarRequest
func (r *SimilarRequest) Validate() error {
	if len(r.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if r.K < 0 {
		return errors.New("k cannot be negative")
	}
	return nil
}

// TimeSliceRequest asks for the graph state at a date, including entities
// active within the window around it.
type TimeSliceRequest struct {
	Date        time.Time `json:"date" binding:"required"`
	WindowHours float64   `json:"window_hours"`
}

// Validate performs validation on TimeSliceRequest
func (r *TimeSliceRequest) Validate() error {
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	if r.WindowHours < 0 {
		return errors.New("window_hours cannot be negative")
	}
	return nil
}

// Window converts the requested hours to a duration.
func (r *TimeSliceRequest) Window() time.Duration {
	return time.Duration(r.WindowHours * float64(time.Hour))
}

// TrackChangeRequest asks for a change report between two dates.
type TrackChangeRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// Validate performs validation on TrackChangeRequest
func (r *TrackChangeRequest) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("start and end are required")
	}
	if r.End.Before(r.Start) {
		return errors.New("end cannot precede start")
	}
	return nil
}
