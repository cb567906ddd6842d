package domain

import "time"

const (
	RequestLogSuccess = "success"
	RequestLogError   = "error"
)

// RequestLog is an observability record of a guarded API call
type RequestLog struct {
	Method     string
	URL        string
	IP         string
	UserAgent  string
	StatusCode int
	Response   any
	Error      any
	Type       string
	CreatedAt  time.Time
}
