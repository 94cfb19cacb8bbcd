package storage

import "time"

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Status is the lifecycle state of a scheduled delivery.
//
// Transitions (enforced here, not by callers):
//
//	pending -> sending   (ClaimDue)
//	sending -> sent      (MarkSent, terminal)
//	sending -> failed    (MarkFailed, terminal)
//	sending -> pending   (RescheduleRepeat, repeating rows only)
//	pending -> canceled  (CancelSchedule, terminal)
type Status string

const (
	StatusPending  Status = "pending"
	StatusSending  Status = "sending"
	StatusSent     Status = "sent"
	StatusCanceled Status = "canceled"
	StatusFailed   Status = "failed"
)

// Interval is a fixed repeat unit. Empty means one-shot.
type Interval string

const (
	IntervalNone   Interval = ""
	IntervalMinute Interval = "minute"
	IntervalHour   Interval = "hour"
	IntervalDay    Interval = "day"
)

// Seconds returns the interval length, or 0 for IntervalNone.
func (iv Interval) Seconds() int64 {
	switch iv {
	case IntervalMinute:
		return 60
	case IntervalHour:
		return 60 * 60
	case IntervalDay:
		return 60 * 60 * 24
	default:
		return 0
	}
}

// Valid reports whether iv is one of the supported repeat units (or none).
func (iv Interval) Valid() bool {
	switch iv {
	case IntervalNone, IntervalMinute, IntervalHour, IntervalDay:
		return true
	default:
		return false
	}
}

// Schedule is one scheduled delivery row.
//
// Zero values stand in for SQL NULL: RepeatInterval=="" (one-shot),
// CreatedBy=="" (unknown requester), Error=="", SentAt==0.
type Schedule struct {
	ID             int64
	ChannelID      string
	Kind           string
	Content        string
	RunAt          int64 // unix epoch seconds
	RepeatInterval Interval
	CreatedBy      string
	Status         Status
	Error          string
	CreatedAt      int64
	SentAt         int64
}

// ScheduleParams are the caller-supplied fields of a new schedule.
type ScheduleParams struct {
	ChannelID      string
	Kind           string
	Content        string
	RunAt          int64
	RepeatInterval Interval
	CreatedBy      string
}

// ScheduleFilter narrows ListSchedules. Filters are conjunctive; empty string
// means "any". By default only pending rows are returned.
type ScheduleFilter struct {
	ChannelID         string
	CreatedBy         string
	IncludeNonPending bool
	Limit             int
}

// ImageRecord is one indexed upload.
type ImageRecord struct {
	ID         int64
	UploaderID string
	ChannelID  string
	MessageID  string
	FilePath   string
	UserText   string
	OCRText    string
	IndexText  string
	CreatedAt  int64
}

// ImageParams are the caller-supplied fields of a new image record.
type ImageParams struct {
	UploaderID string
	ChannelID  string
	MessageID  string
	FilePath   string
	UserText   string
	OCRText    string
	IndexText  string
}
