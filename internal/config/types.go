package config

// Config is the full bot configuration. Accepted as strict JSON or YAML.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Images    ImagesConfig    `json:"images,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RatePerSec throttles outgoing sends. 0 keeps the default.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the delivery dispatcher and the command facade.
//
// Defaults (when fields are omitted/zero):
//   - poll_interval: "5s"
//   - batch_size: 10
//   - max_schedule_minutes: 10080 (7 days)
//   - list_limit: 20
type SchedulerConfig struct {
	PollInterval       string `json:"poll_interval,omitempty"`
	BatchSize          int    `json:"batch_size,omitempty"`
	MaxScheduleMinutes int    `json:"max_schedule_minutes,omitempty"`
	ListLimit          int    `json:"list_limit,omitempty"`
}

// ImagesConfig controls upload indexing.
type ImagesConfig struct {
	Folder string `json:"folder,omitempty"` // default "data/images"
	// OCRBinary names the tesseract executable; empty enables the default
	// lookup, "none" disables OCR entirely.
	OCRBinary   string `json:"ocr_binary,omitempty"`
	DedupWindow string `json:"dedup_window,omitempty"` // Go duration string
}
