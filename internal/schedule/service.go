package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imgbot/internal/storage"
)

// ErrValidation marks a rejected create/list/cancel input. Wrapped errors
// carry the user-facing detail.
var ErrValidation = errors.New("invalid schedule input")

// DefaultMaxMinutes bounds relative schedules to 7 days.
const DefaultMaxMinutes = 60 * 24 * 7

// ServiceConfig controls the command facade.
type ServiceConfig struct {
	MaxMinutes int // default DefaultMaxMinutes
	ListLimit  int // max rows per List call, default 20
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.MaxMinutes <= 0 {
		c.MaxMinutes = DefaultMaxMinutes
	}
	if c.ListLimit <= 0 {
		c.ListLimit = 20
	}
	return c
}

// Service is the thin command-facing facade over the store and the time
// arithmetic. It validates input; it never mutates rows itself.
type Service struct {
	store *storage.DB
	cfg   ServiceConfig
	now   func() time.Time
}

func NewService(store *storage.DB, cfg ServiceConfig) *Service {
	return &Service{store: store, cfg: cfg.withDefaults(), now: time.Now}
}

// CreateIn schedules a one-shot delivery after the given number of minutes.
// It returns the new id and the computed run time.
func (s *Service) CreateIn(ctx context.Context, channelID, kind, content string, minutes int, createdBy string) (int64, int64, error) {
	if err := s.validateCommon(channelID, content); err != nil {
		return 0, 0, err
	}
	if minutes < 1 || minutes > s.cfg.MaxMinutes {
		return 0, 0, fmt.Errorf("%w: minutes must be 1..%d", ErrValidation, s.cfg.MaxMinutes)
	}
	runAt := s.now().Unix() + int64(minutes)*60
	id, err := s.store.CreateSchedule(ctx, storage.ScheduleParams{
		ChannelID: channelID,
		Kind:      kind,
		Content:   content,
		RunAt:     runAt,
		CreatedBy: createdBy,
	})
	return id, runAt, err
}

// CreateAt schedules a one-shot delivery at an absolute local date/time
// (minute precision, current year). TimeError rejections from the calculator
// are returned verbatim.
func (s *Service) CreateAt(ctx context.Context, channelID, kind, content string, month, day, hour, minute int, createdBy string) (int64, int64, error) {
	if err := s.validateCommon(channelID, content); err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: month must be 1..12", ErrValidation)
	}
	if day < 1 || day > 31 {
		return 0, 0, fmt.Errorf("%w: day must be 1..31", ErrValidation)
	}
	if err := validateClock(hour, minute); err != nil {
		return 0, 0, err
	}
	runAt, err := RunAtFromComponents(s.now(), 0, month, day, hour, minute)
	if err != nil {
		return 0, 0, err
	}
	id, err := s.store.CreateSchedule(ctx, storage.ScheduleParams{
		ChannelID: channelID,
		Kind:      kind,
		Content:   content,
		RunAt:     runAt,
		CreatedBy: createdBy,
	})
	return id, runAt, err
}

// CreateRepeat schedules a repeating delivery seeded at the next local
// occurrence of hour:minute.
func (s *Service) CreateRepeat(ctx context.Context, channelID, kind, content string, hour, minute int, interval storage.Interval, createdBy string) (int64, int64, error) {
	if err := s.validateCommon(channelID, content); err != nil {
		return 0, 0, err
	}
	if err := validateClock(hour, minute); err != nil {
		return 0, 0, err
	}
	if interval == storage.IntervalNone || !interval.Valid() {
		return 0, 0, fmt.Errorf("%w: interval must be minute, hour or day", ErrValidation)
	}
	runAt := NextOccurrence(s.now(), hour, minute)
	id, err := s.store.CreateSchedule(ctx, storage.ScheduleParams{
		ChannelID:      channelID,
		Kind:           kind,
		Content:        content,
		RunAt:          runAt,
		RepeatInterval: interval,
		CreatedBy:      createdBy,
	})
	return id, runAt, err
}

// List returns schedules matching the filter, capped at the configured limit.
func (s *Service) List(ctx context.Context, f storage.ScheduleFilter) ([]storage.Schedule, error) {
	if f.Limit <= 0 || f.Limit > s.cfg.ListLimit {
		f.Limit = s.cfg.ListLimit
	}
	return s.store.ListSchedules(ctx, f)
}

// Cancel cancels a pending schedule, optionally checking ownership.
func (s *Service) Cancel(ctx context.Context, id int64, requesterID string) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("%w: id must be positive", ErrValidation)
	}
	return s.store.CancelSchedule(ctx, id, requesterID)
}

func (s *Service) validateCommon(channelID, content string) error {
	if channelID == "" {
		return fmt.Errorf("%w: channel is required", ErrValidation)
	}
	if content == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	return nil
}

func validateClock(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour must be 0..23", ErrValidation)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("%w: minute must be 0..59", ErrValidation)
	}
	return nil
}
