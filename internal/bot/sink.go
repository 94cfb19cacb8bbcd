package bot

import (
	"context"
	"strconv"

	"imgbot/internal/schedule"
	kit "imgbot/internal/transport"
)

// adapterSink binds one chat target to the transport adapter.
type adapterSink struct {
	adapter kit.Adapter
	to      kit.ChatTarget
}

func (s adapterSink) SendText(ctx context.Context, text string) error {
	_, err := s.adapter.SendText(ctx, s.to, text, nil)
	return err
}

func (s adapterSink) SendFile(ctx context.Context, path, caption string) error {
	_, err := s.adapter.SendPhoto(ctx, s.to, path, caption)
	return err
}

// NewResolver maps stored channel ids (decimal chat ids) onto the adapter.
// A malformed id means the destination cannot exist anymore.
func NewResolver(adapter kit.Adapter) schedule.Resolver {
	return func(channelID string) (schedule.Sink, bool) {
		id, err := strconv.ParseInt(channelID, 10, 64)
		if err != nil {
			return nil, false
		}
		return adapterSink{adapter: adapter, to: kit.ChatTarget{ChatID: id}}, true
	}
}
