package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"imgbot/internal/imageindex"
	"imgbot/internal/schedule"
	"imgbot/internal/search"
	"imgbot/internal/storage"
	kit "imgbot/internal/transport"
	logx "imgbot/pkg/logx"
)

// KindImageSearch is the schedule kind whose content is a query against the
// image index. Delivery sends the best-matching indexed image.
const KindImageSearch = "image_search"

// RegisterImageSearch installs the image_search delivery handler. A query
// with no match above the score floor is a delivery failure.
func RegisterImageSearch(reg *schedule.Registry, store *storage.DB) {
	reg.Register(KindImageSearch, func(ctx context.Context, sink schedule.Sink, content string) error {
		rows, err := store.AllImages(ctx)
		if err != nil {
			return err
		}
		matches := search.BestMatches(rows, content, 1)
		if len(matches) == 0 {
			return fmt.Errorf("no indexed image matches %q", content)
		}
		return sink.SendFile(ctx, matches[0].Record.FilePath, matches[0].Record.UserText)
	})
}

func (b *Bot) handlePhoto(ctx context.Context, msg *kit.Message) {
	log := b.log.With(logx.Int64("chat_id", msg.ChatID), logx.Int64("from_id", msg.FromID))

	if err := os.MkdirAll(b.cfg.ImagesDir, 0o755); err != nil {
		log.Error("images dir unavailable", logx.Err(err))
		return
	}
	dest := filepath.Join(b.cfg.ImagesDir, msg.Photo.FileID+".jpg")
	if err := b.adapter.Download(ctx, msg.Photo.FileID, dest); err != nil {
		log.Warn("photo download failed", logx.Err(err))
		b.reply(ctx, msg, "Could not fetch that photo, try again.")
		return
	}

	res, err := b.indexer.Index(ctx, imageindex.Request{
		UploaderID: userID(msg.FromID),
		ChannelID:  strconv.FormatInt(msg.ChatID, 10),
		MessageID:  strconv.Itoa(msg.ID),
		FilePath:   dest,
		Caption:    msg.Photo.Caption,
	})
	if err != nil {
		log.Warn("indexing failed", logx.Err(err))
		b.reply(ctx, msg, "Could not index that photo.")
		return
	}
	if res.Duplicate {
		// Keep the folder free of second copies.
		_ = os.Remove(dest)
		b.reply(ctx, msg, "Already indexed that one.")
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Indexed as image #%d.", res.ID))
}

func (b *Bot) handleLookup(ctx context.Context, msg *kit.Message, query string) {
	if err := b.lookup(ctx, kit.ChatTarget{ChatID: msg.ChatID}, query); err != nil {
		b.log.Warn("lookup failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
	}
}

// lookup sends the best-matching indexed image for query, or a miss notice.
func (b *Bot) lookup(ctx context.Context, to kit.ChatTarget, query string) error {
	rows, err := b.store.AllImages(ctx)
	if err != nil {
		return err
	}
	matches := search.BestMatches(rows, query, 1)
	if len(matches) == 0 {
		return b.say(ctx, to, "No matching image.")
	}
	m := matches[0]
	caption := m.Record.UserText
	if caption == "" {
		caption = fmt.Sprintf("image #%d", m.Record.ID)
	}
	_, err = b.adapter.SendPhoto(ctx, to, m.Record.FilePath, caption)
	return err
}
