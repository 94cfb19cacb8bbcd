// Package bot routes incoming chat updates to the schedule and image-index
// features. Commands are flat slash commands; photo messages feed the image
// indexer; plain text in a private chat runs a fuzzy image lookup.
package bot

import (
	"context"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"imgbot/internal/imageindex"
	"imgbot/internal/schedule"
	"imgbot/internal/storage"
	kit "imgbot/internal/transport"
	logx "imgbot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Description string
	Usage       string
	Handle      HandlerFunc
}

// Request is the per-update context handed to command handlers.
type Request struct {
	Chat         kit.ChatTarget
	FromID       int64
	FromUsername string
	Args         []string
	Log          logx.Logger
}

type Config struct {
	ImagesDir      string
	CommandTimeout time.Duration // default 30s
}

type Bot struct {
	adapter kit.Adapter
	sched   *schedule.Service
	indexer *imageindex.Indexer
	store   *storage.DB
	cfg     Config
	log     logx.Logger

	cmds map[string]Command
}

func New(adapter kit.Adapter, sched *schedule.Service, indexer *imageindex.Indexer, store *storage.DB, cfg Config, log logx.Logger) *Bot {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b := &Bot{
		adapter: adapter,
		sched:   sched,
		indexer: indexer,
		store:   store,
		cfg:     cfg,
		log:     log,
		cmds:    map[string]Command{},
	}
	b.registerCommands()
	return b
}

func (b *Bot) register(c Command) {
	if c.Name == "" || c.Handle == nil {
		return
	}
	b.cmds[c.Name] = c
}

// Run consumes updates until ctx is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates <-chan kit.Update) error {
	b.log.Info("update router started", logx.Int("commands", len(b.cmds)))
	defer b.log.Info("update router stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, up)
		}
	}
}

func (b *Bot) handleUpdate(root context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	msg := up.Message

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic handling update",
				logx.Any("panic", r),
				logx.Int64("chat_id", msg.ChatID),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	ctx, cancel := context.WithTimeout(root, b.cfg.CommandTimeout)
	defer cancel()

	switch {
	case msg.Photo != nil:
		b.handlePhoto(ctx, msg)
	case strings.HasPrefix(strings.TrimSpace(msg.Text), "/"):
		b.handleCommand(ctx, msg)
	case !msg.IsGroup:
		// Bare text in a private chat is an image lookup.
		b.handleLookup(ctx, msg, msg.Text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *kit.Message) {
	name, args := splitCommand(msg.Text)
	cmd, ok := b.cmds[name]
	if !ok {
		if !msg.IsGroup {
			b.reply(ctx, msg, "Unknown command. Try /help.")
		}
		return
	}

	req := &Request{
		Chat:         kit.ChatTarget{ChatID: msg.ChatID},
		FromID:       msg.FromID,
		FromUsername: msg.FromUsername,
		Args:         args,
		Log: b.log.With(
			logx.String("cmd", name),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID)),
	}

	start := time.Now()
	err := cmd.Handle(ctx, req)
	if err != nil {
		req.Log.Warn("command failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		b.reply(ctx, msg, "Something went wrong, try again later.")
		return
	}
	req.Log.Debug("command handled", logx.Duration("took", time.Since(start)))
}

// splitCommand returns the command name (without the slash and without a
// @botname suffix) and whitespace-separated arguments.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), fields[1:]
}

func (b *Bot) reply(ctx context.Context, msg *kit.Message, text string) {
	if _, err := b.adapter.SendText(ctx, kit.ChatTarget{ChatID: msg.ChatID}, text, nil); err != nil {
		b.log.Warn("reply failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
	}
}

func (b *Bot) helpText() string {
	names := make([]string, 0, len(b.cmds))
	for n := range b.cmds {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, n := range names {
		c := b.cmds[n]
		sb.WriteString(c.Usage)
		sb.WriteString(" - ")
		sb.WriteString(c.Description)
		sb.WriteByte('\n')
	}
	sb.WriteString("\nSend a photo to index it. Send plain text to search indexed images.")
	return sb.String()
}
