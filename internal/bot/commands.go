package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"imgbot/internal/schedule"
	"imgbot/internal/storage"
	kit "imgbot/internal/transport"
)

func (b *Bot) registerCommands() {
	b.register(Command{
		Name:        "help",
		Description: "show this help",
		Usage:       "/help",
		Handle: func(ctx context.Context, req *Request) error {
			return b.say(ctx, req.Chat, b.helpText())
		},
	})
	b.register(Command{
		Name:        "schedule",
		Description: "send a message after N minutes",
		Usage:       "/schedule <minutes> <text>",
		Handle:      b.cmdSchedule,
	})
	b.register(Command{
		Name:        "schedule_at",
		Description: "send a message at an absolute time",
		Usage:       "/schedule_at <month> <day> <hour> <minute> <text>",
		Handle:      b.cmdScheduleAt,
	})
	b.register(Command{
		Name:        "schedule_repeat",
		Description: "send a message every minute/hour/day starting at HH:MM",
		Usage:       "/schedule_repeat <hour> <minute> <minute|hour|day> <text>",
		Handle:      b.cmdScheduleRepeat,
	})
	b.register(Command{
		Name:        "schedule_list",
		Description: "list pending schedules for this chat",
		Usage:       "/schedule_list [n]",
		Handle:      b.cmdScheduleList,
	})
	b.register(Command{
		Name:        "schedule_cancel",
		Description: "cancel one of your pending schedules",
		Usage:       "/schedule_cancel <id>",
		Handle:      b.cmdScheduleCancel,
	})
	b.register(Command{
		Name:        "img",
		Description: "search indexed images",
		Usage:       "/img <query>",
		Handle:      b.cmdImg,
	})
}

func (b *Bot) say(ctx context.Context, to kit.ChatTarget, text string) error {
	_, err := b.adapter.SendText(ctx, to, text, nil)
	return err
}

// sayUser reports a validation failure to the user and swallows it, so the
// router does not log it as a command error.
func (b *Bot) sayUser(ctx context.Context, req *Request, err error) error {
	var terr *schedule.TimeError
	if errors.Is(err, schedule.ErrValidation) || errors.As(err, &terr) {
		return b.say(ctx, req.Chat, capitalize(err.Error()))
	}
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fmtTime(ts int64) string {
	return time.Unix(ts, 0).Format("2006-01-02 15:04")
}

// splitPayload separates schedule content into its kind and payload. The
// "img:" prefix selects the image_search kind; everything else is plain text.
func splitPayload(content string) (kind, payload string) {
	if rest, ok := strings.CutPrefix(content, "img:"); ok {
		return KindImageSearch, strings.TrimSpace(rest)
	}
	return schedule.KindText, content
}

func chanID(c kit.ChatTarget) string { return strconv.FormatInt(c.ChatID, 10) }

func userID(id int64) string { return strconv.FormatInt(id, 10) }

func (b *Bot) cmdSchedule(ctx context.Context, req *Request) error {
	if len(req.Args) < 2 {
		return b.say(ctx, req.Chat, "Usage: /schedule <minutes> <text>")
	}
	minutes, err := strconv.Atoi(req.Args[0])
	if err != nil {
		return b.say(ctx, req.Chat, "Minutes must be a number.")
	}
	kind, payload := splitPayload(strings.Join(req.Args[1:], " "))

	id, runAt, err := b.sched.CreateIn(ctx, chanID(req.Chat), kind, payload, minutes, userID(req.FromID))
	if err != nil {
		return b.sayUser(ctx, req, err)
	}
	return b.say(ctx, req.Chat, fmt.Sprintf("Scheduled #%d for %s.", id, fmtTime(runAt)))
}

func (b *Bot) cmdScheduleAt(ctx context.Context, req *Request) error {
	if len(req.Args) < 5 {
		return b.say(ctx, req.Chat, "Usage: /schedule_at <month> <day> <hour> <minute> <text>")
	}
	nums := make([]int, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(req.Args[i])
		if err != nil {
			return b.say(ctx, req.Chat, "Month, day, hour and minute must be numbers.")
		}
		nums[i] = n
	}
	kind, payload := splitPayload(strings.Join(req.Args[4:], " "))

	id, runAt, err := b.sched.CreateAt(ctx, chanID(req.Chat), kind, payload, nums[0], nums[1], nums[2], nums[3], userID(req.FromID))
	if err != nil {
		return b.sayUser(ctx, req, err)
	}
	return b.say(ctx, req.Chat, fmt.Sprintf("Scheduled #%d for %s.", id, fmtTime(runAt)))
}

func (b *Bot) cmdScheduleRepeat(ctx context.Context, req *Request) error {
	if len(req.Args) < 4 {
		return b.say(ctx, req.Chat, "Usage: /schedule_repeat <hour> <minute> <minute|hour|day> <text>")
	}
	hour, err1 := strconv.Atoi(req.Args[0])
	minute, err2 := strconv.Atoi(req.Args[1])
	if err1 != nil || err2 != nil {
		return b.say(ctx, req.Chat, "Hour and minute must be numbers.")
	}
	interval := storage.Interval(strings.ToLower(req.Args[2]))
	kind, payload := splitPayload(strings.Join(req.Args[3:], " "))

	id, runAt, err := b.sched.CreateRepeat(ctx, chanID(req.Chat), kind, payload, hour, minute, interval, userID(req.FromID))
	if err != nil {
		return b.sayUser(ctx, req, err)
	}
	return b.say(ctx, req.Chat, fmt.Sprintf("Scheduled #%d, repeating every %s, first at %s.", id, interval, fmtTime(runAt)))
}

func (b *Bot) cmdScheduleList(ctx context.Context, req *Request) error {
	limit := 0
	if len(req.Args) > 0 {
		n, err := strconv.Atoi(req.Args[0])
		if err != nil || n < 1 {
			return b.say(ctx, req.Chat, "Usage: /schedule_list [n]")
		}
		limit = n
	}

	rows, err := b.sched.List(ctx, storage.ScheduleFilter{ChannelID: chanID(req.Chat), Limit: limit})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return b.say(ctx, req.Chat, "Nothing scheduled for this chat.")
	}

	var sb strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&sb, "#%d %s", row.ID, fmtTime(row.RunAt))
		if row.RepeatInterval != storage.IntervalNone {
			fmt.Fprintf(&sb, " [every %s]", row.RepeatInterval)
		}
		fmt.Fprintf(&sb, " %s\n", preview(row.Content, 40))
	}
	return b.say(ctx, req.Chat, sb.String())
}

func preview(s string, max int) string {
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max-1]) + "…"
}

func (b *Bot) cmdScheduleCancel(ctx context.Context, req *Request) error {
	if len(req.Args) != 1 {
		return b.say(ctx, req.Chat, "Usage: /schedule_cancel <id>")
	}
	id, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil {
		return b.say(ctx, req.Chat, "Id must be a number.")
	}

	ok, err := b.sched.Cancel(ctx, id, userID(req.FromID))
	if err != nil {
		return b.sayUser(ctx, req, err)
	}
	if !ok {
		return b.say(ctx, req.Chat, fmt.Sprintf("No pending schedule #%d of yours.", id))
	}
	return b.say(ctx, req.Chat, fmt.Sprintf("Canceled #%d.", id))
}

func (b *Bot) cmdImg(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return b.say(ctx, req.Chat, "Usage: /img <query>")
	}
	return b.lookup(ctx, req.Chat, strings.Join(req.Args, " "))
}
