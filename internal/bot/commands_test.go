package bot

import (
	"testing"

	"imgbot/internal/schedule"
)

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		cmd  string
		args []string
	}{
		{name: "plain", text: "/schedule 5 hello", cmd: "schedule", args: []string{"5", "hello"}},
		{name: "bot suffix", text: "/schedule_list@imgbot 3", cmd: "schedule_list", args: []string{"3"}},
		{name: "uppercase", text: "/Help", cmd: "help"},
		{name: "surrounding space", text: "  /img   beach photo ", cmd: "img", args: []string{"beach", "photo"}},
		{name: "empty", text: "   ", cmd: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := splitCommand(tt.text)
			if cmd != tt.cmd {
				t.Fatalf("cmd = %q, want %q", cmd, tt.cmd)
			}
			if len(args) != len(tt.args) {
				t.Fatalf("args = %v, want %v", args, tt.args)
			}
			for i := range args {
				if args[i] != tt.args[i] {
					t.Fatalf("args = %v, want %v", args, tt.args)
				}
			}
		})
	}
}

func TestSplitPayload(t *testing.T) {
	t.Parallel()

	kind, payload := splitPayload("good morning")
	if kind != schedule.KindText || payload != "good morning" {
		t.Fatalf("got %q/%q", kind, payload)
	}

	kind, payload = splitPayload("img: team offsite")
	if kind != KindImageSearch || payload != "team offsite" {
		t.Fatalf("got %q/%q", kind, payload)
	}

	// The prefix only counts at the very start.
	kind, _ = splitPayload("see img: later")
	if kind != schedule.KindText {
		t.Fatalf("mid-string prefix selected kind %q", kind)
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()
	if got := preview("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	got := preview("a very long schedule content line", 10)
	if rs := []rune(got); len(rs) != 10 || rs[9] != '…' {
		t.Fatalf("got %q (%d runes)", got, len(rs))
	}
}
