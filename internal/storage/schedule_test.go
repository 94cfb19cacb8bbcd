package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logx "imgbot/pkg/logx"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func mustCreate(t *testing.T, d *DB, p ScheduleParams) int64 {
	t.Helper()
	id, err := d.CreateSchedule(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	return id
}

func mustGet(t *testing.T, d *DB, id int64) Schedule {
	t.Helper()
	s, err := d.GetSchedule(context.Background(), id)
	if err != nil {
		t.Fatalf("GetSchedule(%d): %v", id, err)
	}
	if s == nil {
		t.Fatalf("GetSchedule(%d) = nil", id)
	}
	return *s
}

func TestCreateScheduleDefaults(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)

	id := mustCreate(t, d, ScheduleParams{ChannelID: "chan1", Content: "hello", RunAt: 100})
	got := mustGet(t, d, id)

	if got.Kind != "text" {
		t.Fatalf("Kind = %q, want text", got.Kind)
	}
	if got.Status != StatusPending {
		t.Fatalf("Status = %q, want pending", got.Status)
	}
	if got.RepeatInterval != IntervalNone {
		t.Fatalf("RepeatInterval = %q, want none", got.RepeatInterval)
	}
	if got.CreatedAt == 0 {
		t.Fatal("CreatedAt not set")
	}
	if got.SentAt != 0 || got.Error != "" {
		t.Fatalf("fresh row has sent_at=%d error=%q", got.SentAt, got.Error)
	}
}

func TestListSchedulesFilters(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	a := mustCreate(t, d, ScheduleParams{ChannelID: "a", Content: "1", RunAt: 30, CreatedBy: "u1"})
	b := mustCreate(t, d, ScheduleParams{ChannelID: "a", Content: "2", RunAt: 10, CreatedBy: "u2"})
	mustCreate(t, d, ScheduleParams{ChannelID: "b", Content: "3", RunAt: 20, CreatedBy: "u1"})

	canceled := mustCreate(t, d, ScheduleParams{ChannelID: "a", Content: "4", RunAt: 5, CreatedBy: "u1"})
	if ok, err := d.CancelSchedule(ctx, canceled, ""); err != nil || !ok {
		t.Fatalf("CancelSchedule = %v, %v", ok, err)
	}

	rows, err := d.ListSchedules(ctx, ScheduleFilter{ChannelID: "a"})
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (canceled excluded)", len(rows))
	}
	if rows[0].ID != b || rows[1].ID != a {
		t.Fatalf("order = [%d %d], want [%d %d] (run_at asc)", rows[0].ID, rows[1].ID, b, a)
	}

	rows, err = d.ListSchedules(ctx, ScheduleFilter{ChannelID: "a", IncludeNonPending: true})
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows with IncludeNonPending, want 3", len(rows))
	}

	rows, err = d.ListSchedules(ctx, ScheduleFilter{CreatedBy: "u1", Limit: 1})
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want limit 1", len(rows))
	}
}

func TestCancelSchedule(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	id := mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "x", RunAt: 50, CreatedBy: "owner"})

	if ok, _ := d.CancelSchedule(ctx, id, "stranger"); ok {
		t.Fatal("cancel by non-owner succeeded")
	}
	if got := mustGet(t, d, id); got.Status != StatusPending {
		t.Fatalf("Status = %q after denied cancel", got.Status)
	}

	if ok, _ := d.CancelSchedule(ctx, id, "owner"); !ok {
		t.Fatal("cancel by owner failed")
	}
	if got := mustGet(t, d, id); got.Status != StatusCanceled {
		t.Fatalf("Status = %q, want canceled", got.Status)
	}

	// Terminal rows cannot be canceled again.
	if ok, _ := d.CancelSchedule(ctx, id, "owner"); ok {
		t.Fatal("second cancel succeeded")
	}

	// Empty requester skips the ownership check.
	other := mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "y", RunAt: 50, CreatedBy: "owner"})
	if ok, _ := d.CancelSchedule(ctx, other, ""); !ok {
		t.Fatal("unchecked cancel failed")
	}

	if ok, _ := d.CancelSchedule(ctx, 99999, ""); ok {
		t.Fatal("cancel of missing id succeeded")
	}
}

func TestClaimDue(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	late := mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "late", RunAt: 90})
	early := mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "early", RunAt: 10})
	mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "future", RunAt: 500})

	claimed, err := d.ClaimDue(ctx, 100, 10)
	if err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed %d rows, want 2", len(claimed))
	}
	if claimed[0].ID != early || claimed[1].ID != late {
		t.Fatalf("claim order = [%d %d], want [%d %d]", claimed[0].ID, claimed[1].ID, early, late)
	}
	for _, c := range claimed {
		if got := mustGet(t, d, c.ID); got.Status != StatusSending {
			t.Fatalf("row %d Status = %q, want sending", c.ID, got.Status)
		}
	}

	// Claimed rows are invisible to the next claim.
	again, err := d.ClaimDue(ctx, 100, 10)
	if err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second claim returned %d rows, want 0", len(again))
	}
}

func TestClaimDueLimit(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)

	for i := int64(1); i <= 5; i++ {
		mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "x", RunAt: i})
	}

	claimed, err := d.ClaimDue(context.Background(), 100, 2)
	if err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed %d rows, want 2", len(claimed))
	}
	if claimed[0].RunAt != 1 || claimed[1].RunAt != 2 {
		t.Fatalf("claimed run_at = [%d %d], want the two earliest", claimed[0].RunAt, claimed[1].RunAt)
	}
}

func TestClaimDueNeverDoubleClaims(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	const rows = 20
	for i := 0; i < rows; i++ {
		mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "x", RunAt: int64(i)})
	}

	var (
		mu   sync.Mutex
		seen = map[int64]int{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := d.ClaimDue(ctx, rows, 5)
				if err != nil {
					t.Errorf("ClaimDue: %v", err)
					return
				}
				if len(claimed) == 0 {
					return
				}
				mu.Lock()
				for _, c := range claimed {
					seen[c.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != rows {
		t.Fatalf("claimed %d distinct rows, want %d", len(seen), rows)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("row %d claimed %d times", id, n)
		}
	}
}

func TestMarkSentRequiresClaim(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	id := mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "x", RunAt: 1})

	// Unclaimed rows are untouched.
	if err := d.MarkSent(ctx, id, 100); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if got := mustGet(t, d, id); got.Status != StatusPending {
		t.Fatalf("Status = %q, want pending", got.Status)
	}

	if _, err := d.ClaimDue(ctx, 10, 10); err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if err := d.MarkSent(ctx, id, 100); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	got := mustGet(t, d, id)
	if got.Status != StatusSent || got.SentAt != 100 {
		t.Fatalf("got status=%q sent_at=%d, want sent/100", got.Status, got.SentAt)
	}
}

func TestMarkFailed(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	id := mustCreate(t, d, ScheduleParams{ChannelID: "c", Content: "x", RunAt: 1})
	if _, err := d.ClaimDue(ctx, 10, 10); err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if err := d.MarkFailed(ctx, id, "channel c not found"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	got := mustGet(t, d, id)
	if got.Status != StatusFailed || got.Error != "channel c not found" {
		t.Fatalf("got status=%q error=%q", got.Status, got.Error)
	}
}

func TestRescheduleRepeat(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	id := mustCreate(t, d, ScheduleParams{
		ChannelID: "c", Content: "x", RunAt: 60, RepeatInterval: IntervalMinute,
	})
	if _, err := d.ClaimDue(ctx, 70, 10); err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if err := d.RescheduleRepeat(ctx, id, 70, 120); err != nil {
		t.Fatalf("RescheduleRepeat: %v", err)
	}

	got := mustGet(t, d, id)
	if got.Status != StatusPending {
		t.Fatalf("Status = %q, want pending", got.Status)
	}
	if got.RunAt != 120 || got.SentAt != 70 {
		t.Fatalf("run_at=%d sent_at=%d, want 120/70", got.RunAt, got.SentAt)
	}

	// The rescheduled row is claimable again once due.
	claimed, err := d.ClaimDue(ctx, 120, 10)
	if err != nil {
		t.Fatalf("ClaimDue: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != id {
		t.Fatalf("reclaim = %v, want row %d", claimed, id)
	}
}

func TestDedupRoundTrip(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)
	ctx := context.Background()

	until := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	if err := d.PutDedup(ctx, "k1", until); err != nil {
		t.Fatalf("PutDedup: %v", err)
	}
	got, ok, err := d.GetDedup(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("GetDedup = %v, %v", ok, err)
	}
	if !got.Equal(until) {
		t.Fatalf("until = %v, want %v", got, until)
	}

	if _, ok, _ := d.GetDedup(ctx, "missing"); ok {
		t.Fatal("missing key reported present")
	}

	if err := d.PruneDedup(ctx, until.Add(time.Second)); err != nil {
		t.Fatalf("PruneDedup: %v", err)
	}
	if _, ok, _ := d.GetDedup(ctx, "k1"); ok {
		t.Fatal("pruned key reported present")
	}
}
