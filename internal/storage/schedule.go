package storage

import (
	"context"
	"database/sql"
	"sort"
	"strings"
)

const scheduleCols = "id, channel_id, kind, content, run_at, repeat_interval, created_by, status, error, created_at, sent_at"

// CreateSchedule inserts a new pending delivery and returns its id.
func (d *DB) CreateSchedule(ctx context.Context, p ScheduleParams) (int64, error) {
	kind := p.Kind
	if kind == "" {
		kind = "text"
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO scheduled_messages (channel_id, kind, content, run_at, repeat_interval, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ChannelID, kind, p.Content, p.RunAt, nullStr(string(p.RepeatInterval)), nullStr(p.CreatedBy),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSchedules returns rows matching f, ascending by run_at.
func (d *DB) ListSchedules(ctx context.Context, f ScheduleFilter) ([]Schedule, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		where []string
		args  []any
	)
	if f.ChannelID != "" {
		where = append(where, "channel_id = ?")
		args = append(args, f.ChannelID)
	}
	if f.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, f.CreatedBy)
	}
	if !f.IncludeNonPending {
		where = append(where, "status = ?")
		args = append(args, StatusPending)
	}

	q := "SELECT " + scheduleCols + " FROM scheduled_messages"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY run_at ASC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// CancelSchedule moves a pending row to canceled. When requesterID is
// non-empty the row must also have been created by that requester.
//
// The bool only reports whether the transition happened; "not found",
// "not pending" and "not owner" are indistinguishable on purpose.
func (d *DB) CancelSchedule(ctx context.Context, id int64, requesterID string) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if requesterID == "" {
		res, err = d.db.ExecContext(ctx,
			`UPDATE scheduled_messages SET status = ? WHERE id = ? AND status = ?`,
			StatusCanceled, id, StatusPending)
	} else {
		res, err = d.db.ExecContext(ctx,
			`UPDATE scheduled_messages SET status = ? WHERE id = ? AND status = ? AND created_by = ?`,
			StatusCanceled, id, StatusPending, requesterID)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimDue atomically moves up to limit due pending rows to sending and
// returns their snapshots, ascending by run_at.
//
// The claim is a single UPDATE statement: SQLite holds the write lock for the
// whole statement, including the subselect, so two concurrent claims
// serialize and can never both pick up the same row.
func (d *DB) ClaimDue(ctx context.Context, now int64, limit int) ([]Schedule, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx,
		`UPDATE scheduled_messages
		 SET status = ?
		 WHERE status = ? AND id IN (
		     SELECT id FROM scheduled_messages
		     WHERE status = ? AND run_at <= ?
		     ORDER BY run_at ASC
		     LIMIT ?
		 )
		 RETURNING `+scheduleCols,
		StatusSending, StatusPending, StatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claimed, err := scanSchedules(rows)
	if err != nil {
		return nil, err
	}
	// RETURNING does not guarantee an order.
	sort.Slice(claimed, func(i, j int) bool {
		if claimed[i].RunAt != claimed[j].RunAt {
			return claimed[i].RunAt < claimed[j].RunAt
		}
		return claimed[i].ID < claimed[j].ID
	})
	return claimed, nil
}

// MarkSent completes a claimed one-shot delivery. No-op unless the row is
// currently sending.
func (d *DB) MarkSent(ctx context.Context, id int64, sentAt int64) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE scheduled_messages SET status = ?, sent_at = ? WHERE id = ? AND status = ?`,
		StatusSent, sentAt, id, StatusSending)
	return err
}

// MarkFailed records a terminal failure on a claimed row. No-op unless the
// row is currently sending.
func (d *DB) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE scheduled_messages SET status = ?, error = ? WHERE id = ? AND status = ?`,
		StatusFailed, errMsg, id, StatusSending)
	return err
}

// RescheduleRepeat returns a claimed repeating row to pending with its next
// run time, recording the delivery that just happened. No-op unless the row
// is currently sending.
func (d *DB) RescheduleRepeat(ctx context.Context, id int64, sentAt, nextRunAt int64) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE scheduled_messages
		 SET status = ?, run_at = ?, sent_at = ?, error = NULL
		 WHERE id = ? AND status = ?`,
		StatusPending, nextRunAt, sentAt, id, StatusSending)
	return err
}

// GetSchedule fetches one row by id (nil if absent).
func (d *DB) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+scheduleCols+" FROM scheduled_messages WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out, err := scanSchedules(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func scanSchedules(rows *sql.Rows) ([]Schedule, error) {
	var out []Schedule
	for rows.Next() {
		var (
			s        Schedule
			repeat   sql.NullString
			creator  sql.NullString
			errField sql.NullString
			sentAt   sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.ChannelID, &s.Kind, &s.Content, &s.RunAt,
			&repeat, &creator, &s.Status, &errField, &s.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		s.RepeatInterval = Interval(repeat.String)
		s.CreatedBy = creator.String
		s.Error = errField.String
		s.SentAt = sentAt.Int64
		out = append(out, s)
	}
	return out, rows.Err()
}
