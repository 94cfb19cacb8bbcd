package storage

import (
	"context"
	"database/sql"
)

const imageCols = "id, uploader_id, channel_id, message_id, file_path, user_text, ocr_text, index_text, created_at"

// SaveImage inserts one indexed upload and returns its id.
func (d *DB) SaveImage(ctx context.Context, p ImageParams) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO images (uploader_id, channel_id, message_id, file_path, user_text, ocr_text, index_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UploaderID, p.ChannelID, p.MessageID, p.FilePath,
		nullStr(p.UserText), nullStr(p.OCRText), p.IndexText,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ImageByID fetches one image record (nil if absent).
func (d *DB) ImageByID(ctx context.Context, id int64) (*ImageRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+imageCols+" FROM images WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out, err := scanImages(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// AllImages returns every indexed upload. The fuzzy matcher scores the full
// set in memory, mirroring how small this index is expected to stay.
func (d *DB) AllImages(ctx context.Context) ([]ImageRecord, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+imageCols+" FROM images")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanImages(rows)
}

func scanImages(rows *sql.Rows) ([]ImageRecord, error) {
	var out []ImageRecord
	for rows.Next() {
		var (
			r        ImageRecord
			userText sql.NullString
			ocrText  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UploaderID, &r.ChannelID, &r.MessageID,
			&r.FilePath, &userText, &ocrText, &r.IndexText, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.UserText = userText.String
		r.OCRText = ocrText.String
		out = append(out, r)
	}
	return out, rows.Err()
}
