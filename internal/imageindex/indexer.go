// Package imageindex turns uploaded image files into searchable records.
package imageindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"

	"imgbot/internal/storage"
	logx "imgbot/pkg/logx"
)

// Config controls the indexer.
type Config struct {
	// DedupWindow suppresses re-indexing of byte-identical uploads.
	// Zero means the default of 30 days.
	DedupWindow time.Duration
}

// Request describes one uploaded file to index.
type Request struct {
	UploaderID string
	ChannelID  string
	MessageID  string
	FilePath   string
	Caption    string
}

// Result reports what happened to an upload.
type Result struct {
	ID        int64
	Duplicate bool
}

// Indexer stores uploads alongside their caption + OCR text.
type Indexer struct {
	store     *storage.DB
	extractor TextExtractor
	cfg       Config
	log       logx.Logger
}

func New(store *storage.DB, extractor TextExtractor, cfg Config, log logx.Logger) *Indexer {
	if extractor == nil {
		extractor = NopExtractor
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 30 * 24 * time.Hour
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Indexer{store: store, extractor: extractor, cfg: cfg, log: log}
}

// Index records one upload. Byte-identical files seen within the dedup
// window are skipped (Result.Duplicate == true).
func (ix *Indexer) Index(ctx context.Context, req Request) (Result, error) {
	key, err := fileHash(req.FilePath)
	if err != nil {
		return Result{}, err
	}

	now := time.Now()
	if until, ok, err := ix.store.GetDedup(ctx, key); err != nil {
		return Result{}, err
	} else if ok && until.After(now) {
		ix.log.Debug("duplicate upload skipped", logx.String("hash", key))
		return Result{Duplicate: true}, nil
	}

	userText := strings.TrimSpace(req.Caption)
	ocrText := ix.extractor.ExtractText(ctx, req.FilePath)

	id, err := ix.store.SaveImage(ctx, storage.ImageParams{
		UploaderID: req.UploaderID,
		ChannelID:  req.ChannelID,
		MessageID:  req.MessageID,
		FilePath:   req.FilePath,
		UserText:   userText,
		OCRText:    ocrText,
		IndexText:  indexText(userText, ocrText),
	})
	if err != nil {
		return Result{}, err
	}
	if err := ix.store.PutDedup(ctx, key, now.Add(ix.cfg.DedupWindow)); err != nil {
		ix.log.Warn("dedup record failed", logx.Err(err))
	}

	ix.log.Info("image indexed",
		logx.Int64("image_id", id),
		logx.Bool("has_ocr", ocrText != ""))
	return Result{ID: id}, nil
}

// indexText joins the non-empty text sources with a space.
func indexText(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
