package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/repository"
)

// Sanitizer はシード投入前にHTML断片を浄化する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// seedEntry はシードJSONの1日分のエントリ。
type seedEntry struct {
	Day              int    `json:"day"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	VideoURL         string `json:"video_url"`
	RosaryVideoURL   string `json:"rosary_video_url"`
	MeditationPDFURL string `json:"meditation_pdf_url"`
	Mysteries        string `json:"mysteries"`
	Quote            string `json:"quote"`
}

// Loader はJSONファイルからdaily_contentテーブルへの初期投入を行う。
type Loader struct {
	contentRepo repository.ContentRepository
	sanitizer   Sanitizer
}

// NewLoader は新しいLoaderを生成する。
func NewLoader(contentRepo repository.ContentRepository, sanitizer Sanitizer) *Loader {
	return &Loader{
		contentRepo: contentRepo,
		sanitizer:   sanitizer,
	}
}

// SeedFromFile はシードJSONを読み込み、33日分のコンテンツを投入する。
// テーブルに既にレコードがある場合は何もしない（再実行しても安全）。
// description と quote はbluemondayポリシーでサニタイズしてから保存する。
func (l *Loader) SeedFromFile(ctx context.Context, path string) error {
	count, err := l.contentRepo.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("count existing content: %w", err)
	}
	if count > 0 {
		slog.Info("daily content already seeded, skipping", "existing_rows", count)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", path, err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	if err := validateSeedEntries(entries); err != nil {
		return fmt.Errorf("validate seed file %s: %w", path, err)
	}

	for _, entry := range entries {
		content := &model.DailyContent{
			ID:               uuid.NewString(),
			Day:              entry.Day,
			Title:            entry.Title,
			Description:      l.sanitizer.Sanitize(entry.Description),
			VideoURL:         entry.VideoURL,
			RosaryVideoURL:   entry.RosaryVideoURL,
			MeditationPDFURL: entry.MeditationPDFURL,
			Mysteries:        entry.Mysteries,
			Quote:            l.sanitizer.Sanitize(entry.Quote),
		}
		if err := l.contentRepo.Create(ctx, content); err != nil {
			return fmt.Errorf("insert content for day %d: %w", entry.Day, err)
		}
	}

	slog.Info("daily content seeded", "days", len(entries))
	return nil
}

// validateSeedEntries はシードが1..33を重複なくちょうど1回ずつ
// カバーしていることを確認する。
func validateSeedEntries(entries []seedEntry) error {
	if len(entries) != model.TotalDays {
		return fmt.Errorf("expected %d entries, got %d", model.TotalDays, len(entries))
	}

	seen := make(map[int]bool, model.TotalDays)
	for _, entry := range entries {
		if entry.Day < 1 || entry.Day > model.TotalDays {
			return fmt.Errorf("day %d out of range", entry.Day)
		}
		if seen[entry.Day] {
			return fmt.Errorf("duplicate entry for day %d", entry.Day)
		}
		if entry.Title == "" {
			return fmt.Errorf("day %d has empty title", entry.Day)
		}
		seen[entry.Day] = true
	}

	return nil
}
