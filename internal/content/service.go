// Package content は日別コンテンツの参照とシード投入を提供する。
// コンテンツは33日分の固定参照データで、アプリケーションからは
// 読み取り専用として扱う。
package content

import (
	"context"
	"fmt"

	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/repository"
)

// Service は日別コンテンツの参照サービス。
type Service struct {
	contentRepo repository.ContentRepository
}

// NewService は新しいServiceを生成する。
func NewService(contentRepo repository.ContentRepository) *Service {
	return &Service{contentRepo: contentRepo}
}

// GetByDay は指定された日のコンテンツを返す。
// 日が1..33の範囲外ならINVALID_DAY、該当日のレコードが存在しなければ
// CONTENT_NOT_FOUNDを返す。
func (s *Service) GetByDay(ctx context.Context, day int) (*model.DailyContent, error) {
	if day < 1 || day > model.TotalDays {
		return nil, model.NewInvalidDayError(day)
	}

	content, err := s.contentRepo.FindByDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("find content for day %d: %w", day, err)
	}
	if content == nil {
		return nil, model.NewContentNotFoundError(day)
	}

	return content, nil
}

// ListAll は全33日分のコンテンツを日番号順に返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.DailyContent, error) {
	contents, err := s.contentRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all content: %w", err)
	}
	return contents, nil
}
