// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/repository"
)

// ProfileUpdate はプロフィール更新の入力。
// CurrentDayがnilの場合、現在日は変更しない。
type ProfileUpdate struct {
	Name       string
	Email      string
	CurrentDay *int
}

// Service はユーザー管理のサービス層。
// プロフィール・モード自由・開始日・退会の各操作を提供する。
type Service struct {
	userRepo repository.UserRepository
	txRunner repository.TxRunner
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, txRunner repository.TxRunner) *Service {
	return &Service{
		userRepo: userRepo,
		txRunner: txRunner,
	}
}

// GetProfile はユーザーのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は名前・メールアドレス・現在日を更新する。
// 現在日は単調非減少の不変条件を守るため、減少させる更新は
// BUSINESS_RULE_VIOLATIONとして拒否する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error) {
	name := strings.TrimSpace(update.Name)
	email := strings.ToLower(strings.TrimSpace(update.Email))
	if name == "" || email == "" {
		return nil, model.NewBusinessRuleViolationError("El nombre y el correo son obligatorios.")
	}
	if update.CurrentDay != nil && (*update.CurrentDay < 1 || *update.CurrentDay > model.TotalDays) {
		return nil, model.NewInvalidDayError(*update.CurrentDay)
	}

	var updated *model.User
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		user, err := repos.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return model.NewUserNotFoundError()
		}

		if email != user.Email {
			existing, err := repos.Users.FindByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("check email uniqueness: %w", err)
			}
			if existing != nil && existing.ID != userID {
				return model.NewEmailAlreadyExistsError()
			}
		}

		if update.CurrentDay != nil {
			if *update.CurrentDay < user.CurrentDay {
				return model.NewBusinessRuleViolationError("El día actual no puede retroceder.")
			}
			if *update.CurrentDay != user.CurrentDay {
				if err := repos.Users.UpdateCurrentDay(ctx, userID, *update.CurrentDay); err != nil {
					return fmt.Errorf("update current day: %w", err)
				}
				user.CurrentDay = *update.CurrentDay
			}
		}

		if err := repos.Users.UpdateProfile(ctx, userID, name, email); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		user.Name = name
		user.Email = email
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("profile updated", "user_id", userID)
	return updated, nil
}

// ToggleLibreMode はモード自由のオン・オフを切り替える。
// current_dayが33を超える場合は拒否する。進行判定側のクランプにより
// この状態には到達しないはずだが、検証として残してある。
func (s *Service) ToggleLibreMode(ctx context.Context, userID string, enabled bool) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if user.CurrentDay > model.TotalDays {
		return nil, model.NewBusinessRuleViolationError("El programa ya ha finalizado.")
	}

	if err := s.userRepo.UpdateLibreMode(ctx, userID, enabled); err != nil {
		return nil, fmt.Errorf("update libre mode: %w", err)
	}
	user.LibreMode = enabled

	slog.Info("libre mode toggled",
		"user_id", userID,
		"enabled", enabled,
	)
	return user, nil
}

// SetStartDay は開始日を設定する。1ユーザーにつき1回だけ実行でき、
// start_dayとcurrent_dayの両方を選択された日に揃える。
// 2回目以降の呼び出しは入力値に関係なくBUSINESS_RULE_VIOLATIONとなる。
func (s *Service) SetStartDay(ctx context.Context, userID string, day int) (*model.User, error) {
	if day < 1 || day > model.TotalDays {
		return nil, model.NewInvalidDayError(day)
	}

	var updated *model.User
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		user, err := repos.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return model.NewUserNotFoundError()
		}
		if user.HasChosenStartDay {
			return model.NewBusinessRuleViolationError("El día de inicio ya fue elegido.")
		}

		if err := repos.Users.SetStartDay(ctx, userID, day); err != nil {
			return fmt.Errorf("set start day: %w", err)
		}
		if err := repos.Users.UpdateCurrentDay(ctx, userID, day); err != nil {
			return fmt.Errorf("align current day with start day: %w", err)
		}

		user.StartDay = day
		user.CurrentDay = day
		user.HasChosenStartDay = true
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("start day chosen",
		"user_id", userID,
		"start_day", day,
	)
	return updated, nil
}

// DeleteAccount は退会処理を実行する。
// daily_progressはusersへの外部キーのCASCADEで一緒に削除される。
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}
