package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/repository"
)

// allowedEmailProviders は登録を許可するメールプロバイダーのドメイン。
// 使い捨てアドレスによる登録を避けるため、主要プロバイダーのみ受け付ける。
var allowedEmailProviders = map[string]struct{}{
	"gmail.com":   {},
	"outlook.com": {},
	"hotmail.com": {},
	"yahoo.com":   {},
	"icloud.com":  {},
}

// TokenMaker はトークン発行・検証に必要なインターフェース。
type TokenMaker interface {
	CreateTokenPair(userID string) (*TokenPair, error)
	VerifyRefreshToken(tokenStr string) (string, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	txRunner repository.TxRunner
	tokens   TokenMaker
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, txRunner repository.TxRunner, tokens TokenMaker) *Service {
	return &Service{
		userRepo: userRepo,
		txRunner: txRunner,
		tokens:   tokens,
	}
}

// AuthResult は登録・ログインの結果。ユーザーとトークンの組を返す。
type AuthResult struct {
	User   *model.User
	Tokens *TokenPair
}

// Register は新規ユーザーを登録し、トークンを発行する。
// メールプロバイダーの許可リスト検査と重複検査を行い、
// ユーザーと1日目の進捗レコードを同一トランザクションで作成する。
func (s *Service) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validateEmailProvider(email); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailAlreadyExistsError()
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CurrentDay:   1,
		StartDay:     1,
		LibreMode:    false,
		StartDate:    now,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// ユーザーと1日目の進捗を同一トランザクションで作成する
	err = s.txRunner.RunInTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		return repos.Progress.Create(ctx, &model.DailyProgress{
			ID:     uuid.New().String(),
			UserID: user.ID,
			Day:    1,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	tokens, err := s.tokens.CreateTokenPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login はメールアドレスとパスワードでユーザーを認証し、トークンを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		return nil, model.NewInactiveUserError()
	}

	tokens, err := s.tokens.CreateTokenPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh はリフレッシュトークンを検証し、新しいトークンの組を発行する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}
	if !user.IsActive {
		return nil, model.NewInactiveUserError()
	}

	tokens, err := s.tokens.CreateTokenPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return tokens, nil
}

// validateEmailProvider はメールアドレスのドメインが許可リストに含まれるか検査する。
func validateEmailProvider(email string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return model.NewInvalidEmailDomainError()
	}
	domain := email[at+1:]
	if _, ok := allowedEmailProviders[domain]; !ok {
		return model.NewInvalidEmailDomainError()
	}
	return nil
}
