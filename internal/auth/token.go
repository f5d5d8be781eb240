// Package auth はJWT発行・検証、パスワードハッシュ、ユーザー登録・ログインを提供する。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン種別。アクセストークンとリフレッシュトークンは
// 同じ鍵で署名するが、種別クレームで相互流用を防ぐ。
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenClaims はJWTに格納するカスタムクレーム。
type TokenClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair はアクセストークンとリフレッシュトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // アクセストークンの有効期間（秒）
}

// Maker はJWTの発行と検証を行う。
type Maker struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewMaker はMakerを生成する。
func NewMaker(secretKey string, accessTTL, refreshTTL time.Duration) *Maker {
	return &Maker{
		secretKey:  secretKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// CreateTokenPair はユーザーIDに対するアクセス・リフレッシュトークンの組を発行する。
func (m *Maker) CreateTokenPair(userID string) (*TokenPair, error) {
	access, err := m.createToken(userID, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refresh, err := m.createToken(userID, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.accessTTL.Seconds()),
	}, nil
}

// VerifyAccessToken はアクセストークンを検証し、ユーザーIDを返す。
func (m *Maker) VerifyAccessToken(tokenStr string) (string, error) {
	return m.verifyToken(tokenStr, tokenTypeAccess)
}

// VerifyRefreshToken はリフレッシュトークンを検証し、ユーザーIDを返す。
func (m *Maker) VerifyRefreshToken(tokenStr string) (string, error) {
	return m.verifyToken(tokenStr, tokenTypeRefresh)
}

func (m *Maker) createToken(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

func (m *Maker) verifyToken(tokenStr, wantType string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.TokenType != wantType {
		return "", fmt.Errorf("unexpected token type: %s", claims.TokenType)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("token missing user ID")
	}

	return claims.UserID, nil
}
