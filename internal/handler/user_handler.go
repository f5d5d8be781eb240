package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/totustuus/totus/internal/middleware"
	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, update user.ProfileUpdate) (*model.User, error)
	ToggleLibreMode(ctx context.Context, userID string, enabled bool) (*model.User, error)
	SetStartDay(ctx context.Context, userID string, day int) (*model.User, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// UserHandler はプロフィール・モード自由・開始日・退会のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// current_dayは省略可能で、省略時は変更しない。
type updateProfileRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	CurrentDay *int   `json:"current_day,omitempty"`
}

// libreModeRequest はモード自由切り替えリクエストのボディ。
type libreModeRequest struct {
	Enabled bool `json:"enabled"`
}

// startDayRequest は開始日選択リクエストのボディ。
type startDayRequest struct {
	Day int `json:"day"`
}

// GetProfile はプロフィールを返す。
// GET /api/v1/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(profile))
}

// UpdateProfile はプロフィールを更新する。
// PUT /api/v1/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, user.ProfileUpdate{
		Name:       req.Name,
		Email:      req.Email,
		CurrentDay: req.CurrentDay,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// ToggleLibreMode はモード自由のオン・オフを切り替える。
// PUT /api/v1/users/libre-mode
func (h *UserHandler) ToggleLibreMode(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req libreModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.ToggleLibreMode(r.Context(), userID, req.Enabled)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// SetStartDay は開始日を設定する。1回だけ実行できる。
// PUT /api/v1/users/start-day
func (h *UserHandler) SetStartDay(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req startDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.SetStartDay(r.Context(), userID, req.Day)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// DeleteAccount は退会処理を実行する。
// DELETE /api/v1/users/me
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
