// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。メッセージはプロダクトの
// 利用者言語（スペイン語）で保持する。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, business, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidDay            = "INVALID_DAY"
	ErrCodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	ErrCodeBusinessRuleViolation = "BUSINESS_RULE_VIOLATION"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeContentNotFound       = "CONTENT_NOT_FOUND"
	ErrCodeEmailAlreadyExists    = "EMAIL_ALREADY_EXISTS"
	ErrCodeInvalidEmailDomain    = "INVALID_EMAIL_DOMAIN"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeInactiveUser          = "INACTIVE_USER"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
)

// NewInvalidDayError は日番号が1..33の範囲外の場合のエラーを生成する。
func NewInvalidDayError(day int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDay,
		Message:  fmt.Sprintf("El día debe estar entre 1 y 33: %d", day),
		Category: "validation",
		Action:   "Verifica el número de día e intenta de nuevo.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Usuario no encontrado o inactivo.",
		Category: "auth",
		Action:   "Inicia sesión de nuevo.",
	}
}

// NewContentNotFoundError は指定日のコンテンツが存在しない場合のエラーを生成する。
func NewContentNotFoundError(day int) *APIError {
	return &APIError{
		Code:     ErrCodeContentNotFound,
		Message:  fmt.Sprintf("Contenido no encontrado para el día %d.", day),
		Category: "business",
		Action:   "Verifica el número de día.",
	}
}

// NewBusinessRuleViolationError はビジネスルール違反のエラーを生成する。
// 開始日の再選択やlibreモードの不正な変更などで使用する。
func NewBusinessRuleViolationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeBusinessRuleViolation,
		Message:  message,
		Category: "business",
		Action:   "La operación no está permitida para el estado actual de tu cuenta.",
	}
}

// NewEmailAlreadyExistsError は登録済みメールアドレスでの再登録エラーを生成する。
func NewEmailAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyExists,
		Message:  "El email ya está registrado.",
		Category: "validation",
		Action:   "Inicia sesión o usa otro email.",
	}
}

// NewInvalidEmailDomainError は許可外のメールプロバイダーのエラーを生成する。
func NewInvalidEmailDomainError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmailDomain,
		Message:  "Solo se permiten cuentas de Gmail, Outlook, Hotmail, Yahoo o iCloud.",
		Category: "validation",
		Action:   "Usa una cuenta de un proveedor permitido.",
	}
}

// NewInvalidCredentialsError はメールまたはパスワード不一致のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Email o contraseña incorrectos.",
		Category: "auth",
		Action:   "Verifica tus credenciales e intenta de nuevo.",
	}
}

// NewInactiveUserError は無効化されたアカウントでのログインエラーを生成する。
func NewInactiveUserError() *APIError {
	return &APIError{
		Code:     ErrCodeInactiveUser,
		Message:  "Usuario inactivo.",
		Category: "auth",
		Action:   "Contacta al soporte para reactivar tu cuenta.",
	}
}

// NewUnauthorizedError は未認証または無効トークンのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Token inválido.",
		Category: "auth",
		Action:   "Inicia sesión de nuevo.",
	}
}
