// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTaskNotFound = "TASK_NOT_FOUND"
	ErrCodeUserNotFound = "USER_NOT_FOUND"
)

// ValidationError はフィールド単位のバリデーションエラーを表す。
// HTTP 422として返され、フィールド名からメッセージ一覧へのマップを持つ。
type ValidationError struct {
	Errors map[string][]string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Errors))
}

// Add はフィールドのエラーメッセージを追加する。
func (e *ValidationError) Add(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string][]string)
	}
	e.Errors[field] = append(e.Errors[field], message)
}

// HasErrors はエラーが1件以上あるかを返す。
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// NewValidationError は単一フィールドのバリデーションエラーを生成する。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: map[string][]string{field: {message}},
	}
}

// NewInvalidCredentialsError は認証情報不一致のエラーを生成する。
// メールアドレスとパスワードのどちらが誤っていたかを判別できないよう、
// 常にemailフィールドに同一のメッセージを返す。
func NewInvalidCredentialsError() *ValidationError {
	return NewValidationError("email", "メールアドレスまたはパスワードが正しくありません。")
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は認可拒否エラーを生成する。
// リソースの存在有無を漏らさないよう、メッセージは常に同一とする。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作は許可されていません。",
		Category: "auth",
		Action:   "自分が所有するタスクに対してのみ操作できます。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
