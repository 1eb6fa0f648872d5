// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskdeck/internal/model"
)

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed"`
}

// userResponse はユーザーのAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// dataResponse は単一リソースをdataキーで包むレスポンス。
type dataResponse struct {
	Data any `json:"data"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// validationErrorResponse はフィールド単位のバリデーションエラーレスポンス。
type validationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// newTaskResponse はタスクをレスポンス表現に変換する。
func newTaskResponse(task *model.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Name:        task.Name,
		IsCompleted: task.IsCompleted,
	}
}

// newTaskListResponse はタスクのスライスをレスポンス表現に変換する。
// 空の場合もnullではなく空配列を返す。
func newTaskListResponse(tasks []*model.Task) []taskResponse {
	items := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, newTaskResponse(t))
	}
	return items
}

// newUserResponse はユーザーをレスポンス表現に変換する。
func newUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// writeJSON は指定ステータスでJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeData はリソースをdataキーで包んで書き込む。
func writeData(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, dataResponse{Data: data})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeValidationErrorResponse はバリデーションエラーを422で書き込む。
// メッセージには最初のフィールドエラーを使用する。
func writeValidationErrorResponse(w http.ResponseWriter, verr *model.ValidationError) {
	message := "入力内容に誤りがあります。"
	for _, msgs := range verr.Errors {
		if len(msgs) > 0 {
			message = msgs[0]
			break
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{
		Message: message,
		Errors:  verr.Errors,
	})
}

// writeInvalidRequestBody はリクエストボディの解析失敗を400で書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeValidationErrorResponse(w, verr)
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// ドメインエラー以外は内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeTaskNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
