package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
// v1（グローバルスコープ）とv2（所有者スコープ）で同一のインターフェースを使い、
// スコープと認可戦略の差はサービス側の構成で吸収する。
type TaskServiceInterface interface {
	// List はタスク一覧を作成順で返す。
	List(ctx context.Context, principal *model.User) ([]*model.Task, error)
	// Get は指定IDのタスクを返す。
	Get(ctx context.Context, principal *model.User, id string) (*model.Task, error)
	// Create はタスクを作成する。
	Create(ctx context.Context, principal *model.User, in task.Input) (*model.Task, error)
	// Update はタスク名を更新する。
	Update(ctx context.Context, principal *model.User, id string, in task.Input) (*model.Task, error)
	// Delete はタスクを削除する。
	Delete(ctx context.Context, principal *model.User, id string) error
	// SetCompleted はタスクの完了フラグを設定する。
	SetCompleted(ctx context.Context, principal *model.User, id string, isCompleted bool) (*model.Task, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
// v1ルートではコンテキストに認証ユーザーが存在しない（principalはnil）。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// taskRequest はタスク作成・更新リクエストのボディ。
type taskRequest struct {
	Name string `json:"name"`
}

// completeRequest は完了フラグ設定リクエストのボディ。
// 真偽値以外を422として拒否するため、生のJSONのまま受け取って後段で検証する。
type completeRequest struct {
	IsCompleted json.RawMessage `json:"is_completed"`
}

// List はタスク一覧を取得する。
// GET /api/v{1,2}/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.List(r.Context(), middleware.OptionalUserFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, newTaskListResponse(tasks))
}

// Get は個別タスクを取得する。
// GET /api/v{1,2}/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := h.service.Get(r.Context(), middleware.OptionalUserFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, newTaskResponse(t))
}

// Create はタスクを作成する。
// POST /api/v{1,2}/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}

	t, err := h.service.Create(r.Context(), middleware.OptionalUserFromContext(r.Context()), task.Input{Name: req.Name})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, newTaskResponse(t))
}

// Update はタスク名を更新する。
// PUT /api/v{1,2}/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}

	t, err := h.service.Update(r.Context(), middleware.OptionalUserFromContext(r.Context()), id, task.Input{Name: req.Name})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, newTaskResponse(t))
}

// Delete はタスクを削除する。
// DELETE /api/v{1,2}/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), middleware.OptionalUserFromContext(r.Context()), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Complete はタスクの完了フラグを設定する。
// PATCH /api/v{1,2}/tasks/{id}/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeInvalidRequestBody(w)
		return
	}

	isCompleted, verr := parseCompletedFlag(req.IsCompleted)
	if verr != nil {
		writeValidationErrorResponse(w, verr)
		return
	}

	t, err := h.service.SetCompleted(r.Context(), middleware.OptionalUserFromContext(r.Context()), id, isCompleted)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, newTaskResponse(t))
}

// decodeTaskRequest はタスクの作成・更新リクエストボディをデコードする。
// ボディなしは空入力として扱い、必須フィールドのバリデーションに委ねる。
// JSONとして不正なボディの場合は400を書き込みfalseを返す。
func decodeTaskRequest(w http.ResponseWriter, r *http.Request) (taskRequest, bool) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeInvalidRequestBody(w)
		return req, false
	}
	return req, true
}

// parseCompletedFlag はis_completedフィールドを検証する。
// JSONの真偽値以外（文字列の"yes"や欠落など）はバリデーションエラーとする。
func parseCompletedFlag(raw json.RawMessage) (bool, *model.ValidationError) {
	// JSONのnullはbool型へのUnmarshalが何もせず成功するため、欠落と同じ扱いにする
	if len(raw) == 0 || string(raw) == "null" {
		return false, model.NewValidationError("is_completed", "完了フラグを指定してください。")
	}

	var isCompleted bool
	if err := json.Unmarshal(raw, &isCompleted); err != nil {
		return false, model.NewValidationError("is_completed", "完了フラグは真偽値で指定してください。")
	}

	return isCompleted, nil
}
