// Package task はタスクのCRUDと完了フラグ操作のビジネスロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskdeck/internal/authz"
	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
)

// Scope はタスク操作の可視範囲を表す。APIバージョンごとに切り替える。
type Scope string

const (
	// ScopeGlobal は全タスクを対象とするスコープ。v1 APIで使用する。
	ScopeGlobal Scope = "global"
	// ScopeOwner は認証ユーザーの所有タスクのみを対象とするスコープ。v2 APIで使用する。
	ScopeOwner Scope = "owner"
)

// MetricsRecorder はタスクイベントのメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。nilの場合は記録しない。
type MetricsRecorder interface {
	RecordTaskCreated()
	RecordTaskCompleted()
}

// Input はタスクの作成・更新の入力値。
type Input struct {
	Name string
}

// Validate は入力のバリデーションを行う。
// 違反があればnameフィールドのValidationErrorを返し、なければnilを返す。
func (in Input) Validate() *model.ValidationError {
	if strings.TrimSpace(in.Name) == "" {
		return model.NewValidationError("name", "タスク名を入力してください。")
	}
	if len([]rune(in.Name)) > model.TaskNameMaxLength {
		return model.NewValidationError("name", "タスク名は255文字以内で入力してください。")
	}
	return nil
}

// Service はタスク操作のビジネスロジックを提供する。
// 認可戦略とスコープをAPIバージョンごとに注入して使い分ける。
// 認可の拒否はいかなる変更よりも先に判定される。
type Service struct {
	tasks   repository.TaskRepository
	policy  authz.Authorizer
	scope   Scope
	metrics MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(tasks repository.TaskRepository, policy authz.Authorizer, scope Scope, metrics MetricsRecorder) *Service {
	return &Service{
		tasks:   tasks,
		policy:  policy,
		scope:   scope,
		metrics: metrics,
	}
}

// List はタスク一覧を作成順で返す。
// ownerスコープでは認証ユーザーの所有タスクのみを返す。
func (s *Service) List(ctx context.Context, principal *model.User) ([]*model.Task, error) {
	if !s.policy.Allows(principal, authz.ActionViewAny, nil) {
		return nil, model.NewForbiddenError()
	}

	if s.scope == ScopeOwner {
		tasks, err := s.tasks.ListByUserID(ctx, principal.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list owned tasks: %w", err)
		}
		return tasks, nil
	}

	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Get は指定IDのタスクを返す。
// 存在しない場合は404、ownerスコープで所有者でない場合は403を返す。
// 存在するが所有者でないタスクを404と偽らないのは、存在の有無を
// ルーティング以上には漏らさないという方針による。
func (s *Service) Get(ctx context.Context, principal *model.User, id string) (*model.Task, error) {
	return s.authorizedTask(ctx, principal, authz.ActionView, id)
}

// Create はタスクを作成する。
// ownerスコープでは所有者を常に認証ユーザーに設定し、呼び出し側が
// 指定した所有者は一切受け付けない。
func (s *Service) Create(ctx context.Context, principal *model.User, in Input) (*model.Task, error) {
	if !s.policy.Allows(principal, authz.ActionCreate, nil) {
		return nil, model.NewForbiddenError()
	}
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	now := time.Now()
	task := &model.Task{
		ID:        uuid.New().String(),
		Name:      in.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.scope == ScopeOwner {
		ownerID := principal.ID
		task.UserID = &ownerID
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}
	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("scope", string(s.scope)),
	)

	return task, nil
}

// Update はタスク名を更新する。
func (s *Service) Update(ctx context.Context, principal *model.User, id string, in Input) (*model.Task, error) {
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	task, err := s.authorizedTask(ctx, principal, authz.ActionUpdate, id)
	if err != nil {
		return nil, err
	}

	task.Name = in.Name
	task.UpdatedAt = time.Now()
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// Delete はタスクを削除する。
// 削除済みIDへの後続リクエストは404となる（効果として冪等）。
func (s *Service) Delete(ctx context.Context, principal *model.User, id string) error {
	task, err := s.authorizedTask(ctx, principal, authz.ActionDelete, id)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	slog.Info("task deleted",
		slog.String("task_id", task.ID),
	)

	return nil
}

// SetCompleted はタスクの完了フラグを設定する。
// updateと同一の認可判定を適用する。
func (s *Service) SetCompleted(ctx context.Context, principal *model.User, id string, isCompleted bool) (*model.Task, error) {
	task, err := s.authorizedTask(ctx, principal, authz.ActionUpdate, id)
	if err != nil {
		return nil, err
	}

	task.IsCompleted = isCompleted
	task.UpdatedAt = time.Now()
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task completion: %w", err)
	}

	if isCompleted && s.metrics != nil {
		s.metrics.RecordTaskCompleted()
	}

	return task, nil
}

// authorizedTask はタスクを取得し、指定アクションの認可判定を行う。
// 見つからなければ404相当、拒否されれば403相当のエラーを返す。
// UUID形式でないIDはDBに問い合わせるまでもなく存在しないため404相当として扱う。
func (s *Service) authorizedTask(ctx context.Context, principal *model.User, action authz.Action, id string) (*model.Task, error) {
	if uuid.Validate(id) != nil {
		return nil, model.NewTaskNotFoundError(id)
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(id)
	}

	if !s.policy.Allows(principal, action, task) {
		return nil, model.NewForbiddenError()
	}

	return task, nil
}
