// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/taskdeck/internal/model"
)

// ErrEmailTaken はusers.emailの一意制約違反を表す。
// 同時登録の競合はDBの一意制約で検出し、このエラーに変換する。
var ErrEmailTaken = errors.New("email already taken")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に使われている場合はErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error
}

// TokenRepository はAPIトークンの永続化インターフェース。
type TokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.Token) error

	// FindByHash はトークンハッシュでトークンを検索する。見つからない場合はnilを返す。
	FindByHash(ctx context.Context, tokenHash string) (*model.Token, error)

	// DeleteByHash はトークンハッシュでトークンを削除する（失効）。
	// 削除後、同一トークンによる認証は即座に失敗する。
	DeleteByHash(ctx context.Context, tokenHash string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// ListAll は全タスクを作成順で返す。v1 APIの一覧取得で使用する。
	ListAll(ctx context.Context) ([]*model.Task, error)

	// ListByUserID は指定ユーザーが所有するタスクを作成順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクの名前と完了フラグを更新する。
	Update(ctx context.Context, task *model.Task) error

	// Delete は指定IDのタスクを削除する。
	Delete(ctx context.Context, id string) error
}
