// Package authz はタスクに対する認可ポリシーを提供する。
// (ユーザー, アクション, タスク) の組を許可/拒否に写像する純粋な判定関数であり、
// DBアクセスや副作用を持たない。
package authz

import "github.com/hitoshi/taskdeck/internal/model"

// Action はタスクに対する操作の種別を表す。
type Action string

const (
	// ActionViewAny はタスク一覧の閲覧を表す。
	ActionViewAny Action = "viewAny"
	// ActionView は個別タスクの閲覧を表す。
	ActionView Action = "view"
	// ActionCreate はタスクの作成を表す。
	ActionCreate Action = "create"
	// ActionUpdate はタスクの更新（完了フラグの変更を含む）を表す。
	ActionUpdate Action = "update"
	// ActionDelete はタスクの削除を表す。
	ActionDelete Action = "delete"
)

// Authorizer はタスクに対する操作の許可判定を行うインターフェース。
// APIバージョンごとに実装を差し替える戦略として使用する。
type Authorizer interface {
	// Allows はユーザーがタスクに対してアクションを実行できるかを返す。
	// viewAny/createのようにタスクが存在しないアクションではtaskはnil。
	Allows(user *model.User, action Action, task *model.Task) bool
}

// TaskPolicy はv2 APIの所有者ベースの認可ポリシー。
// view/update/deleteは所有タスクに対してのみ許可し、
// viewAny/createは認証済みであれば許可する。
type TaskPolicy struct{}

// NewTaskPolicy はTaskPolicyを生成する。
func NewTaskPolicy() *TaskPolicy {
	return &TaskPolicy{}
}

// Allows は所有者ベースの許可判定を行う。未認証（userがnil）は常に拒否する。
func (p *TaskPolicy) Allows(user *model.User, action Action, task *model.Task) bool {
	if user == nil {
		return false
	}

	switch action {
	case ActionViewAny, ActionCreate:
		return true
	case ActionView, ActionUpdate, ActionDelete:
		return task != nil && task.OwnedBy(user.ID)
	default:
		return false
	}
}

// AllowAll はv1 APIの認可戦略。すべての操作を無条件に許可する。
// v1が認可を一切行わないのは意図されたAPI進化の設計であり、バグではない。
type AllowAll struct{}

// NewAllowAll はAllowAllを生成する。
func NewAllowAll() *AllowAll {
	return &AllowAll{}
}

// Allows は常にtrueを返す。
func (p *AllowAll) Allows(user *model.User, action Action, task *model.Task) bool {
	return true
}

// compile-time interface checks
var (
	_ Authorizer = (*TaskPolicy)(nil)
	_ Authorizer = (*AllowAll)(nil)
)
