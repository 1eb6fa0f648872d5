// Package model はドメインモデルを定義する。
package model

import "time"

// TaskNameMaxLength はタスク名の最大文字数。
const TaskNameMaxLength = 255

// Task はタスクを表す。
// UserIDはv2 APIで作成されたタスクの所有者を示す。
// v1 APIで作成されたタスクは所有者を持たない（UserIDはnil）。
type Task struct {
	ID          string
	Name        string
	IsCompleted bool
	UserID      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy はタスクが指定ユーザーの所有であるかを返す。
// 所有者を持たないタスクは誰の所有でもない。
func (t *Task) OwnedBy(userID string) bool {
	return t.UserID != nil && *t.UserID == userID
}
