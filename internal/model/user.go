// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashにはbcryptハッシュのみを保持し、平文パスワードは一切保存しない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token はAPIクライアント向けのベアラートークンを表す。
// TokenHashには平文トークンのSHA-256ハッシュのみを保持する。
// 平文は発行時に一度だけクライアントへ返し、以後はハッシュ照合のみ行う。
type Token struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
}

// Session はブラウザ向けのログインセッションを表す。
// 認証成功のたびにIDを再生成し、セッション固定攻撃を防ぐ。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
