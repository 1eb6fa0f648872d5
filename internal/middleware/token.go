// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/taskdeck/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var principalContextKey = contextKey("principal")

// tokenContextKey はリクエストコンテキストに提示された平文トークンを格納するためのキー。
// ログアウト時の失効処理で使用する。
var tokenContextKey = contextKey("bearer_token")

// UserResolver はベアラートークンからユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type UserResolver interface {
	// UserFromToken は平文トークンからユーザーを解決する。
	// トークンが無効（失効済みを含む）な場合はnilを返す。
	UserFromToken(ctx context.Context, plaintext string) (*model.User, error)
}

// NewTokenMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// トークンが欠落・無効・失効済みのリクエストには401 Unauthorizedを返す。
func NewTokenMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plaintext, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w)
				return
			}

			user, err := resolver.UserFromToken(r.Context(), plaintext)
			if err != nil || user == nil {
				writeUnauthorized(w)
				return
			}

			ctx := ContextWithUser(r.Context(), user)
			ctx = ContextWithToken(ctx, plaintext)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(principalContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("authenticated user not found in context")
	}
	return user, nil
}

// OptionalUserFromContext はコンテキスト上のユーザーを返す。未認証の場合はnil。
// v1 APIのように認証を要求しないハンドラーで使用する。
func OptionalUserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(principalContextKey).(*model.User)
	return user
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, principalContextKey, user)
}

// ContextWithToken はコンテキストに平文トークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithToken(ctx context.Context, plaintext string) context.Context {
	return context.WithValue(ctx, tokenContextKey, plaintext)
}

// TokenFromContext はリクエストに提示された平文トークンを取得する。
// トークンミドルウェアを通過したリクエストでのみ有効。
func TokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(tokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("bearer token not found in context")
	}
	return token, nil
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// writeUnauthorized は統一フォーマットで401レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	apiErr := model.NewUnauthorizedError()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"code":     apiErr.Code,
		"message":  apiErr.Message,
		"category": apiErr.Category,
		"action":   apiErr.Action,
	})
}
