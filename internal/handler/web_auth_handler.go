package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskdeck/internal/auth"
	"github.com/hitoshi/taskdeck/internal/model"
)

const sessionCookieName = "session_id"

// WebAuthServiceInterface はブラウザ向け認証ハンドラーが必要とするサービスインターフェース。
type WebAuthServiceInterface interface {
	// SessionRegister はユーザーを登録し、セッションを確立する。
	SessionRegister(ctx context.Context, in auth.RegisterInput) (*model.Session, error)
	// SessionLogin は資格情報を検証し、セッションを確立する。
	// currentSessionIDが空でない場合は破棄してから新しいIDを発行する。
	SessionLogin(ctx context.Context, in auth.LoginInput, currentSessionID string) (*model.Session, error)
	// SessionLogout はセッションを破棄する。
	SessionLogout(ctx context.Context, sessionID string) error
	// UserFromSession はセッションIDからユーザーを解決する。
	// セッションが無効（期限切れを含む）な場合はnilを返す。
	UserFromSession(ctx context.Context, sessionID string) (*model.User, error)
}

// WebAuthHandlerConfig はブラウザ向け認証ハンドラーの設定。
type WebAuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// WebAuthHandler はセッション認証のHTTPハンドラー。
// トークンフローと同じ検証・資格情報ルールを適用するが、トークンの代わりに
// サーバーサイドセッションを確立し、認証成功のたびにセッションIDを再生成する。
type WebAuthHandler struct {
	service WebAuthServiceInterface
	config  WebAuthHandlerConfig
}

// NewWebAuthHandler はWebAuthHandlerを生成する。
func NewWebAuthHandler(service WebAuthServiceInterface, config WebAuthHandlerConfig) *WebAuthHandler {
	return &WebAuthHandler{
		service: service,
		config:  config,
	}
}

// Register はユーザー登録とセッション確立を処理する。
// POST /auth/register
func (h *WebAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeInvalidRequestBody(w)
		return
	}

	session, err := h.service.SessionRegister(r.Context(), auth.RegisterInput{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Login はログインとセッション確立を処理する。
// 提示済みのセッションIDは破棄され、新しいIDが発行される（固定攻撃対策）。
// POST /auth/login
func (h *WebAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeInvalidRequestBody(w)
		return
	}

	currentSessionID := ""
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		currentSessionID = cookie.Value
	}

	session, err := h.service.SessionLogin(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, currentSessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *WebAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.SessionLogout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me はセッションCookieに対応するユーザー情報を返す。
// Cookieがない・セッションが無効な場合は401を返す。
// GET /auth/user
func (h *WebAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.UserFromSession(r.Context(), cookie.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *WebAuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieをクリアする。
func (h *WebAuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
