package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/taskdeck/internal/auth"
	"github.com/hitoshi/taskdeck/internal/model"
)

// --- モック定義 ---

// mockWebAuthService はWebAuthServiceInterfaceのモック実装。
type mockWebAuthService struct {
	sessionRegisterFn func(ctx context.Context, in auth.RegisterInput) (*model.Session, error)
	sessionLoginFn    func(ctx context.Context, in auth.LoginInput, currentSessionID string) (*model.Session, error)
	sessionLogoutFn   func(ctx context.Context, sessionID string) error
	userFromSessionFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockWebAuthService) SessionRegister(ctx context.Context, in auth.RegisterInput) (*model.Session, error) {
	if m.sessionRegisterFn != nil {
		return m.sessionRegisterFn(ctx, in)
	}
	return nil, nil
}

func (m *mockWebAuthService) SessionLogin(ctx context.Context, in auth.LoginInput, currentSessionID string) (*model.Session, error) {
	if m.sessionLoginFn != nil {
		return m.sessionLoginFn(ctx, in, currentSessionID)
	}
	return nil, nil
}

func (m *mockWebAuthService) SessionLogout(ctx context.Context, sessionID string) error {
	if m.sessionLogoutFn != nil {
		return m.sessionLogoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockWebAuthService) UserFromSession(ctx context.Context, sessionID string) (*model.User, error) {
	if m.userFromSessionFn != nil {
		return m.userFromSessionFn(ctx, sessionID)
	}
	return nil, nil
}

// --- テストヘルパー ---

func newTestWebAuthHandler(svc WebAuthServiceInterface) *WebAuthHandler {
	return NewWebAuthHandler(svc, WebAuthHandlerConfig{
		CookieDomain:  "",
		CookieSecure:  false,
		SessionMaxAge: 86400,
	})
}

// sessionCookie はレスポンスからセッションCookieを取り出すヘルパー。
func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			return cookie
		}
	}
	t.Fatal("expected session_id cookie in response")
	return nil
}

// --- POST /auth/register テスト ---

func TestWebAuthHandler_Register_SetsSessionCookie(t *testing.T) {
	svc := &mockWebAuthService{
		sessionRegisterFn: func(ctx context.Context, in auth.RegisterInput) (*model.Session, error) {
			return &model.Session{ID: "session-1", UserID: "user-1"}, nil
		},
	}

	h := newTestWebAuthHandler(svc)

	body := `{"name": "New User", "email": "newuser@example.com", "password": "password123", "password_confirmation": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	cookie := sessionCookie(t, resp)
	if cookie.Value != "session-1" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "session-1")
	}
	if !cookie.HttpOnly {
		t.Error("expected HttpOnly session cookie")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
}

func TestWebAuthHandler_Register_ValidationError_NoCookie(t *testing.T) {
	svc := &mockWebAuthService{
		sessionRegisterFn: func(ctx context.Context, in auth.RegisterInput) (*model.Session, error) {
			return nil, model.NewValidationError("email", "メールアドレスの形式が正しくありません。")
		},
	}

	h := newTestWebAuthHandler(svc)

	body := `{"name": "New User", "email": "wrong-email", "password": "password123", "password_confirmation": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
	if len(resp.Cookies()) != 0 {
		t.Errorf("expected no cookies on failure, got %v", resp.Cookies())
	}
}

// --- POST /auth/login テスト ---

func TestWebAuthHandler_Login_SetsNewSessionCookie(t *testing.T) {
	svc := &mockWebAuthService{
		sessionLoginFn: func(ctx context.Context, in auth.LoginInput, currentSessionID string) (*model.Session, error) {
			return &model.Session{ID: "new-session", UserID: "user-1"}, nil
		},
	}

	h := newTestWebAuthHandler(svc)

	body := `{"email": "user@example.com", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	cookie := sessionCookie(t, resp)
	if cookie.Value != "new-session" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "new-session")
	}
}

// 既存セッションIDがサービスに引き渡されることを検証（固定攻撃対策の前提）
func TestWebAuthHandler_Login_PassesExistingSessionID(t *testing.T) {
	svc := &mockWebAuthService{
		sessionLoginFn: func(ctx context.Context, in auth.LoginInput, currentSessionID string) (*model.Session, error) {
			if currentSessionID != "old-session" {
				t.Errorf("currentSessionID = %q, want %q", currentSessionID, "old-session")
			}
			return &model.Session{ID: "new-session", UserID: "user-1"}, nil
		},
	}

	h := newTestWebAuthHandler(svc)

	body := `{"email": "user@example.com", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "old-session"})
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	cookie := sessionCookie(t, resp)
	if cookie.Value == "old-session" {
		t.Error("expected regenerated session ID in cookie")
	}
}

func TestWebAuthHandler_Login_InvalidCredentials_ReturnsUnprocessableEntity(t *testing.T) {
	svc := &mockWebAuthService{
		sessionLoginFn: func(ctx context.Context, in auth.LoginInput, currentSessionID string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}

	h := newTestWebAuthHandler(svc)

	body := `{"email": "user@example.com", "password": "wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
	if len(resp.Cookies()) != 0 {
		t.Errorf("expected no cookies on failure, got %v", resp.Cookies())
	}
}

// --- POST /auth/logout テスト ---

func TestWebAuthHandler_Logout_DestroysSessionAndClearsCookie(t *testing.T) {
	var destroyedID string
	svc := &mockWebAuthService{
		sessionLogoutFn: func(ctx context.Context, sessionID string) error {
			destroyedID = sessionID
			return nil
		},
	}

	h := newTestWebAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if destroyedID != "session-1" {
		t.Errorf("destroyed session = %q, want %q", destroyedID, "session-1")
	}

	cookie := sessionCookie(t, resp)
	if cookie.Value != "" {
		t.Errorf("cookie value = %q, want empty", cookie.Value)
	}
	if cookie.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cookie.MaxAge)
	}
}

// セッションCookieなしのログアウトもCookieクリアのみ行い204を返す
func TestWebAuthHandler_Logout_NoCookie_StillSucceeds(t *testing.T) {
	svc := &mockWebAuthService{
		sessionLogoutFn: func(ctx context.Context, sessionID string) error {
			t.Fatal("logout should not be called without a session cookie")
			return nil
		},
	}

	h := newTestWebAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

// --- GET /auth/user テスト ---

func TestWebAuthHandler_Me_ReturnsCurrentUser(t *testing.T) {
	svc := &mockWebAuthService{
		userFromSessionFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "session-1" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-1")
			}
			return &model.User{ID: "user-1", Name: "田中", Email: "tanaka@example.com"}, nil
		},
	}

	h := newTestWebAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var user map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if user["id"] != "user-1" {
		t.Errorf("id = %v, want %q", user["id"], "user-1")
	}
	if user["email"] != "tanaka@example.com" {
		t.Errorf("email = %v, want %q", user["email"], "tanaka@example.com")
	}
	if _, ok := user["password_hash"]; ok {
		t.Error("response must not contain password_hash")
	}
}

func TestWebAuthHandler_Me_NoCookie_ReturnsUnauthorized(t *testing.T) {
	svc := &mockWebAuthService{
		userFromSessionFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			t.Fatal("service should not be called without a session cookie")
			return nil, nil
		},
	}

	h := newTestWebAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// 期限切れ・未知のセッションはnil解決され401を返す
func TestWebAuthHandler_Me_UnknownSession_ReturnsUnauthorized(t *testing.T) {
	svc := &mockWebAuthService{
		userFromSessionFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, nil
		},
	}

	h := newTestWebAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
