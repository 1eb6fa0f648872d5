// Package auth はトークン認証、セッション認証、資格情報の検証を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
)

// dummyHash はユーザー不在時にも同等の照合コストをかけるためのbcryptハッシュ。
// メールアドレスの存在有無を応答時間から推測されにくくする。
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskdeck-dummy-password"), bcrypt.DefaultCost)

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。nilの場合は記録しない。
type MetricsRecorder interface {
	RecordLogin()
	RecordAuthFailure()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // bcryptのコストファクタ。0の場合はbcrypt.DefaultCost
}

// TokenPair はトークン発行の結果。平文トークンと対象ユーザーを保持する。
// Plaintextはこの構造体の外では永続化されない。
type TokenPair struct {
	Plaintext string
	User      *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	tokenRepo   repository.TokenRepository
	sessionRepo repository.SessionRepository
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	sessionRepo repository.SessionRepository,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
	}
}

// Register はユーザーを登録し、APIトークンを発行する。
// メールアドレスの一意性はDBの一意制約で保証され、
// 同時登録の競合ではちょうど1件だけ成功する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*TokenPair, error) {
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
	)

	return &TokenPair{Plaintext: plaintext, User: user}, nil
}

// Login は資格情報を検証し、APIトークンを発行する。
// ユーザー不在とパスワード不一致は同一のエラーを返し、どちらが誤っていたかを漏らさない。
func (s *Service) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	user, err := s.verifyCredentials(ctx, in)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLogin()
	}
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return &TokenPair{Plaintext: plaintext, User: user}, nil
}

// Logout は提示されたトークンを失効させる。
// 失効後、同一トークンによるリクエストは即座に401となる。
func (s *Service) Logout(ctx context.Context, plaintext string) error {
	if plaintext == "" {
		return fmt.Errorf("token is required")
	}

	if err := s.tokenRepo.DeleteByHash(ctx, hashToken(plaintext)); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// UserFromToken は平文トークンからユーザーを解決する。
// トークンが存在しない（失効済みを含む）場合はnilを返す。
func (s *Service) UserFromToken(ctx context.Context, plaintext string) (*model.User, error) {
	token, err := s.tokenRepo.FindByHash(ctx, hashToken(plaintext))
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	if token == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// SessionRegister はユーザーを登録し、セッションを確立する。ブラウザ向けフロー。
func (s *Service) SessionRegister(ctx context.Context, in RegisterInput) (*model.Session, error) {
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	user, err := s.createUser(ctx, in)
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered via session flow",
		slog.String("user_id", user.ID),
	)

	return session, nil
}

// SessionLogin は資格情報を検証し、セッションを確立する。
// 既存セッションIDが渡された場合は破棄し、新しいIDを発行する（固定攻撃対策）。
func (s *Service) SessionLogin(ctx context.Context, in LoginInput, currentSessionID string) (*model.Session, error) {
	user, err := s.verifyCredentials(ctx, in)
	if err != nil {
		return nil, err
	}

	if currentSessionID != "" {
		if err := s.sessionRepo.DeleteByID(ctx, currentSessionID); err != nil {
			return nil, fmt.Errorf("failed to discard previous session: %w", err)
		}
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLogin()
	}
	slog.Info("user logged in via session flow",
		slog.String("user_id", user.ID),
	)

	return session, nil
}

// UserFromSession はセッションIDからユーザーを解決する。
// セッションが存在しない・期限切れの場合はnilを返す。
func (s *Service) UserFromSession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// SessionLogout はセッションを破棄する。
func (s *Service) SessionLogout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// createUser は入力値からユーザーを作成し永続化する。
// メールアドレス重複はemailフィールドのValidationErrorに変換する。
func (s *Service) createUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == repository.ErrEmailTaken {
			return nil, model.NewValidationError("email", "このメールアドレスは既に使用されています。")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// verifyCredentials はメールアドレスとパスワードを照合する。
// ユーザー不在時もダミーハッシュとの照合を行い、両方の失敗経路で同等の処理を実行する。
func (s *Service) verifyCredentials(ctx context.Context, in LoginInput) (*model.User, error) {
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	user, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(in.Password)); err != nil || user == nil {
		if s.metrics != nil {
			s.metrics.RecordAuthFailure()
		}
		slog.Warn("login failed")
		return nil, model.NewInvalidCredentialsError()
	}

	return user, nil
}

// issueToken は新しいAPIトークンを発行し、ハッシュのみを永続化する。
func (s *Service) issueToken(ctx context.Context, userID string) (string, error) {
	plaintext, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hashToken(plaintext),
		CreatedAt: time.Now(),
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	return plaintext, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateToken は暗号的に安全なAPIトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken は平文トークンのSHA-256ハッシュを16進文字列で返す。
func hashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
