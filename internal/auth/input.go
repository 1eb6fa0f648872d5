package auth

import (
	"net/mail"
	"strings"

	"github.com/hitoshi/taskdeck/internal/model"
)

// PasswordMinLength はパスワードの最小文字数。
const PasswordMinLength = 8

// RegisterInput はユーザー登録の入力値。
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// LoginInput はログインの入力値。
type LoginInput struct {
	Email    string
	Password string
}

// Validate は登録入力のバリデーションを行う。
// 違反があればフィールド単位のValidationErrorを返し、なければnilを返す。
// トランスポート層に依存しない純粋な検証関数。
func (in RegisterInput) Validate() *model.ValidationError {
	verr := &model.ValidationError{}

	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "名前を入力してください。")
	}

	if strings.TrimSpace(in.Email) == "" {
		verr.Add("email", "メールアドレスを入力してください。")
	} else if !isValidEmail(in.Email) {
		verr.Add("email", "メールアドレスの形式が正しくありません。")
	}

	if len(in.Password) < PasswordMinLength {
		verr.Add("password", "パスワードは8文字以上で入力してください。")
	} else if in.Password != in.PasswordConfirmation {
		verr.Add("password", "パスワードと確認用パスワードが一致しません。")
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Validate はログイン入力のバリデーションを行う。
func (in LoginInput) Validate() *model.ValidationError {
	verr := &model.ValidationError{}

	if strings.TrimSpace(in.Email) == "" {
		verr.Add("email", "メールアドレスを入力してください。")
	}
	if in.Password == "" {
		verr.Add("password", "パスワードを入力してください。")
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// isValidEmail はメールアドレスの形式を検証する。
// "Name <addr>" 形式はアドレス単体として扱わないため拒否する。
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
