package models

import "strings"

// UserType is the kind of account, it decides which question catalogue the backend serves
type UserType string

const PersonalUser UserType = "personal"
const EnterpriseUser UserType = "enterprise"

const personalUserCode string = "1"
const enterpriseUserCode string = "2"

// Code returns the numeric code under which the user type is persisted and sent to the backend
func (u UserType) Code() string {
	if u == EnterpriseUser {
		return enterpriseUserCode
	}
	return personalUserCode
}

// UserTypeFromCode maps a persisted code back to a user type, unknown codes map to PersonalUser
func UserTypeFromCode(code string) UserType {
	switch code {
	case enterpriseUserCode, string(EnterpriseUser):
		return EnterpriseUser
	default:
		return PersonalUser
	}
}

// MarshalText sends the numeric code, it is what the backend expects
func (u UserType) MarshalText() ([]byte, error) {
	return []byte(u.Code()), nil
}

func (u *UserType) UnmarshalText(text []byte) error {
	*u = UserTypeFromCode(string(text))
	return nil
}

// UnmarshalJSON accepts the code as a JSON string or number
func (u *UserType) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "null" {
		return nil
	}
	return u.UnmarshalText([]byte(value))
}

type UserInfo struct {
	ID       string   `json:"id,omitempty"`
	Username string   `json:"username"`
	Phone    string   `json:"phone,omitempty"`
	Email    string   `json:"email,omitempty"`
	UserType UserType `json:"userType,omitempty"`
}

type LoginRequest struct {
	UserType   UserType `json:"userType"`
	Phone      string   `json:"phone"`
	Password   string   `json:"password"`
	RememberMe bool     `json:"rememberMe,omitempty"`
}

type LoginResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	UserInfo     UserInfo `json:"userInfo"`
}

func (l LoginResponse) Credentials() Credentials {
	return Credentials{AccessToken: l.AccessToken, RefreshToken: l.RefreshToken}
}

type RegisterRequest struct {
	UserType UserType `json:"userType"`
	Username string   `json:"username,omitempty"`
	Phone    string   `json:"phone"`
	Code     string   `json:"code"`
	Password string   `json:"password"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone"`
}

type ResetPasswordRequest struct {
	Phone       string `json:"phone"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
