package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/models"
)

// Login authenticates with phone and password and persists the session
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	res, err := Do[models.LoginResponse](ctx, c, http.MethodPost, "/user/login", req, WithoutAuthentication())
	if err != nil {
		return models.LoginResponse{}, err
	}
	if res.AccessToken == "" {
		return models.LoginResponse{}, fmt.Errorf("the login response does not contain an access token")
	}
	err = c.store.SetCredentials(ctx, res.Credentials())
	if err != nil {
		return models.LoginResponse{}, err
	}
	if res.UserInfo.UserType == "" {
		res.UserInfo.UserType = req.UserType
	}
	err = c.store.SetUserInfo(ctx, &res.UserInfo)
	if err != nil {
		return models.LoginResponse{}, err
	}
	err = c.store.SetUserType(ctx, req.UserType)
	if err != nil {
		return models.LoginResponse{}, err
	}
	err = c.store.SetRememberMe(ctx, req.RememberMe)
	if err != nil {
		return models.LoginResponse{}, err
	}
	slog.Info("API CLIENT", "message", "logged in", "username", res.UserInfo.Username, "userType", req.UserType)
	return res, nil
}

// Logout forgets the session locally, the backend keeps no session state
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Logout(ctx)
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) error {
	_, err := c.Send(ctx, http.MethodPost, "/auth/register", req, WithoutAuthentication())
	return err
}

// UserInfo loads the profile of the logged in user and refreshes the stored copy
func (c *Client) UserInfo(ctx context.Context) (models.UserInfo, error) {
	info, err := Do[models.UserInfo](ctx, c, http.MethodGet, "/auth/user", nil)
	if err != nil {
		return models.UserInfo{}, err
	}
	err = c.store.SetUserInfo(ctx, &info)
	if err != nil {
		return models.UserInfo{}, err
	}
	return info, nil
}

func (c *Client) SendVerifyCode(ctx context.Context, req models.VerifyCodeRequest) error {
	if req.Phone == "" {
		return fmt.Errorf("%w: the phone number cannot be empty", apierrors.ErrInvalidArgument)
	}
	_, err := c.Send(ctx, http.MethodGet, "/user/send-verify-code", nil, WithQuery("phone", req.Phone), WithoutAuthentication())
	return err
}

func (c *Client) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	_, err := c.Send(ctx, http.MethodPost, "/user/forget", req, WithoutAuthentication())
	return err
}

func (c *Client) UpdateUsername(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("%w: the username cannot be empty", apierrors.ErrInvalidArgument)
	}
	_, err := c.Send(ctx, http.MethodPut, "/auth/username", map[string]string{"username": username})
	return err
}

func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	_, err := c.Send(ctx, http.MethodPost, "/user/change-password", req)
	return err
}
