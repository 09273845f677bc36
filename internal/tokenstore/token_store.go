package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/models"
)

// Keys of the persisted client state
const (
	accessTokenKey  string = "token"
	refreshTokenKey string = "refreshToken"
	userInfoKey     string = "userInfo"
	userTypeKey     string = "userType"
	rememberMeKey   string = "rememberMe"
	// sessionInitializedKey lives in the session repository only
	sessionInitializedKey string = "sessionInitialized"
)

// TokenStore holds the credentials and the user related state of the client.
// The persistent repository survives restarts, the session repository lives as long as
// the current session and decides whether a login that was not remembered has to be dropped.
type TokenStore struct {
	repo        models.StateRepository
	sessionRepo models.StateRepository
	idGenerator models.IDGenerator
	lock        sync.Mutex
}

// Init wipes a login that was not remembered when a new session starts. It only has an effect
// the first time it is called in a session.
func (ts *TokenStore) Init(ctx context.Context) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	marker, err := ts.get(ctx, ts.sessionRepo, sessionInitializedKey)
	if err != nil {
		return err
	}
	if marker != "" {
		return nil
	}
	rememberMe, err := ts.get(ctx, ts.repo, rememberMeKey)
	if err != nil {
		return err
	}
	token, err := ts.get(ctx, ts.repo, accessTokenKey)
	if err != nil {
		return err
	}
	if rememberMe != "true" && token != "" {
		slog.Info("TOKEN STORE", "message", "new session without remember me, dropping the previous login")
		err = ts.repo.RemoveValue(ctx, accessTokenKey, refreshTokenKey, userInfoKey, userTypeKey)
		if err != nil {
			return err
		}
	}
	marker, err = ts.idGenerator.ID()
	if err != nil {
		return err
	}
	return ts.sessionRepo.SetValue(ctx, sessionInitializedKey, marker)
}

func (ts *TokenStore) get(ctx context.Context, repo models.ValueGetter, key string) (string, error) {
	val, err := repo.GetValue(ctx, key)
	if err != nil {
		if errors.Is(err, apierrors.ErrMissingDBResource) {
			return "", nil
		}
		slog.Error("TOKEN STORE", "message", "reading the state failed", "key", key, "error", err)
		return "", err
	}
	return val, nil
}

// set stores the value or removes the key when the value is empty
func (ts *TokenStore) set(ctx context.Context, key, value string) error {
	if value == "" {
		return ts.repo.RemoveValue(ctx, key)
	}
	return ts.repo.SetValue(ctx, key, value)
}

func (ts *TokenStore) Credentials(ctx context.Context) (models.Credentials, error) {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	accessToken, err := ts.get(ctx, ts.repo, accessTokenKey)
	if err != nil {
		return models.Credentials{}, err
	}
	refreshToken, err := ts.get(ctx, ts.repo, refreshTokenKey)
	if err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (ts *TokenStore) AccessToken(ctx context.Context) (string, error) {
	return ts.get(ctx, ts.repo, accessTokenKey)
}

func (ts *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	return ts.get(ctx, ts.repo, refreshTokenKey)
}

func (ts *TokenStore) SetAccessToken(ctx context.Context, token string) error {
	return ts.set(ctx, accessTokenKey, token)
}

func (ts *TokenStore) SetRefreshToken(ctx context.Context, token string) error {
	return ts.set(ctx, refreshTokenKey, token)
}

func (ts *TokenStore) SetCredentials(ctx context.Context, credentials models.Credentials) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	err := ts.set(ctx, accessTokenKey, credentials.AccessToken)
	if err != nil {
		return err
	}
	return ts.set(ctx, refreshTokenKey, credentials.RefreshToken)
}

func (ts *TokenStore) ClearAccessToken(ctx context.Context) error {
	return ts.repo.RemoveValue(ctx, accessTokenKey)
}

func (ts *TokenStore) ClearCredentials(ctx context.Context) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	return ts.repo.RemoveValue(ctx, accessTokenKey, refreshTokenKey)
}

// UserInfo returns nil when nothing usable is stored. Values that are not valid JSON are removed.
func (ts *TokenStore) UserInfo(ctx context.Context) (*models.UserInfo, error) {
	raw, err := ts.get(ctx, ts.repo, userInfoKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var userInfo models.UserInfo
	if raw == "undefined" || raw == "null" || json.Unmarshal([]byte(raw), &userInfo) != nil {
		slog.Warn("TOKEN STORE", "message", "removing invalid user info")
		return nil, ts.repo.RemoveValue(ctx, userInfoKey)
	}
	return &userInfo, nil
}

// SetUserInfo stores the user info, nil removes it
func (ts *TokenStore) SetUserInfo(ctx context.Context, userInfo *models.UserInfo) error {
	if userInfo == nil {
		return ts.repo.RemoveValue(ctx, userInfoKey)
	}
	raw, err := json.Marshal(userInfo)
	if err != nil {
		return err
	}
	return ts.repo.SetValue(ctx, userInfoKey, string(raw))
}

// UserType defaults to the personal user type
func (ts *TokenStore) UserType(ctx context.Context) (models.UserType, error) {
	code, err := ts.get(ctx, ts.repo, userTypeKey)
	if err != nil {
		return models.PersonalUser, err
	}
	return models.UserTypeFromCode(code), nil
}

func (ts *TokenStore) SetUserType(ctx context.Context, userType models.UserType) error {
	return ts.repo.SetValue(ctx, userTypeKey, userType.Code())
}

func (ts *TokenStore) RememberMe(ctx context.Context) (bool, error) {
	val, err := ts.get(ctx, ts.repo, rememberMeKey)
	if err != nil || val == "" {
		return false, err
	}
	rememberMe, err := strconv.ParseBool(val)
	if err != nil {
		return false, nil
	}
	return rememberMe, nil
}

func (ts *TokenStore) SetRememberMe(ctx context.Context, rememberMe bool) error {
	return ts.repo.SetValue(ctx, rememberMeKey, strconv.FormatBool(rememberMe))
}

func (ts *TokenStore) IsLoggedIn(ctx context.Context) (bool, error) {
	token, err := ts.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// Logout removes every persisted key, remember me included
func (ts *TokenStore) Logout(ctx context.Context) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	return ts.repo.RemoveValue(ctx, accessTokenKey, refreshTokenKey, userInfoKey, userTypeKey, rememberMeKey)
}

type TokenStoreOption func(*TokenStore) error

func WithStateRepository(repo models.StateRepository) TokenStoreOption {
	return func(ts *TokenStore) error {
		ts.repo = repo
		return nil
	}
}

func WithSessionRepository(repo models.StateRepository) TokenStoreOption {
	return func(ts *TokenStore) error {
		ts.sessionRepo = repo
		return nil
	}
}

func WithIDGenerator(generator models.IDGenerator) TokenStoreOption {
	return func(ts *TokenStore) error {
		ts.idGenerator = generator
		return nil
	}
}

// NewTokenStore creates a new TokenStore, the session markers are random UUIDs unless another generator is passed.
func NewTokenStore(options ...TokenStoreOption) (*TokenStore, error) {
	ts := TokenStore{idGenerator: models.UUIDGenerator{}}
	for _, opt := range options {
		err := opt(&ts)
		if err != nil {
			return &TokenStore{}, err
		}
	}
	if ts.repo == nil {
		return &TokenStore{}, fmt.Errorf("state repository not initialized")
	}
	if ts.sessionRepo == nil {
		return &TokenStore{}, fmt.Errorf("session repository not initialized")
	}
	if ts.idGenerator == nil {
		return &TokenStore{}, fmt.Errorf("id generator not initialized")
	}
	return &ts, nil
}
