package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/config"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey string = "0123456789abcdef0123456789abcdef"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testRepositories(t *testing.T) map[string]models.StateRepository {
	_, client := newTestRedis(t)
	redisAdapter, err := NewRedisAdapter(WithRedisClient(client), WithKeyPrefix("consult"))
	require.NoError(t, err)
	encryptedRedis, err := NewRedisAdapter(WithRedisClient(client), WithKeyPrefix("enc"), WithEncryption(testSecretKey))
	require.NoError(t, err)
	mockRedis, err := NewRedisAdapter(WithMockRedisClient())
	require.NoError(t, err)
	disk, err := NewDiskAdapter(t.TempDir())
	require.NoError(t, err)
	encryptedDisk, err := NewDiskAdapter(t.TempDir(), WithDiskEncryption(testSecretKey))
	require.NoError(t, err)
	return map[string]models.StateRepository{
		"memory":          NewMemoryAdapter(),
		"redis":           redisAdapter,
		"encrypted redis": encryptedRedis,
		"redis mock":      mockRedis,
		"disk":            disk,
		"encrypted disk":  encryptedDisk,
	}
}

func TestStateRepositories(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.GetValue(ctx, "token")
			assert.ErrorIs(t, err, apierrors.ErrMissingDBResource)

			require.NoError(t, repo.SetValue(ctx, "token", "access-token"))
			require.NoError(t, repo.SetValue(ctx, "refreshToken", "refresh-token"))
			require.NoError(t, repo.SetValue(ctx, "userInfo", `{"id":"1","username":"张三"}`))

			val, err := repo.GetValue(ctx, "token")
			require.NoError(t, err)
			assert.Equal(t, "access-token", val)
			val, err = repo.GetValue(ctx, "userInfo")
			require.NoError(t, err)
			assert.Equal(t, `{"id":"1","username":"张三"}`, val)

			require.NoError(t, repo.SetValue(ctx, "token", "new-access-token"))
			val, err = repo.GetValue(ctx, "token")
			require.NoError(t, err)
			assert.Equal(t, "new-access-token", val)

			require.NoError(t, repo.RemoveValue(ctx, "token", "refreshToken", "missing"))
			_, err = repo.GetValue(ctx, "token")
			assert.ErrorIs(t, err, apierrors.ErrMissingDBResource)
			_, err = repo.GetValue(ctx, "refreshToken")
			assert.ErrorIs(t, err, apierrors.ErrMissingDBResource)
			val, err = repo.GetValue(ctx, "userInfo")
			require.NoError(t, err)
			assert.NotEmpty(t, val)

			require.NoError(t, repo.RemoveValue(ctx))
		})
	}
}

func TestRedisKeyPrefixAndEncryption(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	plain, err := NewRedisAdapter(WithRedisClient(client), WithKeyPrefix("consult"))
	require.NoError(t, err)
	encrypted, err := NewRedisAdapter(WithRedisClient(client), WithKeyPrefix("enc"), WithEncryption(testSecretKey))
	require.NoError(t, err)

	require.NoError(t, plain.SetValue(ctx, "token", "plain-value"))
	require.NoError(t, encrypted.SetValue(ctx, "token", "secret-value"))

	stored, err := mr.Get("consult:token")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", stored)
	stored, err = mr.Get("enc:token")
	require.NoError(t, err)
	assert.NotEqual(t, "secret-value", stored)
	assert.NotContains(t, stored, "secret-value")
}

func TestDiskAdapterPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first, err := NewDiskAdapter(dir)
	require.NoError(t, err)
	require.NoError(t, first.SetValue(ctx, "rememberMe", "true"))

	second, err := NewDiskAdapter(dir)
	require.NoError(t, err)
	val, err := second.GetValue(ctx, "rememberMe")
	require.NoError(t, err)
	assert.Equal(t, "true", val)

	require.NoError(t, second.Clear())
	_, err = second.GetValue(ctx, "rememberMe")
	assert.ErrorIs(t, err, apierrors.ErrMissingDBResource)
}

func TestNewRedisAdapterWithoutClient(t *testing.T) {
	_, err := NewRedisAdapter(WithKeyPrefix("consult"))
	assert.Error(t, err)
}

func TestNewDiskAdapterWithoutPath(t *testing.T) {
	_, err := NewDiskAdapter("")
	assert.Error(t, err)
}

func TestNewStateRepository(t *testing.T) {
	tests := []struct {
		name     string
		config   config.StorageConfig
		expected any
	}{
		{"memory", config.StorageConfig{Type: config.StorageTypeMemory}, &MemoryAdapter{}},
		{"disk", config.StorageConfig{Type: config.StorageTypeDisk, Disk: config.DiskConfig{BasePath: t.TempDir()}}, &DiskAdapter{}},
		{"redis mock", config.StorageConfig{Type: config.StorageTypeRedisMock}, &RedisAdapter{}},
		{
			"redis",
			config.StorageConfig{Type: config.StorageTypeRedis, Redis: config.RedisConfig{Addresses: []string{"localhost:6379"}}},
			&RedisAdapter{},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo, err := NewStateRepository(test.config)
			require.NoError(t, err)
			assert.IsType(t, test.expected, repo)
		})
	}
}

func TestNewStateRepositoryErrors(t *testing.T) {
	_, err := NewStateRepository(config.StorageConfig{Type: "s3"})
	assert.Error(t, err)
	_, err = NewStateRepository(config.StorageConfig{
		Type:       config.StorageTypeMemory,
		Encryption: config.EncryptionConfig{Enabled: false, SecretKey: "short"},
	})
	assert.NoError(t, err)
	_, err = NewStateRepository(config.StorageConfig{
		Type:       config.StorageTypeRedisMock,
		Encryption: config.EncryptionConfig{Enabled: true, SecretKey: "short"},
	})
	assert.Error(t, err)
}
