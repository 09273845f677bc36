package db

import (
	"context"
	"fmt"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/models"
	"github.com/peterbourgon/diskv"
)

// cacheSizeMaxBytes is the size of the in-memory read cache of the disk store
const cacheSizeMaxBytes uint64 = 1024 * 64

// DiskAdapter persists every key as a single file under the base path
type DiskAdapter struct {
	dv        *diskv.Diskv
	encryptor models.Encryptor
}

func (d *DiskAdapter) GetValue(_ context.Context, key string) (string, error) {
	if !d.dv.Has(key) {
		return "", apierrors.ErrMissingDBResource
	}
	b, err := d.dv.Read(key)
	if err != nil {
		return "", err
	}
	if d.encryptor == nil {
		return string(b), nil
	}
	return d.encryptor.Decrypt(string(b))
}

func (d *DiskAdapter) SetValue(_ context.Context, key string, value string) error {
	if d.encryptor != nil {
		encrypted, err := d.encryptor.Encrypt(value)
		if err != nil {
			return err
		}
		value = encrypted
	}
	return d.dv.Write(key, []byte(value))
}

func (d *DiskAdapter) RemoveValue(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if !d.dv.Has(key) {
			continue
		}
		err := d.dv.Erase(key)
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every stored key
func (d *DiskAdapter) Clear() error {
	return d.dv.EraseAll()
}

type DiskAdapterOption func(*DiskAdapter) error

func WithDiskEncryption(secretKey string) DiskAdapterOption {
	return func(d *DiskAdapter) error {
		encryptor, err := NewGCMEncryptor(secretKey)
		if err != nil {
			return err
		}
		d.encryptor = encryptor
		return nil
	}
}

func NewDiskAdapter(basePath string, options ...DiskAdapterOption) (*DiskAdapter, error) {
	if basePath == "" {
		return &DiskAdapter{}, fmt.Errorf("the disk adapter needs a base path")
	}
	// all the data files go directly into the base dir
	flatTransform := func(s string) []string { return []string{} }
	d := DiskAdapter{
		dv: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    flatTransform,
			CacheSizeMax: cacheSizeMaxBytes,
			PathPerm:     0700,
			FilePerm:     0600,
		}),
	}
	for _, opt := range options {
		err := opt(&d)
		if err != nil {
			return &DiskAdapter{}, err
		}
	}
	return &d, nil
}
