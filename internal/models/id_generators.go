package models

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator implements models.IDGenerator and generates ULIDs used as request IDs
type ULIDGenerator struct{}

func (ULIDGenerator) ID() (string, error) {
	now := time.Now()
	ms := ulid.Timestamp(now)
	id, err := ulid.New(ms, rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), err
}

// UUIDGenerator implements models.IDGenerator and generates random UUIDs used as session markers
type UUIDGenerator struct{}

func (UUIDGenerator) ID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
