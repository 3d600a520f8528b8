package storage

import (
	"context"
	"errors"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore - хранилище "ключ -> весь список заказов одним куском".
// Get возвращает ErrBlobNotFound, если ключ ещё ни разу не записывался.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
