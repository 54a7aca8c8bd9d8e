package storage

import (
	"context"
	"errors"
	"io"
)

var ErrStorageDisabled = errors.New("file storage is not configured")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores tournament logos and badge icons in object
// storage and hands out their public URLs.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// DisabledUploader stands in when no object storage is configured.
// Uploads fail, deletes are no-ops and public URLs come back empty.
type DisabledUploader struct{}

func NewDisabledUploader() FileUploader {
	return DisabledUploader{}
}

func (DisabledUploader) Upload(context.Context, string, string, io.Reader) (*UploadResult, error) {
	return nil, ErrStorageDisabled
}

func (DisabledUploader) Delete(context.Context, string) error { return nil }

func (DisabledUploader) GetPublicURL(string) string { return "" }

