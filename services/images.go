package services

import (
	"bytes"
	"context"
	"mime/multipart"

	"pos-backoffice/apperr"
	"pos-backoffice/media"
)

// uploader stores request images. A nil store means uploads are not
// configured and any attempt is reported as an upstream failure.
type uploader struct {
	store media.Store
}

// upload returns "" when fh is nil.
func (u uploader) upload(ctx context.Context, fh *multipart.FileHeader, folder string) (string, error) {
	if fh == nil {
		return "", nil
	}
	if u.store == nil {
		return "", apperr.Upstream("Image storage is not configured", nil)
	}

	raw, name, err := media.Prepare(fh)
	if err != nil {
		return "", apperr.Validation("Invalid image: %v", err)
	}
	url, err := u.store.Upload(ctx, bytes.NewReader(raw), name, folder)
	if err != nil {
		return "", apperr.Upstream("Failed to upload image", err)
	}
	return url, nil
}
