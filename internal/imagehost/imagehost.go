// Package imagehost stores report photos with an external asset host and
// removes them again when a report is retired.
package imagehost

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidPayload = errors.New("invalid image payload")
	ErrInvalidURL     = errors.New("image url carries no asset id")
)

// Deleter is the only capability the removal path needs.
type Deleter interface {
	DeleteAsset(ctx context.Context, assetID string) error
}

type Host interface {
	Deleter
	// Upload stores a data URI ("data:image/png;base64,...") and returns
	// the public URL of the asset.
	Upload(ctx context.Context, payload string) (string, error)
}

// AssetID extracts the asset identifier from a stored image URL: the
// segment between the last "/" and the last ".".
func AssetID(url string) (string, error) {
	slash := strings.LastIndex(url, "/")
	dot := strings.LastIndex(url, ".")
	if slash < 0 || dot <= slash+1 {
		return "", ErrInvalidURL
	}
	return url[slash+1 : dot], nil
}

// Extension parses the image subtype out of a data URI header, e.g. "png"
// for "data:image/png;base64,...".
func Extension(payload string) (string, error) {
	header, body, ok := strings.Cut(payload, ",")
	if !ok || body == "" {
		return "", ErrInvalidPayload
	}
	mime, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	kind, sub, ok := strings.Cut(mime, "/")
	if !ok || kind != "image" || sub == "" {
		return "", ErrInvalidPayload
	}
	return sub, nil
}
