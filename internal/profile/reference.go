package profile

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/localcache"
)

const maxPhotoBytes = 8 << 20

// ReferenceImages loads a child's photo as a visual reference for illustrations.
// The photo is only an enhancement, so every failure yields nil.
type ReferenceImages struct {
	cache  localcache.Store
	client *resty.Client
}

func NewReferenceImages(cache localcache.Store, timeout time.Duration) *ReferenceImages {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &ReferenceImages{cache: cache, client: client}
}

func (r *ReferenceImages) Load(ctx context.Context, p *ChildProfile) *inference.Image {
	if p == nil {
		return nil
	}
	logger := slog.Default().With("child_profile_id", p.ID)

	if r.cache != nil {
		cached, err := localcache.LoadProfileImage(ctx, r.cache, p.ID)
		if err != nil {
			logger.Warn("failed to read cached profile image", "error", err)
		} else if cached != nil && cached.ImageData != "" {
			return &inference.Image{MIMEType: cached.ImageType, Data: cached.ImageData}
		}
	}

	if p.PhotoURL == "" {
		return nil
	}
	image, err := r.download(ctx, p.PhotoURL)
	if err != nil {
		logger.Warn("failed to download profile photo", "error", err)
		return nil
	}

	if r.cache != nil {
		if err := localcache.SaveProfileImage(ctx, r.cache, localcache.ProfileImage{
			ChildProfileID: p.ID,
			ImageData:      image.Data,
			ImageType:      image.MIMEType,
		}); err != nil {
			logger.Warn("failed to cache profile image", "error", err)
		}
	}
	return image
}

func (r *ReferenceImages) download(ctx context.Context, url string) (*inference.Image, error) {
	res, err := r.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("client.R.Get > %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("status code: %d", res.StatusCode())
	}

	body := res.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("empty photo body")
	}
	if len(body) > maxPhotoBytes {
		return nil, fmt.Errorf("photo is too large: %d bytes", len(body))
	}
	mimeType := strings.TrimSpace(strings.Split(res.Header().Get("Content-Type"), ";")[0])
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("photo is not an image: %s", mimeType)
	}
	return &inference.Image{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(body),
	}, nil
}
