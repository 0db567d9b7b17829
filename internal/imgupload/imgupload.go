// Package imgupload posts avatar images to an ImgBB-compatible endpoint.
// Uploads are best-effort: a failure means the caller keeps the previous
// image, nothing more.
package imgupload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultEndpoint = "https://api.imgbb.com/1/upload"

type Uploader struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *zap.Logger
}

func New(endpoint, apiKey string, log *zap.Logger) *Uploader {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Uploader{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload posts the image and returns its hosted URL.
func (u *Uploader) Upload(ctx context.Context, image []byte) (string, error) {
	form := url.Values{}
	form.Set("key", u.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(image))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("imgupload: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imgupload: post: %w", err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("imgupload: decode response: %w", err)
	}
	if !body.Success || body.Data.URL == "" {
		return "", fmt.Errorf("imgupload: upload rejected (status %d)", resp.StatusCode)
	}
	u.log.Info("image uploaded", zap.String("url", body.Data.URL))
	return body.Data.URL, nil
}
