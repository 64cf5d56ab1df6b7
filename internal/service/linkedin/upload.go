package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const mediaUploadMechanism = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"

// UploadImage runs the two-phase asset upload: register intent, then PUT the
// raw bytes to the returned upload URL. Returns the asset URN once the
// transfer succeeds; LinkedIn finalizes the asset asynchronously, so no
// readiness check happens here. Neither phase retries.
func (c *Client) UploadImage(ctx context.Context, accessToken, ownerURN string, data []byte, contentType string) (string, error) {
	uploadURL, assetURN, err := c.registerUpload(ctx, accessToken, ownerURN)
	if err != nil {
		return "", &UploadError{Phase: "register", Err: err}
	}

	c.logger.Debug("Registered asset upload",
		zap.String("owner", ownerURN),
		zap.String("asset", assetURN))

	if err := c.transferBytes(ctx, uploadURL, data, contentType); err != nil {
		return "", &UploadError{Phase: "transfer", Err: err}
	}

	return assetURN, nil
}

// registerUpload declares upload intent with the feed-image recipe, owned by
// the given member URN. Asset URNs are owner-scoped, so multi-account posts
// register a fresh upload per account.
func (c *Client) registerUpload(ctx context.Context, accessToken, ownerURN string) (string, string, error) {
	body := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   ownerURN,
			"serviceRelationships": []map[string]any{
				{
					"relationshipType": "OWNER",
					"identifier":       "urn:li:userGeneratedContent",
				},
			},
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/assets?action=registerUpload", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	var response struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := c.do(req, &response); err != nil {
		return "", "", err
	}

	uploadURL := response.Value.UploadMechanism[mediaUploadMechanism].UploadURL
	if uploadURL == "" || response.Value.Asset == "" {
		return "", "", fmt.Errorf("register response missing upload URL or asset URN")
	}

	return uploadURL, response.Value.Asset, nil
}

// transferBytes PUTs the raw image to the pre-signed upload URL. The URL
// embeds its own authorization, so no bearer header is sent.
func (c *Client) transferBytes(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, "PUT", uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(len(data)))
	req.ContentLength = int64(len(data))

	return c.do(req, nil)
}
