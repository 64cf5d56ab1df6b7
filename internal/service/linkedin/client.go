package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.linkedin.com"

// Client talks to the LinkedIn REST API (profile lookup, asset upload, UGC
// post creation) on behalf of one access token per call.
type Client struct {
	logger  *zap.Logger
	client  *http.Client
	baseURL string
}

func NewClient(logger *zap.Logger) *Client {
	return &Client{
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultBaseURL,
	}
}

// SetBaseURL overrides the API host, used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// MemberURN fetches the authenticated member's profile and derives the URN
// required as author on publish calls.
func (c *Client) MemberURN(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/me", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var profile struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &profile); err != nil {
		return "", err
	}

	if profile.ID == "" {
		return "", fmt.Errorf("profile response contained no member id")
	}

	return "urn:li:person:" + profile.ID, nil
}

// CreatePost submits one UGC post and returns the remote post id. The media
// block is present iff assetURN is non-empty.
func (c *Client) CreatePost(ctx context.Context, accessToken, authorURN, text, assetURN string) (string, error) {
	mediaCategory := "NONE"
	if assetURN != "" {
		mediaCategory = "IMAGE"
	}

	shareContent := map[string]any{
		"shareCommentary": map[string]any{
			"text": text,
		},
		"shareMediaCategory": mediaCategory,
	}
	if assetURN != "" {
		shareContent["media"] = []map[string]any{
			{
				"status":      "READY",
				"description": map[string]any{"text": "Post image"},
				"media":       assetURN,
				"title":       map[string]any{"text": "Post image"},
			},
		}
	}

	body := map[string]any{
		"author":         authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/ugcPosts", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	var response struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &response); err != nil {
		return "", err
	}

	c.logger.Debug("Created LinkedIn post",
		zap.String("author", authorURN),
		zap.String("post_id", response.ID))

	return response.ID, nil
}

// do executes the request and decodes a 2xx JSON response into out. Any other
// status becomes an *APIError carrying the raw body.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
