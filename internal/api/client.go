package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultAPIHost is the production theme API base URL.
const DefaultAPIHost = "https://api.bigcommerce.com"

// APIError is a non-2xx response from the theme API.
type APIError struct {
	Status int
	Op     string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api responded %d: %s", e.Op, e.Status, e.Body)
}

// Timeout reports whether the response indicates a gateway/server timeout.
func (e *APIError) Timeout() bool {
	return e.Status == http.StatusRequestTimeout || e.Status == http.StatusGatewayTimeout
}

// Client issues typed requests against the theme API.
type Client struct {
	httpClient *http.Client
	apiHost    string
}

// NewClient creates a Client for the given API host. An empty host selects
// the production API; a zero timeout disables the client-side deadline.
func NewClient(apiHost string, timeout time.Duration) *Client {
	if apiHost == "" {
		apiHost = DefaultAPIHost
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiHost:    strings.TrimSuffix(apiHost, "/"),
	}
}

// GetStoreHash discovers the store identity behind a storefront URL.
func (c *Client) GetStoreHash(ctx context.Context, accessToken, storeURL string) (string, error) {
	endpoint := c.apiHost + "/stores/v3/lookup?storeUrl=" + url.QueryEscape(storeURL)
	var payload struct {
		StoreHash string `json:"store_hash"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, accessToken, nil, &payload, "store lookup"); err != nil {
		return "", err
	}
	return payload.StoreHash, nil
}

// GetThemes lists the store's themes.
func (c *Client) GetThemes(ctx context.Context, creds Credentials) ([]ThemeRecord, error) {
	var payload struct {
		Data []ThemeRecord `json:"data"`
	}
	endpoint := c.storeURL(creds, "/themes")
	if err := c.doJSON(ctx, http.MethodGet, endpoint, creds.AccessToken, nil, &payload, "list themes"); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// PostTheme uploads a bundle artifact. The response carries the processing
// job identifier and whether the store's theme slots are full.
func (c *Client) PostTheme(ctx context.Context, creds Credentials, bundlePath string) (*UploadResult, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(bundlePath))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(bundlePath)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(part, f); err != nil {
		f.Close()
		return nil, err
	}
	f.Close()
	if err = mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURL(creds, "/themes"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuth(req, creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		JobID             string `json:"job_id"`
		ThemeLimitReached bool   `json:"theme_limit_reached"`
	}
	// A conflict response still carries the limit flag; it is an advisory
	// condition the workflow's quota branch handles, not a hard failure.
	if resp.StatusCode == http.StatusConflict {
		payload.ThemeLimitReached = true
		_ = json.Unmarshal(raw, &payload)
		return &UploadResult{JobID: payload.JobID, ThemeLimitReached: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Op: "upload theme", Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("upload theme: decoding response: %w", err)
	}
	return &UploadResult{JobID: payload.JobID, ThemeLimitReached: payload.ThemeLimitReached}, nil
}

// GetJob fetches the status of a processing job.
func (c *Client) GetJob(ctx context.Context, creds Credentials, jobID string) (*JobStatus, error) {
	var payload struct {
		Data struct {
			Status          string    `json:"status"`
			PercentComplete int       `json:"percent_complete"`
			Result          JobResult `json:"result"`
		} `json:"data"`
	}
	endpoint := c.storeURL(creds, "/themes/jobs/"+url.PathEscape(jobID))
	if err := c.doJSON(ctx, http.MethodGet, endpoint, creds.AccessToken, nil, &payload, "get job"); err != nil {
		return nil, err
	}
	return &JobStatus{
		Pending:         payload.Data.Status != "COMPLETED",
		PercentComplete: payload.Data.PercentComplete,
		Result:          payload.Data.Result,
	}, nil
}

// GetVariationsByThemeID lists a theme's variations.
func (c *Client) GetVariationsByThemeID(ctx context.Context, creds Credentials, themeID string) ([]Variation, error) {
	var payload struct {
		Data struct {
			Variations []Variation `json:"variations"`
		} `json:"data"`
	}
	endpoint := c.storeURL(creds, "/themes/"+url.PathEscape(themeID))
	if err := c.doJSON(ctx, http.MethodGet, endpoint, creds.AccessToken, nil, &payload, "get variations"); err != nil {
		return nil, err
	}
	return payload.Data.Variations, nil
}

// ActivateThemeByVariationID requests activation of a variation.
func (c *Client) ActivateThemeByVariationID(ctx context.Context, creds Credentials, variationID string) error {
	body := map[string]string{"variation_id": variationID, "which": "original"}
	endpoint := c.storeURL(creds, "/themes/actions/activate")
	return c.doJSON(ctx, http.MethodPost, endpoint, creds.AccessToken, body, nil, "activate variation")
}

// DeleteThemeByID deletes a theme.
func (c *Client) DeleteThemeByID(ctx context.Context, creds Credentials, themeID string) error {
	endpoint := c.storeURL(creds, "/themes/"+url.PathEscape(themeID))
	return c.doJSON(ctx, http.MethodDelete, endpoint, creds.AccessToken, nil, nil, "delete theme")
}

func (c *Client) storeURL(creds Credentials, suffix string) string {
	return c.apiHost + "/stores/" + creds.StoreHash + "/v3" + suffix
}

func (c *Client) setAuth(req *http.Request, accessToken string) {
	req.Header.Set("X-Auth-Token", accessToken)
	req.Header.Set("Accept", "application/json")
}

// doJSON issues a request with an optional JSON body and decodes the JSON
// response into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, endpoint, accessToken string, in, out any, op string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Op: op, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}
	return nil
}
