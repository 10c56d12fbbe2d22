package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/justinlyon12/flashsync/internal/apierr"
	"github.com/justinlyon12/flashsync/internal/domain"
)

// HTTPClient talks to a flashsyncd server over stdlib net/http. HTTP
// framing is out of THE CORE's scope (spec.md §1); no corpus example wires
// a third-party REST client for this shape of contract, so this stays on
// net/http + encoding/json rather than adopting one.
type HTTPClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewHTTPClient builds a client with the given base URL, bearer token, and
// request timeout.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apierr.Wrap(apierr.Internal, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return apierr.Wrap(apierr.Network, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apierr.Wrap(apierr.Network, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var wireErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&wireErr)
		if wireErr.Message == "" {
			wireErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return &apierr.Error{Code: apierr.Backend, Message: wireErr.Message, StatusHint: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierr.Wrap(apierr.Parse, err)
	}
	return nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) Register(ctx context.Context, name string) (domain.DeviceIdentity, error) {
	var out struct {
		DeviceID string `json:"device_id"`
		Token    string `json:"token"`
	}
	body := struct {
		Name string `json:"name,omitempty"`
	}{Name: name}
	if err := c.do(ctx, http.MethodPost, "/api/device/register", body, &out); err != nil {
		return domain.DeviceIdentity{}, err
	}
	return domain.DeviceIdentity{DeviceID: out.DeviceID, Token: out.Token}, nil
}

func (c *HTTPClient) Status(ctx context.Context) (*time.Time, error) {
	var out struct {
		DeviceID   string     `json:"device_id"`
		LastSeenAt *time.Time `json:"last_seen_at"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/device/status", nil, &out); err != nil {
		return nil, err
	}
	return out.LastSeenAt, nil
}

func (c *HTTPClient) Upload(ctx context.Context, files []UploadFile) (UploadResult, error) {
	body := struct {
		Files []UploadFile `json:"files"`
	}{Files: files}
	var out UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/sync/upload", body, &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) ConfirmDelete(ctx context.Context, cardIDs []int64) (int, error) {
	body := struct {
		CardIDs []int64 `json:"card_ids"`
	}{CardIDs: cardIDs}
	var out struct {
		DeletedCount int `json:"deleted_count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sync/confirm-delete", body, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

func (c *HTTPClient) PushReviews(ctx context.Context, reviews []ReviewSubmission) (int, error) {
	body := struct {
		Reviews []ReviewSubmission `json:"reviews"`
	}{Reviews: reviews}
	var out struct {
		SyncedCount int `json:"synced_count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sync/push-reviews", body, &out); err != nil {
		return 0, err
	}
	return out.SyncedCount, nil
}

func (c *HTTPClient) Pull(ctx context.Context, lastSyncAt *time.Time) (PullResult, error) {
	body := struct {
		LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	}{LastSyncAt: lastSyncAt}
	var out PullResult
	if err := c.do(ctx, http.MethodPost, "/api/sync/pull", body, &out); err != nil {
		return PullResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) Decks(ctx context.Context) ([]DeckInfo, error) {
	var out struct {
		Decks []DeckInfo `json:"decks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/decks", nil, &out); err != nil {
		return nil, err
	}
	return out.Decks, nil
}

func (c *HTTPClient) DeckStats(ctx context.Context, deckPath string) (DeckStats, error) {
	var out DeckStats
	if err := c.do(ctx, http.MethodGet, "/api/decks/"+deckPath+"/stats", nil, &out); err != nil {
		return DeckStats{}, err
	}
	return out, nil
}

func (c *HTTPClient) StudyQueue(ctx context.Context, deckPath string) (StudyQueue, error) {
	path := "/api/study/queue"
	if deckPath != "" {
		path += "?deck_path=" + deckPath
	}
	var out StudyQueue
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return StudyQueue{}, err
	}
	return out, nil
}

func (c *HTTPClient) SubmitReview(ctx context.Context, req SubmitReviewRequest) (SubmitReviewResult, error) {
	var out SubmitReviewResult
	if err := c.do(ctx, http.MethodPost, "/api/study/review", req, &out); err != nil {
		return SubmitReviewResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) GetSettings(ctx context.Context) (SettingsResult, error) {
	var out SettingsResult
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return SettingsResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) PutGlobalSettings(ctx context.Context, partial domain.GlobalSettings) (domain.GlobalSettings, error) {
	var out domain.GlobalSettings
	if err := c.do(ctx, http.MethodPut, "/api/settings/global", partial, &out); err != nil {
		return domain.GlobalSettings{}, err
	}
	return out, nil
}

func (c *HTTPClient) PutDeckSettings(ctx context.Context, deckPath string, partial domain.DeckSettings) (domain.DeckSettings, error) {
	var out domain.DeckSettings
	if err := c.do(ctx, http.MethodPut, "/api/settings/deck/"+deckPath, partial, &out); err != nil {
		return domain.DeckSettings{}, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteDeckSettings(ctx context.Context, deckPath string) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/settings/deck/"+deckPath, nil, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

var _ SyncClient = (*HTTPClient)(nil)
