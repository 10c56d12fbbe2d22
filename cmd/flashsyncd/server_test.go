package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/justinlyon12/flashsync/internal/objectstore/fsstore"
	"github.com/justinlyon12/flashsync/internal/serverstore"
)

func newTestServer(t *testing.T) (*httptest.Server, *serverstore.Store) {
	t.Helper()
	store, err := serverstore.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("serverstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	objects, err := fsstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("fsstore.New: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newServer(store, objects, logger).mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url, token string, body, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out != nil {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp
}

func registerDevice(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var out struct {
		DeviceID string `json:"device_id"`
		Token    string `json:"token"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/device/register", "", struct {
		Name string `json:"name"`
	}{Name: "laptop"}, &out)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	if out.Token == "" {
		t.Fatalf("expected a token, got empty")
	}
	return out.Token
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRegisterAndStatusRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerDevice(t, srv)

	var status struct {
		DeviceID string `json:"device_id"`
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/device/status", token, nil, &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if status.DeviceID == "" {
		t.Fatalf("expected a device id")
	}
}

func TestDeviceStatusRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/device/status", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestDeviceStatusRejectsBadToken(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/device/status", "nonsense", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUploadAssignsIDsAndDecksListThem(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerDevice(t, srv)

	uploadBody := struct {
		Files []struct {
			Path    string `json:"Path"`
			Content string `json:"Content"`
			Hash    string `json:"Hash"`
		} `json:"files"`
	}{Files: []struct {
		Path    string `json:"Path"`
		Content string `json:"Content"`
		Hash    string `json:"Hash"`
	}{{Path: "biology/cells.md", Content: "Q: What is a cell?\nA: The basic unit of life.\n", Hash: "ignored"}}}

	var uploadOut struct {
		UpdatedFiles []struct {
			Path    string `json:"Path"`
			Content string `json:"Content"`
		} `json:"UpdatedFiles"`
		NewIDs []struct {
			ID int64 `json:"ID"`
		} `json:"NewIDs"`
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/sync/upload", token, uploadBody, &uploadOut)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	if len(uploadOut.NewIDs) != 1 {
		t.Fatalf("expected 1 new id assignment, got %+v", uploadOut.NewIDs)
	}
	if len(uploadOut.UpdatedFiles) != 1 {
		t.Fatalf("expected 1 rewritten file, got %+v", uploadOut.UpdatedFiles)
	}

	var decksOut struct {
		Decks []struct {
			Path      string `json:"Path"`
			CardCount int    `json:"CardCount"`
		} `json:"decks"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/decks", token, nil, &decksOut)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decks status = %d", resp.StatusCode)
	}
	if len(decksOut.Decks) != 1 || decksOut.Decks[0].Path != "biology" || decksOut.Decks[0].CardCount != 1 {
		t.Fatalf("unexpected decks response: %+v", decksOut.Decks)
	}
}

func TestSettingsShowAndSetGlobal(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerDevice(t, srv)

	var getOut struct {
		Global struct {
			Algorithm string `json:"Algorithm"`
		} `json:"Global"`
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/settings", token, nil, &getOut)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get settings status = %d", resp.StatusCode)
	}
	if getOut.Global.Algorithm != "fsrs" {
		t.Fatalf("expected default algorithm fsrs, got %q", getOut.Global.Algorithm)
	}

	putBody := map[string]any{
		"Algorithm": "sm2", "RatingScale": 1, "MatchMode": 0, "FuzzyThreshold": 0.8,
		"DailyNewLimit": 20, "DailyReviewLimit": 100, "DailyResetHour": 4,
	}
	var putOut struct {
		Algorithm string `json:"Algorithm"`
	}
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/settings/global", token, putBody, &putOut)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put settings status = %d", resp.StatusCode)
	}
	if putOut.Algorithm != "sm2" {
		t.Fatalf("expected algorithm sm2 after update, got %q", putOut.Algorithm)
	}
}

func TestDeleteDeckSettingsReportsWhetherAnOverrideExisted(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerDevice(t, srv)

	var deleteOut struct {
		Deleted bool `json:"deleted"`
	}
	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/settings/deck/biology", token, nil, &deleteOut)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if deleteOut.Deleted {
		t.Fatalf("expected deleted=false when no override was set")
	}
}
