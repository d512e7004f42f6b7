// Package remote provides the HTTP client for the cloud sync service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/sync"
)

const basePath = "/api/sync/v1"

// Config holds client connection settings.
type Config struct {
	// BaseURL is the sync service origin, e.g. "https://sync.example.com".
	BaseURL string

	// AccessKey authenticates the device when requesting a token.
	AccessKey string

	// Timeout bounds each HTTP call. Zero means 30 seconds.
	Timeout time.Duration
}

// Client talks to the sync service over HTTP/JSON and implements the
// engine's RemoteStore.
type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client

	token  string
	userID string
}

// NewClient creates an unauthenticated client. Call Login before syncing.
func NewClient(config *Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		accessKey: config.AccessKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

type tokenRequest struct {
	AccessKey string `json:"access_key"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login exchanges the access key for a bearer token. The token is held in
// memory and attached to every subsequent request.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(tokenRequest{AccessKey: c.accessKey})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+basePath+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteUnavailable, "token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.New(apperrors.ErrSyncNotAuthenticated, "access key rejected")
	}
	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus("token request", resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	c.token = tr.Token
	c.userID = tr.UserID
	return nil
}

// Logout discards the in-memory session.
func (c *Client) Logout() {
	c.token = ""
	c.userID = ""
}

// IsAuthenticated reports whether Login has succeeded.
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// UserID returns the signed-in user's ID, empty when signed out.
func (c *Client) UserID() string {
	return c.userID
}

// EnsureUser creates the user's account row on the service if missing.
func (c *Client) EnsureUser(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/users/ensure", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return unexpectedStatus("ensure user", resp)
	}
	return nil
}

// Ping checks service reachability without authentication.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+basePath+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteUnavailable, "ping failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.ErrRemoteUnavailable,
			fmt.Sprintf("ping returned status %d", resp.StatusCode))
	}
	return nil
}

// Folders returns the remote folder collection.
func (c *Client) Folders() sync.RemoteCollection[*models.Folder] {
	return &collection[*models.Folder]{client: c, col: models.CollectionFolders}
}

// Tags returns the remote tag collection.
func (c *Client) Tags() sync.RemoteCollection[*models.Tag] {
	return &collection[*models.Tag]{client: c, col: models.CollectionTags}
}

// Items returns the remote item collection.
func (c *Client) Items() sync.RemoteCollection[*models.Item] {
	return &collection[*models.Item]{client: c, col: models.CollectionItems}
}

// TagByName looks up a remote tag by exact name.
func (c *Client) TagByName(ctx context.Context, name string) (*models.Tag, error) {
	resp, err := c.do(ctx, http.MethodGet, "/tags/by-name?name="+url.QueryEscape(name), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.New(apperrors.ErrNotFound, "tag not found: "+name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("tag lookup", resp)
	}

	var tag models.Tag
	if err := json.NewDecoder(resp.Body).Decode(&tag); err != nil {
		return nil, fmt.Errorf("failed to decode tag: %w", err)
	}
	return &tag, nil
}

// collection is the typed view of one remote collection endpoint.
type collection[T models.Entity] struct {
	client *Client
	col    models.Collection
}

func (cl *collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	resp, err := cl.client.do(ctx, http.MethodGet, "/records/"+cl.col.TableName()+"/"+id, nil)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return zero, apperrors.New(apperrors.ErrNotFound,
			fmt.Sprintf("%s/%s not found on remote", cl.col, id))
	}
	if resp.StatusCode != http.StatusOK {
		return zero, unexpectedStatus("get "+cl.col.TableName(), resp)
	}

	var record T
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", cl.col, err)
	}
	return record, nil
}

func (cl *collection[T]) Upsert(ctx context.Context, record T) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}
	resp, err := cl.client.do(ctx, http.MethodPut, "/records/"+cl.col.TableName()+"/"+record.EntityID(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return apperrors.New(apperrors.ErrConstraint,
			fmt.Sprintf("remote uniqueness violation on %s/%s", cl.col, record.EntityID()))
	default:
		return unexpectedStatus("upsert "+cl.col.TableName(), resp)
	}
}

func (cl *collection[T]) ChangedSince(ctx context.Context, since time.Time) ([]T, error) {
	path := "/records/" + cl.col.TableName() + "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	resp, err := cl.client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus("list "+cl.col.TableName(), resp)
	}

	var records []T
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode %s list: %w", cl.col, err)
	}
	return records, nil
}

// do issues one authenticated request against the sync API.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.token == "" {
		return nil, apperrors.New(apperrors.ErrSyncNotAuthenticated, "not signed in")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+basePath+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRemoteUnavailable, method+" "+path+" failed", err)
	}
	return resp, nil
}

func unexpectedStatus(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s returned status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
