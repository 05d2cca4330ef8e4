// Package backend is the client for the remote content API. Requests are
// bearer-token authenticated JSON; any response below the server-error
// range is decoded as a structured result rather than treated as a
// transport failure, so callers can relay backend messages verbatim.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"estatebot/pkg/logx"
)

type Config struct {
	URL     string
	NewsURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// APIError is a server-side failure: the backend answered, but with a
// status outside the structured-result range.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: server error %d", e.Status)
	}
	return fmt.Sprintf("backend: server error %d: %s", e.Status, e.Message)
}

// Result is the backend's uniform response envelope. Success=false is a
// structured failure: the message is meant for the requesting admin.
type Result struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	EntryID string  `json:"entry_id,omitempty"`
	Entries []Entry `json:"entries,omitempty"`
}

type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int64  `json:"price"`
	Date  int64  `json:"date,omitempty"`
}

// PropertyRecord mirrors the backend's property schema. Field names follow
// the backend contract, including the historical "nearbu" spelling.
type PropertyRecord struct {
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Price         int      `json:"price"`
	Address       string   `json:"address"`
	District      string   `json:"district"`
	Floor         int      `json:"floor"`
	Rooms         int      `json:"rooms"`
	HasLift       bool     `json:"has_lift"`
	HasBalcony    bool     `json:"has_balcony"`
	Bathroom      int      `json:"bathroom"`
	TypeHome      string   `json:"type_home"`
	Nearby        string   `json:"nearbu"`
	DateUse       string   `json:"date_use"`
	ApartmentArea int      `json:"apartment_area"`
	Description   string   `json:"description"`
	Images        []string `json:"images"`
	AssetsArray   []string `json:"assets_array"`
}

type NewsRecord struct {
	Title      string   `json:"title"`
	LogoBlog   []string `json:"logo_blog,omitempty"`
	LogoFileID string   `json:"logo_blog_file_id,omitempty"`
	BlogText   string   `json:"blog_text"`
}

func (c *Client) CreateProperty(ctx context.Context, rec PropertyRecord) (*Result, error) {
	return c.do(ctx, http.MethodPost, c.cfg.URL, rec)
}

func (c *Client) CreateNews(ctx context.Context, rec NewsRecord) (*Result, error) {
	url := c.cfg.NewsURL
	if strings.TrimSpace(url) == "" {
		url = c.cfg.URL
	}
	return c.do(ctx, http.MethodPost, url, rec)
}

func (c *Client) DeleteAll(ctx context.Context) (*Result, error) {
	return c.do(ctx, http.MethodDelete, c.cfg.URL+"/delete/all", nil)
}

func (c *Client) DeleteDrafts(ctx context.Context) (*Result, error) {
	return c.do(ctx, http.MethodDelete, c.cfg.URL+"/delete/drafts", nil)
}

func (c *Client) DeleteOld(ctx context.Context) (*Result, error) {
	return c.do(ctx, http.MethodDelete, c.cfg.URL+"/delete/old", nil)
}

func (c *Client) DeleteByID(ctx context.Context, id string) (*Result, error) {
	return c.do(ctx, http.MethodDelete, c.cfg.URL+"/delete/"+id, nil)
}

func (c *Client) DeleteByTitle(ctx context.Context, title string) (*Result, error) {
	return c.do(ctx, http.MethodDelete, c.cfg.URL+"/delete-by-title", map[string]string{"title": title})
}

func (c *Client) List(ctx context.Context) (*Result, error) {
	return c.do(ctx, http.MethodGet, c.cfg.URL+"/list", nil)
}

// Ping probes the API root. Any structured answer counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.cfg.URL, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, url string, body any) (*Result, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "estatebot/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &APIError{Status: resp.StatusCode}
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("backend: decode response (status %d): %w", resp.StatusCode, err)
	}

	c.log.Debug("backend response",
		logx.String("method", method),
		logx.String("url", url),
		logx.Int("status", resp.StatusCode),
		logx.Bool("success", res.Success))
	return &res, nil
}
