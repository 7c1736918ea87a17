// Package contentapi is the HTTP client for the site's REST content service.
// The public layout reads settings and sitemap data through it and the admin
// composer saves drafts, uploads files and requests generated content.
package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/settings"
	"github.com/eringen/pressroom/sitemap"
)

// APIError is a non-2xx response from the content service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("content api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("content api: status %d: %s", e.StatusCode, e.Message)
}

// ServerMessage is the message returned by the server, shown to editors.
func (e *APIError) ServerMessage() string { return e.Message }

// IsNotFound reports whether err is a 404 from the content service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// MediaFile is one entry of the media library.
type MediaFile struct {
	ID        string    `json:"_id"`
	MediaID   string    `json:"mediaId"`
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	InUse     bool      `json:"inUse"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client talks to the content service.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a Client for the service rooted at baseURL, for example
// "http://127.0.0.1:3000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// Categories lists the blog categories.
func (c *Client) Categories(ctx context.Context) ([]editor.Category, error) {
	var cats []editor.Category
	if err := c.getJSON(ctx, "/blog-categories", &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// CreateBlog stores a new post.
func (c *Client) CreateBlog(ctx context.Context, d editor.Draft) (editor.Draft, error) {
	var out editor.Draft
	err := c.sendJSON(ctx, http.MethodPost, "/blogs", d, &out)
	return out, err
}

// UpdateBlog replaces the post with id.
func (c *Client) UpdateBlog(ctx context.Context, id string, d editor.Draft) (editor.Draft, error) {
	var out editor.Draft
	err := c.sendJSON(ctx, http.MethodPut, "/blogs/"+url.PathEscape(id), d, &out)
	return out, err
}

// Blog fetches one post by id.
func (c *Client) Blog(ctx context.Context, id string) (editor.Draft, error) {
	var out editor.Draft
	err := c.getJSON(ctx, "/blogs/"+url.PathEscape(id), &out)
	return out, err
}

// UploadFile posts a file as multipart form data and registers it in the
// media library as in use.
func (c *Client) UploadFile(ctx context.Context, up editor.Upload) (editor.Image, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", up.Filename)
	if err != nil {
		return editor.Image{}, err
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return editor.Image{}, fmt.Errorf("read upload: %w", err)
	}
	_ = mw.WriteField("addToMediaLibrary", "true")
	_ = mw.WriteField("setAsInUse", "true")
	if err := mw.Close(); err != nil {
		return editor.Image{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/uploadfile", &buf)
	if err != nil {
		return editor.Image{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var img editor.Image
	if err := c.do(req, &img); err != nil {
		return editor.Image{}, err
	}
	return img, nil
}

// DeleteFile removes an uploaded file by its id.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/deletefile?fileName="+url.QueryEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// GenerateContent requests AI-written post content.
func (c *Client) GenerateContent(ctx context.Context, r editor.GenerationRequest) (editor.GenerationResponse, error) {
	var out editor.GenerationResponse
	err := c.sendJSON(ctx, http.MethodPost, "/generate-blog-content", r, &out)
	return out, err
}

// SiteSettings fetches the settings bag used by the page shell.
func (c *Client) SiteSettings(ctx context.Context) (settings.Settings, error) {
	var s settings.Settings
	err := c.getJSON(ctx, "/site-settings", &s)
	return s, err
}

// UpdateSiteSettings replaces the settings bag.
func (c *Client) UpdateSiteSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	var out settings.Settings
	err := c.sendJSON(ctx, http.MethodPut, "/site-settings", s, &out)
	return out, err
}

// SitemapData lists the published pages and posts.
func (c *Client) SitemapData(ctx context.Context) (sitemap.Data, error) {
	var d sitemap.Data
	err := c.getJSON(ctx, "/sitemap-data", &d)
	return d, err
}

// MediaLibrary lists the media library.
func (c *Client) MediaLibrary(ctx context.Context) ([]MediaFile, error) {
	var files []MediaFile
	if err := c.getJSON(ctx, "/media", &files); err != nil {
		return nil, err
	}
	return files, nil
}

var (
	_ editor.Saver        = (*Client)(nil)
	_ editor.MediaService = (*Client)(nil)
	_ editor.Generator    = (*Client)(nil)
	_ settings.Source     = (*Client)(nil)
	_ sitemap.Source      = (*Client)(nil)
)
