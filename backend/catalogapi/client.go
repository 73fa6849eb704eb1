package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin wrapper around the catalog REST API.
// All methods issue a single request attempt; nothing is retried.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) ListSongs(ctx context.Context) ([]*Song, error) {
	var songs []*Song
	if err := c.getJSON(ctx, "/api/songs", nil, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

func (c *Client) CreateSong(ctx context.Context, data SongFormData) (*Song, error) {
	body, contentType, err := encodeSongForm(data)
	if err != nil {
		return nil, err
	}
	var song Song
	if err := c.doJSON(ctx, http.MethodPost, "/api/songs", body, contentType, &song); err != nil {
		return nil, err
	}
	return &song, nil
}

func (c *Client) UpdateSong(ctx context.Context, id string, data SongFormData) (*Song, error) {
	body, contentType, err := encodeSongForm(data)
	if err != nil {
		return nil, err
	}
	var song Song
	if err := c.doJSON(ctx, http.MethodPut, "/api/songs/"+url.PathEscape(id), body, contentType, &song); err != nil {
		return nil, err
	}
	return &song, nil
}

// DeleteSong deletes the song and returns the id the server echoed back.
func (c *Client) DeleteSong(ctx context.Context, id string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/api/songs/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListLookups fetches lookups, optionally restricted to one category.
// Pass an empty category to fetch all of them.
func (c *Client) ListLookups(ctx context.Context, category LookupCategory) ([]*Lookup, error) {
	path := "/api/lookups"
	if category != "" {
		path += "?category=" + url.QueryEscape(string(category))
	}
	var lookups []*Lookup
	if err := c.getJSON(ctx, path, nil, &lookups); err != nil {
		return nil, err
	}
	return lookups, nil
}

func (c *Client) CreateLookup(ctx context.Context, category LookupCategory, value string) (*Lookup, error) {
	body, err := json.Marshal(map[string]string{"category": string(category), "value": value})
	if err != nil {
		return nil, err
	}
	var lookup Lookup
	if err := c.doJSON(ctx, http.MethodPost, "/api/lookups", bytes.NewReader(body), "application/json", &lookup); err != nil {
		return nil, err
	}
	return &lookup, nil
}

func (c *Client) UpdateLookup(ctx context.Context, id string, category LookupCategory, value string) (*Lookup, error) {
	body, err := json.Marshal(map[string]string{"category": string(category), "value": value})
	if err != nil {
		return nil, err
	}
	var lookup Lookup
	if err := c.doJSON(ctx, http.MethodPut, "/api/lookups/"+url.PathEscape(id), bytes.NewReader(body), "application/json", &lookup); err != nil {
		return nil, err
	}
	return &lookup, nil
}

// DeleteLookup deletes the lookup and returns the echoed id.
func (c *Client) DeleteLookup(ctx context.Context, id string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/api/lookups/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) Stats(ctx context.Context) (*LibraryStats, error) {
	var stats LibraryStats
	if err := c.getJSON(ctx, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) getJSON(ctx context.Context, path string, body io.Reader, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, body, "", out)
}

// doJSON performs the request and decodes a JSON response into out.
// Transport failures and non-2xx statuses both come back as a plain
// error; callers are not expected to distinguish them.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %s", method, path, errorMessage(resp))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorMessage extracts the server's error string if the body carries
// one, falling back to the HTTP status line.
func errorMessage(resp *http.Response) string {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && json.Unmarshal(data, &apiErr) == nil {
		if apiErr.Error != "" {
			return apiErr.Error
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return resp.Status
}

func encodeSongForm(data SongFormData) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":  data.Title,
		"artist": data.Artist,
		"genre":  data.Genre,
		"album":  data.Album,
	}
	for name, val := range fields {
		if err := w.WriteField(name, val); err != nil {
			return nil, "", err
		}
	}
	if data.ImageData != nil {
		fw, err := w.CreateFormFile("image", data.ImageFilename)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(data.ImageData); err != nil {
			return nil, "", err
		}
	}
	if data.AudioData != nil {
		fw, err := w.CreateFormFile("audio", data.AudioFilename)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(data.AudioData); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
