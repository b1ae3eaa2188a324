// Package gateway provides the HTTP client for the streaming gateway, the
// sidecar that speaks the proprietary streaming protocol and exposes audio
// item lookup, encrypted file streams and decryption keys.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/okabe3/trackbox/internal/domain/audio"
	"github.com/okabe3/trackbox/internal/domain/item"
)

// Client talks to a streaming gateway instance.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// Config represents gateway client configuration.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// New creates a gateway client.
func New(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: cfg.Timeout},
	}
}

// audioItemPayload is the gateway's audio item document.
type audioItemPayload struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	Name         string            `json:"name"`
	Restriction  string            `json:"restriction"`
	Files        map[string]string `json:"files"`
	Alternatives []string          `json:"alternatives"`
	Covers       []string          `json:"covers"`
	Artists      []string          `json:"artists"`
	Album        string            `json:"album"`
	Show         string            `json:"show"`
}

// AudioItem fetches the audio item descriptor for a track or episode.
func (c *Client) AudioItem(ctx context.Context, id item.ID) (*audio.Item, error) {
	var payload audioItemPayload
	if err := c.getJSON(ctx, "/v1/items/"+url.PathEscape(id.Value), &payload); err != nil {
		return nil, err
	}

	files := make(map[audio.Encoding]string, len(payload.Files))
	for name, fileID := range payload.Files {
		enc := audio.ParseEncoding(name)
		if enc == audio.EncodingUnknown {
			continue
		}
		files[enc] = fileID
	}

	// The gateway reports the item's kind; older gateways omit it.
	kind := item.KindFromToken(payload.Kind)
	if kind == item.KindUnknown {
		kind = id.Kind
	}

	alternatives := make([]item.ID, 0, len(payload.Alternatives))
	for _, alt := range payload.Alternatives {
		alternatives = append(alternatives, item.ID{Kind: kind, Value: alt})
	}

	return &audio.Item{
		ID:           item.ID{Kind: kind, Value: payload.ID},
		Name:         payload.Name,
		Restriction:  payload.Restriction,
		Files:        files,
		Alternatives: alternatives,
		CoverURLs:    payload.Covers,
		Artists:      payload.Artists,
		Album:        payload.Album,
		ShowName:     payload.Show,
	}, nil
}

// OpenFile opens the encrypted byte stream for a file handle.
// bytesPerSecond is forwarded as a buffering hint, not a cap.
func (c *Client) OpenFile(ctx context.Context, fileID string, bytesPerSecond int) (io.ReadCloser, error) {
	u := c.baseURL + "/v1/files/" + url.PathEscape(fileID) + "?rate=" + strconv.Itoa(bytesPerSecond)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build file request")
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file stream")
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp.Body, nil
}

// DecryptionKey fetches the decryption key for a (track, file) pair.
// A 403 or 429 response is the service's penalty signal and is reported as
// audio.ErrKeyDenied.
func (c *Client) DecryptionKey(ctx context.Context, id item.ID, fileID string) ([]byte, error) {
	u := c.baseURL + "/v1/keys/" + url.PathEscape(id.Value) + "/" + url.PathEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build key request")
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch key")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, errors.Wrapf(audio.ErrKeyDenied, "key request for %s refused (HTTP %d)", id.URI(), resp.StatusCode)
	default:
		return nil, statusError(resp)
	}

	key, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key body")
	}
	return key, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s failed", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return errors.Newf("gateway returned HTTP %d", resp.StatusCode)
	}
	return errors.Newf("gateway returned HTTP %d: %s", resp.StatusCode, detail)
}
