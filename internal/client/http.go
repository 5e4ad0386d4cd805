package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/eventboard/internal/events"
	"github.com/alfredjeanlab/eventboard/internal/model"
)

// HTTPClient implements EventsClient using the eventboard HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:3000").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func eventPath(id string) string {
	return "/v1/events/" + url.PathEscape(id)
}

func (c *HTTPClient) ListEvents(ctx context.Context) ([]*model.EventView, error) {
	var list []*model.EventView
	if err := c.doJSON(ctx, http.MethodGet, "/v1/events", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) GetEvent(ctx context.Context, id string) (*model.EventView, error) {
	var v model.EventView
	if err := c.doJSON(ctx, http.MethodGet, eventPath(id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) CreateEvent(ctx context.Context, in model.NewEventInput) (*model.EventView, error) {
	var v model.EventView
	if err := c.doJSON(ctx, http.MethodPost, "/v1/events", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *HTTPClient) UpdateEvent(ctx context.Context, id string, u model.EventUpdate) (*model.EventView, error) {
	var resp struct {
		Message string           `json:"message"`
		Event   *model.EventView `json:"event"`
	}
	if err := c.doJSON(ctx, http.MethodPatch, eventPath(id), u, &resp); err != nil {
		return nil, err
	}
	return resp.Event, nil
}

func (c *HTTPClient) DeleteEvent(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, eventPath(id), nil, nil)
}

// Subscribers returns the server's live subscriber roster.
func (c *HTTPClient) Subscribers(ctx context.Context) ([]events.SubscriberInfo, error) {
	var list []events.SubscriberInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/subscribers", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Watch opens the Server-Sent Events stream.
func (c *HTTPClient) Watch(ctx context.Context, opts WatchOptions) (Stream, error) {
	q := url.Values{}
	if len(opts.Topics) > 0 {
		q.Set("topics", strings.Join(opts.Topics, ","))
	}
	if opts.Snapshot {
		q.Set("snapshot", "true")
	}
	path := "/v1/stream"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("performing request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	return &sseStream{body: resp.Body, r: bufio.NewReader(resp.Body), cancel: cancel}, nil
}

// sseStream decodes text/event-stream frames into messages.
type sseStream struct {
	body   io.ReadCloser
	r      *bufio.Reader
	cancel context.CancelFunc
}

func (s *sseStream) Recv() (*events.Message, error) {
	var (
		msg  events.Message
		data []string
	)
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil, io.EOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if msg.Topic == "" && len(data) == 0 {
				continue
			}
			msg.Data = json.RawMessage(strings.Join(data, "\n"))
			return &msg, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			msg.Seq, _ = strconv.ParseUint(value, 10, 64)
		case "event":
			msg.Topic = value
		case "data":
			data = append(data, value)
		}
	}
}

func (s *sseStream) Close() error {
	s.cancel()
	return s.body.Close()
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Details    []model.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func decodeAPIError(code int, body []byte) error {
	var errResp struct {
		Error   string             `json:"error"`
		Details []model.FieldError `json:"details"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: code, Message: errResp.Error, Details: errResp.Details}
	}
	return &APIError{StatusCode: code, Message: strings.TrimSpace(string(body))}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
