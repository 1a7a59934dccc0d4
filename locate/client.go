// Package locate implements the client for the external object-localization
// service: a multipart task-dispatch endpoint that takes a JPEG frame and
// returns bounding boxes per object label.
package locate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/tailored-agentic-units/percept/vision"
)

// DefaultTimeout bounds each localization request. Calls are never retried;
// a timeout surfaces as a normal turn failure.
const DefaultTimeout = 10 * time.Second

// ErrBadStatus is returned when the service responds with a non-2xx status.
var ErrBadStatus = errors.New("localization service returned non-success status")

// Client calls the object-localization service.
type Client struct {
	url    string
	apiKey string
	task   string
	httpc  *http.Client
}

// New creates a Client for the given endpoint. task names the localization
// model on the remote side; apiKey is sent as the Authorization header.
// A non-positive timeout falls back to DefaultTimeout.
func New(url, apiKey, task string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		task:   task,
		httpc:  &http.Client{Timeout: timeout},
	}
}

// Localize posts the frame to the service and decodes the result mapping.
// The response body is {"result": {label: [[x1,y1,x2,y2], ...]}}.
func (c *Client) Localize(ctx context.Context, frame vision.Frame) (map[string][][4]float64, error) {
	body, contentType, err := encodeRequest(c.task, frame)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("build localization request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("localization request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrBadStatus, resp.Status, payload)
	}

	var decoded struct {
		Result map[string][][]float64 `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode localization response: %w", err)
	}

	boxes := make(map[string][][4]float64, len(decoded.Result))
	for label, raw := range decoded.Result {
		for _, b := range raw {
			if len(b) != 4 {
				return nil, fmt.Errorf("malformed bounding box for %q: got %d coordinates", label, len(b))
			}
			boxes[label] = append(boxes[label], [4]float64{b[0], b[1], b[2], b[3]})
		}
	}
	return boxes, nil
}

func encodeRequest(task string, frame vision.Frame) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("name", task); err != nil {
		return nil, "", fmt.Errorf("encode task name: %w", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	header.Set("Content-Type", vision.MimeJPEG)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("encode frame part: %w", err)
	}
	if _, err := part.Write(frame.Data); err != nil {
		return nil, "", fmt.Errorf("write frame payload: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
