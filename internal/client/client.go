// Package client talks to the engagement API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 30 * time.Second

type Config struct {
	BaseURL string // e.g. http://localhost:5000/api
	Timeout time.Duration
}

type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000/api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// NewFromConfig builds a client from the shared configuration.
func NewFromConfig(cfg common.ClientConfig, logger *slog.Logger) *Client {
	return New(Config{BaseURL: cfg.APIURL, Timeout: cfg.Timeout}, logger)
}

// File is one local file to upload.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

func (f File) mediaType() string {
	if mt := constants.NormalizeMediaType(f.MediaType); mt != "" {
		return mt
	}
	if mt := constants.MediaTypeForExt(filepath.Ext(f.Name)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// do sends the request and decodes the {success, data} envelope into out.
// Error bodies come back as *common.AppError classified by status.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	raw, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	data := env.Data
	if len(data) == 0 {
		data = raw
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("client.http.send_error", "req_id", reqID, "method", method, "path", path, "error", err)
		if isDeadline(err) {
			return nil, common.NewTimeoutError(common.CodeAnalysisTimeout, "The server did not answer in time", err)
		}
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("client.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("client.http.response", "req_id", reqID, "method", method, "path", path,
		"status", resp.StatusCode, "bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return nil, decodeError(resp.StatusCode, raw)
	}
	return raw, nil
}

func isDeadline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func decodeError(status int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	kind := common.ErrEngine
	code := eb.Code
	switch {
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		kind = common.ErrValidation
		if code == "" {
			code = common.CodeInvalidRequest
		}
	case status == http.StatusNotFound:
		kind = common.ErrNotFound
		if code == "" {
			code = common.CodeNotFound
		}
	case status == http.StatusConflict:
		kind = common.ErrConflict
	case status == http.StatusGatewayTimeout:
		kind = common.ErrTimeout
		if code == "" {
			code = common.CodeAnalysisTimeout
		}
	}
	if code == "" {
		code = common.CodeEngineFailure
	}
	return common.NewAppError(code, msg, kind, fmt.Errorf("http status %d", status))
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	bs, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(bs), "application/json", out)
}

func (c *Client) postFiles(ctx context.Context, path, field string, files []File, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(f.Name)))
		h.Set("Content-Type", f.mediaType())
		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("write part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), out)
}

// download streams a binary body into w.
func (c *Client) download(ctx context.Context, path string, w io.Writer) (int64, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Request-ID", reqID)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		return 0, decodeError(resp.StatusCode, raw)
	}
	return io.Copy(w, resp.Body)
}
