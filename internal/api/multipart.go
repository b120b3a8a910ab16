package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// FileAttachment is a binary part of a multipart upload.
type FileAttachment struct {
	// Field is the form field name the server expects.
	Field string

	// Name is the filename reported to the server.
	Name string

	// ContentType is the MIME type of the content.
	ContentType string

	// Content is the raw file bytes.
	Content []byte
}

// PostMultipart performs an authenticated multipart/form-data POST with
// the given text fields and file attachments, and unmarshals the JSON
// response. Field order follows the fields slice so uploads are
// deterministic.
func (c *Client) PostMultipart(
	ctx context.Context,
	path string,
	fields [][2]string,
	files []FileAttachment,
	result any,
) error {
	return c.postMultipart(ctx, path, fields, files, result, true)
}

// PostMultipartPublic is PostMultipart without the bearer token, used
// by registration.
func (c *Client) PostMultipartPublic(
	ctx context.Context,
	path string,
	fields [][2]string,
	files []FileAttachment,
	result any,
) error {
	return c.postMultipart(ctx, path, fields, files, result, false)
}

func (c *Client) postMultipart(
	ctx context.Context,
	path string,
	fields [][2]string,
	files []FileAttachment,
	result any,
	authenticated bool,
) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("writing form field %q: %w", f[0], err)
		}
	}

	for _, f := range files {
		part, err := createFilePart(w, f)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Content); err != nil {
			return fmt.Errorf("writing file part %q: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", w.FormDataContentType())
	if authenticated {
		c.attachToken(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("api.upload.fail",
			slog.String("endpoint", path),
			slog.String("err", err.Error()))
		return fmt.Errorf("executing upload POST %s: %w", path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	c.log.Debug("api.upload.done",
		slog.String("endpoint", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("dur", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(respBody)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from POST %s: %w: %w",
			path, ErrMalformedResponse, err,
		)
	}

	return nil
}

// createFilePart opens a form part with an explicit content type, since
// multipart.Writer.CreateFormFile hardcodes application/octet-stream.
func createFilePart(w *multipart.Writer, f FileAttachment) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name=%q; filename=%q`, f.Field, f.Name,
	))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating file part %q: %w", f.Field, err)
	}
	return part, nil
}
