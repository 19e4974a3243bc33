package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"docsync/internal/store"
)

// newRequest builds an authenticated request.
func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.opts.User != "" {
		req.SetBasicAuth(c.opts.User, c.opts.Password)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, target string, query url.Values, out any) error {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// postForm performs an urlencoded cmisaction POST. out may be nil when the
// response body is irrelevant.
func (c *Client) postForm(ctx context.Context, target string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// postMultipart performs a cmisaction POST carrying a content part.
func (c *Client) postMultipart(ctx context.Context, target string, fields url.Values, filename string, content io.Reader, contentType string, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeMultipart(mw, fields, filename, content, contentType)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, target, pr, mw.FormDataContentType())
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func writeMultipart(mw *multipart.Writer, fields url.Values, filename string, content io.Reader, contentType string) error {
	for key, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				return err
			}
		}
	}
	if content == nil {
		return nil
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if filename == "" {
		filename = "content"
	}
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="content"; filename=%q`, filename)}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}

// do executes the request, maps error payloads, and decodes JSON into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("browser: decode response: %w", err)
	}
	return nil
}

// decodeError maps the binding's error payload onto the store sentinel errors.
func decodeError(resp *http.Response) error {
	var payload struct {
		Exception string `json:"exception"`
		Message   string `json:"message"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, &payload)

	switch payload.Exception {
	case "objectNotFound", "notFound":
		return fmt.Errorf("%w: %s", store.ErrNotFound, payload.Message)
	case "updateConflict", "versioning":
		return fmt.Errorf("%w: %s", store.ErrConflict, payload.Message)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", store.ErrNotFound, payload.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", store.ErrConflict, payload.Message)
	}
	if payload.Message != "" {
		return fmt.Errorf("browser: %s (%s): status %d", payload.Message, payload.Exception, resp.StatusCode)
	}
	return fmt.Errorf("browser: unexpected status %d", resp.StatusCode)
}
