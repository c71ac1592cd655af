package syno

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// apiPath is the unified entry point all DownloadStation2 calls go
// through, login included.
const apiPath = "/webapi/entry.cgi"

// transport issues HTTP POST requests against the configured endpoint
// and returns raw response bodies. It knows nothing about sessions or
// envelopes; every failure it reports is a *TransportError.
type transport struct {
	httpClient *http.Client
	endpoint   string
}

func newTransport(baseURL string, httpClient *http.Client) *transport {
	return &transport{
		httpClient: httpClient,
		endpoint:   baseURL + apiPath,
	}
}

// send posts the form (and optional file part) and returns the response
// body. A non-2xx status is a transport failure: the envelope contract
// only holds for successful HTTP exchanges.
func (t *transport) send(ctx context.Context, form url.Values, upload *Upload) ([]byte, error) {
	var req *http.Request
	var err error
	if upload != nil {
		req, err = t.multipartRequest(ctx, form, upload)
	} else {
		req, err = t.formRequest(ctx, form)
	}
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Err: fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading response body: %w", err)}
	}
	return body, nil
}

func (t *transport) formRequest(ctx context.Context, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (t *transport) multipartRequest(ctx context.Context, form url.Values, upload *Upload) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, values := range form {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				return nil, err
			}
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, upload.Field, upload.Filename))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(upload.Content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
