package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/pdfscan/pdfscan/internal/document"
)

// Status mirrors the status endpoint body.
type Status struct {
	ID               string                `json:"id"`
	Filename         string                `json:"filename"`
	ExtractionStatus document.Status       `json:"extractionStatus"`
	ExtractedText    string                `json:"extractedText,omitempty"`
	PatientData      *document.PatientData `json:"patientData,omitempty"`
	Error            string                `json:"error,omitempty"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

type UploadedDocument struct {
	ID               string          `json:"id"`
	Filename         string          `json:"filename"`
	OriginalName     string          `json:"originalName"`
	UploadDate       time.Time       `json:"uploadDate"`
	ExtractionStatus document.Status `json:"extractionStatus"`
}

// HTTPError is a non-2xx answer from the server.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// Client talks to the upload, extract and status endpoints.
type Client struct {
	base  string
	http  *http.Client
	token string
}

// NewClient targets baseURL (e.g. http://localhost:5001). token, when set,
// is sent as a bearer token.
func NewClient(baseURL string, hc *http.Client, token string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc, token: token}
}

func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadedDocument, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out struct {
		Document UploadedDocument `json:"document"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/upload", mw.FormDataContentType(), body, &out); err != nil {
		return nil, err
	}
	return &out.Document, nil
}

// StartExtraction asks the server to extract id and waits for its answer.
func (c *Client) StartExtraction(ctx context.Context, id string) error {
	b, err := json.Marshal(map[string]string{"documentId": id})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/extract", "application/json", bytes.NewReader(b), nil)
}

func (c *Client) Status(ctx context.Context, id string) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id)+"/status", "", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &HTTPError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
