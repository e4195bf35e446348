// internal/export/http.go
package export

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

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// DefaultHTTPTimeout bounds every export request
const DefaultHTTPTimeout = 10 * time.Second

// HTTPService posts records to a remote export service
type HTTPService struct {
	baseURL string
	client  *http.Client
	logger  utils.Logger
}

// NewHTTPService creates a client for the service at baseURL
func NewHTTPService(baseURL string, timeout time.Duration, logger utils.Logger) (*HTTPService, error) {
	if !utils.IsValidURL(baseURL) {
		return nil, fmt.Errorf("invalid export base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithField("component", "export"),
	}, nil
}

type postBody struct {
	Items []map[string]interface{} `json:"items"`
}

// Post sends records as {"items": [...]} to path
func (s *HTTPService) Post(ctx context.Context, path string, records []map[string]interface{}) error {
	body, err := json.Marshal(postBody{Items: records})
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeExportFailed, "failed to encode records")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeExportFailed, "failed to build export request")
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := s.do(req); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{"path": path, "records": len(records)}).Debug("records exported")
	return nil
}

// UploadImage posts png as the multipart field "file" and returns the URL
// the service stored it under
func (s *HTTPService) UploadImage(ctx context.Context, name string, png []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", utils.WrapError(err, utils.ErrCodeExportFailed, "failed to build upload")
	}
	if _, err := part.Write(png); err != nil {
		return "", utils.WrapError(err, utils.ErrCodeExportFailed, "failed to build upload")
	}
	if err := form.Close(); err != nil {
		return "", utils.WrapError(err, utils.ErrCodeExportFailed, "failed to build upload")
	}

	endpoint := s.baseURL + "/upload/image/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", utils.WrapError(err, utils.ErrCodeExportFailed, "failed to build upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	data, err := s.do(req)
	if err != nil {
		return "", err
	}
	var resp struct {
		File string `json:"file"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || resp.File == "" {
		return "", utils.NewError(utils.ErrCodeExportFailed, "upload response carries no file").
			WithContext("name", name).
			Build()
	}
	if strings.HasPrefix(resp.File, "http://") || strings.HasPrefix(resp.File, "https://") {
		return resp.File, nil
	}
	return s.baseURL + resp.File, nil
}

func (s *HTTPService) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, utils.NewError(utils.ErrCodeExportFailed, "export request failed").
			WithCause(err).
			WithContext("url", req.URL.String()).
			WithRetryable(true).
			Build()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeExportFailed, "failed to read export response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, utils.NewError(utils.ErrCodeExportFailed, fmt.Sprintf("export service returned %d", resp.StatusCode)).
			WithContext("url", req.URL.String()).
			WithRetryable(resp.StatusCode >= 500).
			Build()
	}
	return data, nil
}
