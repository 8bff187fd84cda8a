// API service for the similarity-search backend
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"

	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultAPIPrefix = "/simsalabim/"
)

var _ Backend = (*APIService)(nil)

// APIService talks to the similarity-search backend over HTTP.
type APIService struct {
	baseURL    string
	apiPrefix  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// APIOpts configures an [APIService]. Zero values fall back to defaults.
type APIOpts struct {
	BaseURL           string
	APIPrefix         string
	Client            *http.Client
	RequestsPerSecond float64 // 0 disables rate limiting
}

// NewAPIService creates a new API service instance for the backend.
func NewAPIService(opts APIOpts) *APIService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = defaultAPIPrefix
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiPrefix:  "/" + strings.Trim(opts.APIPrefix, "/") + "/",
		httpClient: opts.Client,
	}
	if opts.RequestsPerSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return a
}

// NewAPIServiceFromConfig builds the service from the [shared.BackendConfig] section.
func NewAPIServiceFromConfig(cfg shared.BackendConfig) *APIService {
	return NewAPIService(APIOpts{
		BaseURL:           cfg.BaseURL,
		APIPrefix:         cfg.APIPrefix,
		Client:            &http.Client{Timeout: cfg.Timeout()},
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// endpointURL joins an API-relative path onto the base URL and prefix.
func (a *APIService) endpointURL(path string) string {
	return a.baseURL + a.apiPrefix + strings.TrimLeft(path, "/")
}

// AssetURL resolves a catalog reference (e.g. "datasets/audio/my song.mid") to its static URL.
func (a *APIService) AssetURL(ref string) string {
	segments := strings.Split(strings.TrimLeft(ref, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return a.baseURL + "/" + strings.Join(segments, "/")
}

func (a *APIService) do(req *http.Request) (*http.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrNetwork, err)
	}
	return resp, nil
}

// Get performs a GET request to the specified API path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpointURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// getJSON performs a GET and decodes a success body into v.
func (a *APIService) getJSON(ctx context.Context, path string, v any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := checkStatus(path, resp.StatusCode, resp.Body); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrParse, path, err)
	}
	return nil
}

// checkStatus converts a non-2xx status into a [shared.ResponseError], keeping the server's message.
func checkStatus(endpoint string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var errBody struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &errBody)

	msg := errBody.Message
	if msg == "" {
		msg = errBody.Error
	}
	return &shared.ResponseError{Endpoint: endpoint, StatusCode: status, Message: msg}
}

type mapperResponse struct {
	Data *struct {
		Songs []models.CatalogEntry `json:"songs"`
	} `json:"data"`
}

// FetchCatalog retrieves the catalog document from fetch-mapper/.
func (a *APIService) FetchCatalog(ctx context.Context) ([]models.CatalogEntry, error) {
	var body mapperResponse
	if err := a.getJSON(ctx, "fetch-mapper/", &body); err != nil {
		return nil, err
	}
	if body.Data == nil || body.Data.Songs == nil {
		return nil, fmt.Errorf("%w: fetch-mapper/: missing data.songs", shared.ErrParse)
	}
	return body.Data.Songs, nil
}

type resultResponse struct {
	BestCover  *string  `json:"best_cover"`
	BestSong   *string  `json:"best_song"`
	Similarity *float64 `json:"similarity_percentage"`
}

// FetchResult retrieves the latest outcome for flow. A missing similarity decodes as 0.
func (a *APIService) FetchResult(ctx context.Context, flow models.Flow) (*ResultPayload, error) {
	endpoint := flow.ResultEndpoint()

	var body resultResponse
	if err := a.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	ref := body.BestCover
	if flow == models.SoundFlow {
		ref = body.BestSong
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: %s: missing matched reference", shared.ErrParse, endpoint)
	}

	payload := &ResultPayload{MatchedRef: *ref}
	if body.Similarity != nil {
		payload.Similarity = *body.Similarity
	}
	return payload, nil
}

// Upload streams job's file as multipart form data (fields: file, folder) to the kind's endpoint.
func (a *APIService) Upload(ctx context.Context, job models.UploadJob) (*UploadResponse, error) {
	f, err := os.Open(job.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", job.Path, err)
	}
	defer f.Close()

	endpoint := job.Kind.Endpoint()
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	counter := &countingReader{r: f}

	go func() {
		pw.CloseWithError(writeForm(form, job, counter))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpointURL(endpoint), pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	defer pr.Close()
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := a.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}
	if err := checkStatus(endpoint, resp.StatusCode, body); err != nil {
		return nil, err
	}

	out := &UploadResponse{Bytes: counter.n.Load()}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrParse, endpoint, err)
	}
	return out, nil
}

func writeForm(form *multipart.Writer, job models.UploadJob, content io.Reader) error {
	part, err := form.CreateFormFile("file", job.Filename())
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	if err := form.WriteField("folder", job.Folder); err != nil {
		return err
	}
	return form.Close()
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// DownloadAsset copies the static asset at ref into w and returns the number of bytes written.
func (a *APIService) DownloadAsset(ctx context.Context, ref string, w io.Writer) (int64, error) {
	if strings.TrimSpace(ref) == "" {
		return 0, errors.New("empty asset reference")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.AssetURL(ref), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, checkStatus(ref, resp.StatusCode, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: failed to read asset: %v", shared.ErrNetwork, err)
	}
	return n, nil
}

// Ping checks the backend's connection test endpoint.
func (a *APIService) Ping(ctx context.Context) error {
	resp, err := a.Get(ctx, "test/")
	if err != nil {
		return err
	}
	return checkStatus("test/", resp.StatusCode, resp.Body)
}
