package reputation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/brightpath/safescan/pkg/json"
)

// API is the reputation service boundary: hash lookup, upload, analysis
// polling, and report fetch. It is an interface so the client can be tested
// against a fake service.
type API interface {
	LookupHash(ctx context.Context, sha256 string) (LookupResult, error)
	UploadFile(ctx context.Context, data []byte, fileName string) (UploadResult, error)
	PollAnalysis(ctx context.Context, analysisID string) (PollResult, error)
	FetchReport(ctx context.Context, sha256 string) (*Report, error)
}

// HTTPAPI talks to the reputation service over HTTP. Authentication is a
// single opaque credential sent with every request.
type HTTPAPI struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

// NewHTTPAPI creates an HTTP-backed reputation API.
func NewHTTPAPI(baseURL, apiKey string, log *zap.Logger) *HTTPAPI {
	return &HTTPAPI{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With(zap.String("module", "reputation_api")),
	}
}

// fileReportEnvelope mirrors the service's report payload.
type fileReportEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			LastAnalysisResults map[string]struct {
				Category string `json:"category"`
				Result   string `json:"result"`
			} `json:"last_analysis_results"`
		} `json:"attributes"`
	} `json:"data"`
}

// analysisEnvelope mirrors the service's analysis status payload.
type analysisEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status string `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

// uploadEnvelope mirrors the service's upload acknowledgment.
type uploadEnvelope struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (a *HTTPAPI) LookupHash(ctx context.Context, sha256 string) (LookupResult, error) {
	body, status, err := a.get(ctx, a.baseURL+"/files/"+sha256)
	if err != nil {
		return LookupResult{}, err
	}
	if status == http.StatusNotFound {
		return LookupResult{Found: false}, nil
	}
	if status != http.StatusOK {
		return LookupResult{}, fmt.Errorf("lookup returned status %d", status)
	}
	report, err := parseReport(body, sha256)
	if err != nil {
		return LookupResult{}, err
	}
	return LookupResult{Found: true, Report: report}, nil
}

func (a *HTTPAPI) UploadFile(ctx context.Context, data []byte, fileName string) (UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return UploadResult{}, fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/files", &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("x-apikey", a.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return UploadResult{}, fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	var env uploadEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	if env.Data.ID == "" {
		return UploadResult{}, fmt.Errorf("upload response missing analysis id")
	}
	return UploadResult{AnalysisID: env.Data.ID}, nil
}

func (a *HTTPAPI) PollAnalysis(ctx context.Context, analysisID string) (PollResult, error) {
	body, status, err := a.get(ctx, a.baseURL+"/analyses/"+analysisID)
	if err != nil {
		return PollResult{}, err
	}
	if status != http.StatusOK {
		return PollResult{}, fmt.Errorf("analysis query returned status %d", status)
	}
	var env analysisEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PollResult{}, fmt.Errorf("decode analysis response: %w", err)
	}
	switch env.Data.Attributes.Status {
	case "completed":
		return PollResult{Status: PollCompleted}, nil
	case "queued", "in-progress":
		return PollResult{Status: PollPending, Detail: env.Data.Attributes.Status}, nil
	default:
		return PollResult{Status: PollFailed, Detail: env.Data.Attributes.Status}, nil
	}
}

func (a *HTTPAPI) FetchReport(ctx context.Context, sha256 string) (*Report, error) {
	body, status, err := a.get(ctx, a.baseURL+"/files/"+sha256)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("report fetch returned status %d", status)
	}
	return parseReport(body, sha256)
}

// get performs a GET with the credential header, retrying transient failures
// with exponential backoff. 4xx responses other than 404 are permanent.
func (a *HTTPAPI) get(ctx context.Context, url string) ([]byte, int, error) {
	var body []byte
	var status int

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("x-apikey", a.apiKey)

		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		status = resp.StatusCode
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("server error %d", status)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, 0, err
	}
	return body, status, nil
}

func parseReport(body []byte, sha256 string) (*Report, error) {
	var env fileReportEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	report := &Report{SHA256: sha256}
	for engine, res := range env.Data.Attributes.LastAnalysisResults {
		report.Engines = append(report.Engines, EngineResult{
			Engine:   engine,
			Category: EngineCategory(res.Category),
			Threat:   res.Result,
		})
	}
	return report, nil
}
