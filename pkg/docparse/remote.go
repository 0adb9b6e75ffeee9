package docparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/httpclient"
)

// RemoteParser sends documents to an external parsing service that handles
// scanned PDFs and complex layouts. The service bills per page; the parse
// Result carries the computed cost so the pipeline can account for it.
//
// Protocol: POST /v1/parse uploads the file and returns a job id; the job is
// polled via GET /v1/parse/{id} until it completes with markdown output.
type RemoteParser struct {
	baseURL      string
	apiKey       string
	pricePerPage float64
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *httpclient.Client
}

type remoteSubmitResponse struct {
	JobID string `json:"job_id"`
}

type remoteJobResponse struct {
	Status   string `json:"status"`
	Markdown string `json:"markdown,omitempty"`
	Pages    int    `json:"pages,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewRemoteParser creates a remote parser client from configuration.
func NewRemoteParser(cfg config.ParserConfig) (*RemoteParser, error) {
	if cfg.RemoteURL == "" {
		return nil, fmt.Errorf("remote parser requires a service URL")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &RemoteParser{
		baseURL:      strings.TrimSuffix(cfg.RemoteURL, "/"),
		apiKey:       cfg.APIKey,
		pricePerPage: cfg.PricePerPageUSD,
		pollInterval: pollInterval,
		timeout:      timeout,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 2 * time.Minute}),
		),
	}, nil
}

// Parse uploads the document and polls until the service returns markdown.
// The whole operation is bounded by the configured timeout.
func (p *RemoteParser) Parse(ctx context.Context, path string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	jobID, err := p.submit(ctx, path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Submitted document to remote parser",
		"file", filepath.Base(path),
		"job_id", jobID)

	for {
		job, err := p.jobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case "completed":
			cost := float64(job.Pages) * p.pricePerPage
			return &Result{
				Markdown: job.Markdown,
				Pages:    job.Pages,
				CostUSD:  cost,
				Metadata: map[string]string{
					"type":  "Remote Parse",
					"title": filepath.Base(path),
					"pages": fmt.Sprintf("%d", job.Pages),
				},
			}, nil
		case "failed":
			return nil, fmt.Errorf("remote parse failed: %s", job.Error)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("remote parse did not finish in time: %w", ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}
}

// CanParse reports whether the remote service handles this file type.
func (p *RemoteParser) CanParse(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".xlsx", ".md", ".txt":
		return true
	}
	return false
}

// Name returns the parser name.
func (p *RemoteParser) Name() string {
	return "remote"
}

// submit uploads the file and returns the service's job id.
func (p *RemoteParser) submit(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/parse", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return "", p.serviceError(resp)
		}
		return "", fmt.Errorf("failed to reach parser service: %w", err)
	}
	defer resp.Body.Close()

	var submit remoteSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submit); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	if submit.JobID == "" {
		return "", fmt.Errorf("parser service returned no job id")
	}

	return submit.JobID, nil
}

// jobStatus fetches the current state of a parse job.
func (p *RemoteParser) jobStatus(ctx context.Context, jobID string) (*remoteJobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/parse/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, p.serviceError(resp)
		}
		return nil, fmt.Errorf("failed to reach parser service: %w", err)
	}
	defer resp.Body.Close()

	var job remoteJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}

	return &job, nil
}

// serviceError turns a non-2xx response into an error carrying the body.
func (p *RemoteParser) serviceError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("parser service returned HTTP %d: %s", resp.StatusCode, msg)
}

var _ DocumentParser = (*RemoteParser)(nil)
