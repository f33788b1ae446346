package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recap/internal/proxy"
	"recap/internal/services"
)

// SpeechToText turns a remotely accessible audio URL into transcript text.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Task states reported by the recognition service.
const (
	taskSucceeded = "SUCCEEDED"
	taskFailed    = "FAILED"
)

// RemoteJobError is a recognition job that reached a terminal failure state.
// Code and Message come from the service verbatim.
type RemoteJobError struct {
	Code    string
	Message string
}

func (e *RemoteJobError) Error() string {
	if e.Code == "" && e.Message == "" {
		return "recognition job failed"
	}
	return fmt.Sprintf("recognition job failed: %s: %s", e.Code, e.Message)
}

func (e *RemoteJobError) Unwrap() error { return services.ErrRemoteJob }

// DashScopeClient drives the asynchronous file-transcription API: submit a
// job, poll until terminal, fetch the result document.
type DashScopeClient struct {
	baseURL       string
	apiKey        string
	model         string
	languageHints []string
	pollInterval  time.Duration
	waitTimeout   time.Duration
	httpClient    *http.Client
}

// DashScopeOption configures a DashScopeClient.
type DashScopeOption func(*DashScopeClient)

// WithASRModel selects the recognition model.
func WithASRModel(model string) DashScopeOption {
	return func(c *DashScopeClient) { c.model = model }
}

// WithLanguageHints biases recognition toward the given languages.
func WithLanguageHints(hints []string) DashScopeOption {
	return func(c *DashScopeClient) { c.languageHints = hints }
}

// WithPolling sets the poll interval and the overall wait cap.
func WithPolling(interval, timeout time.Duration) DashScopeOption {
	return func(c *DashScopeClient) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if timeout > 0 {
			c.waitTimeout = timeout
		}
	}
}

// WithASRHTTPClient overrides the HTTP client (for testing).
func WithASRHTTPClient(client *http.Client) DashScopeOption {
	return func(c *DashScopeClient) { c.httpClient = client }
}

// NewDashScopeClient builds a client for the given API base URL and key.
func NewDashScopeClient(baseURL, apiKey string, opts ...DashScopeOption) *DashScopeClient {
	c := &DashScopeClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		model:        "paraformer-v2",
		pollInterval: 10 * time.Second,
		waitTimeout:  30 * time.Minute,
		httpClient:   &http.Client{Timeout: 2 * time.Minute, Transport: proxy.DirectTransport()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	Model      string           `json:"model"`
	Input      submitInput      `json:"input"`
	Parameters submitParameters `json:"parameters"`
}

type submitInput struct {
	FileURLs []string `json:"file_urls"`
}

type submitParameters struct {
	LanguageHints []string `json:"language_hints,omitempty"`
}

type taskResponse struct {
	RequestID string     `json:"request_id"`
	Output    taskOutput `json:"output"`
}

type taskOutput struct {
	TaskID     string       `json:"task_id"`
	TaskStatus string       `json:"task_status"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Results    []taskResult `json:"results"`
}

type taskResult struct {
	TranscriptionURL string `json:"transcription_url"`
	SubtaskStatus    string `json:"subtask_status"`
	Code             string `json:"code"`
	Message          string `json:"message"`
}

type transcriptionDoc struct {
	Transcripts []struct {
		Text string `json:"text"`
	} `json:"transcripts"`
}

// Transcribe submits audioURL for recognition and blocks until the job
// reaches a terminal state or the wait cap expires.
func (c *DashScopeClient) Transcribe(ctx context.Context, audioURL string) (string, error) {
	taskID, err := c.submit(ctx, audioURL)
	if err != nil {
		return "", err
	}

	output, err := c.waitForTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	if len(output.Results) == 0 || output.Results[0].TranscriptionURL == "" {
		return "", services.Wrap(services.ErrRemoteJob, "transcribe", "result", "job succeeded without a transcription URL", nil)
	}
	return c.fetchTranscript(ctx, output.Results[0].TranscriptionURL)
}

func (c *DashScopeClient) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(submitRequest{
		Model:      c.model,
		Input:      submitInput{FileURLs: []string{audioURL}},
		Parameters: submitParameters{LanguageHints: c.languageHints},
	})
	if err != nil {
		return "", fmt.Errorf("encode recognition request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/services/audio/asr/transcription", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build recognition request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-DashScope-Async", "enable")

	var parsed taskResponse
	if err := c.do(req, &parsed); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcribe", "submit", "", err)
	}
	if parsed.Output.TaskID == "" {
		return "", services.Wrap(services.ErrRemoteJob, "transcribe", "submit", "response carried no task ID", nil)
	}
	return parsed.Output.TaskID, nil
}

// waitForTask polls until SUCCEEDED or FAILED. Intermediate states
// (PENDING, RUNNING) keep the loop alive.
func (c *DashScopeClient) waitForTask(ctx context.Context, taskID string) (*taskOutput, error) {
	deadline := time.NewTimer(c.waitTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		output, err := c.queryTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		switch output.TaskStatus {
		case taskSucceeded:
			return output, nil
		case taskFailed:
			code, message := failureDetail(output)
			return nil, &RemoteJobError{Code: code, Message: message}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, services.Wrap(services.ErrTransient, "transcribe", "poll",
				fmt.Sprintf("job %s still %s after %s", taskID, output.TaskStatus, c.waitTimeout), nil)
		case <-ticker.C:
		}
	}
}

func (c *DashScopeClient) queryTask(ctx context.Context, taskID string) (*taskOutput, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var parsed taskResponse
	if err := c.do(req, &parsed); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "poll", "", err)
	}
	return &parsed.Output, nil
}

// fetchTranscript downloads the result document and extracts the text.
func (c *DashScopeClient) fetchTranscript(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build result request: %w", err)
	}

	var doc transcriptionDoc
	if err := c.do(req, &doc); err != nil {
		return "", services.Wrap(services.ErrTransient, "transcribe", "fetch result", "", err)
	}
	if len(doc.Transcripts) == 0 {
		return "", services.Wrap(services.ErrRemoteJob, "transcribe", "fetch result", "result document carried no transcripts", nil)
	}
	text := strings.TrimSpace(doc.Transcripts[0].Text)
	if text == "" {
		return "", services.Wrap(services.ErrEmptyContent, "transcribe", "fetch result", "transcript text is empty", nil)
	}
	return text, nil
}

func (c *DashScopeClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// failureDetail prefers the per-file failure report over the task-level one.
func failureDetail(output *taskOutput) (string, string) {
	if len(output.Results) > 0 && (output.Results[0].Code != "" || output.Results[0].Message != "") {
		return output.Results[0].Code, output.Results[0].Message
	}
	return output.Code, output.Message
}
