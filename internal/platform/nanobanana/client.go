package nanobanana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// Defaults for the vendor API.
const (
	DefaultBaseURL      = "https://api.kie.ai"
	DefaultAPIVersion   = "v1"
	DefaultModel        = "nano-banana-pro"
	DefaultAspectRatio  = "3:4"
	DefaultResolution   = "2K"
	DefaultOutputFormat = "png"
	DefaultTimeout      = 30 * time.Second
)

// codeOK is the envelope code of a successful call.
const codeOK = 200

const maxReplyBytes = 4 << 20

// Config configures a Client. Zero fields take the package defaults.
type Config struct {
	BaseURL    string
	APIVersion string
	APIKey     string
	Model      string
	// CallbackURL is sent with every task unless CreateOptions overrides it.
	CallbackURL string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// CreateOptions are the per-task generation parameters.
type CreateOptions struct {
	AspectRatio  string
	Resolution   string
	OutputFormat string
	CallbackURL  string
	ImageInput   []string
}

// Client talks to the job endpoints. It is safe for concurrent use.
type Client struct {
	baseURL     string
	apiVersion  string
	apiKey      string
	model       string
	callbackURL string
	http        *http.Client
	logger      *slog.Logger
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     strings.TrimSuffix(withDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		apiVersion:  withDefault(cfg.APIVersion, DefaultAPIVersion),
		apiKey:      cfg.APIKey,
		model:       withDefault(cfg.Model, DefaultModel),
		callbackURL: cfg.CallbackURL,
		http:        httpClient,
		logger:      log.With("component", "nanobanana_client"),
	}
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type createInput struct {
	Prompt       string   `json:"prompt"`
	ImageInput   []string `json:"image_input"`
	AspectRatio  string   `json:"aspect_ratio"`
	Resolution   string   `json:"resolution"`
	OutputFormat string   `json:"output_format"`
}

type createRequest struct {
	Model       string      `json:"model"`
	Input       createInput `json:"input"`
	CallBackURL string      `json:"callBackUrl,omitempty"`
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// CreateTask submits a generation job and returns its task id.
func (c *Client) CreateTask(ctx context.Context, prompt string, opts CreateOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", domain.NewError(domain.KindAPI, "prompt must not be empty")
	}

	imageInput := opts.ImageInput
	if imageInput == nil {
		imageInput = []string{}
	}
	body := createRequest{
		Model: c.model,
		Input: createInput{
			Prompt:       prompt,
			ImageInput:   imageInput,
			AspectRatio:  withDefault(opts.AspectRatio, DefaultAspectRatio),
			Resolution:   withDefault(opts.Resolution, DefaultResolution),
			OutputFormat: withDefault(opts.OutputFormat, DefaultOutputFormat),
		},
		CallBackURL: withDefault(opts.CallbackURL, c.callbackURL),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode task: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, c.endpoint("createTask"), payload)
	if err != nil {
		return "", err
	}

	var created struct {
		TaskID string `json:"taskId"`
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &created)
	}
	if created.TaskID == "" {
		return "", domain.NewError(domain.KindParse, "createTask reply has no taskId")
	}

	c.logger.InfoContext(ctx, "image task created",
		"task_id", created.TaskID,
		"aspect_ratio", body.Input.AspectRatio,
		"resolution", body.Input.Resolution)
	return created.TaskID, nil
}

// record is the data member of a recordInfo reply.
type record struct {
	TaskID       string     `json:"taskId"`
	Model        string     `json:"model"`
	State        string     `json:"state"`
	Param        string     `json:"param"`
	ResultJSON   string     `json:"resultJson"`
	FailCode     flexString `json:"failCode"`
	FailMsg      string     `json:"failMsg"`
	CostTime     int64      `json:"costTime"`
	CompleteTime int64      `json:"completeTime"`
	CreateTime   int64      `json:"createTime"`
}

// QueryTask reads the current state of a job.
func (c *Client) QueryTask(ctx context.Context, taskID string) (*domain.TaskStatus, error) {
	if taskID == "" {
		return nil, domain.NewError(domain.KindAPI, "task id must not be empty")
	}

	endpoint := c.endpoint("recordInfo") + "?" + url.Values{"taskId": {taskID}}.Encode()
	data, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, domain.Errorf(domain.KindParse, "invalid recordInfo data: %w", err)
	}

	status := &domain.TaskStatus{
		TaskID:       withDefault(rec.TaskID, taskID),
		Model:        rec.Model,
		State:        domain.TaskState(rec.State),
		FailCode:     string(rec.FailCode),
		FailMsg:      rec.FailMsg,
		CostTime:     rec.CostTime,
		CompleteTime: rec.CompleteTime,
		CreateTime:   rec.CreateTime,
	}

	if rec.ResultJSON != "" {
		result, err := decodeResultJSON(rec.ResultJSON)
		if err != nil {
			c.logger.WarnContext(ctx, "ignoring undecodable resultJson", "task_id", taskID, "error", err)
		} else {
			status.Result = result
		}
	}
	if rec.Param != "" {
		var params map[string]any
		if err := json.Unmarshal([]byte(rec.Param), &params); err == nil {
			status.Params = params
		}
	}
	return status, nil
}

// decodeResultJSON decodes the resultJson string embedded in a record.
func decodeResultJSON(raw string) (*domain.TaskResult, error) {
	var result struct {
		ResultURLs []string `json:"resultUrls"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decode resultJson: %w", err)
	}
	urls := result.ResultURLs
	if urls == nil {
		urls = []string{}
	}
	return &domain.TaskResult{URLs: urls}, nil
}

func (c *Client) endpoint(op string) string {
	return fmt.Sprintf("%s/api/%s/jobs/%s", c.baseURL, c.apiVersion, op)
}

// do sends one request and returns the envelope data of a successful reply.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, domain.NewError(domain.KindAuth, "image API key is not configured")
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, domain.Errorf(domain.KindNetwork, "invalid endpoint %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Errorf(domain.KindNetwork, "image API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, domain.Errorf(domain.KindNetwork, "failed to read image API reply: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		kind := domain.KindAPI
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			kind = domain.KindAuth
		case http.StatusPaymentRequired:
			kind = domain.KindPayment
		}
		return nil, domain.HTTPError(kind, resp.StatusCode, msg)
	}

	if decodeErr != nil {
		return nil, domain.Errorf(domain.KindParse, "invalid image API reply: %w", decodeErr)
	}
	if env.Code != codeOK {
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("API error code %d", env.Code)
		}
		return nil, domain.HTTPError(domain.KindAPI, resp.StatusCode, msg)
	}
	return env.Data, nil
}

// flexString decodes a JSON string, number or null into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
