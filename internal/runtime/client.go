package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/skybi/cost-estimator/internal/identity"
)

// StatusError is returned when the runtime responds with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("runtime responded with status %d: %s", err.StatusCode, err.Body)
}

// Client invokes an agent runtime endpoint
type Client struct {
	url    string
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewClient creates a new runtime client posting to url.
// A nil httpClient means http.DefaultClient; no timeout is applied locally.
func NewClient(url string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		url:    url,
		client: httpClient,
		logger: logger,
		now:    time.Now,
	}
}

type invocation struct {
	Prompt string `json:"prompt"`
}

func (client *Client) newRequest(ctx context.Context, accessToken, prompt string) (*http.Request, error) {
	body, err := json.Marshal(invocation{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating runtime request: %w", err)
	}

	sessionID := NewSessionID(client.now())
	request.Header.Set("Authorization", "Bearer "+accessToken)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(SessionHeader, sessionID)
	request.Header.Set(TraceHeader, sessionID)
	return request, nil
}

// Invoke posts prompt to the runtime once, authenticated by accessToken, and returns the raw response body
func (client *Client) Invoke(ctx context.Context, accessToken, prompt string) (string, error) {
	if accessToken != "" {
		client.logger.Info().Msg("using access token from identity broker")
		identity.LogTokenDetails(client.logger, accessToken)
	}

	request, err := client.newRequest(ctx, accessToken, prompt)
	if err != nil {
		return "", err
	}
	response, err := client.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("invoking runtime: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("reading runtime response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &StatusError{StatusCode: response.StatusCode, Body: string(body)}
	}
	return string(body), nil
}

// InvokeStream posts prompt to the runtime and emits the data payloads of its event stream in order.
// A plain response body is emitted as a single element.
func (client *Client) InvokeStream(ctx context.Context, accessToken, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		request, err := client.newRequest(ctx, accessToken, prompt)
		if err != nil {
			yield("", err)
			return
		}
		request.Header.Set("Accept", "text/event-stream")

		response, err := client.client.Do(request)
		if err != nil {
			yield("", fmt.Errorf("invoking runtime: %w", err))
			return
		}
		defer response.Body.Close()

		if response.StatusCode < 200 || response.StatusCode >= 300 {
			body, _ := io.ReadAll(response.Body)
			yield("", &StatusError{StatusCode: response.StatusCode, Body: string(body)})
			return
		}

		if !strings.Contains(response.Header.Get("Content-Type"), "text/event-stream") {
			body, err := io.ReadAll(response.Body)
			if err != nil {
				yield("", fmt.Errorf("reading runtime response: %w", err))
				return
			}
			yield(string(body), nil)
			return
		}

		scanner := NewEventScanner(response.Body)
		for {
			data, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(data, nil) {
				return
			}
		}
	}
}

// Ping checks whether the runtime host at baseURL reports itself healthy
func (client *Client) Ping(ctx context.Context, baseURL string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/ping", nil)
	if err != nil {
		return err
	}
	response, err := client.client.Do(request)
	if err != nil {
		return fmt.Errorf("pinging runtime: %w", err)
	}
	defer response.Body.Close()

	body, _ := io.ReadAll(response.Body)
	if response.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: response.StatusCode, Body: string(body)}
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("decoding ping response: %w", err)
	}
	if status.Status != "Healthy" {
		return fmt.Errorf("runtime reported status '%s'", status.Status)
	}
	return nil
}
