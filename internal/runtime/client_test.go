package runtime_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/skybi/cost-estimator/internal/identity"
	"github.com/skybi/cost-estimator/internal/runtime"
)

var fixedTime = time.Date(2025, 7, 1, 9, 30, 15, 123456789, time.UTC)

func testToken() string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"client_id":"abc"}`))
	return header + "." + payload + ".signature"
}

func newClient(t *testing.T, url string, logs *bytes.Buffer) *runtime.Client {
	t.Helper()
	var writer io.Writer = io.Discard
	if logs != nil {
		writer = logs
	}
	client := runtime.NewClient(url, nil, zerolog.New(writer))
	runtime.SetClock(client, func() time.Time { return fixedTime })
	return client
}

// TestNewSessionID verifies the session id format.
func TestNewSessionID(t *testing.T) {
	local := fixedTime.In(time.FixedZone("JST", 9*60*60))
	expected := "runtime-with-identity-20250701T093015123456Z"
	if id := runtime.NewSessionID(local); id != expected {
		t.Errorf("expected %q, got %q", expected, id)
	}
}

// TestClient_Invoke verifies the headers and body of a runtime invocation.
func TestClient_Invoke(t *testing.T) {
	token := testToken()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		sessionID := "runtime-with-identity-20250701T093015123456Z"
		if r.Header.Get(runtime.SessionHeader) != sessionID || r.Header.Get(runtime.TraceHeader) != sessionID {
			t.Errorf("unexpected session headers %q, %q", r.Header.Get(runtime.SessionHeader), r.Header.Get(runtime.TraceHeader))
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if len(body) != 1 || body["prompt"] != "three lambdas" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`"raw estimate"`))
	}))
	defer server.Close()

	var logs bytes.Buffer
	result, err := newClient(t, server.URL, &logs).Invoke(context.Background(), token, "three lambdas")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != `"raw estimate"` {
		t.Errorf("expected the raw body, got %q", result)
	}
	if !strings.Contains(logs.String(), "client_id") {
		t.Errorf("expected token details to be logged, got %q", logs.String())
	}
}

// TestClient_Invoke_Non2xx verifies that error statuses are returned as StatusError.
func TestClient_Invoke_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	result, err := newClient(t, server.URL, nil).Invoke(context.Background(), "token", "x")
	var statusErr *runtime.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusForbidden || !strings.Contains(statusErr.Body, "denied") {
		t.Errorf("unexpected status error %+v", statusErr)
	}
	if result != "" {
		t.Errorf("expected no result, got %q", result)
	}
}

// TestClient_Invoke_TransportError verifies that transport failures are returned.
func TestClient_Invoke_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, err := newClient(t, url, nil).Invoke(context.Background(), "token", "x"); err == nil {
		t.Fatal("expected error")
	}
}

// TestClient_InvokeStream verifies that event stream payloads are emitted in order.
func TestClient_InvokeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("unexpected accept header %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"data\":\"a\"}\n\n: keep-alive\n\ndata: {\"data\":\"b\"}\n\ndata: {\"data\":\"c\"}\n\n"))
	}))
	defer server.Close()

	var payloads []string
	for data, err := range newClient(t, server.URL, nil).InvokeStream(context.Background(), "token", "x") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		payloads = append(payloads, data)
	}
	expected := []string{`{"data":"a"}`, `{"data":"b"}`, `{"data":"c"}`}
	if strings.Join(payloads, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %v, got %v", expected, payloads)
	}
}

// TestClient_InvokeStream_PlainBody verifies that a non-stream response is emitted once.
func TestClient_InvokeStream_PlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"done"`))
	}))
	defer server.Close()

	var payloads []string
	for data, err := range newClient(t, server.URL, nil).InvokeStream(context.Background(), "token", "x") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		payloads = append(payloads, data)
	}
	if len(payloads) != 1 || payloads[0] != `"done"` {
		t.Errorf("unexpected payloads %v", payloads)
	}
}

// TestClient_InvokeStream_Non2xx verifies that error statuses end the stream with a StatusError.
func TestClient_InvokeStream_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var errs []error
	for _, err := range newClient(t, server.URL, nil).InvokeStream(context.Background(), "token", "x") {
		errs = append(errs, err)
	}
	var statusErr *runtime.StatusError
	if len(errs) != 1 || !errors.As(errs[0], &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("unexpected errors %v", errs)
	}
}

// TestClient_Ping verifies the health check.
func TestClient_Ping(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			http.NotFound(w, r)
			return
		}
		if healthy {
			_, _ = w.Write([]byte(`{"status":"Healthy"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"HealthyBusy"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL+"/invocations", nil)
	if err := client.Ping(context.Background(), server.URL+"/"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	healthy = false
	if err := client.Ping(context.Background(), server.URL); err == nil {
		t.Error("expected error for an unhealthy runtime")
	}
}

// TestAuthenticatedEstimator verifies that the provided token is attached to the call.
func TestAuthenticatedEstimator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer server.Close()

	tokens := identity.TokenProviderFunc(func(context.Context) (string, error) {
		return "m2m-token", nil
	})
	estimator := runtime.NewAuthenticatedEstimator(newClient(t, server.URL, nil), tokens)

	result, err := estimator.Estimate(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "Bearer m2m-token" {
		t.Errorf("unexpected result %q", result)
	}
}

// TestAuthenticatedEstimator_TokenFailure verifies that no call is made without a token.
func TestAuthenticatedEstimator_TokenFailure(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	failure := errors.New("issuer unavailable")
	tokens := identity.TokenProviderFunc(func(context.Context) (string, error) {
		return "", failure
	})
	_, err := runtime.NewAuthenticatedEstimator(newClient(t, server.URL, nil), tokens).Estimate(context.Background(), "x")
	if !errors.Is(err, failure) {
		t.Fatalf("expected the token failure, got %v", err)
	}
	if called {
		t.Error("expected the runtime not to be called")
	}
}

// TestNewEstimatorTool verifies the declared interface and delegation of the tool.
func TestNewEstimatorTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte("estimate for " + body["prompt"]))
	}))
	defer server.Close()

	tokens := identity.TokenProviderFunc(func(context.Context) (string, error) { return "t", nil })
	tool := runtime.NewEstimatorTool(runtime.NewAuthenticatedEstimator(newClient(t, server.URL, nil), tokens))

	spec := tool.Spec()
	if spec.Name != "cost_estimator_tool" || spec.Description != "Estimate cost of AWS from architecture description" {
		t.Errorf("unexpected spec %+v", spec)
	}
	if len(spec.Parameters.Properties) != 1 || spec.Parameters.Properties["architecture_description"] == nil {
		t.Errorf("expected only architecture_description, got %v", spec.Parameters.Properties)
	}
	if len(spec.Parameters.Required) != 1 || spec.Parameters.Required[0] != "architecture_description" {
		t.Errorf("unexpected required list %v", spec.Parameters.Required)
	}

	result, err := tool.Call(context.Background(), `{"architecture_description":"an ALB"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "estimate for an ALB" {
		t.Errorf("unexpected result %q", result)
	}
}
