package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}), srv
}

func TestCreate_Success(t *testing.T) {
	var gotAuth, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "org_123", "name": "acme"})
	})

	res, err := client.CreateOrganization(context.Background(), map[string]any{"name": "acme"})
	if err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}
	if res.ResourceID != "org_123" {
		t.Errorf("ResourceID = %q, expected org_123", res.ResourceID)
	}
	if res.Data["name"] != "acme" {
		t.Errorf("Data[name] = %v, expected acme", res.Data["name"])
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, expected bearer token", gotAuth)
	}
	if gotPath != "/v1/organizations" {
		t.Errorf("path = %q, expected /v1/organizations", gotPath)
	}
}

func TestCreate_ConflictCarriesMetadata(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error_code":  "email_exists",
			"message":     "email already registered",
			"existing_id": "user_77",
			"lookup_url":  "/v1/users/user_77",
		})
	})

	_, err := client.CreateUser(context.Background(), map[string]any{"email": "a@b.co"})
	var serr *domain.SetupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if !serr.Recoverable {
		t.Error("conflicts must be recoverable")
	}
	if serr.Conflict == nil {
		t.Fatal("expected conflict metadata")
	}
	if serr.Conflict.Type != domain.ConflictEmailExists {
		t.Errorf("Type = %q, expected email_exists", serr.Conflict.Type)
	}
	if serr.Conflict.ExistingResourceID != "user_77" {
		t.Errorf("ExistingResourceID = %q, expected user_77", serr.Conflict.ExistingResourceID)
	}
	if serr.Conflict.RetrievalEndpoint != "/v1/users/user_77" {
		t.Errorf("RetrievalEndpoint = %q", serr.Conflict.RetrievalEndpoint)
	}
}

func TestCreate_ConflictUnknownCode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error_code": "slug_exists", "existing_id": "x_1"})
	})

	_, err := client.CreateDomain(context.Background(), map[string]any{"domain": "acme.co"})
	var serr *domain.SetupError
	if !errors.As(err, &serr) || serr.Conflict == nil {
		t.Fatalf("expected SetupError with conflict, got %v", err)
	}
	if serr.Conflict.Type != domain.ConflictOther {
		t.Errorf("Type = %q, expected other", serr.Conflict.Type)
	}
	if serr.Conflict.Type.Recoverable() {
		t.Error("unknown conflict types must not be auto-resolvable")
	}
}

func TestCreate_ConflictWithoutBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := client.CreateUser(context.Background(), nil)
	var serr *domain.SetupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if !serr.Recoverable {
		t.Error("conflict without metadata stays retryable")
	}
	if serr.Conflict != nil {
		t.Errorf("expected no conflict metadata, got %+v", serr.Conflict)
	}
}

func TestCreate_RateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.CreateOrganization(context.Background(), nil)
	var serr *domain.SetupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if !serr.Recoverable {
		t.Error("rate limiting must be recoverable")
	}
	if serr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, expected 7s", serr.RetryAfter)
	}
}

func TestCreate_ServerErrorRecoverable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreateOrganization(context.Background(), nil)
	var serr *domain.SetupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if !serr.Recoverable {
		t.Error("5xx must be recoverable")
	}
}

func TestCreate_ClientErrorNotRecoverable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"missing field: name"}`))
	})

	_, err := client.CreateOrganization(context.Background(), map[string]any{})
	var serr *domain.SetupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if serr.Recoverable {
		t.Error("4xx validation failures must not be retried")
	}
}

func TestCreate_TransportErrorRecoverable(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})

	_, err := client.CreateOrganization(context.Background(), nil)
	var serr *domain.SetupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
	if !serr.Recoverable {
		t.Error("transport failures must be recoverable")
	}
}

func TestFetchResource(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, expected GET", r.Method)
		}
		switch r.URL.Path {
		case "/v1/users/user_77":
			json.NewEncoder(w).Encode(map[string]any{"id": "user_77", "organization_id": "org_1"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	// Relative endpoint resolves against the base URL.
	resource, err := client.FetchResource(context.Background(), "/v1/users/user_77")
	if err != nil {
		t.Fatalf("FetchResource failed: %v", err)
	}
	if resource["id"] != "user_77" {
		t.Errorf("id = %v, expected user_77", resource["id"])
	}

	// Absolute endpoints are used as-is.
	if _, err := client.FetchResource(context.Background(), srv.URL+"/v1/users/user_77"); err != nil {
		t.Errorf("absolute endpoint failed: %v", err)
	}

	if _, err := client.FetchResource(context.Background(), "/v1/users/missing"); err == nil {
		t.Error("expected error for missing resource")
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		header   string
		expected time.Duration
	}{
		{"", 0},
		{"10", 10 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.header); got != tc.expected {
			t.Errorf("parseRetryAfter(%q) = %v, expected %v", tc.header, got, tc.expected)
		}
	}
}
