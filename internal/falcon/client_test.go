package falcon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer wires a token endpoint plus the given handler and returns a
// client pointed at it.
func newTestServer(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if r.Form.Get("client_id") != "id" || r.Form.Get("client_secret") != "secret" {
			t.Errorf("unexpected credentials: %v", r.Form)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   1799,
		})
	})
	if handler != nil {
		mux.Handle("/", handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New(Config{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return client, server
}

func TestResolveBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "https://api.crowdstrike.com"},
		{"auto", "https://api.crowdstrike.com"},
		{"AUTO", "https://api.crowdstrike.com"},
		{"us-2", "https://api.us-2.crowdstrike.com"},
		{"usgov1", "https://api.laggar.gcw.crowdstrike.com"},
		{"http://localhost:9999", "http://localhost:9999"},
	}

	for _, tc := range cases {
		if got := ResolveBaseURL(tc.in); got != tc.want {
			t.Errorf("ResolveBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{ClientID: "id"}); err == nil {
		t.Error("Expected error for missing client secret")
	}
	if _, err := New(Config{ClientSecret: "secret"}); err == nil {
		t.Error("Expected error for missing client ID")
	}
}

func TestTokenReuse(t *testing.T) {
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   1799,
		})
	})
	mux.HandleFunc("/sensors/queries/installers/ccid/v1", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Expected bearer token header, got %q", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("Expected X-Request-Id header")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"resources": []string{"ABCD1234-7B"},
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := New(Config{ClientID: "id", ClientSecret: "secret", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := client.CCID(context.Background()); err != nil {
			t.Fatalf("CCID() error: %v", err)
		}
	}

	if tokenCalls != 1 {
		t.Errorf("Expected 1 token exchange for 3 calls, got %d", tokenCalls)
	}
}

func TestCCID(t *testing.T) {
	client, _ := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sensors/queries/installers/ccid/v1" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"resources": []string{"ABCD1234-7B"},
		})
	}))

	ccid, err := client.CCID(context.Background())
	if err != nil {
		t.Fatalf("CCID() error: %v", err)
	}
	if ccid != "ABCD1234-7B" {
		t.Errorf("Expected CCID ABCD1234-7B, got %s", ccid)
	}
}

func TestAPIErrorCarriesStatusAndBody(t *testing.T) {
	client, _ := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errors":[{"message":"access denied"}]}`))
	}))

	_, err := client.CCID(context.Background())
	if err == nil {
		t.Fatal("Expected error for 403 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("Expected raw body in error")
	}
}

func TestAuthFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid client"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := New(Config{ClientID: "id", ClientSecret: "bad", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := client.CCID(context.Background()); err == nil {
		t.Error("Expected error when token exchange fails")
	}
}
