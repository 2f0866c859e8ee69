package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestGetSendsAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/profiles" {
			t.Errorf("path = %q, want /rest/v1/profiles", r.URL.Path)
		}
		if r.URL.Query().Get("id") != "eq.u1" {
			t.Errorf("id = %q, want eq.u1", r.URL.Query().Get("id"))
		}
		if r.Header.Get("apikey") != "anon" {
			t.Errorf("apikey = %q, want anon", r.Header.Get("apikey"))
		}
		if r.Header.Get("Authorization") != "Bearer anon" {
			t.Errorf("authorization = %q, want Bearer anon", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode([]map[string]string{{"id": "u1"}}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "anon", 0)
	var rows []map[string]string
	if err := c.Get(context.Background(), "/rest/v1/profiles", url.Values{"id": {"eq.u1"}}, &rows); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "u1" {
		t.Errorf("rows = %v", rows)
	}
}

func TestAccessTokenOverridesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("apikey") != "anon" {
			t.Errorf("apikey = %q", r.Header.Get("apikey"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "anon", 0)
	c.SetAccessToken("user-token")
	if c.AccessToken() != "user-token" {
		t.Fatalf("access token = %q", c.AccessToken())
	}
	if err := c.Get(context.Background(), "/x", nil, nil); err != nil {
		t.Fatalf("get: %v", err)
	}
}

func TestPostSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["email"] != "a@b.co" {
			t.Errorf("email = %q", body["email"])
		}
		w.Header().Set("X-Test", "yes")
		if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "", 0)
	var out struct {
		OK bool `json:"ok"`
	}
	h, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/auth/v1/otp", Body: map[string]string{"email": "a@b.co"}}, &out)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !out.OK {
		t.Error("expected ok")
	}
	if h.Get("X-Test") != "yes" {
		t.Error("expected response headers to be returned")
	}
}

func TestErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"table api", 400, `{"code":"PGRST100","message":"bad filter"}`, "bad filter"},
		{"auth api", 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, "Invalid login credentials"},
		{"auth msg", 422, `{"code":422,"msg":"User already registered"}`, "User already registered"},
		{"plain error", 401, `{"error":"unauthorized"}`, "unauthorized"},
		{"no body", 500, ``, "server error: Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Fatalf("write: %v", err)
				}
			}))
			defer srv.Close()

			err := New(srv.URL, "k", 0).Get(context.Background(), "/x", nil, nil)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Error(), tt.wantMsg)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, "", 20*time.Millisecond)
	if err := c.Get(context.Background(), "/slow", nil, nil); err == nil {
		t.Error("expected timeout error")
	}
}
