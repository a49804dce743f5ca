package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keyxmakerx/dealfinder/internal/apperror"
)

func TestQuery_PreservesInsertionOrder(t *testing.T) {
	var q Query
	q.Add("store", "s2")
	q.Add("min_price", "10")
	q.Add("ordering", "sale_price")
	q.Add("page", "3")

	want := "store=s2&min_price=10&ordering=sale_price&page=3"
	if got := q.Encode(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if q.Get("min_price") != "10" {
		t.Errorf("expected min_price 10, got %q", q.Get("min_price"))
	}
}

func TestEncodeComponent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a b=c", "a%20b%3Dc"},
		{"!'()*", "!'()*"},
		{"-_.~", "-_.~"},
		{"a+b&c/d", "a%2Bb%26c%2Fd"},
		{"x%21", "x%2521"},
		{"é", "%C3%A9"},
	}
	for _, tt := range tests {
		if got := EncodeComponent(tt.in); got != tt.want {
			t.Errorf("EncodeComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGet_BearerAndDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/deals" {
			t.Errorf("expected path /api/deals, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer header, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get(RequestIDHeader) != "req-1" {
			t.Errorf("expected forwarded request id, got %q", r.Header.Get(RequestIDHeader))
		}
		if r.URL.RawQuery != "page=2" {
			t.Errorf("expected page=2, got %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{"hasNext": true})
	}))
	defer server.Close()

	client := New(server.URL+"/api/", time.Second)
	var q Query
	q.Add("page", "2")

	var out struct {
		HasNext bool `json:"hasNext"`
	}
	ctx := WithRequestID(context.Background(), "req-1")
	if err := client.Get(ctx, "/deals", q, "tok", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.HasNext {
		t.Error("expected hasNext decoded")
	}
}

func TestGet_NoTokenNoAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("expected no Authorization header")
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("expected a generated request id")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	if err := client.Get(context.Background(), "/admin-exist", Query{}, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPost_ClientErrorCarriesFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "bob" {
			t.Errorf("expected username in body, got %v", body)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type")
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":{"username":["A user with that username already exists."],"passwordCheck":"mismatch"}}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	err := client.Post(context.Background(), "/signon", "", map[string]string{"username": "bob"}, nil)

	respErr, ok := AsResponseError(err)
	if !ok {
		t.Fatalf("expected *ResponseError, got %T: %v", err, err)
	}
	if respErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", respErr.StatusCode)
	}
	if respErr.Fields["username"] != "A user with that username already exists." {
		t.Errorf("unexpected username message %q", respErr.Fields["username"])
	}
	if respErr.Fields["passwordCheck"] != "mismatch" {
		t.Errorf("unexpected passwordCheck message %q", respErr.Fields["passwordCheck"])
	}
}

func TestPost_FlatErrorBody(t *testing.T) {
	fields, detail := parseErrorBody([]byte(`{"detail":"No active account","password":["too short","too common"]}`))
	if detail != "No active account" {
		t.Errorf("unexpected detail %q", detail)
	}
	if fields["password"] != "too short too common" {
		t.Errorf("unexpected password message %q", fields["password"])
	}
	if _, ok := fields["detail"]; ok {
		t.Error("detail must not be reported as a field")
	}
}

func TestServerErrorIsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	err := client.Get(context.Background(), "/deals", Query{}, "", nil)
	if !apperror.IsType(err, apperror.TypeConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if apperror.SafeMessage(err) == "boom" {
		t.Error("upstream body must not leak into the user message")
	}
}

func TestTransportErrorIsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(url, time.Second)
	err := client.Get(context.Background(), "/deals", Query{}, "", nil)
	if !apperror.IsType(err, apperror.TypeConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestMalformedBodyIsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	var out map[string]any
	err := client.Get(context.Background(), "/deals", Query{}, "", &out)
	if !apperror.IsType(err, apperror.TypeConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
