package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-ledgerflow/core"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ServiceErrorExternalFailure {
		t.Fatalf("expected %q text code, got %q", core.ServiceErrorExternalFailure, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

func TestRESTAdapter_NilReturnsRichError(t *testing.T) {
	var adapter *RESTAdapter
	_, err := adapter.Do(context.Background(), core.TransportRequest{})
	if err == nil {
		t.Fatalf("expected nil adapter error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.ServiceErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.ServiceErrorInternal, rich.TextCode)
	}
}

func TestRESTAdapter_SendsHeadersQueryAndIdempotencyKey(t *testing.T) {
	var seen *http.Request
	var seenBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(context.Background())
		seenBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Reply", "ok")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["Content-Type"] = "application/json"
	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:      "post",
		URL:         JoinURL(server.URL+"/", "/transfer"),
		Query:       map[string]string{"ledger": "2ouva-viaaa-aaaaq-aaamq-cai"},
		Headers:     map[string]string{"X-Caller": "ryjl3-tyaaa-aaaaa-aaaba-cai"},
		Body:        []byte(`{"amount":1}`),
		Idempotency: "tx-1",
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusAccepted || string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response: %d %s", res.StatusCode, res.Body)
	}
	if res.Headers["X-Reply"] != "ok" {
		t.Fatalf("expected flattened response headers, got %#v", res.Headers)
	}
	if seen.Method != http.MethodPost || seen.URL.Path != "/transfer" {
		t.Fatalf("unexpected request line: %s %s", seen.Method, seen.URL.Path)
	}
	if seen.URL.Query().Get("ledger") != "2ouva-viaaa-aaaaq-aaamq-cai" {
		t.Fatalf("expected ledger query, got %q", seen.URL.RawQuery)
	}
	if seen.Header.Get(HeaderIdempotencyKey) != "tx-1" {
		t.Fatalf("expected idempotency key header")
	}
	if seen.Header.Get("Content-Type") != "application/json" || seen.Header.Get("X-Caller") == "" {
		t.Fatalf("expected default and request headers, got %#v", seen.Header)
	}
	if string(seenBody) != `{"amount":1}` {
		t.Fatalf("unexpected request body %q", seenBody)
	}
}

func TestStatusError_ClassifiesStatusCodes(t *testing.T) {
	if err := StatusError(core.TransportResponse{StatusCode: http.StatusOK}, "transfer"); err != nil {
		t.Fatalf("expected nil for 2xx, got %v", err)
	}
	cases := []struct {
		status   int
		category goerrors.Category
		textCode string
	}{
		{http.StatusBadRequest, goerrors.CategoryBadInput, core.ServiceErrorBadInput},
		{http.StatusUnauthorized, goerrors.CategoryAuth, core.ServiceErrorUnauthorized},
		{http.StatusNotFound, goerrors.CategoryNotFound, core.ServiceErrorNotFound},
		{http.StatusTooManyRequests, goerrors.CategoryRateLimit, core.ServiceErrorRateLimited},
		{http.StatusServiceUnavailable, goerrors.CategoryExternal, core.ServiceErrorExternalFailure},
	}
	for _, tc := range cases {
		err := StatusError(core.TransportResponse{StatusCode: tc.status, Body: []byte("boom")}, "transfer")
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("%d: expected go-errors envelope, got %T", tc.status, err)
		}
		if rich.Category != tc.category || rich.TextCode != tc.textCode || rich.Code != tc.status {
			t.Fatalf("%d: unexpected classification %q/%q/%d", tc.status, rich.Category, rich.TextCode, rich.Code)
		}
	}
}
