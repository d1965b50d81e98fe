package httpparticipant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

func TestParticipant_Try_Success(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New("wallet", srv.URL)
	if err := p.Try(context.Background(), "tx-1"); err != nil {
		t.Fatalf("Try() error: %v", err)
	}
	if gotPath != "/try" {
		t.Fatalf("path = %q, want /try", gotPath)
	}
}

func TestParticipant_Try_BusinessRejection_NotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"reason":"insufficient funds"}`))
	}))
	defer srv.Close()

	p := New("wallet", srv.URL)
	err := p.Try(context.Background(), "tx-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if tcc.IsRetryable(err) {
		t.Fatalf("4xx rejection should not be retryable, got retryable error: %v", err)
	}
}

func TestParticipant_Confirm_ServerError_Retryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := New("wallet", srv.URL)
	err := p.Confirm(context.Background(), "tx-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !tcc.IsRetryable(err) {
		t.Fatalf("5xx should be retryable, got non-retryable error: %v", err)
	}
}

func TestParticipant_Cancel_NetworkError_Retryable(t *testing.T) {
	p := New("wallet", "http://127.0.0.1:0")
	err := p.Cancel(context.Background(), "tx-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !tcc.IsRetryable(err) {
		t.Fatalf("network error should be retryable, got non-retryable error: %v", err)
	}
}
