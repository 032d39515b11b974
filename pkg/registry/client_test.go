package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wingservice/privateschool/pkg/form"
)

func TestSubmit_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/registrations" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("Authorization = %q", got)
		}
		var rec form.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if rec.SchoolName != "Sunrise Academy" {
			t.Errorf("school_name = %q", rec.SchoolName)
		}
		_ = json.NewEncoder(w).Encode(ApiResponse{
			Success: true,
			Message: "Registration submitted successfully.",
			RowID:   "row-1",
		})
	}))
	defer srv.Close()

	resp := NewClient(srv.URL, "key-1").Submit(context.Background(), form.Record{SchoolName: "Sunrise Academy"})
	if !resp.Success || resp.RowID != "row-1" {
		t.Fatalf("resp = %+v, want success with row-1", resp)
	}
}

func TestSubmit_ServerErrorStatus(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp := NewClient(srv.URL, "").Submit(context.Background(), form.Record{})
	if resp.Success {
		t.Fatalf("resp.Success = true, want false")
	}
	if resp.Message != "Server returned error status: 500" {
		t.Fatalf("Message = %q", resp.Message)
	}
}

func TestSubmit_ErrorStatusWithBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ApiResponse{
			Message: "Some details are missing or invalid.",
			Errors:  map[string]string{"email": "email address is required"},
		})
	}))
	defer srv.Close()

	resp := NewClient(srv.URL, "").Submit(context.Background(), form.Record{})
	if resp.Success || resp.Errors["email"] == "" {
		t.Fatalf("resp = %+v, want field errors passed through", resp)
	}
}

func TestSubmit_NonJSONBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	resp := NewClient(srv.URL, "").Submit(context.Background(), form.Record{})
	if resp.Success {
		t.Fatalf("resp.Success = true, want false")
	}
	if resp.Message != "Received an unreadable response from the registry." {
		t.Fatalf("Message = %q", resp.Message)
	}
}

func TestSubmit_Unreachable(t *testing.T) {
	t.Parallel()
	resp := NewClient("http://127.0.0.1:1", "").Submit(context.Background(), form.Record{})
	if resp.Success || resp.Message == "" {
		t.Fatalf("resp = %+v, want degraded message", resp)
	}
}
