package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithID(header string) (contextID, responseID string) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	if header != "" {
		req.Header.Set(HeaderRequestID, header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return contextID, rec.Header().Get(HeaderRequestID)
}

func TestRequestID(t *testing.T) {
	t.Run("generates request ID when not provided", func(t *testing.T) {
		ctxID, respID := serveWithID("")
		if len(ctxID) != 16 {
			t.Errorf("expected 16-character ID in context, got %q", ctxID)
		}
		if respID != ctxID {
			t.Errorf("response header %q does not match context %q", respID, ctxID)
		}
	})

	t.Run("reuses well-formed client ID", func(t *testing.T) {
		ctxID, respID := serveWithID("client-request-123")
		if ctxID != "client-request-123" || respID != "client-request-123" {
			t.Errorf("expected client ID to be kept, got ctx=%q resp=%q", ctxID, respID)
		}
	})

	t.Run("replaces unsafe client ID", func(t *testing.T) {
		for _, bad := range []string{"id with spaces", "line\nbreak", string(make([]byte, 80))} {
			ctxID, _ := serveWithID(bad)
			if ctxID == bad || len(ctxID) != 16 {
				t.Errorf("expected %q to be replaced, got %q", bad, ctxID)
			}
		}
	})

	t.Run("generates unique IDs for different requests", func(t *testing.T) {
		ids := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id, _ := serveWithID("")
			ids[id] = true
		}
		if len(ids) != 100 {
			t.Errorf("expected 100 unique IDs, got %d", len(ids))
		}
	})
}

func TestGetRequestID(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string, got %q", id)
	}
	if id := GetRequestID(WithRequestID(context.Background(), "abc")); id != "abc" {
		t.Errorf("expected abc, got %q", id)
	}
}

func TestGenerateRequestID(t *testing.T) {
	id := generateRequestID()
	if len(id) != 16 {
		t.Fatalf("expected length 16, got %d", len(id))
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("expected hex character, got %c", c)
		}
	}
	if generateRequestID() == id {
		t.Error("generateRequestID returned same ID twice")
	}
}
