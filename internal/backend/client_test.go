package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"estatebot/pkg/logx"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{URL: srv.URL, Token: "secret", Timeout: 5 * time.Second}, logx.Nop())
	return c, srv
}

func TestCreatePropertyWireFormat(t *testing.T) {
	t.Parallel()
	var got map[string]any
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("auth header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Result{Success: true, EntryID: "e-1"})
	})

	res, err := c.CreateProperty(context.Background(), PropertyRecord{
		Title:    "Test",
		Type:     "rent",
		Nearby:   "beach",
		DateUse:  "сдан",
		Bathroom: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.EntryID != "e-1" {
		t.Fatalf("result = %+v", res)
	}

	// The backend contract keeps its historical field spellings.
	for _, key := range []string{"nearbu", "date_use", "type_home", "apartment_area", "assets_array"} {
		if _, ok := got[key]; !ok {
			t.Errorf("wire field %q missing; body keys: %v", key, keys(got))
		}
	}
}

func TestDeleteByTitleBody(t *testing.T) {
	t.Parallel()
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/delete-by-title" {
			t.Errorf("%s %s, want DELETE /delete-by-title", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["title"] != "Квартира у моря" {
			t.Errorf("title = %q", body["title"])
		}
		_ = json.NewEncoder(w).Encode(Result{Success: true, Message: "Удалено: 2"})
	})

	res, err := c.DeleteByTitle(context.Background(), "Квартира у моря")
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Удалено: 2" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestStructuredFailureIsNotAnError(t *testing.T) {
	t.Parallel()
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(Result{Success: false, Message: "Объект не найден"})
	})

	res, err := c.DeleteByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("4xx with a structured body must not error: %v", err)
	}
	if res.Success || res.Message != "Объект не найден" {
		t.Fatalf("result = %+v", res)
	}
}

func TestServerErrorIsAnError(t *testing.T) {
	t.Parallel()
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.List(context.Background())
	if err == nil {
		t.Fatal("5xx must surface as an error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v, want APIError with status 500", err)
	}
}

func TestNewsURLFallback(t *testing.T) {
	t.Parallel()
	hits := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(Result{Success: true})
	})

	// No dedicated news endpoint configured: the main URL serves news too.
	if _, err := c.CreateNews(context.Background(), NewsRecord{Title: "n", BlogText: "t"}); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
