package faceapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
)

const testKey = "secret-key"

func setupMockServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /persongroups/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "known" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"PersonGroupNotFound","message":"Person group is not found."}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"personGroupId":"known","name":"Door"}`))
	})

	mux.HandleFunc("PUT /persongroups/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req nameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"BadArgument","message":"name is required"}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /persongroups/{id}/persons", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"personId":"p-1"}`))
	})

	mux.HandleFunc("POST /persongroups/{id}/persons/{pid}/persistedFaces", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/octet-stream" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "image-bytes" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"InvalidImage","message":"Decoding error."}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"persistedFaceId":"f-1"}`))
	})

	mux.HandleFunc("POST /persongroups/{id}/train", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("GET /persongroups/{id}/training", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"succeeded","createdDateTime":"2026-10-01T10:00:00Z","lastActionDateTime":"2026-10-01T10:00:05Z"}`))
	})

	mux.HandleFunc("POST /detect", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("returnFaceId") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"faceId":"d-1","faceRectangle":{"top":10,"left":20,"width":64,"height":64}}]`))
	})

	server := httptest.NewServer(requireKey(mux))
	client, err := New(server.URL, testKey, WithRatePerMinute(0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return server, client
}

func requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(subscriptionKeyHeader) != testKey {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":"Unspecified","message":"Access denied due to invalid subscription key."}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New("", testKey); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestResolveURL(t *testing.T) {
	c, err := New("https://example.com/face/v1.0/", testKey)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		segments []string
		want     string
	}{
		{[]string{"persongroups/g1"}, "https://example.com/face/v1.0/persongroups/g1"},
		{[]string{"detect?returnFaceId=true"}, "https://example.com/face/v1.0/detect?returnFaceId=true"},
		{nil, "https://example.com/face/v1.0"},
	}
	for _, tt := range tests {
		if got := c.resolveURL(tt.segments...); got != tt.want {
			t.Errorf("resolveURL(%v) = %q, want %q", tt.segments, got, tt.want)
		}
	}
}

func TestGetPersonGroup(t *testing.T) {
	server, client := setupMockServer(t)
	defer server.Close()

	group, err := client.GetPersonGroup(context.Background(), "known")
	if err != nil {
		t.Fatalf("GetPersonGroup failed: %v", err)
	}
	if group.PersonGroupID != "known" || group.Name != "Door" {
		t.Errorf("unexpected group: %+v", group)
	}
}

func TestGetPersonGroup_NotFound(t *testing.T) {
	server, client := setupMockServer(t)
	defer server.Close()

	_, err := client.GetPersonGroup(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != CodePersonGroupNotFound {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestCreatePersonGroup(t *testing.T) {
	server, client := setupMockServer(t)
	defer server.Close()

	if err := client.CreatePersonGroup(context.Background(), "g1", "Door"); err != nil {
		t.Errorf("CreatePersonGroup failed: %v", err)
	}
	err := client.CreatePersonGroup(context.Background(), "g1", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "BadArgument" {
		t.Errorf("expected BadArgument APIError, got %v", err)
	}
	if IsNotFound(err) {
		t.Error("BadArgument must not be reported as not found")
	}
}

func TestCreatePersonAndAddFace(t *testing.T) {
	server, client := setupMockServer(t)
	defer server.Close()
	ctx := context.Background()

	personID, err := client.CreatePerson(ctx, "g1", "Alice")
	if err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	if personID != "p-1" {
		t.Errorf("personID = %q, want p-1", personID)
	}

	faceID, err := client.AddPersonFace(ctx, "g1", personID, []byte("image-bytes"))
	if err != nil {
		t.Fatalf("AddPersonFace failed: %v", err)
	}
	if faceID != "f-1" {
		t.Errorf("faceID = %q, want f-1", faceID)
	}

	_, err = client.AddPersonFace(ctx, "g1", personID, []byte("garbage"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "InvalidImage" {
		t.Errorf("expected InvalidImage APIError, got %v", err)
	}
}

func TestTrainAndStatus(t *testing.T) {
	server, client := setupMockServer(t)
	defer server.Close()
	ctx := context.Background()

	if err := client.Train(ctx, "g1"); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	status, err := client.TrainingStatus(ctx, "g1")
	if err != nil {
		t.Fatalf("TrainingStatus failed: %v", err)
	}
	if status.Status != TrainingSucceeded {
		t.Errorf("status = %q, want %q", status.Status, TrainingSucceeded)
	}
	if status.CreatedDateTime.IsZero() {
		t.Error("expected createdDateTime to be parsed")
	}
}

func TestDetect(t *testing.T) {
	server, client := setupMockServer(t)
	defer server.Close()

	faces, err := client.Detect(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(faces) != 1 || faces[0].FaceID != "d-1" || faces[0].FaceRectangle.Width != 64 {
		t.Errorf("unexpected faces: %+v", faces)
	}
}

func TestInvalidKey(t *testing.T) {
	server, _ := setupMockServer(t)
	defer server.Close()

	client, err := New(server.URL, "wrong")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.GetPersonGroup(context.Background(), "known")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401 APIError, got %v", err)
	}
}

func TestIdentify_Batches(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /identify", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req identifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.FaceIDs) > MaxIdentifyFaces {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":"BadArgument","message":"too many faces"}}`))
			return
		}
		// answer in reverse order to exercise reordering
		results := make([]IdentifyResult, 0, len(req.FaceIDs))
		for i := len(req.FaceIDs) - 1; i >= 0; i-- {
			id := req.FaceIDs[i]
			results = append(results, IdentifyResult{
				FaceID:     id,
				Candidates: []Candidate{{PersonID: "person-" + id, Confidence: 0.9}},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(results)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := New(server.URL, testKey)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ids := make([]string, 23)
	for i := range ids {
		ids[i] = fmt.Sprintf("face-%02d", i)
	}
	results, err := client.Identify(context.Background(), "g1", ids)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("identify calls = %d, want 3", got)
	}
	if len(results) != len(ids) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(ids))
	}
	for i, r := range results {
		if r.FaceID != ids[i] {
			t.Errorf("results[%d].FaceID = %q, want %q", i, r.FaceID, ids[i])
		}
		if r.Candidates[0].PersonID != "person-"+ids[i] {
			t.Errorf("results[%d] candidate = %q", i, r.Candidates[0].PersonID)
		}
	}
}

func TestIdentify_Empty(t *testing.T) {
	client, err := New("http://127.0.0.1:1", testKey)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	results, err := client.Identify(context.Background(), "g1", nil)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestCaptureResponse(t *testing.T) {
	server, _ := setupMockServer(t)
	defer server.Close()

	dir := t.TempDir()
	client, err := New(server.URL, testKey, WithCaptureDir(dir))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.GetPersonGroup(context.Background(), "known"); err != nil {
		t.Fatalf("GetPersonGroup failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 captured file, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "persongroups_known_") {
		t.Errorf("unexpected capture file name %q", entries[0].Name())
	}
}

func TestRateLimiter_ContextCanceled(t *testing.T) {
	server, _ := setupMockServer(t)
	defer server.Close()

	client, err := New(server.URL, testKey, WithRatePerMinute(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if _, err := client.GetPersonGroup(ctx, "known"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	// the second token is a minute away; a canceled context must not wait for it
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := client.GetPersonGroup(canceled, "known"); err == nil {
		t.Error("expected error from rate limiter with canceled context")
	}
}
