package sheet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Fetch(t *testing.T) {
	body := `[
		{"曲名":"星の歌","作曲者":"composer-a","ステータス":"作業中","本収録日":"2026/09/20","Sp":"veal-chart","Sm":"","Am":"momo","Wt":""},
		42,
		{"曲名":"夜明け","作曲者":"composer-b","ステータス":"完了","本収録日":123,"Sp":null}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("expected no Authorization header without a secret")
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	rows, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (non-object element skipped)", len(rows))
	}
	if rows[0].Title != "星の歌" || rows[0].Status != "作業中" {
		t.Fatalf("rows[0] = %+v, want title 星の歌 status 作業中", rows[0])
	}
	if rows[1].Target != "123" {
		t.Fatalf("numeric date cell decoded as %q, want \"123\"", rows[1].Target)
	}
}

func TestClient_Fetch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch should fail on non-2xx status")
	}
}

func TestClient_Fetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "")
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch should fail on transport error")
	}
}

func TestClient_Fetch_NotAnArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"quota exceeded"}`))
	}))
	defer srv.Close()

	// a JSON object instead of an array means zero usable rows, not a failure
	client := NewClient(srv.URL, "")
	rows, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("len(rows) = %d, want 0", len(rows))
	}
}

func TestClient_Fetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch should fail when the body is not JSON")
	}
}

func TestClient_Fetch_SignedBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "topsecret")
	if _, err := client.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("Authorization = %q, want a Bearer token", gotAuth)
	}
	// HS256 JWTs have three dot-separated segments
	if parts := strings.Split(strings.TrimPrefix(gotAuth, "Bearer "), "."); len(parts) != 3 {
		t.Fatalf("bearer token has %d segments, want 3", len(parts))
	}
}
