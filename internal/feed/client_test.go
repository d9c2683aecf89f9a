package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahwatch/auction-data/internal/realm"
)

var testRealm = realm.Partition{Region: "eu", Realm: "medivh", Name: "Medivh"}

func TestDescriptor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wow/auction/data/medivh" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("apikey"); got != "secret" {
			t.Errorf("apikey = %q", got)
		}
		fmt.Fprint(w, `{"files":[{"url":"http://cdn.example/dump.json","lastModified":1500000000000}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	dump, err := c.Descriptor(context.Background(), testRealm)
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if dump.URL != "http://cdn.example/dump.json" {
		t.Errorf("URL = %q", dump.URL)
	}
	if !dump.LastModified.Equal(time.UnixMilli(1500000000000)) {
		t.Errorf("LastModified = %v", dump.LastModified)
	}
}

func TestDescriptorNoFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	if _, err := c.Descriptor(context.Background(), testRealm); err == nil {
		t.Fatal("expected error for empty descriptor")
	}
}

func TestFetchPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"auctions":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	body, err := c.Fetch(context.Background(), Dump{URL: srv.URL + "/dump.json"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != `{"auctions":[]}` {
		t.Errorf("body = %q", body)
	}
}

func TestFetchGzip(t *testing.T) {
	payload := `{"auctions":[{"auc":1}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte(payload))
		zw.Close()
		// Content-Type octet-stream keeps the transport from transparently
		// decoding, mirroring CDN behavior for pre-compressed dumps.
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	body, err := c.Fetch(context.Background(), Dump{URL: srv.URL + "/dump.json.gz"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != payload {
		t.Errorf("body = %q, want %q", body, payload)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	if _, err := c.Fetch(context.Background(), Dump{URL: srv.URL + "/missing"}); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestGuardKey(t *testing.T) {
	if got := guardKey(testRealm); got != "realms:eu-medivh:auc:lastModified" {
		t.Errorf("guardKey = %q", got)
	}
}
