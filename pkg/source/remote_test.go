package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "First Name,Salary\nDouglas,97308\n"

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		in   string
		want scheme
	}{
		{"employees.csv", schemeLocal},
		{"/tmp/employees.csv", schemeLocal},
		{"file:///tmp/employees.csv", schemeFile},
		{"http://example.com/e.csv", schemeHTTP},
		{"HTTPS://example.com/e.csv", schemeHTTP},
		{"s3://bucket/e.csv", schemeS3},
	}

	for _, tt := range tests {
		if got := detectScheme(tt.in); got != tt.want {
			t.Errorf("detectScheme(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"employees.csv", "employees.csv"},
		{"/data/employees.csv", "employees.csv"},
		{"https://example.com/files/employees.csv?dl=1", "employees.csv"},
		{"https://example.com/", "downloaded.csv"},
		{"https://example.com", "downloaded.csv"},
		{"s3://bucket/raw/employees.csv", "employees.csv"},
	}

	for _, tt := range tests {
		if got := Filename(tt.in); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://data/raw/employees.csv")
	if err != nil {
		t.Fatalf("parseS3URL error: %v", err)
	}
	if bucket != "data" || key != "raw/employees.csv" {
		t.Errorf("got bucket=%q key=%q", bucket, key)
	}

	for _, bad := range []string{"s3://bucket", "s3://bucket/", "s3:///key"} {
		if _, _, err := parseS3URL(bad); err == nil {
			t.Errorf("parseS3URL(%q) expected error", bad)
		}
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	return string(b)
}

func TestOpenLocal(t *testing.T) {
	p := filepath.Join(t.TempDir(), "employees.csv")
	if err := os.WriteFile(p, []byte(sampleCSV), 0644); err != nil {
		t.Fatal(err)
	}

	for _, in := range []string{p, "file://" + p} {
		rc, err := Open(context.Background(), in, S3Config{})
		if err != nil {
			t.Fatalf("Open(%q) error: %v", in, err)
		}
		if got := readAll(t, rc); got != sampleCSV {
			t.Errorf("Open(%q) = %q", in, got)
		}
	}
}

func TestOpenHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/employees.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	rc, err := Open(context.Background(), srv.URL+"/employees.csv", S3Config{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got := readAll(t, rc); got != sampleCSV {
		t.Errorf("got %q", got)
	}

	if _, err := Open(context.Background(), srv.URL+"/missing.csv", S3Config{}); err == nil {
		t.Error("expected error for 404 response")
	} else if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestOpenS3PathStyle(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	cfg := S3Config{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	}

	rc, err := Open(context.Background(), "s3://data/raw/employees.csv", cfg)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got := readAll(t, rc); got != sampleCSV {
		t.Errorf("got %q", got)
	}
	if gotPath != "/data/raw/employees.csv" {
		t.Errorf("request path = %q, want path-style bucket/key", gotPath)
	}
}

func TestLocalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	local, cleanup, err := Localize(context.Background(), srv.URL+"/data/employees.csv", S3Config{})
	if err != nil {
		t.Fatalf("Localize error: %v", err)
	}

	if filepath.Base(local) != "employees.csv" {
		t.Errorf("Expected filename preserved, got %s", local)
	}
	b, err := os.ReadFile(local)
	if err != nil || string(b) != sampleCSV {
		t.Fatalf("Unexpected local copy: %q, %v", b, err)
	}

	cleanup()
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Errorf("Expected cleanup to remove %s", local)
	}

	same, cleanup, err := Localize(context.Background(), "employees.csv", S3Config{})
	if err != nil || same != "employees.csv" {
		t.Errorf("Expected local path unchanged, got %q, %v", same, err)
	}
	cleanup()
}
