// Package source opens CSV inputs from local paths, HTTP(S) URLs and S3.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// S3Config holds optional S3 settings. Empty fields fall back to the
// default AWS credential chain.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type scheme string

const (
	schemeLocal scheme = "local"
	schemeFile  scheme = "file"
	schemeHTTP  scheme = "http"
	schemeS3    scheme = "s3"
)

func detectScheme(p string) scheme {
	lower := strings.ToLower(p)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return schemeS3
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lower, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

// IsRemote reports whether p must be fetched before DuckDB can read it.
func IsRemote(p string) bool {
	s := detectScheme(p)
	return s == schemeHTTP || s == schemeS3
}

func Open(ctx context.Context, p string, cfg S3Config) (io.ReadCloser, error) {
	switch detectScheme(p) {
	case schemeLocal:
		return os.Open(p)
	case schemeFile:
		return os.Open(strings.TrimPrefix(p, "file://"))
	case schemeHTTP:
		return DownloadFile(ctx, p)
	case schemeS3:
		return openS3(ctx, p, cfg)
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", p)
	}
}

func DownloadFile(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Filename returns the last path segment of p, or downloaded.csv when p has none.
func Filename(p string) string {
	trimmed := p
	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
		if j := strings.IndexAny(trimmed, "?#"); j >= 0 {
			trimmed = trimmed[:j]
		}
		if j := strings.Index(trimmed, "/"); j >= 0 {
			trimmed = trimmed[j:]
		} else {
			trimmed = ""
		}
	}

	if trimmed == "" || strings.HasSuffix(trimmed, "/") {
		return "downloaded.csv"
	}
	return path.Base(trimmed)
}

func parseS3URL(url string) (bucket, key string, err error) {
	p := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(p, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return parts[0], parts[1], nil
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func openS3(ctx context.Context, url string, cfg S3Config) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}

	return resp.Body, nil
}

// Localize returns a local path DuckDB can read for p. Remote inputs are
// downloaded into a temp directory that cleanup removes.
func Localize(ctx context.Context, p string, cfg S3Config) (local string, cleanup func(), err error) {
	switch detectScheme(p) {
	case schemeLocal:
		return p, func() {}, nil
	case schemeFile:
		return strings.TrimPrefix(p, "file://"), func() {}, nil
	}

	body, err := Open(ctx, p, cfg)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()

	tempDir, err := os.MkdirTemp("", "csv-source")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup = func() { os.RemoveAll(tempDir) }

	local = filepath.Join(tempDir, Filename(p))
	f, err := os.Create(local)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write CSV data: %w", err)
	}

	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write CSV data: %w", err)
	}

	return local, cleanup, nil
}
