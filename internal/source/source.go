// Package source opens trace files from the local filesystem, blob storage
// buckets or HTTP, decompressing them based on their suffix.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// ErrNotFound is returned when the trace doesn't exist.
var ErrNotFound = errors.New("trace not found")

type Options struct {
	HTTPTimeout time.Duration
	// HTTPClient overrides the client built from HTTPTimeout.
	HTTPClient *httpclient.Client
}

// Open returns a reader over the decompressed content of the trace at location.
func Open(ctx context.Context, location string, opts Options) (io.ReadCloser, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	u, isURL := parseURL(location)
	switch {
	case isURL && (u.Scheme == "http" || u.Scheme == "https"):
		rc, err = openHTTP(ctx, location, opts)
	case isURL:
		rc, err = openBlob(ctx, u)
	default:
		rc, err = openFile(location)
	}
	if err != nil {
		return nil, err
	}
	return decompress(rc, Name(location))
}

// Name returns the base name of the trace, used in titles and storage keys.
func Name(location string) string {
	if u, ok := parseURL(location); ok {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
		return u.Host
	}
	return filepath.Base(location)
}

func parseURL(location string) (*url.URL, bool) {
	if !strings.Contains(location, "://") {
		return nil, false
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}

func openFile(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, err.Error())
		}
		return nil, err
	}
	return f, nil
}

func openHTTP(ctx context.Context, location string, opts Options) (io.ReadCloser, error) {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = httpclient.NewClient(
			httpclient.WithHTTPTimeout(timeout),
			httpclient.WithRetryCount(0),
		)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		// heimdall hands back the response along with the error on 5xx
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, nil
}

// openBlob opens gs://bucket/key, s3://bucket/key and
// file:///dir/key URLs. The bucket keeps the URL's query parameters.
func openBlob(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucketURL := *u
	var key string
	if u.Scheme == "file" {
		bucketURL.Path = path.Dir(u.Path)
		key = path.Base(u.Path)
	} else {
		bucketURL.Path = ""
		key = strings.TrimPrefix(u.Path, "/")
	}
	if key == "" || key == "." || key == "/" {
		return nil, fmt.Errorf("no object key in %s", u.Redacted())
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL.String())
	if err != nil {
		return nil, err
	}
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		bucket.Close()
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, u.Redacted())
		}
		return nil, err
	}
	return &multiCloser{Reader: r, closers: []io.Closer{r, bucket}}, nil
}

func decompress(rc io.ReadCloser, name string) (io.ReadCloser, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return &multiCloser{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	case ".zst":
		zr, err := zstd.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		return &multiCloser{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), rc}}, nil
	case ".lz4":
		return &multiCloser{Reader: lz4.NewReader(rc), closers: []io.Closer{rc}}, nil
	case ".br":
		return &multiCloser{Reader: brotli.NewReader(rc), closers: []io.Closer{rc}}, nil
	}
	return rc, nil
}

// multiCloser closes every layer of a decompressing reader, innermost first.
type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
