package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/memblob" // mem:// driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
)

// Stdio is the location that means standard output (or input when reading).
const Stdio = "-"

// CompressedSuffix marks a zstd-compressed report.
const CompressedSuffix = ".zst"

// Location names where a report is written to or read from:
//
//	-                      standard output / standard input
//	results/run1.tsv       a local file (parent directories are created)
//	s3://bucket/key.tsv    any registered gocloud blob URL (s3, gs, file, mem)
//
// Keys ending in ".zst" are zstd-compressed.
type Location struct {
	// Path is the location string, or the object key when Bucket is set.
	Path string
	// Bucket, when non-nil, is used instead of opening one from Path.
	Bucket *blob.Bucket
	// Stdout and Stdin replace the process streams for Path "-".
	Stdout io.Writer
	Stdin  io.Reader
}

// String returns the location as given.
func (l Location) String() string {
	if l.Path == "" {
		return Stdio
	}
	return l.Path
}

// IsStdio reports whether the location is the process's standard streams.
func (l Location) IsStdio() bool {
	return l.Bucket == nil && (l.Path == "" || l.Path == Stdio)
}

// Compressed reports whether the location's key selects zstd compression.
func (l Location) Compressed() bool {
	return !l.IsStdio() && strings.HasSuffix(l.Path, CompressedSuffix)
}

// Validate checks that the location can be opened without touching it.
func (l Location) Validate() error {
	if l.IsStdio() || l.Bucket != nil {
		return nil
	}
	if strings.Contains(l.Path, "://") {
		u, err := url.Parse(l.Path)
		if err != nil {
			return fmt.Errorf("invalid output URL %q: %w", l.Path, err)
		}
		if key := objectKey(u); key == "" {
			return fmt.Errorf("output URL %q has no object key", l.Path)
		}
		return nil
	}
	if strings.HasSuffix(l.Path, "/") || strings.HasSuffix(l.Path, string(filepath.Separator)) {
		return fmt.Errorf("output path %q names a directory", l.Path)
	}
	return nil
}

// openBucket resolves the bucket and key for a non-stdio location. The
// returned bucket must be closed by the caller when owned is true.
func (l Location) openBucket(ctx context.Context) (bucket *blob.Bucket, key string, owned bool, err error) {
	if l.Bucket != nil {
		return l.Bucket, l.Path, false, nil
	}
	if err := l.Validate(); err != nil {
		return nil, "", false, err
	}

	if strings.Contains(l.Path, "://") {
		u, _ := url.Parse(l.Path)
		bucketURL, key := splitURL(u)
		b, err := blob.OpenBucket(ctx, bucketURL)
		if err != nil {
			return nil, "", false, fmt.Errorf("open bucket %s: %w", bucketURL, err)
		}
		return b, key, true, nil
	}

	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, "", false, fmt.Errorf("resolve %s: %w", l.Path, err)
	}
	b, err := fileblob.OpenBucket(filepath.Dir(abs), &fileblob.Options{
		CreateDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, "", false, fmt.Errorf("open directory %s: %w", filepath.Dir(abs), err)
	}
	return b, filepath.Base(abs), true, nil
}

// splitURL separates a blob URL into the bucket URL and object key. For file
// URLs the bucket is the parent directory.
func splitURL(u *url.URL) (string, string) {
	if u.Scheme == "file" {
		dir, _ := filepath.Split(u.Path)
		b := url.URL{Scheme: u.Scheme, Path: dir, RawQuery: u.RawQuery}
		return b.String(), objectKey(u)
	}
	b := url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}
	return b.String(), objectKey(u)
}

// objectKey returns the key a URL names, or "" when it names a bucket or a
// directory.
func objectKey(u *url.URL) string {
	if u.Scheme == "file" {
		_, key := filepath.Split(u.Path)
		return key
	}
	if strings.HasSuffix(u.Path, "/") {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Create opens the location for writing. Nothing is visible at the
// destination until the returned writer is closed without error.
func (l Location) Create(ctx context.Context) (io.WriteCloser, error) {
	if l.IsStdio() {
		out := l.Stdout
		if out == nil {
			out = os.Stdout
		}
		return nopWriteCloser{out}, nil
	}

	bucket, key, owned, err := l.openBucket(ctx)
	if err != nil {
		return nil, err
	}
	// Cancelling wctx before Close discards the object instead of committing it.
	wctx, cancel := context.WithCancel(ctx)
	bw, err := bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: "text/tab-separated-values"})
	if err != nil {
		cancel()
		if owned {
			bucket.Close()
		}
		return nil, fmt.Errorf("create writer for %s: %w", key, err)
	}

	w := &blobWriter{w: bw, blob: bw, cancel: cancel}
	if owned {
		w.bucket = bucket
	}
	if l.Compressed() {
		enc, err := zstd.NewWriter(bw)
		if err != nil {
			w.abort()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.w = enc
		w.enc = enc
	}
	return w, nil
}

// Open opens the location for reading.
func (l Location) Open(ctx context.Context) (io.ReadCloser, error) {
	if l.IsStdio() {
		in := l.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), nil
	}

	bucket, key, owned, err := l.openBucket(ctx)
	if err != nil {
		return nil, err
	}
	br, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if owned {
			bucket.Close()
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	r := &blobReader{r: br, blob: br}
	if owned {
		r.bucket = bucket
	}
	if l.Compressed() {
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		r.r = dec
		r.dec = dec
	}
	return r, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// blobWriter closes the encoder, the blob writer and the owned bucket in order.
type blobWriter struct {
	w      io.Writer
	enc    *zstd.Encoder
	blob   *blob.Writer
	bucket *blob.Bucket
	cancel context.CancelFunc
}

func (w *blobWriter) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

func (w *blobWriter) Close() error {
	var errs []error
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close zstd encoder: %w", err))
		}
	}
	if err := w.blob.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	w.cancel()
	if w.bucket != nil {
		if err := w.bucket.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bucket: %w", err))
		}
	}
	return errors.Join(errs...)
}

// abort discards the object being written.
func (w *blobWriter) abort() {
	w.cancel()
	w.blob.Close()
	if w.bucket != nil {
		w.bucket.Close()
	}
}

type blobReader struct {
	r      io.Reader
	dec    *zstd.Decoder
	blob   *blob.Reader
	bucket *blob.Bucket
}

func (r *blobReader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *blobReader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	err := r.blob.Close()
	if r.bucket != nil {
		if berr := r.bucket.Close(); err == nil {
			err = berr
		}
	}
	return err
}
