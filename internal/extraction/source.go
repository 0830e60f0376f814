package extraction

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JaimeStill/tally/pkg/storage"
)

// DefaultMaxDocumentBytes caps fetched documents when no limit is configured.
const DefaultMaxDocumentBytes int64 = 20 * 1024 * 1024

// Source fetches a document by URL.
type Source interface {
	Fetch(ctx context.Context, documentURL string) (*Document, error)
}

// ObjectGetter is the subset of the S3 client used to read documents.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Resolver dispatches document URLs by scheme:
//
//	http://, https://     HTTP GET
//	blob://<key>          blob storage, key as stored
//	s3://<bucket>/<key>   S3 GetObject
//
// Backends left nil reject their scheme with ErrUnsupportedScheme.
type Resolver struct {
	HTTP     *http.Client
	Blobs    storage.System
	S3       ObjectGetter
	MaxBytes int64
}

func (r *Resolver) Fetch(ctx context.Context, documentURL string) (*Document, error) {
	u, err := url.Parse(strings.TrimSpace(documentURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedScheme, err)
	}

	var (
		body io.ReadCloser
		name string
	)

	switch u.Scheme {
	case "http", "https":
		body, err = r.fetchHTTP(ctx, u)
		name = u.Path
	case "blob":
		if r.Blobs == nil {
			return nil, fmt.Errorf("%w: blob storage not configured", ErrUnsupportedScheme)
		}
		// stored keys are path-escaped, so the escaped form is the key
		key := strings.TrimPrefix(u.Host+u.EscapedPath(), "/")
		body, err = r.Blobs.Download(ctx, key)
		name = u.Path
	case "s3":
		body, err = r.fetchS3(ctx, u)
		name = u.Path
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := r.read(body)
	if err != nil {
		return nil, err
	}

	return Inspect(name, data)
}

func (r *Resolver) fetchHTTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", u.Redacted(), resp.StatusCode)
	}

	if resp.ContentLength > r.maxBytes() {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrDocumentTooLarge, resp.ContentLength)
	}

	return resp.Body, nil
}

func (r *Resolver) fetchS3(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if r.S3 == nil {
		return nil, fmt.Errorf("%w: s3 not configured", ErrUnsupportedScheme)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("%w: s3 url requires bucket and key", ErrUnsupportedScheme)
	}

	out, err := r.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", u.Host, key, err)
	}

	return out.Body, nil
}

func (r *Resolver) read(body io.Reader) ([]byte, error) {
	limit := r.maxBytes()

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrDocumentTooLarge, limit)
	}
	return data, nil
}

func (r *Resolver) maxBytes() int64 {
	if r.MaxBytes > 0 {
		return r.MaxBytes
	}
	return DefaultMaxDocumentBytes
}
