package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spaghettifunk/character-studio/engine/core"
)

// FileStore reads raw asset bytes. Size is -1 when the store cannot tell.
type FileStore interface {
	Read(ctx context.Context, name string) (io.ReadCloser, int64, error)
	Exists(ctx context.Context, name string) (bool, error)
}

// LocalStore serves assets from a directory on disk.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (l *LocalStore) path(name string) string {
	name = strings.TrimPrefix(name, "file://")
	if filepath.IsAbs(name) || l.root == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(l.root, filepath.FromSlash(name))
}

func (l *LocalStore) Read(_ context.Context, name string) (io.ReadCloser, int64, error) {
	f, err := os.Open(l.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", core.ErrNotFound, name)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func (l *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(l.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// HTTPStore fetches assets by absolute http(s) URL.
type HTTPStore struct {
	client *http.Client
}

func NewHTTPStore(client *http.Client) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{client: client}
}

func (h *HTTPStore) Read(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: %s", core.ErrNotFound, name)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("GET %s: %s", name, resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}

func (h *HTTPStore) Exists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, name, nil)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode/100 == 2, nil
}

// S3Client abstracts the S3 API operations used by S3Store.
// The s3.Client type satisfies this interface.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewS3Client builds an S3 client from static configuration. It returns nil
// when no region is configured, which leaves s3:// locations disabled.
func NewS3Client(config S3Config) *s3.Client {
	if config.Region == "" {
		return nil
	}
	opts := s3.Options{
		Region:       config.Region,
		UsePathStyle: config.UsePathStyle,
	}
	if config.Endpoint != "" {
		opts.BaseEndpoint = aws.String(config.Endpoint)
	}
	if config.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     config.AccessKeyID,
			SecretAccessKey: config.SecretAccessKey,
			Source:          "character-studio",
		}
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}
	return s3.New(opts)
}

// S3Store reads assets from one bucket of an S3 compatible object store.
// Keys are mapped under an optional prefix.
type S3Store struct {
	client S3Client
	bucket string
	prefix string
}

func NewS3Store(client S3Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) key(name string) string {
	name = strings.TrimPrefix(name, "/")
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Store) Read(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, 0, fmt.Errorf("%w: s3://%s/%s", core.ErrNotFound, s.bucket, s.key(name))
		}
		return nil, 0, err
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

/**
 * @brief Picks the store for a location by scheme: s3://bucket/key,
 * http(s)://..., or anything else as a path below the local root.
 */
type StoreRouter struct {
	local    *LocalStore
	http     *HTTPStore
	s3Client S3Client
	s3Prefix string

	mu      sync.Mutex
	buckets map[string]*S3Store
}

func NewStoreRouter(local *LocalStore, httpStore *HTTPStore, s3Client S3Client, s3Prefix string) *StoreRouter {
	return &StoreRouter{
		local:    local,
		http:     httpStore,
		s3Client: s3Client,
		s3Prefix: s3Prefix,
		buckets:  make(map[string]*S3Store),
	}
}

// Resolve returns the store and the store-relative name for location.
func (r *StoreRouter) Resolve(location string) (FileStore, string, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		if r.s3Client == nil {
			return nil, "", fmt.Errorf("%w: no S3 client configured for %s", core.ErrConfiguration, location)
		}
		u, err := url.Parse(location)
		if err != nil {
			return nil, "", err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		store, ok := r.buckets[u.Host]
		if !ok {
			store = NewS3Store(r.s3Client, u.Host, r.s3Prefix)
			r.buckets[u.Host] = store
		}
		return store, strings.TrimPrefix(u.Path, "/"), nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if r.http == nil {
			return nil, "", fmt.Errorf("%w: remote assets disabled for %s", core.ErrConfiguration, location)
		}
		return r.http, location, nil
	default:
		return r.local, location, nil
	}
}
