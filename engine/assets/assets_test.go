package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleOBJ = "o tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

// mockS3 implements S3Client over an in-memory object map.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    int
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.objects[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (m *mockS3) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*params.Bucket+"/"+*params.Key]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestManager(t *testing.T, cfg Config, client S3Client) *AssetManager {
	t.Helper()
	am, err := NewAssetManager(cfg, client)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	t.Cleanup(func() { _ = am.Shutdown() })
	return am
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	store := NewLocalStore(dir)

	rc, size, err := store.Read(context.Background(), "a.txt")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, int64(5), size)

	ok, err := store.Exists(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = store.Read(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, core.ErrNotFound)
	ok, err = store.Exists(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.obj":
			fmt.Fprint(w, triangleOBJ)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.Client())
	rc, _, err := store.Read(context.Background(), srv.URL+"/ok.obj")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, triangleOBJ, string(data))

	_, _, err = store.Read(context.Background(), srv.URL+"/nope")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, _, err = store.Read(context.Background(), srv.URL+"/boom")
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrNotFound))
}

func TestS3Store(t *testing.T) {
	client := newMockS3()
	client.objects["avatars/traits/hat.obj"] = []byte(triangleOBJ)
	store := NewS3Store(client, "avatars", "/traits/")

	rc, size, err := store.Read(context.Background(), "hat.obj")
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, int64(len(triangleOBJ)), size)

	ok, err := store.Exists(context.Background(), "hat.obj")
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = store.Read(context.Background(), "cap.obj")
	assert.ErrorIs(t, err, core.ErrNotFound)
	ok, err = store.Exists(context.Background(), "cap.obj")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreRouter(t *testing.T) {
	r := NewStoreRouter(NewLocalStore("root"), nil, nil, "")
	_, _, err := r.Resolve("s3://bucket/key.obj")
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, _, err = r.Resolve("https://cdn/key.obj")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	store, name, err := r.Resolve("traits/key.obj")
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
	assert.Equal(t, "traits/key.obj", name)

	r = NewStoreRouter(NewLocalStore(""), NewHTTPStore(nil), newMockS3(), "")
	a, name, err := r.Resolve("s3://bucket/dir/key.obj")
	require.NoError(t, err)
	assert.Equal(t, "dir/key.obj", name)
	b, _, err := r.Resolve("s3://bucket/other.obj")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestCacheRoundTripAndExpiry(t *testing.T) {
	c, err := NewCache(CacheOptions{TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, ok := c.Get("a")
	assert.False(t, ok)

	require.NoError(t, c.Put("a", []byte("bytes")))
	data, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("bytes"), data)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	require.NoError(t, c.Put("b", []byte("x")))
	c.Invalidate("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestAssetManagerLoadsFromLocalRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "traits"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "traits", "tri.obj"), []byte(triangleOBJ), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "traits", "skin.png"), pngBytes(t), 0o644))

	cfg := DefaultConfig()
	cfg.Root = dir
	am := newTestManager(t, cfg, nil)

	var last, total int64
	model, err := am.LoadModel(context.Background(), "traits/tri.obj", func(l, tt int64) {
		assert.GreaterOrEqual(t, l, last)
		last, total = l, tt
	})
	require.NoError(t, err)
	assert.Len(t, model.Meshes(), 1)
	assert.Equal(t, int64(len(triangleOBJ)), last)
	assert.Equal(t, int64(len(triangleOBJ)), total)

	tex, err := am.LoadTexture(context.Background(), "traits/skin.png", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tex.Width)

	info, ok := am.Loaded("traits/skin.png")
	require.True(t, ok)
	assert.Equal(t, "image", info.Type.String())
}

func TestAssetManagerWrapsFetchErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = t.TempDir()
	am := newTestManager(t, cfg, nil)

	_, err := am.LoadModel(context.Background(), "missing.obj", nil)
	require.Error(t, err)
	var fetchErr *core.AssetFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "missing.obj", fetchErr.URL)
	assert.Equal(t, core.AssetKindModel, fetchErr.Kind)
	assert.ErrorIs(t, err, core.ErrAssetFetch)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "notes.txt"), []byte("plain"), 0o644))
	_, err = am.LoadModel(context.Background(), "notes.txt", nil)
	assert.ErrorIs(t, err, core.ErrAssetFetch)
}

func TestAssetManagerServesRepeatsFromCache(t *testing.T) {
	client := newMockS3()
	client.objects["bucket/hat.obj"] = []byte(triangleOBJ)

	cfg := DefaultConfig()
	cfg.Root = ""
	am := newTestManager(t, cfg, client)

	for i := 0; i < 3; i++ {
		_, err := am.LoadModel(context.Background(), "s3://bucket/hat.obj", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, client.gets)

	data, err := am.Fetch(context.Background(), "s3://bucket/hat.obj")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "o tri"))
}

func TestAssetManagerSniffsExtensionlessImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thumb"), pngBytes(t), 0o644))
	cfg := DefaultConfig()
	cfg.Root = dir
	cfg.CacheEnabled = false
	am := newTestManager(t, cfg, nil)

	tex, err := am.LoadTexture(context.Background(), "thumb", nil)
	require.NoError(t, err)
	assert.Equal(t, "png", tex.Format)
}

func TestAssetManagerCancelledContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.obj"), []byte(triangleOBJ), 0o644))
	cfg := DefaultConfig()
	cfg.Root = dir
	am := newTestManager(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := am.LoadModel(ctx, "tri.obj", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssetManagerWatchInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"v":1}`), 0o644))

	cfg := DefaultConfig()
	cfg.Root = dir
	cfg.Watch = true
	am := newTestManager(t, cfg, nil)

	data, err := am.Fetch(context.Background(), "doc.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))

	require.NoError(t, os.WriteFile(file, []byte(`{"v":2}`), 0o644))
	assert.Eventually(t, func() bool {
		data, err := am.Fetch(context.Background(), "doc.json")
		return err == nil && string(data) == `{"v":2}`
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNewS3Client(t *testing.T) {
	assert.Nil(t, NewS3Client(S3Config{}))

	client := NewS3Client(S3Config{Region: "eu-west-1", Endpoint: "http://localhost:9000", UsePathStyle: true, AccessKeyID: "key", SecretAccessKey: "secret"})
	require.NotNil(t, client)
	opts := client.Options()
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.True(t, opts.UsePathStyle)
	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key", creds.AccessKeyID)
}
