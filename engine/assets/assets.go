package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/character-studio/engine/assets/loaders"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/metadata"
)

type S3Config struct {
	Region          string `toml:"region" env:"REGION"`
	Endpoint        string `toml:"endpoint" env:"ENDPOINT"`
	Prefix          string `toml:"prefix" env:"PREFIX"`
	AccessKeyID     string `toml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `toml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `toml:"use_path_style" env:"USE_PATH_STYLE"`
}

type Config struct {
	// Root is the directory relative asset locations are read from.
	Root string `toml:"root" env:"ROOT"`
	// Watch invalidates cached bytes when files below Root change.
	Watch bool `toml:"watch" env:"WATCH"`
	// Remote enables http(s) locations.
	Remote             bool     `toml:"remote" env:"REMOTE"`
	HTTPTimeoutSeconds int      `toml:"http_timeout_seconds" env:"HTTP_TIMEOUT_SECONDS"`
	CacheEnabled       bool     `toml:"cache_enabled" env:"CACHE_ENABLED"`
	CacheDir           string   `toml:"cache_dir" env:"CACHE_DIR"`
	CacheTTLSeconds    int      `toml:"cache_ttl_seconds" env:"CACHE_TTL_SECONDS"`
	S3                 S3Config `toml:"s3" envPrefix:"S3_"`
}

func DefaultConfig() Config {
	return Config{
		Root:               "assets",
		Remote:             true,
		HTTPTimeoutSeconds: 30,
		CacheEnabled:       true,
	}
}

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Fetches raw asset bytes through the store router, caches them and
 * decodes them with the loader registered for the file extension.
 */
type AssetManager struct {
	config  Config
	router  *StoreRouter
	cache   *Cache
	loaders map[string]Loader

	mutex  sync.RWMutex
	assets map[string]AssetInfo

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(config Config, s3Client S3Client) (*AssetManager, error) {
	var httpStore *HTTPStore
	if config.Remote {
		timeout := time.Duration(config.HTTPTimeoutSeconds) * time.Second
		httpStore = NewHTTPStore(&http.Client{Timeout: timeout})
	}

	am := &AssetManager{
		config:  config,
		router:  NewStoreRouter(NewLocalStore(config.Root), httpStore, s3Client, config.S3.Prefix),
		loaders: make(map[string]Loader),
		assets:  make(map[string]AssetInfo),
		done:    make(chan struct{}),
	}

	if config.CacheEnabled {
		cache, err := NewCache(CacheOptions{
			Dir: config.CacheDir,
			TTL: time.Duration(config.CacheTTLSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		am.cache = cache
	}
	return am, nil
}

func (am *AssetManager) Initialize() error {
	// Register loaders
	am.registerLoader(&loaders.ModelLoader{})
	am.registerLoader(&loaders.TextureLoader{})

	if !am.config.Watch || am.config.Root == "" {
		return nil
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	go am.start()

	return am.addRecursive(am.config.Root)
}

// Register loaders for each file extension they handle
func (am *AssetManager) registerLoader(loader Loader) {
	for _, ext := range loader.Extensions() {
		am.loaders[ext] = loader
	}
}

// LoadModel fetches and decodes a model. Errors are *core.AssetFetchError.
func (am *AssetManager) LoadModel(ctx context.Context, location string, progress metadata.ProgressFunc) (*metadata.Model, error) {
	res, err := am.LoadAsset(ctx, location, metadata.ResourceTypeModel, progress)
	if err != nil {
		return nil, core.NewAssetFetchError(location, core.AssetKindModel, err)
	}
	model, ok := res.Data.(*metadata.Model)
	if !ok {
		return nil, core.NewAssetFetchError(location, core.AssetKindModel, fmt.Errorf("decoded %T, not a model", res.Data))
	}
	return model, nil
}

// LoadTexture fetches and decodes a texture. Errors are *core.AssetFetchError.
func (am *AssetManager) LoadTexture(ctx context.Context, location string, progress metadata.ProgressFunc) (*metadata.Texture, error) {
	res, err := am.LoadAsset(ctx, location, metadata.ResourceTypeImage, progress)
	if err != nil {
		return nil, core.NewAssetFetchError(location, core.AssetKindTexture, err)
	}
	tex, ok := res.Data.(*metadata.Texture)
	if !ok {
		return nil, core.NewAssetFetchError(location, core.AssetKindTexture, fmt.Errorf("decoded %T, not a texture", res.Data))
	}
	return tex, nil
}

// Fetch returns the raw bytes of a document such as a catalog.
func (am *AssetManager) Fetch(ctx context.Context, location string) ([]byte, error) {
	data, err := am.read(ctx, location, nil)
	if err != nil {
		return nil, core.NewAssetFetchError(location, core.AssetKindDocument, err)
	}
	return data, nil
}

// Load an asset using the appropriate loader
func (am *AssetManager) LoadAsset(ctx context.Context, location string, resourceType metadata.ResourceType, progress metadata.ProgressFunc) (*metadata.Resource, error) {
	data, err := am.read(ctx, location, progress)
	if err != nil {
		return nil, err
	}

	loader, err := am.loaderFor(location, resourceType, data)
	if err != nil {
		return nil, err
	}
	res, err := loader.Load(location, data, nil)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		_ = loader.Unload(res)
		return nil, err
	}

	am.mutex.Lock()
	am.assets[location] = AssetInfo{Path: location, Type: res.Type, LastLoaded: time.Now()}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	if asset == nil {
		return nil
	}
	loader, ok := am.loaders[strings.ToLower(path.Ext(asset.FullPath))]
	if !ok {
		return nil
	}
	return loader.Unload(asset)
}

// Loaded returns what was decoded for location, if anything.
func (am *AssetManager) Loaded(location string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[location]
	return info, ok
}

func (am *AssetManager) loaderFor(location string, resourceType metadata.ResourceType, data []byte) (Loader, error) {
	p := location
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if loader, ok := am.loaders[strings.ToLower(path.Ext(p))]; ok {
		return loader, nil
	}
	if resourceType == metadata.ResourceTypeImage && loaders.IsImage(data) {
		return am.loaders[".png"], nil
	}
	return nil, fmt.Errorf("no loader registered for %s asset %q", resourceType, location)
}

func (am *AssetManager) read(ctx context.Context, location string, progress metadata.ProgressFunc) ([]byte, error) {
	if am.cache != nil {
		if data, ok := am.cache.Get(location); ok {
			if progress != nil {
				progress(int64(len(data)), int64(len(data)))
			}
			return data, nil
		}
	}

	store, name, err := am.router.Resolve(location)
	if err != nil {
		return nil, err
	}
	rc, size, err := store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if progress != nil {
		progress(0, size)
	}
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := io.Copy(&buf, &progressReader{r: rc, total: size, fn: progress}); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}

	if am.cache != nil {
		if err := am.cache.Put(location, data); err != nil {
			core.LogWarn("caching %s: %v", location, err)
		}
	}
	return data, nil
}

type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    metadata.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.fn != nil && n > 0 {
		p.fn(p.read, p.total)
	}
	return n, err
}

func (am *AssetManager) Shutdown() error {
	if am.fsnotify != nil && !am.isClosed {
		am.isClosed = true
		close(am.done)
	}
	if am.cache != nil {
		return am.cache.Close()
	}
	return nil
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("watching %s: %v", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				am.handleFileEvent(e.Name)
			}
			// Can't stat a deleted directory; try to drop it from the watch list anyway.
			if e.Op&fsnotify.Remove != 0 {
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%v", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(root string, unWatch bool) error {
	return filepath.Walk(root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		if unWatch {
			return am.fsnotify.Remove(walkPath)
		}
		return am.fsnotify.Add(walkPath)
	})
}

// handleFileEvent drops cached bytes for a changed file under every name it may have been requested by.
func (am *AssetManager) handleFileEvent(name string) {
	if am.cache == nil {
		return
	}
	candidates := []string{name}
	if rel, err := filepath.Rel(am.config.Root, name); err == nil && !strings.HasPrefix(rel, "..") {
		candidates = append(candidates, filepath.ToSlash(rel), "file://"+name)
	}
	if abs, err := filepath.Abs(name); err == nil {
		candidates = append(candidates, abs)
	}
	for _, c := range candidates {
		am.cache.Invalidate(c)
	}

	am.mutex.Lock()
	for _, c := range candidates {
		delete(am.assets, c)
	}
	am.mutex.Unlock()
	core.LogDebug("asset changed on disk: %s", name)
}
