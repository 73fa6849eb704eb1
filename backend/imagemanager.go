package backend

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/20after4/configdir"
	"github.com/hashicorp/go-retryablehttp"
)

const defaultDiskCacheSizeBytes = 50 * 1_048_576

// The ImageManager retrieves song cover art and maintains an on-disk
// cache of fetched images, pruned oldest-first when it exceeds the
// configured size. Cover fetches are idempotent GETs, so transient
// failures are retried.
type ImageManager struct {
	baseCacheDir string
	httpClient   *retryablehttp.Client

	maxOnDiskCacheSizeBytes    int64
	filesWrittenSinceLastPrune bool
}

func NewImageManager(baseCacheDir string) *ImageManager {
	if err := configdir.MakePath(baseCacheDir); err != nil {
		log.Println("failed to create cover art cache dir")
		baseCacheDir = ""
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &ImageManager{
		baseCacheDir:            baseCacheDir,
		httpClient:              client,
		maxOnDiskCacheSizeBytes: defaultDiskCacheSizeBytes,
	}
}

func (i *ImageManager) SetMaxOnDiskCacheSizeBytes(size int64) {
	i.maxOnDiskCacheSizeBytes = size
}

// GetCoverArt returns the image at the given URL, preferring the
// on-disk cache.
func (i *ImageManager) GetCoverArt(imageURL string) (image.Image, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("no cover art URL")
	}
	if img, err := i.loadLocalImage(i.filePathForURL(imageURL)); err == nil {
		return img, nil
	}
	return i.fetchAndCacheCover(imageURL)
}

// EnsureCachedLocally fetches the cover into the disk cache if it is
// not already present, returning the local file path.
func (i *ImageManager) EnsureCachedLocally(imageURL string) (string, error) {
	p := i.filePathForURL(imageURL)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	if _, err := i.fetchAndCacheCover(imageURL); err != nil {
		return "", err
	}
	return p, nil
}

func (i *ImageManager) fetchAndCacheCover(imageURL string) (image.Image, error) {
	resp, err := i.httpClient.Get(imageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetching cover art: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	i.writeCacheFile(i.filePathForURL(imageURL), data)
	return img, nil
}

func (i *ImageManager) loadLocalImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func (i *ImageManager) filePathForURL(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return path.Join(i.baseCacheDir, hex.EncodeToString(sum[:16])+".img")
}

func (i *ImageManager) writeCacheFile(path string, data []byte) {
	if i.baseCacheDir == "" {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("failed to cache cover art: %v", err)
		return
	}
	i.filesWrittenSinceLastPrune = true
	i.pruneOnDiskCache()
}

// pruneOnDiskCache evicts the oldest cached covers until the cache
// fits under the size limit again.
func (i *ImageManager) pruneOnDiskCache() {
	if !i.filesWrittenSinceLastPrune || i.baseCacheDir == "" {
		return
	}
	i.filesWrittenSinceLastPrune = false

	type fileInfo struct {
		path    string
		size    int64
		modTime int64
	}
	var files []fileInfo
	var totalSize int64
	filepath.WalkDir(i.baseCacheDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files = append(files, fileInfo{p, info.Size(), info.ModTime().UnixMilli()})
			totalSize += info.Size()
		}
		return nil
	})
	if totalSize <= i.maxOnDiskCacheSizeBytes {
		return
	}

	sort.Slice(files, func(a, b int) bool {
		return files[a].modTime < files[b].modTime
	})
	for _, f := range files {
		if totalSize <= i.maxOnDiskCacheSizeBytes {
			break
		}
		if err := os.Remove(f.path); err == nil {
			totalSize -= f.size
		}
	}
}
