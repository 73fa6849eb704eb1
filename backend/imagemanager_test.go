package backend

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func Test_GetCoverArtFetchesAndCaches(t *testing.T) {
	data := pngBytes(t)
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(data)
	}))
	defer ts.Close()

	im := NewImageManager(t.TempDir())

	img, err := im.GetCoverArt(ts.URL + "/cover.png")
	if err != nil {
		t.Fatalf("GetCoverArt failed: %v", err)
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("decoded bounds %v", img.Bounds())
	}

	// second call is served from the disk cache
	if _, err := im.GetCoverArt(ts.URL + "/cover.png"); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
}

func Test_GetCoverArtEmptyURL(t *testing.T) {
	im := NewImageManager(t.TempDir())
	if _, err := im.GetCoverArt(""); err == nil {
		t.Error("empty URL should error, not fetch")
	}
}

func Test_EnsureCachedLocally(t *testing.T) {
	data := pngBytes(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer ts.Close()

	im := NewImageManager(t.TempDir())
	p, err := im.EnsureCachedLocally(ts.URL + "/cover.png")
	if err != nil {
		t.Fatalf("EnsureCachedLocally failed: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("cached file missing: %v", err)
	}
}
