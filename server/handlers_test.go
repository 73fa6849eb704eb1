package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tunecrate/tunecrate/server/store"
)

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.NewSQLiteDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mediaDir := filepath.Join(dir, "media")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	h := NewHandler(db, mediaDir, 8*1_048_576)
	h.RegisterRoutes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, mediaDir
}

func songForm(t *testing.T, fields map[string]string, withFiles bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if withFiles {
		fw, err := w.CreateFormFile("audio", "song.mp3")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("fake audio bytes"))
		fw, err = w.CreateFormFile("image", "cover.jpg")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("fake image bytes"))
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func postSong(t *testing.T, ts *httptest.Server, fields map[string]string) store.Song {
	t.Helper()
	body, contentType := songForm(t, fields, true)
	resp, err := http.Post(ts.URL+"/api/songs", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create song: status %d", resp.StatusCode)
	}
	var song store.Song
	json.NewDecoder(resp.Body).Decode(&song)
	return song
}

func Test_SongCRUD(t *testing.T) {
	ts, mediaDir := setupTestServer(t)

	song := postSong(t, ts, map[string]string{
		"title": "Paranoid", "artist": "Black Sabbath", "genre": "Metal", "album": "Paranoid",
	})
	if song.ID == "" || song.Title != "Paranoid" {
		t.Fatalf("got %+v", song)
	}
	if !strings.HasPrefix(song.AudioURL, "/media/") {
		t.Errorf("AudioURL = %q, want /media/ path", song.AudioURL)
	}
	// the uploaded file landed in the media dir
	name := strings.TrimPrefix(song.AudioURL, "/media/")
	if _, err := os.Stat(filepath.Join(mediaDir, name)); err != nil {
		t.Errorf("uploaded audio not stored: %v", err)
	}

	// list
	resp, err := http.Get(ts.URL + "/api/songs")
	if err != nil {
		t.Fatal(err)
	}
	var songs []store.Song
	json.NewDecoder(resp.Body).Decode(&songs)
	resp.Body.Close()
	if len(songs) != 1 {
		t.Fatalf("got %d songs", len(songs))
	}

	// update without new files keeps the audio
	body, contentType := songForm(t, map[string]string{
		"title": "Paranoid (Remastered)", "artist": "Black Sabbath", "genre": "Metal", "album": "Paranoid",
	}, false)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/songs/"+song.ID, body)
	req.Header.Set("Content-Type", contentType)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated store.Song
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.Title != "Paranoid (Remastered)" || updated.AudioURL != song.AudioURL {
		t.Errorf("got %+v", updated)
	}

	// delete echoes the id and removes the media files
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/songs/"+song.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var echo map[string]string
	json.NewDecoder(resp.Body).Decode(&echo)
	resp.Body.Close()
	if echo["id"] != song.ID {
		t.Errorf("delete echoed %q, want %q", echo["id"], song.ID)
	}
	if _, err := os.Stat(filepath.Join(mediaDir, name)); !os.IsNotExist(err) {
		t.Error("deleted song's audio file should be removed")
	}
}

func Test_UpdateSongPartialKeepsFields(t *testing.T) {
	ts, _ := setupTestServer(t)

	song := postSong(t, ts, map[string]string{
		"title": "Holiday", "artist": "Green Day", "genre": "Punk", "album": "American Idiot",
	})

	// form carries only a new title, other fields stay as stored
	body, contentType := songForm(t, map[string]string{"title": "Holiday (Live)"}, false)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/songs/"+song.ID, body)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated store.Song
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.Title != "Holiday (Live)" {
		t.Errorf("Title = %q", updated.Title)
	}
	if updated.Artist != "Green Day" || updated.Genre != "Punk" || updated.Album != "American Idiot" {
		t.Errorf("omitted fields were changed: %+v", updated)
	}

	// an explicitly empty title is still rejected
	body, contentType = songForm(t, map[string]string{"title": ""}, false)
	req, _ = http.NewRequest(http.MethodPut, ts.URL+"/api/songs/"+song.ID, body)
	req.Header.Set("Content-Type", contentType)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty title: status %d, want 400", resp.StatusCode)
	}
}

func Test_CreateSongRequiresFiles(t *testing.T) {
	ts, _ := setupTestServer(t)

	body, contentType := songForm(t, map[string]string{"title": "X"}, false)
	resp, err := http.Post(ts.URL+"/api/songs", contentType, body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
	var apiErr map[string]string
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr["error"] == "" {
		t.Error("error responses should carry an error message")
	}
}

func Test_UpdateMissingSong(t *testing.T) {
	ts, _ := setupTestServer(t)

	body, contentType := songForm(t, map[string]string{"title": "X"}, false)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/songs/nope", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func Test_LookupCRUD(t *testing.T) {
	ts, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"category": "genre", "value": "Metal"})
	resp, err := http.Post(ts.URL+"/api/lookups", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create lookup: status %d", resp.StatusCode)
	}
	var lookup store.Lookup
	json.NewDecoder(resp.Body).Decode(&lookup)
	resp.Body.Close()
	if lookup.ID == "" || lookup.Category != "genre" {
		t.Fatalf("got %+v", lookup)
	}

	// filtered list
	resp, err = http.Get(ts.URL + "/api/lookups?category=genre")
	if err != nil {
		t.Fatal(err)
	}
	var lookups []store.Lookup
	json.NewDecoder(resp.Body).Decode(&lookups)
	resp.Body.Close()
	if len(lookups) != 1 {
		t.Errorf("got %d lookups", len(lookups))
	}

	// update
	body, _ = json.Marshal(map[string]string{"category": "genre", "value": "Doom Metal"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/lookups/"+lookup.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var updated store.Lookup
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.Value != "Doom Metal" {
		t.Errorf("got %+v", updated)
	}

	// delete echoes id
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/lookups/"+lookup.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var echo map[string]string
	json.NewDecoder(resp.Body).Decode(&echo)
	resp.Body.Close()
	if echo["id"] != lookup.ID {
		t.Errorf("delete echoed %q", echo["id"])
	}
}

func Test_LookupCategoryValidated(t *testing.T) {
	ts, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"category": "composer", "value": "Mozart"})
	resp, err := http.Post(ts.URL+"/api/lookups", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/api/lookups?category=composer")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("list with bad category: status %d, want 400", resp2.StatusCode)
	}
}

func Test_Stats(t *testing.T) {
	ts, _ := setupTestServer(t)

	postSong(t, ts, map[string]string{"title": "A", "artist": "X", "genre": "Rock", "album": "R"})
	postSong(t, ts, map[string]string{"title": "B", "artist": "Y", "genre": "Rock", "album": "R"})

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats store.Stats
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats.TotalSongs != 2 || stats.TotalArtists != 2 || stats.SongsPerGenre["Rock"] != 2 {
		t.Errorf("got %+v", stats)
	}
}
