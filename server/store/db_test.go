package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
	})
	return db
}

func TestDB_Songs(t *testing.T) {
	db := setupTestDB(t)

	song := &Song{
		ID:       "s1",
		Title:    "Paranoid",
		Artist:   "Black Sabbath",
		Genre:    "Metal",
		Album:    "Paranoid",
		AudioURL: "/media/s1-audio.mp3",
	}
	if err := db.CreateSong(song); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}

	fetched, err := db.GetSongByID("s1")
	if err != nil {
		t.Fatalf("GetSongByID failed: %v", err)
	}
	if fetched.Title != "Paranoid" || fetched.Genre != "Metal" {
		t.Errorf("got %+v", fetched)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on create")
	}

	fetched.Title = "Paranoid (Remastered)"
	if err := db.UpdateSong(fetched); err != nil {
		t.Fatalf("UpdateSong failed: %v", err)
	}
	updated, _ := db.GetSongByID("s1")
	if updated.Title != "Paranoid (Remastered)" {
		t.Errorf("Expected updated title, got %s", updated.Title)
	}

	songs, err := db.ListSongs()
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(songs) != 1 {
		t.Errorf("Expected 1 song, got %d", len(songs))
	}

	if err := db.DeleteSong("s1"); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}
	if _, err := db.GetSongByID("s1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected ErrNoRows after delete, got %v", err)
	}

	// deleting an absent song is an error
	if err := db.DeleteSong("zzz"); err == nil {
		t.Error("Expected error deleting absent song")
	}
}

func TestDB_Lookups(t *testing.T) {
	db := setupTestDB(t)

	for _, l := range []*Lookup{
		{ID: "a1", Category: "artist", Value: "Bob Marley"},
		{ID: "g1", Category: "genre", Value: "Reggae"},
		{ID: "g2", Category: "genre", Value: "Metal"},
	} {
		if err := db.CreateLookup(l); err != nil {
			t.Fatalf("CreateLookup failed: %v", err)
		}
	}

	all, err := db.ListLookups("")
	if err != nil {
		t.Fatalf("ListLookups failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 lookups, got %d", len(all))
	}

	genres, err := db.ListLookups("genre")
	if err != nil {
		t.Fatalf("ListLookups(genre) failed: %v", err)
	}
	if len(genres) != 2 {
		t.Errorf("Expected 2 genres, got %d", len(genres))
	}
	// ordered by value within category
	if genres[0].Value != "Metal" {
		t.Errorf("Expected Metal first, got %s", genres[0].Value)
	}

	lk, _ := db.GetLookupByID("g1")
	lk.Value = "Dub"
	if err := db.UpdateLookup(lk); err != nil {
		t.Fatalf("UpdateLookup failed: %v", err)
	}

	if err := db.DeleteLookup("a1"); err != nil {
		t.Fatalf("DeleteLookup failed: %v", err)
	}
	if remaining, _ := db.ListLookups(""); len(remaining) != 2 {
		t.Errorf("Expected 2 lookups after delete, got %d", len(remaining))
	}

	// schema rejects unknown categories
	if err := db.CreateLookup(&Lookup{ID: "x", Category: "composer", Value: "Mozart"}); err == nil {
		t.Error("Expected CHECK constraint error for unknown category")
	}
}

func TestDB_Stats(t *testing.T) {
	db := setupTestDB(t)

	for _, s := range []*Song{
		{ID: "1", Title: "A", Artist: "X", Genre: "Rock", Album: "R1"},
		{ID: "2", Title: "B", Artist: "X", Genre: "Rock", Album: "R2"},
		{ID: "3", Title: "C", Artist: "Y", Genre: "Jazz", Album: "J1"},
	} {
		if err := db.CreateSong(s); err != nil {
			t.Fatalf("CreateSong failed: %v", err)
		}
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalSongs != 3 || stats.TotalArtists != 2 || stats.TotalAlbums != 3 || stats.TotalGenres != 2 {
		t.Errorf("got %+v", stats)
	}
	if stats.SongsPerGenre["Rock"] != 2 || stats.SongsPerGenre["Jazz"] != 1 {
		t.Errorf("SongsPerGenre = %v", stats.SongsPerGenre)
	}
}
