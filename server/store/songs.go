package store

import (
	"fmt"
	"time"
)

type Song struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Artist    string    `db:"artist" json:"artist"`
	Genre     string    `db:"genre" json:"genre"`
	Album     string    `db:"album" json:"album"`
	ImageURL  string    `db:"image_url" json:"imageUrl"`
	AudioURL  string    `db:"audio_url" json:"audioUrl"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (db *DB) CreateSong(song *Song) error {
	now := time.Now().UTC()
	song.CreatedAt = now
	song.UpdatedAt = now

	query := `INSERT INTO songs (
		id, title, artist, genre, album, image_url, audio_url, created_at, updated_at
	) VALUES (
		:id, :title, :artist, :genre, :album, :image_url, :audio_url, :created_at, :updated_at
	)`

	if _, err := db.NamedExec(query, song); err != nil {
		return fmt.Errorf("failed to create song: %w", err)
	}
	return nil
}

func (db *DB) GetSongByID(id string) (*Song, error) {
	var song Song
	err := db.Get(&song, `SELECT * FROM songs WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// ListSongs returns all songs, newest first.
func (db *DB) ListSongs() ([]Song, error) {
	songs := []Song{}
	err := db.Select(&songs, `SELECT * FROM songs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	return songs, nil
}

func (db *DB) UpdateSong(song *Song) error {
	song.UpdatedAt = time.Now().UTC()

	query := `UPDATE songs SET
		title = :title, artist = :artist, genre = :genre, album = :album,
		image_url = :image_url, audio_url = :audio_url, updated_at = :updated_at
	WHERE id = :id`

	res, err := db.NamedExec(query, song)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("song %s not found", song.ID)
	}
	return nil
}

func (db *DB) DeleteSong(id string) error {
	res, err := db.Exec(`DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("song %s not found", id)
	}
	return nil
}

type Stats struct {
	TotalSongs    int            `json:"totalSongs"`
	TotalArtists  int            `json:"totalArtists"`
	TotalAlbums   int            `json:"totalAlbums"`
	TotalGenres   int            `json:"totalGenres"`
	SongsPerGenre map[string]int `json:"songsPerGenre"`
}

// GetStats aggregates library counts over the songs table.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{SongsPerGenre: map[string]int{}}

	row := db.QueryRow(`SELECT
		COUNT(*),
		COUNT(DISTINCT artist),
		COUNT(DISTINCT album),
		COUNT(DISTINCT genre)
	FROM songs`)
	if err := row.Scan(&stats.TotalSongs, &stats.TotalArtists, &stats.TotalAlbums, &stats.TotalGenres); err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	rows, err := db.Query(`SELECT genre, COUNT(*) FROM songs GROUP BY genre`)
	if err != nil {
		return nil, fmt.Errorf("failed to count songs per genre: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var genre string
		var count int
		if err := rows.Scan(&genre, &count); err != nil {
			return nil, err
		}
		stats.SongsPerGenre[genre] = count
	}
	return stats, rows.Err()
}
