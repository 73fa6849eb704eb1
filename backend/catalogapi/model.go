package catalogapi

import "time"

// A song in the catalog. IDs are assigned by the server and stable
// for the lifetime of the record.
type Song struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Genre     string    `json:"genre"`
	Album     string    `json:"album"`
	ImageURL  string    `json:"imageUrl"`
	AudioURL  string    `json:"audioUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// The category a lookup value belongs to.
type LookupCategory string

const (
	CategoryArtist LookupCategory = "artist"
	CategoryGenre  LookupCategory = "genre"
	CategoryAlbum  LookupCategory = "album"
)

// Reports whether c is one of the three known categories.
func (c LookupCategory) Valid() bool {
	switch c {
	case CategoryArtist, CategoryGenre, CategoryAlbum:
		return true
	}
	return false
}

// A reference value used to populate selectable options
// (artist, genre, and album names).
type Lookup struct {
	ID       string         `json:"id"`
	Category LookupCategory `json:"category"`
	Value    string         `json:"value"`
}

// Fields submitted when creating or updating a song.
// Image and Audio are optional on update; the server keeps
// the existing files when they are omitted.
type SongFormData struct {
	Title  string
	Artist string
	Genre  string
	Album  string

	ImageFilename string
	ImageData     []byte
	AudioFilename string
	AudioData     []byte
}

// Aggregate counts for the dashboard.
type LibraryStats struct {
	TotalSongs    int            `json:"totalSongs"`
	TotalArtists  int            `json:"totalArtists"`
	TotalAlbums   int            `json:"totalAlbums"`
	TotalGenres   int            `json:"totalGenres"`
	SongsPerGenre map[string]int `json:"songsPerGenre"`
}
