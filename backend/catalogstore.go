package backend

import (
	"sync"

	"github.com/charlievieth/strcase"
	"github.com/deluan/sanitize"

	"github.com/tunecrate/tunecrate/backend/catalogapi"
	"github.com/tunecrate/tunecrate/sharedutil"
)

// CatalogState is an immutable snapshot of the catalog store.
// Songs are held in server order (newest first); FilteredSongs is the
// derived view under the current search term and genre filter.
type CatalogState struct {
	Songs         []*catalogapi.Song
	FilteredSongs []*catalogapi.Song
	SearchTerm    string
	GenreFilter   string
	Loading       bool
	Error         string // empty when there is no error
}

// CatalogStore holds the song collection and its derived filtered view.
// Transitions run to completion under the store lock; change callbacks
// fire after the transition commits, with a snapshot of the new state.
//
// The Begin*/Commit*/Fail* pairs carry a generation token per verb:
// a commit whose token is no longer the latest issued for that verb is
// discarded, so a superseded in-flight request can never overwrite the
// result of a newer one.
type CatalogStore struct {
	mutex sync.Mutex
	state CatalogState

	fetchGen  uint64
	addGen    uint64
	updateGen uint64
	deleteGen uint64

	onChange      []func(CatalogState)
	onSongUpdated []func(*catalogapi.Song)
	onSongDeleted []func(string)
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

// OnChange registers a callback invoked after every committed transition.
func (c *CatalogStore) OnChange(cb func(CatalogState)) {
	c.onChange = append(c.onChange, cb)
}

// OnSongUpdated registers a callback invoked when an update-success
// replaces a song, so collaborators holding a reference (the player
// engine) can refresh their copy.
func (c *CatalogStore) OnSongUpdated(cb func(*catalogapi.Song)) {
	c.onSongUpdated = append(c.onSongUpdated, cb)
}

// OnSongDeleted registers a callback invoked with the id of every song
// removed by a delete-success.
func (c *CatalogStore) OnSongDeleted(cb func(string)) {
	c.onSongDeleted = append(c.onSongDeleted, cb)
}

func (c *CatalogStore) State() CatalogState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.snapshotLocked()
}

func (c *CatalogStore) GetSongs() []*catalogapi.Song {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]*catalogapi.Song(nil), c.state.Songs...)
}

func (c *CatalogStore) GetFilteredSongs() []*catalogapi.Song {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]*catalogapi.Song(nil), c.state.FilteredSongs...)
}

// GetSong returns the song with the given id, or nil if absent.
func (c *CatalogStore) GetSong(id string) *catalogapi.Song {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return sharedutil.FindSongByID(id, c.state.Songs)
}

// GetGenres returns the distinct genres present in the catalog,
// in first-seen order.
func (c *CatalogStore) GetGenres() []string {
	c.mutex.Lock()
	genres := sharedutil.MapSlice(c.state.Songs, func(s *catalogapi.Song) string {
		return s.Genre
	})
	c.mutex.Unlock()

	remaining := sharedutil.ToSet(genres)
	distinct := make([]string, 0, len(remaining))
	for _, g := range genres {
		if _, ok := remaining[g]; ok {
			delete(remaining, g)
			distinct = append(distinct, g)
		}
	}
	return distinct
}

// BeginFetch marks a fetch in flight and returns its generation token.
func (c *CatalogStore) BeginFetch() uint64 {
	return c.begin(&c.fetchGen)
}

// CommitFetch replaces the song collection wholesale and recomputes the
// filtered view. Returns false if the token has been superseded.
func (c *CatalogStore) CommitFetch(gen uint64, songs []*catalogapi.Song) bool {
	return c.commit(&c.fetchGen, gen, func() {
		c.state.Songs = songs
		c.refilterLocked()
	})
}

func (c *CatalogStore) FailFetch(gen uint64, msg string) bool {
	return c.fail(&c.fetchGen, gen, msg)
}

func (c *CatalogStore) BeginAdd() uint64 {
	return c.begin(&c.addGen)
}

// CommitAdd prepends the created song (newest first).
func (c *CatalogStore) CommitAdd(gen uint64, song *catalogapi.Song) bool {
	return c.commit(&c.addGen, gen, func() {
		c.state.Songs = append([]*catalogapi.Song{song}, c.state.Songs...)
		c.refilterLocked()
	})
}

func (c *CatalogStore) FailAdd(gen uint64, msg string) bool {
	return c.fail(&c.addGen, gen, msg)
}

func (c *CatalogStore) BeginUpdate() uint64 {
	return c.begin(&c.updateGen)
}

// CommitUpdate replaces the matching song by id.
func (c *CatalogStore) CommitUpdate(gen uint64, song *catalogapi.Song) bool {
	ok := c.commit(&c.updateGen, gen, func() {
		c.state.Songs = sharedutil.MapSlice(c.state.Songs, func(s *catalogapi.Song) *catalogapi.Song {
			if s.ID == song.ID {
				return song
			}
			return s
		})
		c.refilterLocked()
	})
	if ok {
		for _, cb := range c.onSongUpdated {
			cb(song)
		}
	}
	return ok
}

func (c *CatalogStore) FailUpdate(gen uint64, msg string) bool {
	return c.fail(&c.updateGen, gen, msg)
}

func (c *CatalogStore) BeginDelete() uint64 {
	return c.begin(&c.deleteGen)
}

// CommitDelete removes the song by id from both the collection and the
// filtered view.
func (c *CatalogStore) CommitDelete(gen uint64, id string) bool {
	ok := c.commit(&c.deleteGen, gen, func() {
		c.state.Songs = sharedutil.FilterSlice(c.state.Songs, func(s *catalogapi.Song) bool {
			return s.ID != id
		})
		c.refilterLocked()
	})
	if ok {
		for _, cb := range c.onSongDeleted {
			cb(id)
		}
	}
	return ok
}

func (c *CatalogStore) FailDelete(gen uint64, msg string) bool {
	return c.fail(&c.deleteGen, gen, msg)
}

func (c *CatalogStore) SetSearchTerm(term string) {
	c.mutex.Lock()
	c.state.SearchTerm = term
	c.refilterLocked()
	snap := c.snapshotLocked()
	c.mutex.Unlock()
	c.invokeOnChange(snap)
}

func (c *CatalogStore) SetGenreFilter(genre string) {
	c.mutex.Lock()
	c.state.GenreFilter = genre
	c.refilterLocked()
	snap := c.snapshotLocked()
	c.mutex.Unlock()
	c.invokeOnChange(snap)
}

func (c *CatalogStore) ClearFilters() {
	c.mutex.Lock()
	c.state.SearchTerm = ""
	c.state.GenreFilter = ""
	c.refilterLocked()
	snap := c.snapshotLocked()
	c.mutex.Unlock()
	c.invokeOnChange(snap)
}

func (c *CatalogStore) begin(gen *uint64) uint64 {
	c.mutex.Lock()
	*gen++
	g := *gen
	c.state.Loading = true
	c.state.Error = ""
	snap := c.snapshotLocked()
	c.mutex.Unlock()
	c.invokeOnChange(snap)
	return g
}

func (c *CatalogStore) commit(latest *uint64, gen uint64, apply func()) bool {
	c.mutex.Lock()
	if gen != *latest {
		c.mutex.Unlock()
		return false
	}
	apply()
	c.state.Loading = false
	snap := c.snapshotLocked()
	c.mutex.Unlock()
	c.invokeOnChange(snap)
	return true
}

// fail records the error message but leaves the song collection intact:
// stale-but-available data beats an empty catalog.
func (c *CatalogStore) fail(latest *uint64, gen uint64, msg string) bool {
	c.mutex.Lock()
	if gen != *latest {
		c.mutex.Unlock()
		return false
	}
	c.state.Loading = false
	c.state.Error = msg
	snap := c.snapshotLocked()
	c.mutex.Unlock()
	c.invokeOnChange(snap)
	return true
}

func (c *CatalogStore) refilterLocked() {
	c.state.FilteredSongs = filterSongs(c.state.Songs, c.state.SearchTerm, c.state.GenreFilter)
}

func (c *CatalogStore) snapshotLocked() CatalogState {
	snap := c.state
	snap.Songs = append([]*catalogapi.Song(nil), c.state.Songs...)
	snap.FilteredSongs = append([]*catalogapi.Song(nil), c.state.FilteredSongs...)
	return snap
}

func (c *CatalogStore) invokeOnChange(snap CatalogState) {
	for _, cb := range c.onChange {
		cb(snap)
	}
}

// filterSongs applies the search term (case- and accent-insensitive
// substring on title, artist, album) and the genre filter (exact
// match). Empty criteria match everything.
func filterSongs(songs []*catalogapi.Song, searchTerm, genreFilter string) []*catalogapi.Song {
	filtered := append([]*catalogapi.Song(nil), songs...)
	if searchTerm != "" {
		term := sanitize.Accents(searchTerm)
		filtered = sharedutil.FilterSlice(filtered, func(s *catalogapi.Song) bool {
			return strcase.Contains(sanitize.Accents(s.Title), term) ||
				strcase.Contains(sanitize.Accents(s.Artist), term) ||
				strcase.Contains(sanitize.Accents(s.Album), term)
		})
	}
	if genreFilter != "" {
		filtered = sharedutil.FilterSlice(filtered, func(s *catalogapi.Song) bool {
			return s.Genre == genreFilter
		})
	}
	return filtered
}
