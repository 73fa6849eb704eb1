package backend

import (
	"errors"
	"sync"

	"github.com/tunecrate/tunecrate/backend/catalogapi"
	"github.com/tunecrate/tunecrate/sharedutil"
)

// Returned when a lookup carries a category outside artist/genre/album.
var ErrUnknownCategory = errors.New("unknown lookup category")

// LookupState is an immutable snapshot of the lookup store. The three
// category slices are always an exact partition of AllLookups; they are
// recomputed inside the same transition that mutates the collection, so
// no reader can observe them out of sync.
type LookupState struct {
	AllLookups []*catalogapi.Lookup
	Artists    []*catalogapi.Lookup
	Genres     []*catalogapi.Lookup
	Albums     []*catalogapi.Lookup
	Loading    bool
	Error      string
}

// LookupStore holds the reference values used to populate form
// dropdowns, partitioned by category. Same generation-token discipline
// as the catalog store.
type LookupStore struct {
	mutex sync.Mutex
	state LookupState

	fetchGen  uint64
	addGen    uint64
	updateGen uint64
	deleteGen uint64

	onChange []func(LookupState)
}

func NewLookupStore() *LookupStore {
	return &LookupStore{}
}

func (l *LookupStore) OnChange(cb func(LookupState)) {
	l.onChange = append(l.onChange, cb)
}

func (l *LookupStore) State() LookupState {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.snapshotLocked()
}

// GetLookup returns the lookup with the given id, or nil if absent.
func (l *LookupStore) GetLookup(id string) *catalogapi.Lookup {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return sharedutil.FindLookupByID(id, l.state.AllLookups)
}

func (l *LookupStore) BeginFetch() uint64 {
	return l.begin(&l.fetchGen)
}

func (l *LookupStore) CommitFetch(gen uint64, lookups []*catalogapi.Lookup) bool {
	return l.commit(&l.fetchGen, gen, func() {
		l.state.AllLookups = lookups
		l.repartitionLocked()
	})
}

func (l *LookupStore) FailFetch(gen uint64, msg string) bool {
	return l.fail(&l.fetchGen, gen, msg)
}

func (l *LookupStore) BeginAdd() uint64 {
	return l.begin(&l.addGen)
}

// CommitAdd appends the created lookup to the collection and its
// category projection. A lookup with an unknown category is rejected
// before anything is committed.
func (l *LookupStore) CommitAdd(gen uint64, lookup *catalogapi.Lookup) (bool, error) {
	if !lookup.Category.Valid() {
		return false, ErrUnknownCategory
	}
	return l.commit(&l.addGen, gen, func() {
		l.state.AllLookups = append(l.state.AllLookups, lookup)
		l.repartitionLocked()
	}), nil
}

func (l *LookupStore) FailAdd(gen uint64, msg string) bool {
	return l.fail(&l.addGen, gen, msg)
}

func (l *LookupStore) BeginUpdate() uint64 {
	return l.begin(&l.updateGen)
}

func (l *LookupStore) CommitUpdate(gen uint64, lookup *catalogapi.Lookup) (bool, error) {
	if !lookup.Category.Valid() {
		return false, ErrUnknownCategory
	}
	return l.commit(&l.updateGen, gen, func() {
		l.state.AllLookups = sharedutil.MapSlice(l.state.AllLookups, func(x *catalogapi.Lookup) *catalogapi.Lookup {
			if x.ID == lookup.ID {
				return lookup
			}
			return x
		})
		l.repartitionLocked()
	}), nil
}

func (l *LookupStore) FailUpdate(gen uint64, msg string) bool {
	return l.fail(&l.updateGen, gen, msg)
}

func (l *LookupStore) BeginDelete() uint64 {
	return l.begin(&l.deleteGen)
}

func (l *LookupStore) CommitDelete(gen uint64, id string) bool {
	return l.commit(&l.deleteGen, gen, func() {
		l.state.AllLookups = sharedutil.FilterSlice(l.state.AllLookups, func(x *catalogapi.Lookup) bool {
			return x.ID != id
		})
		l.repartitionLocked()
	})
}

func (l *LookupStore) FailDelete(gen uint64, msg string) bool {
	return l.fail(&l.deleteGen, gen, msg)
}

func (l *LookupStore) begin(gen *uint64) uint64 {
	l.mutex.Lock()
	*gen++
	g := *gen
	l.state.Loading = true
	l.state.Error = ""
	snap := l.snapshotLocked()
	l.mutex.Unlock()
	l.invokeOnChange(snap)
	return g
}

func (l *LookupStore) commit(latest *uint64, gen uint64, apply func()) bool {
	l.mutex.Lock()
	if gen != *latest {
		l.mutex.Unlock()
		return false
	}
	apply()
	l.state.Loading = false
	snap := l.snapshotLocked()
	l.mutex.Unlock()
	l.invokeOnChange(snap)
	return true
}

func (l *LookupStore) fail(latest *uint64, gen uint64, msg string) bool {
	l.mutex.Lock()
	if gen != *latest {
		l.mutex.Unlock()
		return false
	}
	l.state.Loading = false
	l.state.Error = msg
	snap := l.snapshotLocked()
	l.mutex.Unlock()
	l.invokeOnChange(snap)
	return true
}

// repartitionLocked rebuilds the three category projections from the
// flat collection, keeping the partition invariant in one transition.
func (l *LookupStore) repartitionLocked() {
	byCategory := func(cat catalogapi.LookupCategory) []*catalogapi.Lookup {
		return sharedutil.FilterSlice(l.state.AllLookups, func(x *catalogapi.Lookup) bool {
			return x.Category == cat
		})
	}
	l.state.Artists = byCategory(catalogapi.CategoryArtist)
	l.state.Genres = byCategory(catalogapi.CategoryGenre)
	l.state.Albums = byCategory(catalogapi.CategoryAlbum)
}

func (l *LookupStore) snapshotLocked() LookupState {
	snap := l.state
	snap.AllLookups = append([]*catalogapi.Lookup(nil), l.state.AllLookups...)
	snap.Artists = append([]*catalogapi.Lookup(nil), l.state.Artists...)
	snap.Genres = append([]*catalogapi.Lookup(nil), l.state.Genres...)
	snap.Albums = append([]*catalogapi.Lookup(nil), l.state.Albums...)
	return snap
}

func (l *LookupStore) invokeOnChange(snap LookupState) {
	for _, cb := range l.onChange {
		cb(snap)
	}
}
