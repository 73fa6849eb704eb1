package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tunecrate/tunecrate/backend/catalogapi"
)

// catalogServer is a scriptable stand-in for the catalog API.
type catalogServer struct {
	mutex    sync.Mutex
	songs    []*catalogapi.Song
	failNext bool
	// delay applied to the next request only
	delayNext time.Duration
}

func (s *catalogServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/songs", func(w http.ResponseWriter, r *http.Request) {
		s.mutex.Lock()
		fail := s.failNext
		s.failNext = false
		delay := s.delayNext
		s.delayNext = 0
		songs := s.songs
		s.mutex.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(songs)
		case http.MethodPost:
			r.ParseMultipartForm(1 << 20)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(catalogapi.Song{ID: "new", Title: r.FormValue("title")})
		}
	})
	mux.HandleFunc("/api/songs/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/api/songs/"):]
		switch r.Method {
		case http.MethodDelete:
			json.NewEncoder(w).Encode(map[string]string{"id": id})
		case http.MethodPut:
			r.ParseMultipartForm(1 << 20)
			json.NewEncoder(w).Encode(catalogapi.Song{ID: id, Title: r.FormValue("title")})
		}
	})
	mux.HandleFunc("/api/lookups", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]*catalogapi.Lookup{
				{ID: "g1", Category: catalogapi.CategoryGenre, Value: "Metal"},
			})
		case http.MethodPost:
			var req struct{ Category, Value string }
			json.NewDecoder(r.Body).Decode(&req)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(catalogapi.Lookup{
				ID: "new", Category: catalogapi.LookupCategory(req.Category), Value: req.Value,
			})
		}
	})
	return mux
}

type orchFixture struct {
	orch    *Orchestrator
	catalog *CatalogStore
	lookups *LookupStore
	ui      *UIStore
	server  *catalogServer
}

func newOrchFixture(t *testing.T) *orchFixture {
	t.Helper()
	cs := &catalogServer{}
	ts := httptest.NewServer(cs.handler())
	t.Cleanup(ts.Close)

	catalog := NewCatalogStore()
	lookups := NewLookupStore()
	ui := NewUIStore()
	api := catalogapi.NewClient(ts.URL)
	return &orchFixture{
		orch:    NewOrchestrator(context.Background(), api, catalog, lookups, ui),
		catalog: catalog,
		lookups: lookups,
		ui:      ui,
		server:  cs,
	}
}

// waitUntil polls cond for up to one second.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func Test_FetchSongsPopulatesStoreQuietly(t *testing.T) {
	f := newOrchFixture(t)
	f.server.songs = sampleSongs()

	f.orch.FetchSongs()
	waitUntil(t, func() bool { return len(f.catalog.GetSongs()) == 4 })

	if st := f.catalog.State(); st.Loading || st.Error != "" {
		t.Error("successful fetch should clear loading and error")
	}
	// fetch successes are silent
	if f.ui.State().Toast.Show {
		t.Error("fetch success must not raise a toast")
	}
}

func Test_SelectedSongFollowsModal(t *testing.T) {
	f := newOrchFixture(t)
	f.server.songs = sampleSongs()
	f.orch.FetchSongs()
	waitUntil(t, func() bool { return len(f.catalog.GetSongs()) == 4 })

	if s := f.orch.SelectedSong(); s != nil {
		t.Errorf("no modal open, SelectedSong = %+v", s)
	}

	f.ui.OpenModal(ModalEdit, "2")
	if s := f.orch.SelectedSong(); s == nil || s.Title != "Trenchtown Rock" {
		t.Errorf("SelectedSong = %+v", s)
	}

	f.ui.CloseModal()
	if s := f.orch.SelectedSong(); s != nil {
		t.Errorf("closed modal, SelectedSong = %+v", s)
	}
}

func Test_FetchSongsFailureToasts(t *testing.T) {
	f := newOrchFixture(t)
	f.server.failNext = true

	f.orch.FetchSongs()
	waitUntil(t, func() bool { return f.catalog.State().Error != "" })

	toast := f.ui.State().Toast
	if !toast.Show || toast.Message != "Failed to fetch songs" || toast.Type != ToastError {
		t.Errorf("got toast %+v, want fetch failure toast", toast)
	}
}

func Test_AddSongToasts(t *testing.T) {
	f := newOrchFixture(t)

	f.orch.AddSong(catalogapi.SongFormData{Title: "Creep"})
	waitUntil(t, func() bool { return len(f.catalog.GetSongs()) == 1 })

	toast := f.ui.State().Toast
	if !toast.Show || toast.Message != "Song added successfully" || toast.Type != ToastSuccess {
		t.Errorf("got toast %+v, want add success toast", toast)
	}
}

func Test_DeleteSongUsesEchoedID(t *testing.T) {
	f := newOrchFixture(t)
	f.server.songs = sampleSongs()
	f.orch.FetchSongs()
	waitUntil(t, func() bool { return len(f.catalog.GetSongs()) == 4 })

	f.orch.DeleteSong("2")
	waitUntil(t, func() bool { return len(f.catalog.GetSongs()) == 3 })

	for _, s := range f.catalog.GetSongs() {
		if s.ID == "2" {
			t.Error("deleted song should be gone from the store")
		}
	}
}

func Test_StaleFetchProducesNoToastOrState(t *testing.T) {
	f := newOrchFixture(t)

	// the first fetch responds slowly and with an error; the second
	// fetch wins the race
	f.server.songs = sampleSongs()
	f.server.failNext = true
	f.server.delayNext = 100 * time.Millisecond
	f.orch.FetchSongs()
	// let the first request reach the server before issuing the second
	time.Sleep(30 * time.Millisecond)

	f.orch.FetchSongs()
	waitUntil(t, func() bool { return len(f.catalog.GetSongs()) == 4 })

	// let the slow failure arrive and be discarded
	time.Sleep(200 * time.Millisecond)
	if st := f.catalog.State(); st.Error != "" || len(st.Songs) != 4 {
		t.Error("superseded failure must not disturb the committed result")
	}
	if f.ui.State().Toast.Show {
		t.Error("superseded failure must not raise a toast")
	}
}

func Test_FetchLookupsPopulatesStore(t *testing.T) {
	f := newOrchFixture(t)

	f.orch.FetchLookups()
	waitUntil(t, func() bool { return len(f.lookups.State().AllLookups) == 1 })

	if st := f.lookups.State(); len(st.Genres) != 1 {
		t.Error("fetched lookup should land in its category projection")
	}
}

func Test_AddLookupRejectsBadCategoryFromServer(t *testing.T) {
	f := newOrchFixture(t)

	// server echoes whatever category it is sent, including bad ones
	f.orch.AddLookup("composer", "Mozart")
	waitUntil(t, func() bool { return f.ui.State().Toast.Show })

	if len(f.lookups.State().AllLookups) != 0 {
		t.Error("lookup with unknown category must not enter the store")
	}
	if toast := f.ui.State().Toast; toast.Type != ToastError {
		t.Error("rejected lookup should surface as an error toast")
	}
}

func Test_AddLookupToasts(t *testing.T) {
	f := newOrchFixture(t)

	f.orch.AddLookup(catalogapi.CategoryGenre, "Trance")
	waitUntil(t, func() bool { return len(f.lookups.State().AllLookups) == 1 })

	toast := f.ui.State().Toast
	if !toast.Show || toast.Message != "Lookup added successfully" {
		t.Errorf("got toast %+v, want lookup add success", toast)
	}
}
