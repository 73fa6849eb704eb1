package backend

import (
	"context"
	"log"

	"github.com/tunecrate/tunecrate/backend/catalogapi"
)

// Orchestrator coordinates the asynchronous request/response cycle
// between the stores and the remote API. Every intent launches one
// network call on its own goroutine and commits exactly one success or
// failure transition when it completes. Each verb carries a generation
// token issued by its store: when a newer request of the same verb has
// been issued in the meantime, the older result is discarded at the
// store boundary (latest wins) and produces no notification.
//
// Mutating successes and all failures raise a toast; fetch successes
// do not.
type Orchestrator struct {
	ctx     context.Context
	api     *catalogapi.Client
	catalog *CatalogStore
	lookups *LookupStore
	ui      *UIStore
}

func NewOrchestrator(ctx context.Context, api *catalogapi.Client, catalog *CatalogStore, lookups *LookupStore, ui *UIStore) *Orchestrator {
	return &Orchestrator{
		ctx:     ctx,
		api:     api,
		catalog: catalog,
		lookups: lookups,
		ui:      ui,
	}
}

// SelectedSong resolves the song the open modal is acting on, or nil
// when no modal is open or the song has since been removed.
func (o *Orchestrator) SelectedSong() *catalogapi.Song {
	id := o.ui.State().SelectedSongID
	if id == "" {
		return nil
	}
	return o.catalog.GetSong(id)
}

func (o *Orchestrator) FetchSongs() {
	gen := o.catalog.BeginFetch()
	go func() {
		songs, err := o.api.ListSongs(o.ctx)
		if err != nil {
			if o.catalog.FailFetch(gen, err.Error()) {
				o.ui.ShowToast("Failed to fetch songs", ToastError)
			}
			return
		}
		o.catalog.CommitFetch(gen, songs)
	}()
}

func (o *Orchestrator) AddSong(data catalogapi.SongFormData) {
	gen := o.catalog.BeginAdd()
	go func() {
		song, err := o.api.CreateSong(o.ctx, data)
		if err != nil {
			if o.catalog.FailAdd(gen, err.Error()) {
				o.ui.ShowToast("Failed to add song", ToastError)
			}
			return
		}
		if o.catalog.CommitAdd(gen, song) {
			o.ui.ShowToast("Song added successfully", ToastSuccess)
		}
	}()
}

func (o *Orchestrator) UpdateSong(id string, data catalogapi.SongFormData) {
	gen := o.catalog.BeginUpdate()
	go func() {
		song, err := o.api.UpdateSong(o.ctx, id, data)
		if err != nil {
			if o.catalog.FailUpdate(gen, err.Error()) {
				o.ui.ShowToast("Failed to update song", ToastError)
			}
			return
		}
		if o.catalog.CommitUpdate(gen, song) {
			o.ui.ShowToast("Song updated successfully", ToastSuccess)
		}
	}()
}

func (o *Orchestrator) DeleteSong(id string) {
	gen := o.catalog.BeginDelete()
	go func() {
		deletedID, err := o.api.DeleteSong(o.ctx, id)
		if err != nil {
			if o.catalog.FailDelete(gen, err.Error()) {
				o.ui.ShowToast("Failed to delete song", ToastError)
			}
			return
		}
		if deletedID == "" {
			deletedID = id
		}
		if o.catalog.CommitDelete(gen, deletedID) {
			o.ui.ShowToast("Song deleted successfully", ToastSuccess)
		}
	}()
}

func (o *Orchestrator) FetchLookups() {
	gen := o.lookups.BeginFetch()
	go func() {
		lookups, err := o.api.ListLookups(o.ctx, "")
		if err != nil {
			if o.lookups.FailFetch(gen, err.Error()) {
				o.ui.ShowToast("Failed to fetch lookups", ToastError)
			}
			return
		}
		o.lookups.CommitFetch(gen, lookups)
	}()
}

func (o *Orchestrator) AddLookup(category catalogapi.LookupCategory, value string) {
	gen := o.lookups.BeginAdd()
	go func() {
		lookup, err := o.api.CreateLookup(o.ctx, category, value)
		if err != nil {
			if o.lookups.FailAdd(gen, err.Error()) {
				o.ui.ShowToast("Failed to add lookup", ToastError)
			}
			return
		}
		applied, err := o.lookups.CommitAdd(gen, lookup)
		if err != nil {
			// server accepted a category the store will not hold;
			// surface it and keep the store unchanged
			log.Printf("rejecting lookup %s: %v", lookup.ID, err)
			if o.lookups.FailAdd(gen, err.Error()) {
				o.ui.ShowToast("Failed to add lookup", ToastError)
			}
			return
		}
		if applied {
			o.ui.ShowToast("Lookup added successfully", ToastSuccess)
		}
	}()
}

func (o *Orchestrator) UpdateLookup(id string, category catalogapi.LookupCategory, value string) {
	gen := o.lookups.BeginUpdate()
	go func() {
		lookup, err := o.api.UpdateLookup(o.ctx, id, category, value)
		if err != nil {
			if o.lookups.FailUpdate(gen, err.Error()) {
				o.ui.ShowToast("Failed to update lookup", ToastError)
			}
			return
		}
		applied, err := o.lookups.CommitUpdate(gen, lookup)
		if err != nil {
			log.Printf("rejecting lookup %s: %v", lookup.ID, err)
			if o.lookups.FailUpdate(gen, err.Error()) {
				o.ui.ShowToast("Failed to update lookup", ToastError)
			}
			return
		}
		if applied {
			o.ui.ShowToast("Lookup updated successfully", ToastSuccess)
		}
	}()
}

func (o *Orchestrator) DeleteLookup(id string) {
	gen := o.lookups.BeginDelete()
	go func() {
		deletedID, err := o.api.DeleteLookup(o.ctx, id)
		if err != nil {
			if o.lookups.FailDelete(gen, err.Error()) {
				o.ui.ShowToast("Failed to delete lookup", ToastError)
			}
			return
		}
		if deletedID == "" {
			deletedID = id
		}
		if o.lookups.CommitDelete(gen, deletedID) {
			o.ui.ShowToast("Lookup deleted successfully", ToastSuccess)
		}
	}()
}
