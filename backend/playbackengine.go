package backend

import (
	"log"
	"sync"

	"github.com/tunecrate/tunecrate/backend/catalogapi"
	"github.com/tunecrate/tunecrate/backend/player"
	"github.com/tunecrate/tunecrate/sharedutil"
)

// The repeat mode (RepeatOff, RepeatOne, RepeatAll).
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	}
	return "off"
}

// Volume restored by ToggleMute when unmuting.
const defaultVolume = 0.7

// PlaybackState is a snapshot of the engine's transport state.
// Invariant: IsPlaying implies CurrentSong != nil.
type PlaybackState struct {
	CurrentSong *catalogapi.Song
	IsPlaying   bool
	Volume      float64 // 0..1
	CurrentTime float64 // seconds
	Duration    float64 // seconds
	Queue       []*catalogapi.Song
	Repeat      RepeatMode
	Shuffle     bool
}

// PlaybackEngine owns the playback transport state machine and
// reconciles it against the media playback boundary. It holds
// read-only references to catalog songs; it never mutates a song.
//
// The engine's transitions drive the player (play/pause/seek/volume);
// the player's signals (time updates, metadata, end-of-file) flow back
// in asynchronously and are applied as their own transitions.
type PlaybackEngine struct {
	mutex  sync.Mutex
	player player.URLPlayer
	state  PlaybackState

	callbacksDisabled bool

	// registered callbacks
	onSongChange     []func(*catalogapi.Song)
	onPlayTimeUpdate []func(timePos, duration float64)
	onVolumeChange   []func(float64)
	onRepeatChange   []func(RepeatMode)
	onQueueChange    []func()
	onPlaying        []func()
	onPaused         []func()
	onStopped        []func()
}

func NewPlaybackEngine(p player.URLPlayer, initialVolume float64) *PlaybackEngine {
	e := &PlaybackEngine{
		player: p,
		state: PlaybackState{
			Volume: clampVolume(initialVolume),
		},
	}
	p.SetVolume(int(e.state.Volume * 100))
	p.OnTimeUpdate(e.handleTimeUpdate)
	p.OnDurationLoaded(e.handleDurationLoaded)
	p.OnEnded(e.handlePlaybackEnded)
	return e
}

func (e *PlaybackEngine) State() PlaybackState {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.snapshotLocked()
}

// NowPlaying returns the current song, or nil when the engine is idle.
func (e *PlaybackEngine) NowPlaying() *catalogapi.Song {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state.CurrentSong
}

// SetCurrentSong loads the given song and starts playing it
// (selecting a song always begins playback). Passing nil stops
// playback and returns the engine to idle.
func (e *PlaybackEngine) SetCurrentSong(song *catalogapi.Song) {
	e.mutex.Lock()
	e.state.CurrentSong = song
	e.state.CurrentTime = 0
	if song != nil {
		e.state.IsPlaying = true
		if err := e.player.PlayFile(song.AudioURL); err != nil {
			log.Printf("error starting playback: %v", err)
		}
	} else {
		e.state.IsPlaying = false
		e.state.Duration = 0
		e.player.Stop()
	}
	playing := e.state.IsPlaying
	e.mutex.Unlock()

	e.invokeOnSongChange(song)
	if playing {
		e.invokeNoArgCallbacks(e.onPlaying)
	} else {
		e.invokeNoArgCallbacks(e.onStopped)
	}
}

// TogglePlayPause flips between Playing and Paused.
// Has no effect when no song is loaded.
func (e *PlaybackEngine) TogglePlayPause() {
	e.mutex.Lock()
	if e.state.CurrentSong == nil {
		e.mutex.Unlock()
		return
	}
	e.state.IsPlaying = !e.state.IsPlaying
	playing := e.state.IsPlaying
	if playing {
		e.player.Continue()
	} else {
		e.player.Pause()
	}
	e.mutex.Unlock()

	if playing {
		e.invokeNoArgCallbacks(e.onPlaying)
	} else {
		e.invokeNoArgCallbacks(e.onPaused)
	}
}

// SetVolume sets the playback volume, clamped to [0, 1].
// Zero is a valid mute state.
func (e *PlaybackEngine) SetVolume(vol float64) {
	vol = clampVolume(vol)
	e.mutex.Lock()
	e.state.Volume = vol
	e.player.SetVolume(int(vol * 100))
	e.mutex.Unlock()

	for _, cb := range e.onVolumeChange {
		cb(vol)
	}
}

// ToggleMute mutes when the volume is nonzero, else restores the
// fixed default volume. The previous level is intentionally not
// remembered.
func (e *PlaybackEngine) ToggleMute() {
	e.mutex.Lock()
	vol := e.state.Volume
	e.mutex.Unlock()
	if vol > 0 {
		e.SetVolume(0)
	} else {
		e.SetVolume(defaultVolume)
	}
}

func (e *PlaybackEngine) GetVolume() float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state.Volume
}

// SeekSeconds seeks to the given absolute position in the current song.
func (e *PlaybackEngine) SeekSeconds(secs float64) {
	e.mutex.Lock()
	if e.state.CurrentSong == nil {
		e.mutex.Unlock()
		return
	}
	if secs < 0 {
		secs = 0
	}
	e.state.CurrentTime = secs
	e.player.SeekSeconds(secs)
	e.mutex.Unlock()
}

func (e *PlaybackEngine) SetRepeat(mode RepeatMode) {
	e.mutex.Lock()
	e.state.Repeat = mode
	e.mutex.Unlock()

	for _, cb := range e.onRepeatChange {
		cb(mode)
	}
}

func (e *PlaybackEngine) GetRepeat() RepeatMode {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state.Repeat
}

func (e *PlaybackEngine) ToggleShuffle() {
	e.mutex.Lock()
	e.state.Shuffle = !e.state.Shuffle
	e.mutex.Unlock()
}

func (e *PlaybackEngine) AddToQueue(song *catalogapi.Song) {
	e.mutex.Lock()
	e.state.Queue = append(e.state.Queue, song)
	e.mutex.Unlock()
	e.invokeNoArgCallbacks(e.onQueueChange)
}

// RemoveFromQueue removes the song with the given id from the queue.
// Removing an absent id is a no-op.
func (e *PlaybackEngine) RemoveFromQueue(id string) {
	e.mutex.Lock()
	before := len(e.state.Queue)
	e.state.Queue = sharedutil.FilterSlice(e.state.Queue, func(s *catalogapi.Song) bool {
		return s.ID != id
	})
	changed := len(e.state.Queue) != before
	e.mutex.Unlock()
	if changed {
		e.invokeNoArgCallbacks(e.onQueueChange)
	}
}

func (e *PlaybackEngine) ClearQueue() {
	e.mutex.Lock()
	changed := len(e.state.Queue) > 0
	e.state.Queue = nil
	e.mutex.Unlock()
	if changed {
		e.invokeNoArgCallbacks(e.onQueueChange)
	}
}

func (e *PlaybackEngine) GetQueue() []*catalogapi.Song {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([]*catalogapi.Song(nil), e.state.Queue...)
}

// PlayNext dequeues the head of the queue and plays it. With an empty
// queue, playback stops and the engine goes idle.
func (e *PlaybackEngine) PlayNext() {
	e.mutex.Lock()
	var next *catalogapi.Song
	if len(e.state.Queue) > 0 {
		next = e.state.Queue[0]
		e.state.Queue = append([]*catalogapi.Song(nil), e.state.Queue[1:]...)
	}
	e.mutex.Unlock()

	if next != nil {
		e.invokeNoArgCallbacks(e.onQueueChange)
	}
	e.SetCurrentSong(next)
}

// OnSongUpdated refreshes the engine's reference to a song whose
// metadata changed elsewhere in the app. Playback is not interrupted.
func (e *PlaybackEngine) OnSongUpdated(song *catalogapi.Song) {
	e.mutex.Lock()
	replaced := false
	if sharedutil.SongIDOrEmptyStr(e.state.CurrentSong) == song.ID {
		e.state.CurrentSong = song
		replaced = true
	}
	e.state.Queue = sharedutil.MapSlice(e.state.Queue, func(s *catalogapi.Song) *catalogapi.Song {
		if s.ID == song.ID {
			return song
		}
		return s
	})
	e.mutex.Unlock()

	if replaced {
		e.invokeOnSongChange(song)
	}
}

// OnSongDeleted stops playback if the deleted song is the current one,
// and drops it from the queue.
func (e *PlaybackEngine) OnSongDeleted(id string) {
	e.RemoveFromQueue(id)
	e.mutex.Lock()
	isCurrent := sharedutil.SongIDOrEmptyStr(e.state.CurrentSong) == id
	e.mutex.Unlock()
	if isCurrent {
		e.SetCurrentSong(nil)
	}
}

// DisableCallbacks prevents any further callback invocations
// (used during shutdown).
func (e *PlaybackEngine) DisableCallbacks() {
	e.mutex.Lock()
	e.callbacksDisabled = true
	e.mutex.Unlock()
}

// Registers a callback invoked when the current song changes
// (nil means the engine went idle).
func (e *PlaybackEngine) OnSongChange(cb func(*catalogapi.Song)) {
	e.onSongChange = append(e.onSongChange, cb)
}

// Registers a callback invoked on every playback position update,
// with the position and total duration in seconds.
func (e *PlaybackEngine) OnPlayTimeUpdate(cb func(timePos, duration float64)) {
	e.onPlayTimeUpdate = append(e.onPlayTimeUpdate, cb)
}

func (e *PlaybackEngine) OnVolumeChange(cb func(float64)) {
	e.onVolumeChange = append(e.onVolumeChange, cb)
}

func (e *PlaybackEngine) OnRepeatChange(cb func(RepeatMode)) {
	e.onRepeatChange = append(e.onRepeatChange, cb)
}

func (e *PlaybackEngine) OnQueueChange(cb func()) {
	e.onQueueChange = append(e.onQueueChange, cb)
}

func (e *PlaybackEngine) OnPlaying(cb func()) {
	e.onPlaying = append(e.onPlaying, cb)
}

func (e *PlaybackEngine) OnPaused(cb func()) {
	e.onPaused = append(e.onPaused, cb)
}

func (e *PlaybackEngine) OnStopped(cb func()) {
	e.onStopped = append(e.onStopped, cb)
}

// handleTimeUpdate is a passive sync from the playback clock.
func (e *PlaybackEngine) handleTimeUpdate(timePos float64) {
	e.mutex.Lock()
	if e.state.CurrentSong == nil {
		e.mutex.Unlock()
		return
	}
	e.state.CurrentTime = timePos
	duration := e.state.Duration
	e.mutex.Unlock()

	for _, cb := range e.onPlayTimeUpdate {
		cb(timePos, duration)
	}
}

func (e *PlaybackEngine) handleDurationLoaded(duration float64) {
	e.mutex.Lock()
	e.state.Duration = duration
	timePos := e.state.CurrentTime
	e.mutex.Unlock()

	for _, cb := range e.onPlayTimeUpdate {
		cb(timePos, duration)
	}
}

// handlePlaybackEnded applies the end-of-track policy when the player
// signals that the current file played to completion:
// repeat-one restarts the same song; otherwise the queue (or
// repeat-all) advances; otherwise playback stops but the song stays
// loaded for display.
func (e *PlaybackEngine) handlePlaybackEnded() {
	e.mutex.Lock()
	song := e.state.CurrentSong
	if song == nil {
		e.mutex.Unlock()
		return
	}
	repeat := e.state.Repeat
	queueLen := len(e.state.Queue)
	e.mutex.Unlock()

	switch {
	case repeat == RepeatOne:
		e.mutex.Lock()
		e.state.CurrentTime = 0
		e.state.IsPlaying = true
		if err := e.player.PlayFile(song.AudioURL); err != nil {
			log.Printf("error restarting playback: %v", err)
		}
		e.mutex.Unlock()
	case queueLen > 0 || repeat == RepeatAll:
		e.PlayNext()
	default:
		e.mutex.Lock()
		e.state.IsPlaying = false
		e.mutex.Unlock()
		e.invokeNoArgCallbacks(e.onPaused)
	}
}

func (e *PlaybackEngine) invokeOnSongChange(song *catalogapi.Song) {
	e.mutex.Lock()
	disabled := e.callbacksDisabled
	e.mutex.Unlock()
	if disabled {
		return
	}
	for _, cb := range e.onSongChange {
		cb(song)
	}
}

func (e *PlaybackEngine) invokeNoArgCallbacks(cbs []func()) {
	e.mutex.Lock()
	disabled := e.callbacksDisabled
	e.mutex.Unlock()
	if disabled {
		return
	}
	for _, cb := range cbs {
		cb()
	}
}

func (e *PlaybackEngine) snapshotLocked() PlaybackState {
	snap := e.state
	snap.Queue = append([]*catalogapi.Song(nil), e.state.Queue...)
	return snap
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
