package player

// URLPlayer is the media playback boundary: it plays one audio URL at
// a time and reports progress back through registered callbacks. The
// playback engine owns the queue model; the player knows nothing about
// songs, only URLs.
type URLPlayer interface {
	// PlayFile starts playback of the given URL, replacing whatever
	// was playing before.
	PlayFile(url string) error
	Continue() error
	Pause() error
	Stop() error

	SeekSeconds(secs float64) error

	// SetVolume sets the playback volume (0-100).
	SetVolume(vol int) error
	GetVolume() int

	GetStatus() Status

	Destroy()

	// Event API
	OnPlaying(func())
	OnPaused(func())
	OnStopped(func())
	// OnTimeUpdate is invoked periodically with the current playback
	// position in seconds while playback is active.
	OnTimeUpdate(func(timePos float64))
	// OnDurationLoaded is invoked once the media's metadata is known.
	OnDurationLoaded(func(duration float64))
	// OnEnded is invoked when the current file plays to completion
	// (not on explicit Stop).
	OnEnded(func())
}

// The playback state (Stopped, Paused, or Playing).
type State int

const (
	Stopped State = iota
	Paused
	Playing
)

// The current status of the player.
type Status struct {
	State    State
	TimePos  float64
	Duration float64
}

// BasePlayerCallbackImpl provides the callback registration half of
// URLPlayer for concrete players to embed.
type BasePlayerCallbackImpl struct {
	onPlaying        func()
	onPaused         func()
	onStopped        func()
	onTimeUpdate     func(float64)
	onDurationLoaded func(float64)
	onEnded          func()
}

// Sets a callback which is invoked when the player transitions to the Playing state.
func (p *BasePlayerCallbackImpl) OnPlaying(cb func()) {
	p.onPlaying = cb
}

// Sets a callback which is invoked when the player transitions to the Paused state.
func (p *BasePlayerCallbackImpl) OnPaused(cb func()) {
	p.onPaused = cb
}

// Sets a callback which is invoked when the player transitions to the Stopped state.
func (p *BasePlayerCallbackImpl) OnStopped(cb func()) {
	p.onStopped = cb
}

func (p *BasePlayerCallbackImpl) OnTimeUpdate(cb func(float64)) {
	p.onTimeUpdate = cb
}

func (p *BasePlayerCallbackImpl) OnDurationLoaded(cb func(float64)) {
	p.onDurationLoaded = cb
}

func (p *BasePlayerCallbackImpl) OnEnded(cb func()) {
	p.onEnded = cb
}

func (p *BasePlayerCallbackImpl) InvokeOnPlaying() {
	if p.onPlaying != nil {
		p.onPlaying()
	}
}

func (p *BasePlayerCallbackImpl) InvokeOnPaused() {
	if p.onPaused != nil {
		p.onPaused()
	}
}

func (p *BasePlayerCallbackImpl) InvokeOnStopped() {
	if p.onStopped != nil {
		p.onStopped()
	}
}

func (p *BasePlayerCallbackImpl) InvokeOnTimeUpdate(timePos float64) {
	if p.onTimeUpdate != nil {
		p.onTimeUpdate(timePos)
	}
}

func (p *BasePlayerCallbackImpl) InvokeOnDurationLoaded(duration float64) {
	if p.onDurationLoaded != nil {
		p.onDurationLoaded(duration)
	}
}

func (p *BasePlayerCallbackImpl) InvokeOnEnded() {
	if p.onEnded != nil {
		p.onEnded()
	}
}
