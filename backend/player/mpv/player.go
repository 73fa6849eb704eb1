package mpv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/supersonic-app/go-mpv"

	"github.com/tunecrate/tunecrate/backend/player"
)

// Error returned by many Player functions if called before the player has been initialized.
var ErrUnitialized error = errors.New("mpv player uninitialized")

var _ player.URLPlayer = (*Player)(nil)

// Player encapsulates the mpv instance and provides functions
// to control it and to check its status.
type Player struct {
	player.BasePlayerCallbackImpl

	mpv            *mpv.Mpv
	initialized    bool
	vol            int
	status         player.Status
	prePausedState player.State
	clientName     string
	stopRequested  bool

	bgCancel      context.CancelFunc
	cancelPollPos context.CancelFunc
}

// Returns a new player.
// Must call Init on the player before it is ready for playback.
func New() *Player {
	return NewWithClientName("")
}

// Same as New, but sets the application name that mpv
// reports to the system audio API.
func NewWithClientName(c string) *Player {
	return &Player{
		vol:        -1, // use 100 in Init
		clientName: c,
	}
}

// Initializes the Player and makes it ready for playback.
// Most Player functions will return ErrUnitialized if called before Init.
func (p *Player) Init(maxCacheMB int) error {
	if !p.initialized {
		m := mpv.Create()

		m.SetOptionString("idle", "yes")
		m.SetOptionString("video", "no")
		m.SetOptionString("audio-display", "no")
		m.SetOptionString("force-seekable", "yes")
		m.SetOptionString("terminal", "no")

		// limit in-memory cache size
		m.SetOptionString("demuxer-max-bytes", fmt.Sprintf("%dMiB", maxCacheMB))

		if p.vol < 0 {
			p.vol = 100
		}
		m.SetOption("volume", mpv.FORMAT_INT64, p.vol)

		if p.clientName != "" {
			m.SetOptionString("audio-client-name", p.clientName)
		}

		if err := m.Initialize(); err != nil {
			return fmt.Errorf("error initializing mpv: %s", err.Error())
		}
		p.mpv = m
	}
	ctx, cancel := context.WithCancel(context.Background())
	go p.eventHandler(ctx)
	p.bgCancel = cancel
	p.initialized = true
	return nil
}

// Plays the specified file, replacing the current one, if any.
func (p *Player) PlayFile(url string) error {
	if !p.initialized {
		return ErrUnitialized
	}
	err := p.mpv.Command([]string{"loadfile", url, "replace"})
	if err == nil {
		// playback of a new file always starts unpaused
		err = p.setPaused(false)
	}
	if err == nil {
		p.setState(player.Playing)
	}
	return err
}

// Continue resumes paused playback.
func (p *Player) Continue() error {
	if !p.initialized {
		return ErrUnitialized
	}
	if p.status.State != player.Paused {
		return nil
	}
	err := p.setPaused(false)
	if err == nil {
		p.setState(p.prePausedState)
	}
	return err
}

func (p *Player) Pause() error {
	if !p.initialized {
		return ErrUnitialized
	}
	if p.status.State != player.Playing {
		return nil
	}
	err := p.setPaused(true)
	if err == nil {
		p.prePausedState = p.status.State
		p.setState(player.Paused)
	}
	return err
}

// Stops playback and unloads the current file.
func (p *Player) Stop() error {
	if !p.initialized {
		return ErrUnitialized
	}
	p.stopRequested = true
	err := p.mpv.Command([]string{"stop"})
	if err == nil {
		// if player was paused, stop command actually doesn't clear pause state
		err = p.setPaused(false)
	}
	if err == nil {
		p.setState(player.Stopped)
	}
	return err
}

// Seeks to the given absolute position in the current file by seconds.
func (p *Player) SeekSeconds(secs float64) error {
	if !p.initialized {
		return ErrUnitialized
	}
	return p.mpv.Command([]string{"seek", fmt.Sprintf("%0.2f", secs), "absolute"})
}

// Sets the volume of the player (0-100).
// Unlike most Player functions, SetVolume can be called before Init,
// to set the initial volume of the player on startup.
func (p *Player) SetVolume(vol int) error {
	if vol > 100 {
		vol = 100
	} else if vol < 0 {
		vol = 0
	}
	if p.initialized {
		err := p.mpv.SetProperty("volume", mpv.FORMAT_INT64, vol)
		if err == nil {
			p.vol = vol
		}
		return err
	}
	p.vol = vol
	return nil
}

// Gets the current volume of the player.
func (p *Player) GetVolume() int {
	return p.vol
}

// Get the current status of the player.
func (p *Player) GetStatus() player.Status {
	if !p.initialized {
		return p.status
	}

	pos, _ := p.mpv.GetProperty("playback-time", mpv.FORMAT_DOUBLE)
	dur, _ := p.mpv.GetProperty("duration", mpv.FORMAT_DOUBLE)
	if pos != nil {
		p.status.TimePos = pos.(float64)
	}
	if dur != nil {
		p.status.Duration = dur.(float64)
	}
	return p.status
}

// Destroy the player.
func (p *Player) Destroy() {
	if p.bgCancel != nil {
		p.bgCancel()
	}
	if p.initialized {
		p.mpv.Command([]string{"stop"})
		p.mpv.TerminateDestroy()
		p.initialized = false
	}
}

func (p *Player) setPaused(paused bool) error {
	return p.mpv.SetProperty("pause", mpv.FORMAT_FLAG, paused)
}

// sets the state and invokes callbacks, if triggered
func (p *Player) setState(s player.State) {
	switch {
	case s == player.Playing && p.status.State != player.Playing:
		p.startPollTimePos()
		defer p.InvokeOnPlaying()
	case s == player.Paused && p.status.State != player.Paused:
		p.stopPollTimePos()
		defer p.InvokeOnPaused()
	case s == player.Stopped && p.status.State != player.Stopped:
		p.stopPollTimePos()
		defer p.InvokeOnStopped()
	}
	p.status.State = s
}

func (p *Player) startPollTimePos() {
	if p.cancelPollPos != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelPollPos = cancel
	pollingTick := time.NewTicker(250 * time.Millisecond)

	go func() {
		for {
			select {
			case <-ctx.Done():
				pollingTick.Stop()
				return
			case <-pollingTick.C:
				if pos, err := p.mpv.GetProperty("playback-time", mpv.FORMAT_DOUBLE); err == nil && pos != nil {
					p.status.TimePos = pos.(float64)
					p.InvokeOnTimeUpdate(p.status.TimePos)
				}
			}
		}
	}()
}

func (p *Player) stopPollTimePos() {
	if p.cancelPollPos != nil {
		p.cancelPollPos()
		p.cancelPollPos = nil
	}
}

func (p *Player) eventHandler(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			e := p.mpv.WaitEvent(1 /*timeout seconds*/)
			switch e.Event_Id {
			case mpv.EVENT_FILE_LOADED:
				if dur, err := p.mpv.GetProperty("duration", mpv.FORMAT_DOUBLE); err == nil && dur != nil {
					p.status.Duration = dur.(float64)
					p.InvokeOnDurationLoaded(p.status.Duration)
				}
			case mpv.EVENT_IDLE:
				// mpv goes idle both on explicit stop and when the file
				// plays to completion; only the latter is an "ended" signal
				wasStopped := p.stopRequested
				p.stopRequested = false
				p.status.Duration = 0
				p.status.TimePos = 0
				wasActive := p.status.State != player.Stopped
				p.setState(player.Stopped)
				if wasActive && !wasStopped {
					p.InvokeOnEnded()
				}
			}
		}
	}
}
