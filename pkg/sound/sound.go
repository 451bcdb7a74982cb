// Package sound plays short wav cues on the robot speaker.
package sound

import (
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog"
)

// Cue names, resolved to <dir>/<name>.wav.
const (
	Ready     = "ready"
	Start     = "start"
	Finished  = "finished"
	RingsSeen = "rings"
)

type Player struct {
	dir          string
	log          zerolog.Logger
	soundsToPlay chan string
}

// NewPlayer starts the playback goroutine.  A speaker that fails to open
// only costs us the sounds.
func NewPlayer(dir string, log zerolog.Logger) *Player {
	p := &Player{
		dir:          dir,
		log:          log.With().Str("component", "sound").Logger(),
		soundsToPlay: make(chan string),
	}
	go p.loop()
	return p
}

func (p *Player) Path(name string) string {
	return filepath.Join(p.dir, name+".wav")
}

// Play queues a cue, giving up if the player is busy.
func (p *Player) Play(name string) {
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case p.soundsToPlay <- p.Path(name):
	case <-time.After(10 * time.Millisecond):
		p.log.Debug().Str("sound", name).Msg("Timed out trying to play sound")
	}
}

func (p *Player) Close() {
	close(p.soundsToPlay)
}

func (p *Player) drain() {
	for s := range p.soundsToPlay {
		p.log.Debug().Str("sound", s).Msg("Unable to play")
	}
}

func (p *Player) loop() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("Sound loop panicked")
			p.drain()
		}
	}()
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to open speaker")
		p.drain()
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			p.log.Warn().Err(err).Msg("Failed to open sound")
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			f.Close()
			p.log.Warn().Err(err).Msg("Failed to decode sound")
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}
