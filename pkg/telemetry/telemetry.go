// Package telemetry carries key/value status from the control loops to
// whatever is watching: the log, the on-robot screen or a test.
package telemetry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/15303/UltimateGoal/pkg/screen"
)

// Sink collects values with AddData and publishes them on Update.
type Sink interface {
	AddData(key string, value interface{})
	Update()
}

type Nop struct{}

func (Nop) AddData(string, interface{}) {}
func (Nop) Update()                     {}

// Log emits one Debug event per Update carrying every pending value.
type Log struct {
	log zerolog.Logger

	lock    sync.Mutex
	pending map[string]interface{}
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{
		log:     log.With().Str("component", "telemetry").Logger(),
		pending: map[string]interface{}{},
	}
}

func (l *Log) AddData(key string, value interface{}) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.pending[key] = value
}

func (l *Log) Update() {
	l.lock.Lock()
	fields := l.pending
	l.pending = map[string]interface{}{}
	l.lock.Unlock()
	if len(fields) == 0 {
		return
	}
	l.log.Debug().Fields(fields).Msg("telemetry")
}

// Screen forwards values to the status panel.
type Screen struct {
	screen *screen.Screen
}

func NewScreen(s *screen.Screen) Screen {
	return Screen{screen: s}
}

func (s Screen) AddData(key string, value interface{}) {
	s.screen.SetLine(key, format(value))
}

func (Screen) Update() {}

func format(v interface{}) string {
	switch v := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Recorder keeps every published frame; tests use it to inspect control
// loop output.
type Recorder struct {
	lock    sync.Mutex
	pending map[string]interface{}
	Frames  []map[string]interface{}
}

func (r *Recorder) AddData(key string, value interface{}) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.pending == nil {
		r.pending = map[string]interface{}{}
	}
	r.pending[key] = value
}

func (r *Recorder) Update() {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.pending == nil {
		return
	}
	r.Frames = append(r.Frames, r.pending)
	r.pending = nil
}

// Values returns every published value of key, in order.
func (r *Recorder) Values(key string) []interface{} {
	r.lock.Lock()
	defer r.lock.Unlock()
	var out []interface{}
	for _, f := range r.Frames {
		if v, ok := f[key]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Keys returns the union of keys seen, sorted.
func (r *Recorder) Keys() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	seen := map[string]bool{}
	for _, f := range r.Frames {
		for k := range f {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type multi []Sink

// Multi fans out to every sink.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) AddData(key string, value interface{}) {
	for _, s := range m {
		s.AddData(key, value)
	}
}

func (m multi) Update() {
	for _, s := range m {
		s.Update()
	}
}
