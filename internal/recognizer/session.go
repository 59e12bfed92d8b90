package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JIVTESH28/facewatch/internal/capture"
	"github.com/JIVTESH28/facewatch/internal/embedding"
	"github.com/JIVTESH28/facewatch/internal/gallery"
	"github.com/JIVTESH28/facewatch/internal/matcher"
	"github.com/JIVTESH28/facewatch/internal/render"
)

// Status is the lifecycle state of a live session.
type Status string

// Session lifecycle states.
const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Embedder is the embedding-extraction collaborator as the session sees it.
type Embedder interface {
	ExtractFace(ctx context.Context, imageData []byte) (*embedding.Face, error)
}

// Options configure one session run. Zero values fall back to the
// session defaults.
type Options struct {
	Threshold float64       `json:"threshold,omitempty"`
	Interval  time.Duration `json:"-"`
}

// State is the published snapshot readers observe. Each publish swaps in a
// fresh value, so a loaded State is immutable: a decision is never paired
// with a stale frame.
type State struct {
	Active     bool              `json:"active"`
	Generation uint64            `json:"generation"`
	Decision   *matcher.Decision `json:"decision,omitempty"`
	Status     string            `json:"status,omitempty"`
	Cycle      uint64            `json:"cycle,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`

	// Frame is the latest annotated JPEG, served separately from the JSON
	// state. Readers must not mutate it.
	Frame []byte `json:"-"`
}

// Event is one published decision, delivered to SSE listeners.
type Event struct {
	Decision   matcher.Decision `json:"decision"`
	Status     string           `json:"status,omitempty"`
	Generation uint64           `json:"generation"`
	Cycle      uint64           `json:"cycle"`
}

const listenerBuffer = 16

// Session owns one live capture-match-publish loop. A single background
// worker writes; all other callers only control the lifecycle or read the
// atomically published state. Only one running loop exists per session:
// the generation counter lets a superseded loop detect it must exit without
// touching state.
type Session struct {
	source   capture.FrameSource
	embedder Embedder
	gallery  *gallery.Gallery
	palette  render.Palette
	defaults Options

	mu         sync.Mutex
	status     Status
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	listeners  []chan Event

	published atomic.Pointer[State]
}

// NewSession creates a stopped session around its collaborators.
func NewSession(source capture.FrameSource, embedder Embedder, gal *gallery.Gallery, palette render.Palette, defaults Options) *Session {
	s := &Session{
		source:   source,
		embedder: embedder,
		gallery:  gal,
		palette:  palette,
		defaults: defaults,
		status:   StatusStopped,
	}
	s.published.Store(&State{})
	return s
}

// Latest returns the most recently published state. Cheap and non-blocking;
// safe to call at arbitrary cadence from any goroutine.
func (s *Session) Latest() *State {
	return s.published.Load()
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Generation returns the current session generation. It increments each time
// a session transitions into running.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) resolve(opts Options) Options {
	if opts.Threshold <= 0 {
		opts.Threshold = s.defaults.Threshold
	}
	if opts.Interval <= 0 {
		opts.Interval = s.defaults.Interval
	}
	return opts
}

// Start acquires the capture resource and launches the background loop.
// Calling Start while already running is a no-op that returns the current
// status without spawning a second worker or bumping the generation.
// If the capture resource cannot be acquired the session stays stopped
// and the error wraps capture.ErrCaptureUnavailable.
func (s *Session) Start(ctx context.Context, opts Options) (Status, error) {
	s.mu.Lock()
	if s.status == StatusRunning || s.status == StatusStarting {
		st := s.status
		s.mu.Unlock()
		return st, nil
	}
	s.status = StatusStarting
	s.mu.Unlock()

	if err := s.source.Acquire(ctx); err != nil {
		s.mu.Lock()
		s.status = StatusStopped
		s.mu.Unlock()
		return StatusStopped, fmt.Errorf("acquiring capture resource: %w", err)
	}

	opts = s.resolve(opts)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.status = StatusRunning
	s.mu.Unlock()

	s.publish(gen, func(st *State) {
		st.Active = true
		st.Generation = gen
	})

	go s.run(loopCtx, gen, opts, done)
	return StatusRunning, nil
}

// Stop cooperatively terminates the loop and joins the worker. The last
// published decision and frame are left intact so a reader can still show
// "last seen"; Clear is the explicit reset. Idempotent on a stopped session.
func (s *Session) Stop() Status {
	s.mu.Lock()
	if s.status != StatusRunning {
		st := s.status
		s.mu.Unlock()
		return st
	}
	s.status = StatusStopping
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	return st
}

// Clear resets the published decision and frame. Separate from Stop so the
// control surface decides when "last seen" data disappears.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.published.Load()
	s.published.Store(&State{
		Active:     cur.Active,
		Generation: cur.Generation,
	})
}

// AddListener registers a channel receiving every published decision.
func (s *Session) AddListener() chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, listenerBuffer)
	s.listeners = append(s.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes a listener channel.
func (s *Session) RemoveListener(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, listener := range s.listeners {
		if listener == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// broadcast sends an event to all listeners without blocking the loop.
func (s *Session) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, listener := range s.listeners {
		select {
		case listener <- ev:
		default:
			// Listener buffer full, skip.
		}
	}
}

// current reports whether the given generation is still the live one.
func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen && (s.status == StatusRunning || s.status == StatusStarting)
}

// publish atomically swaps in a new state derived from the current one,
// unless this loop generation has been superseded. Copy-on-publish keeps
// readers lock-free.
func (s *Session) publish(gen uint64, mutate func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}

	next := &State{}
	if cur := s.published.Load(); cur != nil {
		*next = *cur
	}
	mutate(next)
	next.UpdatedAt = time.Now()
	s.published.Store(next)
}

// run is the capture-match-publish loop. It owns the capture resource for
// its whole lifetime and releases it exactly once on exit.
func (s *Session) run(ctx context.Context, gen uint64, opts Options, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := s.source.Release(); err != nil {
			log.Printf("releasing capture resource: %v", err)
		}
	}()

	for {
		if ctx.Err() != nil || !s.current(gen) {
			break
		}

		cycleStart := time.Now()
		s.cycle(ctx, gen, opts)

		// Sleep to the next cycle boundary, re-checking liveness before
		// and after so stop latency is bounded by one cycle.
		if ctx.Err() != nil || !s.current(gen) {
			break
		}
		delay := opts.Interval - time.Since(cycleStart)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	s.mu.Lock()
	if s.generation == gen {
		s.status = StatusStopped
	}
	s.mu.Unlock()

	s.publish(gen, func(st *State) {
		st.Active = false
	})
}

// cycle runs one capture-embed-match-render-publish pass.
func (s *Session) cycle(ctx context.Context, gen uint64, opts Options) {
	frame, err := s.source.Frame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Transient: record "no decision this cycle" and keep going.
		log.Printf("frame capture failed: %v", err)
		dec := matcher.Decision{
			Score:         0,
			ThresholdUsed: opts.Threshold,
			Reason:        matcher.ReasonCaptureFailed,
		}
		s.publishDecision(gen, dec, nil, "no frame this cycle", 0)
		return
	}

	face, err := s.embedder.ExtractFace(ctx, frame.Data)
	switch {
	case errors.Is(err, embedding.ErrNoFace):
		dec := matcher.Decision{
			Score:         0,
			ThresholdUsed: opts.Threshold,
			Reason:        matcher.ReasonNoFace,
		}
		s.renderAndPublish(gen, dec, frame, nil)
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		// Collaborator hiccup: nothing to publish this cycle.
		log.Printf("embedding extraction failed: %v", err)
	default:
		dec := matcher.Match(face.Embedding, s.gallery.Snapshot(), opts.Threshold)
		s.renderAndPublish(gen, dec, frame, face.BBox)
	}
}

// renderAndPublish annotates the frame and publishes decision and frame as
// one atomic update.
func (s *Session) renderAndPublish(gen uint64, dec matcher.Decision, frame capture.Frame, bbox []float64) {
	annotated, st, err := render.AnnotateJPEG(frame.Data, dec, bbox, s.palette)
	if err != nil {
		// Frame bytes were not decodable; the decision still stands.
		log.Printf("rendering frame: %v", err)
		annotated = nil
		st = render.Label(dec)
	}
	s.publishDecision(gen, dec, annotated, st, frame.Seq)
}

func (s *Session) publishDecision(gen uint64, dec matcher.Decision, frame []byte, status string, cycle uint64) {
	s.publish(gen, func(st *State) {
		st.Decision = &dec
		st.Status = status
		if frame != nil {
			st.Frame = frame
		}
		if cycle != 0 {
			st.Cycle = cycle
		}
	})
	s.broadcast(Event{
		Decision:   dec,
		Status:     status,
		Generation: gen,
		Cycle:      cycle,
	})
}
