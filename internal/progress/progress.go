// Package progress turns a stream of pipeline events into a periodically
// refreshed status rendering. Events arrive on a bounded channel owned by a
// single run; a reporter goroutine coalesces them into edits against a Sink,
// throttled so chatty stages cannot flood the destination.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"recap/internal/logging"
)

// Event is one progress line from a pipeline stage.
type Event struct {
	Timestamp time.Time
	Message   string
}

// Sink receives rendered status text. Implementations decide whether an
// update replaces the previous rendering (chat message edit) or appends
// (console).
type Sink interface {
	Update(ctx context.Context, text string) error
	Done(ctx context.Context, text string) error
}

const (
	defaultMinInterval = 3 * time.Second
	defaultHeartbeat   = 10 * time.Second
	defaultWindow      = 10
	eventBuffer        = 64
)

// Reporter owns one run's event channel and drives renders to the sink.
// Create one per run; Close must be called exactly once.
type Reporter struct {
	sink      Sink
	limiter   *rate.Limiter
	heartbeat time.Duration
	window    int
	logger    *slog.Logger
	started   time.Time

	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	lines   []string
	dropped int
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithMinInterval sets the minimum delay between consecutive sink updates.
func WithMinInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithHeartbeat sets how often the rendering refreshes with elapsed time
// when no new events arrive.
func WithHeartbeat(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.heartbeat = d
		}
	}
}

// WithWindow sets how many trailing event lines a rendering shows.
func WithWindow(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.window = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		r.logger = logging.NewComponentLogger(logger, "progress")
	}
}

// NewReporter starts the render goroutine immediately.
func NewReporter(sink Sink, opts ...Option) *Reporter {
	r := &Reporter{
		sink:      sink,
		limiter:   rate.NewLimiter(rate.Every(defaultMinInterval), 1),
		heartbeat: defaultHeartbeat,
		window:    defaultWindow,
		logger:    logging.NewNop(),
		started:   time.Now(),
		events:    make(chan Event, eventBuffer),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Publish queues an event without blocking. Events beyond the buffer are
// dropped and counted; progress is advisory, the pipeline never waits on it.
func (r *Reporter) Publish(message string) {
	select {
	case r.events <- Event{Timestamp: time.Now(), Message: message}:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Publishf is Publish with formatting.
func (r *Reporter) Publishf(format string, args ...any) {
	r.Publish(fmt.Sprintf(format, args...))
}

// Close stops the render goroutine, folds any still-queued events into the
// window, and pushes one final rendering with finalNote appended. The final
// push bypasses the rate limiter so the terminal state always lands.
func (r *Reporter) Close(ctx context.Context, finalNote string) {
	close(r.stop)
	r.wg.Wait()
	r.drain()

	r.mu.Lock()
	lines := append([]string(nil), r.lines...)
	if finalNote != "" {
		lines = appendWindow(lines, finalNote, r.window+1)
	}
	if r.dropped > 0 {
		lines = append(lines, fmt.Sprintf("(%d progress updates dropped)", r.dropped))
	}
	r.mu.Unlock()

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return
	}
	if err := r.sink.Done(ctx, text); err != nil {
		r.logger.Warn("final progress update failed", logging.Error(err))
	}
}

func (r *Reporter) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	lastSent := ""
	dirty := false

	flush := func(withElapsed bool) {
		if !r.limiter.Allow() {
			return
		}
		text := r.render(withElapsed)
		if text == "" || text == lastSent {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := r.sink.Update(ctx, text)
		cancel()
		if err != nil {
			r.logger.Warn("progress update failed", logging.Error(err))
			return
		}
		lastSent = text
		dirty = false
	}

	for {
		select {
		case <-r.stop:
			return
		case ev := <-r.events:
			r.append(ev.Message)
			dirty = true
			flush(false)
		case <-ticker.C:
			if dirty {
				flush(false)
				continue
			}
			// Heartbeat: refresh elapsed time so a long stage still
			// shows signs of life.
			flush(true)
		}
	}
}

func (r *Reporter) append(line string) {
	r.mu.Lock()
	r.lines = appendWindow(r.lines, line, r.window)
	r.mu.Unlock()
}

// drain folds events that arrived after the goroutine stopped.
func (r *Reporter) drain() {
	for {
		select {
		case ev := <-r.events:
			r.append(ev.Message)
		default:
			return
		}
	}
}

func (r *Reporter) render(withElapsed bool) string {
	r.mu.Lock()
	lines := append([]string(nil), r.lines...)
	r.mu.Unlock()
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	if withElapsed {
		fmt.Fprintf(&sb, "running for %s\n", time.Since(r.started).Round(time.Second))
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return strings.TrimSpace(sb.String())
}

func appendWindow(lines []string, line string, window int) []string {
	lines = append(lines, line)
	if len(lines) > window {
		lines = lines[len(lines)-window:]
	}
	return lines
}
