// Package poller drives one document through upload, extraction and status
// polling until it reaches a terminal state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdfscan/pdfscan/internal/document"
	"github.com/pdfscan/pdfscan/pkg/logger"
)

type State string

const (
	StateIdle      State = "idle"
	StateUploading State = "uploading"
	StateAwaiting  State = "awaiting-extraction"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 150
)

var (
	ErrPollTimeout      = errors.New("poller: extraction did not finish in time")
	ErrExtractionFailed = errors.New("poller: extraction failed")
	ErrBusy             = errors.New("poller: a run is already active")
)

type Options struct {
	Interval    time.Duration
	MaxAttempts int
	// OnChange is called after every state change, outside the lock.
	OnChange func(State, *Status)
}

// Poller holds the client-side state machine:
//
//	idle -> uploading -> awaiting-extraction -> completed | failed
//
// Reset returns it to idle from any state and stops an active run.
type Poller struct {
	client *Client
	opts   Options

	mu     sync.Mutex
	state  State
	doc    *Status
	gen    uint64
	cancel context.CancelFunc
}

func New(client *Client, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Poller{client: client, opts: opts, state: StateIdle}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Document is the last status seen, or nil.
func (p *Poller) Document() *Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return nil
	}
	d := *p.doc
	return &d
}

// Reset stops any active run and clears the tracked document.
func (p *Poller) Reset() {
	p.mu.Lock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state = StateIdle
	p.doc = nil
	p.mu.Unlock()
	p.notify(StateIdle, nil)
}

// Run uploads r as filename, triggers extraction and polls until the
// document is completed or failed, ctx is done, Reset is called or
// MaxAttempts polls pass.
func (p *Poller) Run(ctx context.Context, filename string, r io.Reader) (*Status, error) {
	ctx, gen, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer p.end(gen)

	p.transition(gen, StateUploading, nil)
	up, err := p.client.Upload(ctx, filename, r)
	if err != nil {
		p.transition(gen, StateFailed, nil)
		return nil, fmt.Errorf("upload: %w", err)
	}
	st := &Status{ID: up.ID, Filename: up.OriginalName, ExtractionStatus: up.ExtractionStatus, UpdatedAt: up.UploadDate}
	return p.await(ctx, gen, st, true)
}

// Await polls an already uploaded document without triggering extraction.
func (p *Poller) Await(ctx context.Context, id string) (*Status, error) {
	ctx, gen, err := p.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer p.end(gen)
	return p.await(ctx, gen, &Status{ID: id}, false)
}

func (p *Poller) await(ctx context.Context, gen uint64, st *Status, trigger bool) (*Status, error) {
	p.transition(gen, StateAwaiting, st)
	log := logger.With("documentId", st.ID)

	// The extract call is fire and forget: only a transport failure matters,
	// the outcome itself is read from the status endpoint.
	var triggerErr chan error
	if trigger {
		triggerErr = make(chan error, 1)
		go func() {
			err := p.client.StartExtraction(ctx, st.ID)
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				log.Debug("extract request answered", "code", httpErr.Code, "error", httpErr.Message)
				err = nil
			}
			triggerErr <- err
		}()
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for attempt := 1; ; {
		select {
		case <-ctx.Done():
			return p.Document(), ctx.Err()

		case err := <-triggerErr:
			triggerErr = nil
			if err != nil && ctx.Err() == nil {
				p.transition(gen, StateFailed, nil)
				return p.Document(), fmt.Errorf("start extraction: %w", err)
			}

		case <-ticker.C:
			cur, err := p.client.Status(ctx, st.ID)
			switch {
			case ctx.Err() != nil:
				return p.Document(), ctx.Err()
			case err != nil:
				log.Warn("status poll failed", "attempt", attempt, "error", err)
			default:
				switch cur.ExtractionStatus {
				case document.StatusCompleted:
					p.transition(gen, StateCompleted, cur)
					return cur, nil
				case document.StatusFailed:
					p.transition(gen, StateFailed, cur)
					return cur, fmt.Errorf("%w: %s", ErrExtractionFailed, cur.Error)
				}
				p.transition(gen, StateAwaiting, cur)
			}
			if attempt >= p.opts.MaxAttempts {
				p.transition(gen, StateFailed, nil)
				return p.Document(), ErrPollTimeout
			}
			attempt++
		}
	}
}

func (p *Poller) begin(ctx context.Context) (context.Context, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil, 0, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	p.gen++
	p.cancel = cancel
	p.doc = nil
	return ctx, p.gen, nil
}

func (p *Poller) end(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == gen && p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// transition applies a state change for run gen; stale runs are ignored.
// A nil doc keeps the current document.
func (p *Poller) transition(gen uint64, s State, doc *Status) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	changed := p.state != s
	p.state = s
	if doc != nil {
		d := *doc
		p.doc = &d
	}
	snapshot := p.doc
	p.mu.Unlock()
	if changed {
		p.notify(s, snapshot)
	}
}

func (p *Poller) notify(s State, doc *Status) {
	if p.opts.OnChange != nil {
		p.opts.OnChange(s, doc)
	}
}
