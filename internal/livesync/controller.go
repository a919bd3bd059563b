// Package livesync keeps a rendered preview in step with an edited CV.
// Edits re-arm a debounce timer; when it fires the controller snapshots the
// document and asks the typesetter for a fresh preview image.
package livesync

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"cvstudio/internal/config"
	"cvstudio/internal/cv"
	cvstudioErrors "cvstudio/internal/errors"
	"cvstudio/internal/render"
)

// DefaultDebounceDelay is how long edits must settle before a render.
const DefaultDebounceDelay = 1500 * time.Millisecond

// State is the controller's request lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
)

// Previewer renders a request as a preview image.
type Previewer interface {
	Preview(ctx context.Context, req render.Request) ([]byte, error)
}

// Timer is a pending debounce callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// StdAfterFunc; tests substitute a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

// StdAfterFunc schedules on the runtime timer.
func StdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configure a Controller.
type Options struct {
	DebounceDelay time.Duration
	// FenceResponses drops responses to requests that are no longer the
	// latest issued. When false the last response to arrive wins.
	FenceResponses bool
	// RequestTimeout bounds a single preview call. Zero means no bound.
	RequestTimeout time.Duration
	AfterFunc      AfterFunc
	// OnUpdate receives a snapshot whenever the status changes.
	OnUpdate func(Status)
}

// DefaultOptions returns fenced responses and the default debounce.
func DefaultOptions() Options {
	return Options{
		DebounceDelay:  DefaultDebounceDelay,
		FenceResponses: true,
		AfterFunc:      StdAfterFunc,
	}
}

// OptionsFromConfig maps the sync configuration section onto Options.
func OptionsFromConfig(cfg config.SyncConfig) Options {
	opts := DefaultOptions()
	if cfg.DebounceDelay > 0 {
		opts.DebounceDelay = cfg.DebounceDelay
	}
	opts.FenceResponses = cfg.FenceResponses
	opts.RequestTimeout = cfg.RequestTimeout
	return opts
}

// Status is a copy of the controller's observable state.
type Status struct {
	State       State
	Preview     []byte
	FieldErrors map[string]string
	// Issued counts fires, including those short-circuited by an empty document.
	Issued uint64
}

// Controller owns the debounce timer, the latest inputs and the preview.
type Controller struct {
	mu       sync.Mutex
	renderer Previewer
	opts     Options
	logger   *cvstudioErrors.Logger

	doc    cv.Document
	theme  cv.Theme
	design cv.DesignSettings

	timer      Timer
	generation uint64
	issued     uint64
	inFlight   int
	wg         sync.WaitGroup

	preview     []byte
	fieldErrors map[string]string
	closed      bool
}

// New creates an idle controller with an empty document, the default theme
// and the default design.
func New(renderer Previewer, opts Options, logger *cvstudioErrors.Logger) *Controller {
	if logger == nil {
		logger = cvstudioErrors.NewNopLogger()
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = StdAfterFunc
	}
	return &Controller{
		renderer:    renderer,
		opts:        opts,
		logger:      logger,
		doc:         cv.New(),
		theme:       cv.DefaultTheme,
		design:      cv.DefaultDesign(),
		fieldErrors: map[string]string{},
	}
}

// SetDocument stores a copy of doc and re-arms the debounce timer.
func (c *Controller) SetDocument(doc cv.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = doc.Clone()
	c.rearm()
}

// SetTheme changes the theme and re-arms the debounce timer.
func (c *Controller) SetTheme(theme cv.Theme) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theme = theme
	c.rearm()
}

// SetDesign changes the design settings and re-arms the debounce timer.
func (c *Controller) SetDesign(design cv.DesignSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.design = design
	c.rearm()
}

// Flush fires immediately, dropping any pending timer.
func (c *Controller) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()
	c.fire(gen)
}

// rearm must be called with mu held.
func (c *Controller) rearm() {
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.generation++
	gen := c.generation
	c.timer = c.opts.AfterFunc(c.opts.DebounceDelay, func() { c.fire(gen) })
}

// fire runs only for the most recently armed generation. A timer that
// was stopped too late to prevent its callback is ignored here.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.issued++
	seq := c.issued

	if c.doc.IsEmpty() {
		c.preview = nil
		status := c.statusLocked()
		c.mu.Unlock()
		c.logger.Debug("Document is empty, preview cleared", "seq", seq)
		c.notify(status)
		return
	}

	req := render.NewRequest(c.doc, c.theme, c.design, render.FormatPNG)
	c.inFlight++
	c.wg.Add(1)
	status := c.statusLocked()
	c.mu.Unlock()

	c.logger.Debug("Requesting preview", "seq", seq, "theme", req.Theme.String())
	c.notify(status)
	go c.send(seq, req)
}

func (c *Controller) send(seq uint64, req render.Request) {
	defer c.wg.Done()

	ctx := context.Background()
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}
	data, err := c.renderer.Preview(ctx, req)
	c.complete(seq, data, err)
}

func (c *Controller) complete(seq uint64, data []byte, err error) {
	c.mu.Lock()
	c.inFlight--

	if c.opts.FenceResponses && seq != c.issued {
		status := c.statusLocked()
		c.mu.Unlock()
		c.logger.Debug("Discarding stale preview response", "seq", seq, "latest", status.Issued)
		c.notify(status)
		return
	}

	if err != nil {
		c.fieldErrors = fieldErrorsFrom(err)
	} else {
		c.preview = data
		c.fieldErrors = map[string]string{}
	}
	status := c.statusLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.LogError(err, "Preview render failed", "seq", seq)
	}
	c.notify(status)
}

// fieldErrorsFrom keeps only the field the typesetter named, if any.
func fieldErrorsFrom(err error) map[string]string {
	var renderErr *render.RenderError
	if errors.As(err, &renderErr) && renderErr.Field != "" {
		return map[string]string{renderErr.Field: renderErr.Message}
	}
	return map[string]string{}
}

func (c *Controller) notify(status Status) {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(status)
	}
}

// Status returns a snapshot of the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	state := StateIdle
	if c.inFlight > 0 {
		state = StateSyncing
	}
	var preview []byte
	if c.preview != nil {
		preview = append([]byte(nil), c.preview...)
	}
	return Status{
		State:       state,
		Preview:     preview,
		FieldErrors: maps.Clone(c.fieldErrors),
		Issued:      c.issued,
	}
}

// Document returns a copy of the latest document.
func (c *Controller) Document() cv.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// Wait blocks until every dispatched request has completed.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close stops the pending timer. Requests already sent still complete.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
