package livesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cvstudio/internal/config"
	"cvstudio/internal/cv"
	"cvstudio/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// fakeClock records timers so tests decide when they fire.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) all() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

func (c *fakeClock) fireLatest(t *testing.T) {
	t.Helper()
	timers := c.all()
	require.NotEmpty(t, timers)
	timers[len(timers)-1].fn()
}

type previewResult struct {
	data []byte
	err  error
}

type pendingCall struct {
	req   render.Request
	reply chan previewResult
}

func (p pendingCall) succeed(data string) { p.reply <- previewResult{data: []byte(data)} }
func (p pendingCall) fail(err error)      { p.reply <- previewResult{err: err} }

// fakePreviewer blocks each call until the test replies.
type fakePreviewer struct {
	calls chan pendingCall
}

func newFakePreviewer() *fakePreviewer {
	return &fakePreviewer{calls: make(chan pendingCall, 16)}
}

func (f *fakePreviewer) Preview(ctx context.Context, req render.Request) ([]byte, error) {
	call := pendingCall{req: req, reply: make(chan previewResult, 1)}
	f.calls <- call
	r := <-call.reply
	return r.data, r.err
}

func (f *fakePreviewer) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("expected a preview request")
		return pendingCall{}
	}
}

func (f *fakePreviewer) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected preview request for %q", call.req.CVData.Name)
	default:
	}
}

func newTestController(fence bool) (*Controller, *fakeClock, *fakePreviewer) {
	clock := &fakeClock{}
	previewer := newFakePreviewer()
	opts := DefaultOptions()
	opts.FenceResponses = fence
	opts.AfterFunc = clock.AfterFunc
	return New(previewer, opts, nil), clock, previewer
}

func namedDocument(name string) cv.Document {
	doc := cv.New()
	doc.Name = name
	return doc
}

func TestController_Debounce(t *testing.T) {
	c, clock, previewer := newTestController(true)

	c.SetDocument(namedDocument("A"))
	c.SetDocument(namedDocument("Ab"))
	c.SetDocument(namedDocument("Abc"))

	timers := clock.all()
	require.Len(t, timers, 3)
	assert.True(t, timers[0].stopped)
	assert.True(t, timers[1].stopped)
	assert.False(t, timers[2].stopped)
	assert.Equal(t, DefaultDebounceDelay, timers[2].delay)

	// A superseded callback that slipped past Stop must not send anything.
	timers[0].fn()
	previewer.assertNoCall(t)

	timers[2].fn()
	call := previewer.next(t)
	assert.Equal(t, "Abc", call.req.CVData.Name)
	call.succeed("png")
	c.Wait()
	previewer.assertNoCall(t)
}

func TestController_ThemeAndDesignRearm(t *testing.T) {
	c, clock, previewer := newTestController(true)

	c.SetDocument(namedDocument("Ada"))
	c.SetTheme(cv.ThemeEngineeringResumes)
	design := cv.DesignSettings{PrimaryColor: "#112233", FontFamily: "Lato"}
	c.SetDesign(design)
	require.Len(t, clock.all(), 3)

	clock.fireLatest(t)
	call := previewer.next(t)
	assert.Equal(t, cv.ThemeEngineeringResumes, call.req.Theme)
	assert.Equal(t, design, call.req.DesignSettings)
	assert.Equal(t, cv.ThemeEngineeringResumes.SectionOrder(), call.req.SectionOrder)
	call.succeed("png")
	c.Wait()
}

func TestController_RequestSnapshot(t *testing.T) {
	c, clock, previewer := newTestController(true)

	doc := namedDocument("**Ada** Lovelace")
	doc.Skills = []cv.SkillEntry{{Label: "Math"}}
	c.SetDocument(doc)
	doc.Skills[0].Label = "mutated after set"

	clock.fireLatest(t)
	call := previewer.next(t)
	assert.Equal(t, "Ada Lovelace", call.req.CVData.Name)
	assert.Equal(t, "Math", call.req.CVData.Skills[0].Label)
	assert.Equal(t, render.FormatPNG, call.req.Format)
	assert.Equal(t, "**Ada** Lovelace", c.Document().Name, "stored document keeps its markup")
	call.succeed("png")
	c.Wait()
}

func TestController_StateTransitions(t *testing.T) {
	c, clock, previewer := newTestController(true)
	assert.Equal(t, StateIdle, c.Status().State)

	c.SetDocument(namedDocument("Ada"))
	assert.Equal(t, StateIdle, c.Status().State, "arming alone does not sync")

	clock.fireLatest(t)
	assert.Equal(t, StateSyncing, c.Status().State)

	previewer.next(t).succeed("first")
	c.Wait()

	status := c.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Equal(t, []byte("first"), status.Preview)
	assert.Empty(t, status.FieldErrors)

	c.SetDocument(namedDocument("Ada L"))
	clock.fireLatest(t)
	previewer.next(t).fail(errors.New("connection reset"))
	c.Wait()
	assert.Equal(t, StateIdle, c.Status().State, "failure also returns to idle")
}

func TestController_EmptyDocumentShortCircuit(t *testing.T) {
	c, clock, previewer := newTestController(true)

	c.SetDocument(namedDocument("Ada"))
	clock.fireLatest(t)
	previewer.next(t).succeed("png")
	c.Wait()
	require.NotNil(t, c.Status().Preview)

	empty := cv.New()
	empty.Name = "   "
	c.SetDocument(empty)
	clock.fireLatest(t)

	previewer.assertNoCall(t)
	status := c.Status()
	assert.Nil(t, status.Preview)
	assert.Equal(t, StateIdle, status.State)
	assert.Equal(t, uint64(2), status.Issued)
}

func TestController_FieldErrors(t *testing.T) {
	c, clock, previewer := newTestController(true)

	c.SetDocument(namedDocument("Ada"))
	clock.fireLatest(t)
	previewer.next(t).succeed("good")
	c.Wait()

	steps := []struct {
		name        string
		err         error
		wantErrors  map[string]string
		wantPreview string
	}{
		{
			name:        "field error",
			err:         &render.RenderError{StatusCode: 422, Field: "email", Message: "invalid email"},
			wantErrors:  map[string]string{"email": "invalid email"},
			wantPreview: "good",
		},
		{
			name:        "wrapped field error",
			err:         errors.Join(errors.New("outer"), &render.RenderError{StatusCode: 422, Field: "phone", Message: "bad"}),
			wantErrors:  map[string]string{"phone": "bad"},
			wantPreview: "good",
		},
		{
			name:        "error without field",
			err:         &render.RenderError{StatusCode: 500, Message: "boom"},
			wantErrors:  map[string]string{},
			wantPreview: "good",
		},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			c.SetDocument(namedDocument("Ada " + step.name))
			clock.fireLatest(t)
			previewer.next(t).fail(step.err)
			c.Wait()

			status := c.Status()
			assert.Equal(t, step.wantErrors, status.FieldErrors)
			assert.Equal(t, []byte(step.wantPreview), status.Preview)
		})
	}

	c.SetDocument(namedDocument("Ada again"))
	clock.fireLatest(t)
	previewer.next(t).fail(&render.RenderError{StatusCode: 422, Field: "email", Message: "x"})
	c.Wait()
	require.NotEmpty(t, c.Status().FieldErrors)

	c.SetDocument(namedDocument("Ada fixed"))
	clock.fireLatest(t)
	previewer.next(t).succeed("fixed")
	c.Wait()
	assert.Empty(t, c.Status().FieldErrors)
	assert.Equal(t, []byte("fixed"), c.Status().Preview)
}

func TestController_OutOfOrderResponses(t *testing.T) {
	tests := []struct {
		name  string
		fence bool
		want  string
	}{
		{name: "fenced keeps latest issued", fence: true, want: "second"},
		{name: "unfenced keeps last arrival", fence: false, want: "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock, previewer := newTestController(tt.fence)

			c.SetDocument(namedDocument("one"))
			clock.fireLatest(t)
			first := previewer.next(t)

			c.SetDocument(namedDocument("two"))
			clock.fireLatest(t)
			second := previewer.next(t)

			second.succeed("second")
			require.Eventually(t, func() bool {
				return string(c.Status().Preview) == "second"
			}, 2*time.Second, 5*time.Millisecond)

			first.succeed("first")
			c.Wait()

			status := c.Status()
			assert.Equal(t, []byte(tt.want), status.Preview)
			assert.Equal(t, StateIdle, status.State)
		})
	}
}

func TestController_FencedStaleErrorIgnored(t *testing.T) {
	c, clock, previewer := newTestController(true)

	c.SetDocument(namedDocument("one"))
	clock.fireLatest(t)
	stale := previewer.next(t)

	c.SetDocument(namedDocument("two"))
	clock.fireLatest(t)
	previewer.next(t).succeed("fresh")

	stale.fail(&render.RenderError{StatusCode: 422, Field: "email", Message: "old"})
	c.Wait()

	status := c.Status()
	assert.Empty(t, status.FieldErrors)
	assert.Equal(t, []byte("fresh"), status.Preview)
}

func TestController_EmptyFenceDiscardsOutstanding(t *testing.T) {
	c, clock, previewer := newTestController(true)

	c.SetDocument(namedDocument("Ada"))
	clock.fireLatest(t)
	outstanding := previewer.next(t)

	c.SetDocument(cv.New())
	clock.fireLatest(t)

	outstanding.succeed("late")
	c.Wait()
	assert.Nil(t, c.Status().Preview)
}

func TestController_OnUpdate(t *testing.T) {
	clock := &fakeClock{}
	previewer := newFakePreviewer()

	var mu sync.Mutex
	var states []State
	opts := DefaultOptions()
	opts.AfterFunc = clock.AfterFunc
	opts.OnUpdate = func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	}
	c := New(previewer, opts, nil)

	c.SetDocument(namedDocument("Ada"))
	clock.fireLatest(t)
	previewer.next(t).succeed("png")
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateSyncing, StateIdle}, states)
}

func TestController_FlushAndClose(t *testing.T) {
	c, clock, previewer := newTestController(true)

	c.SetDocument(namedDocument("Ada"))
	c.Flush()
	assert.True(t, clock.all()[0].stopped)
	previewer.next(t).succeed("png")
	c.Wait()

	// The flushed timer's callback is stale now.
	clock.all()[0].fn()
	previewer.assertNoCall(t)

	c.SetDocument(namedDocument("Ada L"))
	c.Close()
	timers := clock.all()
	assert.True(t, timers[len(timers)-1].stopped)

	timers[len(timers)-1].fn()
	c.SetDocument(namedDocument("after close"))
	c.Flush()
	previewer.assertNoCall(t)
	assert.Len(t, clock.all(), len(timers), "closed controller arms no timers")
}

func TestController_RealTimer(t *testing.T) {
	previewer := newFakePreviewer()
	opts := DefaultOptions()
	opts.DebounceDelay = 10 * time.Millisecond
	c := New(previewer, opts, nil)
	defer c.Close()

	c.SetDocument(namedDocument("Ada"))
	previewer.next(t).succeed("png")
	c.Wait()
	assert.Equal(t, []byte("png"), c.Status().Preview)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.SyncConfig{
		DebounceDelay:  250 * time.Millisecond,
		FenceResponses: false,
		RequestTimeout: time.Second,
	})
	assert.Equal(t, 250*time.Millisecond, opts.DebounceDelay)
	assert.False(t, opts.FenceResponses)
	assert.Equal(t, time.Second, opts.RequestTimeout)
	assert.NotNil(t, opts.AfterFunc)

	defaults := OptionsFromConfig(config.SyncConfig{FenceResponses: true})
	assert.Equal(t, DefaultDebounceDelay, defaults.DebounceDelay)
	assert.True(t, defaults.FenceResponses)
}
