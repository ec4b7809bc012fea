package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/allendavis-developer/cashgen-extension/pkg/browser"
)

// fakeWorker simulates a page without a browser. Tests script where form
// submissions and clicks land via onSubmit and onClick, and drive reloads
// with fireLoad.
type fakeWorker struct {
	mu      sync.Mutex
	id      string
	url     string
	html    string
	navErr  error
	fillErr error
	checked bool
	closed  bool

	fills   map[string]string
	clicked []string

	// onSubmit receives the submitted value and decides the next page,
	// typically by calling fireLoad
	onSubmit func(value string)
	// onClick simulates the page's reaction to a click
	onClick func(selector string)

	nextSub  int
	loadFns  map[int]func(string)
	navFns   map[int]func(string)
	closeFns map[int]func()
}

func newFakeWorker(id string) *fakeWorker {
	return &fakeWorker{
		id:       id,
		fills:    make(map[string]string),
		loadFns:  make(map[int]func(string)),
		navFns:   make(map[int]func(string)),
		closeFns: make(map[int]func()),
	}
}

func (w *fakeWorker) ID() string { return w.id }

func (w *fakeWorker) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

func (w *fakeWorker) Navigate(_ context.Context, url string) error {
	if w.navErr != nil {
		return w.navErr
	}
	w.fireNavigate(url)
	w.fireLoad(url)
	return nil
}

func (w *fakeWorker) Content(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.html, nil
}

func (w *fakeWorker) Fill(_ context.Context, selector, value string) error {
	if w.fillErr != nil {
		return w.fillErr
	}
	w.mu.Lock()
	w.fills[selector] = value
	w.mu.Unlock()
	return nil
}

func (w *fakeWorker) Submit(_ context.Context, selector string) error {
	w.mu.Lock()
	value := w.fills[selector]
	submit := w.onSubmit
	w.mu.Unlock()
	if submit != nil {
		submit(value)
	}
	return nil
}

func (w *fakeWorker) Click(_ context.Context, selector string) error {
	w.mu.Lock()
	w.clicked = append(w.clicked, selector)
	click := w.onClick
	w.mu.Unlock()
	if click != nil {
		click(selector)
	}
	return nil
}

func (w *fakeWorker) IsChecked(context.Context, string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checked, nil
}

func (w *fakeWorker) WaitForSelector(context.Context, string, time.Duration) error {
	return nil
}

func (w *fakeWorker) OnLoad(fn func(string)) browser.Subscription {
	return w.subscribe(w.loadFns, fn)
}

func (w *fakeWorker) OnNavigate(fn func(string)) browser.Subscription {
	return w.subscribe(w.navFns, fn)
}

func (w *fakeWorker) OnClose(fn func()) browser.Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := w.nextSub
	w.nextSub++
	w.closeFns[key] = fn
	return &fakeSub{remove: func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.closeFns, key)
	}}
}

func (w *fakeWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	fns := make([]func(), 0, len(w.closeFns))
	for _, fn := range w.closeFns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (w *fakeWorker) subscribe(m map[int]func(string), fn func(string)) browser.Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := w.nextSub
	w.nextSub++
	m[key] = fn
	return &fakeSub{remove: func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(m, key)
	}}
}

// fireLoad simulates a completed navigation: the page's location changes and
// every load listener runs.
func (w *fakeWorker) fireLoad(url string) {
	w.mu.Lock()
	w.url = url
	fns := make([]func(string), 0, len(w.loadFns))
	for _, fn := range w.loadFns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(url)
	}
}

func (w *fakeWorker) fireNavigate(url string) {
	w.mu.Lock()
	fns := make([]func(string), 0, len(w.navFns))
	for _, fn := range w.navFns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(url)
	}
}

func (w *fakeWorker) setChecked(v bool) {
	w.mu.Lock()
	w.checked = v
	w.mu.Unlock()
}

func (w *fakeWorker) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type fakeSub struct {
	once   sync.Once
	remove func()
}

func (s *fakeSub) Unsubscribe() { s.once.Do(s.remove) }

// fakeFactory hands out scripted workers in order.
type fakeFactory struct {
	mu      sync.Mutex
	workers []*fakeWorker
	next    int
	err     error
}

func (f *fakeFactory) StartWorker(context.Context) (browser.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.next >= len(f.workers) {
		return nil, context.DeadlineExceeded
	}
	w := f.workers[f.next]
	f.next++
	return w, nil
}
