package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/pins"
)

// DefaultCloseDelay is how long the form stays open after a successful save.
const DefaultCloseDelay = time.Second

const msgNameRequired = "Please provide a name for the location."

// PinSaver persists a new pin.
type PinSaver interface {
	Add(ctx context.Context, loc pins.Location) error
}

// Draft is the state of the pin form.
type Draft struct {
	Open        bool
	Saved       bool
	Point       *geo.Point
	Name        string
	Description string
}

// Placement is the click-to-pin form.
type Placement struct {
	saver    PinSaver
	notifier Notifier
	delay    time.Duration

	mu    sync.Mutex
	draft Draft
	timer *time.Timer
	gen   uint64
}

// NewPlacement creates a closed pin form. A non-positive delay uses DefaultCloseDelay.
func NewPlacement(saver PinSaver, notifier Notifier, delay time.Duration) *Placement {
	if delay <= 0 {
		delay = DefaultCloseDelay
	}
	return &Placement{saver: saver, notifier: notifier, delay: delay}
}

// Draft returns a copy of the form state.
func (f *Placement) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := f.draft
	if d.Point != nil {
		pt := *d.Point
		d.Point = &pt
	}
	return d
}

// Click records p as the pin location and opens the form.
func (f *Placement) Click(p geo.Point) {
	f.mu.Lock()
	f.stopTimerLocked()
	f.draft.Open = true
	f.draft.Saved = false
	f.draft.Point = &p
	f.mu.Unlock()
}

// SetPoint records p as the pin location without opening the form.
func (f *Placement) SetPoint(p geo.Point) {
	f.mu.Lock()
	f.draft.Point = &p
	f.mu.Unlock()
}

// SetName sets the pin name.
func (f *Placement) SetName(name string) {
	f.mu.Lock()
	f.draft.Name = name
	f.mu.Unlock()
}

// SetDescription sets the optional pin description.
func (f *Placement) SetDescription(desc string) {
	f.mu.Lock()
	f.draft.Description = desc
	f.mu.Unlock()
}

// Submit saves the draft. On success the form closes after the configured
// delay; on failure it stays open for another attempt. A form reopened by a
// click while the save was in flight is left untouched.
func (f *Placement) Submit(ctx context.Context) error {
	f.mu.Lock()
	d := f.draft
	submitted := f.gen
	f.mu.Unlock()

	name := strings.TrimSpace(d.Name)
	if d.Point == nil || name == "" {
		notify(f.notifier, LevelWarning, msgNameRequired)
		return pins.ErrNameRequired
	}

	loc := pins.Location{
		Name:        name,
		Description: d.Description,
		Point:       *d.Point,
	}
	if err := f.saver.Add(ctx, loc); err != nil {
		return err
	}

	f.mu.Lock()
	if f.gen != submitted {
		f.mu.Unlock()
		return nil
	}
	f.stopTimerLocked()
	f.draft.Saved = true
	f.gen++
	gen := f.gen
	f.timer = time.AfterFunc(f.delay, func() { f.closeAfterSave(gen) })
	f.mu.Unlock()
	return nil
}

func (f *Placement) closeAfterSave(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	f.draft = Draft{}
	f.timer = nil
}

// Cancel clears the form without saving.
func (f *Placement) Cancel() {
	f.mu.Lock()
	f.stopTimerLocked()
	f.draft = Draft{}
	f.mu.Unlock()
}

// Close stops a pending close timer.
func (f *Placement) Close() {
	f.mu.Lock()
	f.stopTimerLocked()
	f.mu.Unlock()
}

func (f *Placement) stopTimerLocked() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
