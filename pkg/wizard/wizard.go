// Package wizard drives the multi-step "add memory" flow: per-step
// validation, navigation, image selection and the submit pipeline of upload,
// optimistic append, persist and broadcast.
//
// A Wizard is safe for concurrent use. Network calls run without holding its
// lock so a host UI can keep rendering snapshots while a submission is in
// flight.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheeehy/lena/pkg/blob"
	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/logger"
)

// Notification messages shown to the user after a submission.
const (
	MessageSaved        = "Your memory has been saved successfully."
	MessageSaveFailed   = "We couldn't save your memory. Please try again."
	MessageUploadFailed = "We couldn't upload your image. Please try again."
)

// DayCounter reports how many memories a day holds.
type DayCounter interface {
	MemoryCount(date string) int
}

// Store is the part of the memory store the wizard writes to.
// *memory.Store satisfies it.
type Store interface {
	DayCounter
	Covers(date string) bool
	AppendPending(m day.Memory) bool
	Discard(id string) bool
	Confirm(id string)
}

// Persister durably creates a memory. storage.Driver satisfies it.
type Persister interface {
	Create(ctx context.Context, m day.Memory) error
}

// Config wires a Wizard to its collaborators.
type Config struct {
	Store     Store
	Persister Persister

	// Uploader stores selected images. A nil uploader fails any submission
	// that carries an image.
	Uploader blob.Uploader

	// Publisher receives a memoryCreated event after every successful
	// persist. Optional.
	Publisher eventstream.Publisher

	// Origin is stamped on published events. Defaults to
	// eventstream.OriginTimeline.
	Origin string

	// BirthDate is the earliest accepted memory date. Zero disables the
	// lower bound.
	BirthDate time.Time

	Clock  func() time.Time
	NewID  func() string
	Open   func(path string) (io.ReadCloser, error)
	Logger *slog.Logger
}

// NotificationKind classifies a Notification.
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyError
)

// Notification is the outcome of the last submission.
type Notification struct {
	Kind    NotificationKind
	Message string
	At      time.Time
}

// Draft holds the text fields of the form.
type Draft struct {
	Date        string
	Title       string
	Description string
	Location    string
}

// Image is a selected local file and its preview reference. The preview
// changes every time a file is selected.
type Image struct {
	Path    string
	Preview string
}

// Snapshot is a read-only copy of the wizard state for rendering.
type Snapshot struct {
	Open       bool
	Session    uint64
	Step       Step
	Draft      Draft
	Image      *Image
	Errors     map[Step]error
	Submitting bool
}

type retainedMemory struct {
	memory    day.Memory
	imagePath string
}

// Wizard is the memory-creation state machine.
type Wizard struct {
	mu sync.Mutex

	store     Store
	persister Persister
	uploader  blob.Uploader
	publisher eventstream.Publisher
	origin    string
	birth     time.Time
	clock     func() time.Time
	newID     func() string
	open      func(path string) (io.ReadCloser, error)
	log       *slog.Logger

	isOpen     bool
	session    uint64
	step       Step
	draft      Draft
	image      *Image
	errs       map[Step]error
	submitting bool

	// retained is the memory of a failed persist. Resubmitting an unchanged
	// form retries it instead of appending a second copy.
	retained *retainedMemory

	note *Notification
}

// New builds a closed Wizard.
func New(cfg Config) *Wizard {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Open == nil {
		cfg.Open = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	}
	if cfg.Origin == "" {
		cfg.Origin = eventstream.OriginTimeline
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Wizard{
		store:     cfg.Store,
		persister: cfg.Persister,
		uploader:  cfg.Uploader,
		publisher: cfg.Publisher,
		origin:    cfg.Origin,
		birth:     cfg.BirthDate,
		clock:     cfg.Clock,
		newID:     cfg.NewID,
		open:      cfg.Open,
		log:       cfg.Logger,
		errs:      make(map[Step]error),
	}
}

// Open resets the form to its initial state: the date step with today's
// date. Any previous notification is cleared.
func (w *Wizard) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.resetLocked()
	w.isOpen = true
	w.note = nil
}

// Close discards the drafts. Results of a submission still in flight are
// ignored by the wizard.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.resetLocked()
	w.isOpen = false
}

func (w *Wizard) resetLocked() {
	w.session++
	w.step = StepDate
	w.draft = Draft{Date: FormatDate(w.clock())}
	w.image = nil
	w.errs = make(map[Step]error)
	w.submitting = false
	w.retained = nil
}

// IsOpen reports whether the wizard is open.
func (w *Wizard) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isOpen
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Snapshot returns a copy of the current state.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		Open:       w.isOpen,
		Session:    w.session,
		Step:       w.step,
		Draft:      w.draft,
		Errors:     make(map[Step]error, len(w.errs)),
		Submitting: w.submitting,
	}
	if w.image != nil {
		img := *w.image
		s.Image = &img
	}
	for k, v := range w.errs {
		s.Errors[k] = v
	}
	return s
}

// Notification returns the outcome of the last submission, if any.
func (w *Wizard) Notification() (Notification, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.note == nil {
		return Notification{}, false
	}
	return *w.note, true
}

// DismissNotification clears the last outcome.
func (w *Wizard) DismissNotification() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.note = nil
}

// SetDate stores the masked form of input and returns it.
func (w *Wizard) SetDate(input string) string {
	masked := MaskDate(input)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Date = masked
	delete(w.errs, StepDate)
	return masked
}

// SetTitle stores the title.
func (w *Wizard) SetTitle(v string) {
	w.setField(StepTitle, v)
}

// SetDescription stores the description.
func (w *Wizard) SetDescription(v string) {
	w.setField(StepDescription, v)
}

// SetLocation stores the optional location.
func (w *Wizard) SetLocation(v string) {
	w.setField(StepLocation, v)
}

func (w *Wizard) setField(step Step, v string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch step {
	case StepTitle:
		w.draft.Title = v
	case StepDescription:
		w.draft.Description = v
	case StepLocation:
		w.draft.Location = v
	}
	delete(w.errs, step)
}

// SelectImage replaces any selected file with path and issues a fresh
// preview reference.
func (w *Wizard) SelectImage(path string) error {
	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("selecting image: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("selecting image: %s is a directory", path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.image = &Image{
		Path:    path,
		Preview: "preview:" + uuid.NewString() + "/" + filepath.Base(path),
	}
	delete(w.errs, StepImage)
	return nil
}

// ClearImage removes the selected file.
func (w *Wizard) ClearImage() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.image = nil
	delete(w.errs, StepImage)
}

// Validate checks a single step against the current draft without changing
// any state.
func (w *Wizard) Validate(step Step) error {
	w.mu.Lock()
	draft, retained := w.draft, w.retained
	w.mu.Unlock()

	return w.validate(step, draft, retained)
}

func (w *Wizard) validate(step Step, draft Draft, retained *retainedMemory) error {
	switch step {
	case StepDate:
		_, err := w.checkDate(draft.Date, retained)
		return err
	case StepTitle:
		return CheckRequired(StepTitle, draft.Title)
	case StepDescription:
		return CheckRequired(StepDescription, draft.Description)
	default:
		return nil
	}
}

// checkDate runs the format, bound and capacity checks in that order and
// returns the day key. A retained memory does not count against its own
// day: Submit either retries it under the same id or discards it.
func (w *Wizard) checkDate(input string, retained *retainedMemory) (string, error) {
	t, err := ParseDate(input)
	if err != nil {
		return "", err
	}
	if err := CheckBounds(t, w.birth, w.clock()); err != nil {
		return "", err
	}
	key := day.Key(t)
	if !w.store.Covers(key) {
		return "", &RangeError{Date: key, Reason: BeforeTimeline}
	}
	counter := DayCounter(w.store)
	if retained != nil && retained.memory.Date == key {
		counter = discount{w.store, key}
	}
	if err := CheckCapacity(key, counter); err != nil {
		return "", err
	}
	return key, nil
}

// discount hides one memory of a day from a DayCounter.
type discount struct {
	DayCounter
	date string
}

func (d discount) MemoryCount(date string) int {
	n := d.DayCounter.MemoryCount(date)
	if date == d.date && n > 0 {
		n--
	}
	return n
}

// GoNext validates the current step and advances. On the image step it
// submits instead.
func (w *Wizard) GoNext(ctx context.Context) error {
	w.mu.Lock()
	if !w.isOpen {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitting
	}
	step, draft, retained := w.step, w.draft, w.retained
	w.mu.Unlock()

	if step.Last() {
		_, err := w.Submit(ctx)
		return err
	}

	err := w.validate(step, draft, retained)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != step {
		return nil
	}
	if err != nil {
		w.errs[step] = err
		return err
	}
	delete(w.errs, step)
	w.step = step + 1
	return nil
}

// GoBack moves to the previous step. It never validates.
func (w *Wizard) GoBack() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepDate && !w.submitting {
		w.step--
	}
}

// GoToStep jumps to target. Backward jumps are unconditional. Forward jumps
// validate every step from the current one up to target and stop on the
// first failing step.
func (w *Wizard) GoToStep(_ context.Context, target Step) error {
	if !target.Valid() {
		return fmt.Errorf("unknown wizard step %d", target)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isOpen {
		return ErrClosed
	}
	if w.submitting {
		return ErrSubmitting
	}
	if target <= w.step {
		w.step = target
		return nil
	}

	for s := w.step; s < target; s++ {
		if err := w.validate(s, w.draft, w.retained); err != nil {
			w.step = s
			w.errs[s] = err
			return err
		}
		delete(w.errs, s)
	}
	w.step = target
	return nil
}

// Submit runs the submission pipeline. Local validation completes before any
// network call. On success the wizard closes and the saved memory is
// returned.
func (w *Wizard) Submit(ctx context.Context) (day.Memory, error) {
	w.mu.Lock()
	if !w.isOpen {
		w.mu.Unlock()
		return day.Memory{}, ErrClosed
	}
	if w.submitting {
		w.mu.Unlock()
		return day.Memory{}, ErrSubmitting
	}

	draft, retained := w.draft, w.retained
	key, err := w.checkDate(draft.Date, retained)
	if err != nil {
		w.step = StepDate
		w.errs[StepDate] = err
		w.mu.Unlock()
		return day.Memory{}, err
	}
	for _, s := range []Step{StepTitle, StepDescription} {
		if err := w.validate(s, draft, nil); err != nil {
			w.step = s
			w.errs[s] = err
			w.mu.Unlock()
			return day.Memory{}, err
		}
	}

	session := w.session
	var image *Image
	if w.image != nil {
		img := *w.image
		image = &img
	}
	w.submitting = true
	delete(w.errs, StepImage)
	w.mu.Unlock()

	var uri string
	switch {
	case image != nil && retained != nil && retained.imagePath == image.Path:
		uri = retained.memory.Image
	case image != nil:
		uri, err = w.upload(ctx, image.Path)
		if err != nil {
			return day.Memory{}, w.fail(session, StepImage, err, MessageUploadFailed)
		}
	}

	m := day.Memory{
		Date:        key,
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		Location:    strings.TrimSpace(draft.Location),
		Image:       uri,
	}
	if retained != nil && sameContent(retained.memory, m) {
		m.ID = retained.memory.ID
	} else {
		// an edited retry replaces the unsaved copy instead of adding to it
		if retained != nil {
			w.store.Discard(retained.memory.ID)
		}
		m.ID = w.newID()
		if !w.store.AppendPending(m) {
			w.log.Warn("memory not shown on the timeline", "memory_id", m.ID, "date", m.Date)
		}
	}

	if err := w.persister.Create(ctx, m); err != nil {
		w.log.Error("failed to persist memory", "memory_id", m.ID, "error", err)

		w.mu.Lock()
		if w.session == session {
			w.retained = &retainedMemory{memory: m}
			if image != nil {
				w.retained.imagePath = image.Path
			}
		}
		w.mu.Unlock()
		return day.Memory{}, w.fail(session, StepImage, &PersistError{MemoryID: m.ID, Err: err}, MessageSaveFailed)
	}

	w.store.Confirm(m.ID)
	if w.publisher != nil {
		if err := w.publisher.PublishMemoryCreated(ctx, eventstream.NewMemoryCreated(m, w.origin)); err != nil {
			w.log.Warn("failed to publish memory event", "memory_id", m.ID, "error", err)
		}
	}
	w.log.Info("memory saved", "memory_id", m.ID, "date", m.Date)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session != session {
		return m, ErrClosed
	}
	w.resetLocked()
	w.isOpen = false
	w.note = &Notification{Kind: NotifySuccess, Message: MessageSaved, At: w.clock()}
	return m, nil
}

func (w *Wizard) upload(ctx context.Context, path string) (string, error) {
	if w.uploader == nil {
		return "", &UploadError{Path: path, Err: errors.New("no image uploader configured")}
	}

	f, err := w.open(path)
	if err != nil {
		return "", &UploadError{Path: path, Err: err}
	}
	defer f.Close()

	uri, err := w.uploader.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		w.log.Error("failed to upload image", "path", path, "error", err)
		return "", &UploadError{Path: path, Err: err}
	}
	return uri, nil
}

// fail records a failed submission when it still belongs to the current
// session and returns err, or ErrClosed for a stale session.
func (w *Wizard) fail(session uint64, step Step, err error, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != session {
		return ErrClosed
	}
	w.submitting = false
	w.step = step
	w.errs[step] = err
	w.note = &Notification{Kind: NotifyError, Message: message, At: w.clock()}
	return err
}

func sameContent(a, b day.Memory) bool {
	return a.Date == b.Date &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Location == b.Location &&
		a.Image == b.Image
}
