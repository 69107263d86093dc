// Package orchestrator coordinates one user's session in the camera client:
// staging images, running an analysis, saving it to history and switching
// accounts.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
	"github.com/bryanwahyu/research-camera/internal/domain/history"
	"github.com/bryanwahyu/research-camera/internal/domain/users"
	"github.com/bryanwahyu/research-camera/internal/logger"
)

var (
	ErrNotReady            = errors.New("primary image (and secondary in compare mode) required")
	ErrAnalysisInProgress  = errors.New("an analysis is already running")
	ErrLoginRequired       = errors.New("login required to save")
	ErrNothingToSave       = errors.New("no result to save")
	ErrSaveFailed          = errors.New("history could not be saved")
	ErrSecondaryNotAllowed = errors.New("second image needs compare mode")
	ErrUnknownSlot         = errors.New("unknown image slot")
)

// Slot indexes the two image inputs.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotSecondary
)

// Auth is the part of the auth service the orchestrator drives.
type Auth interface {
	Login(ctx context.Context, email, password string) (users.User, error)
	Signup(ctx context.Context, email, password, name string) (users.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) *users.User
}

// History is the part of the history service the orchestrator drives.
type History interface {
	List(ctx context.Context, userID string) []history.Item
	Save(ctx context.Context, userID string, res analysis.Result, mode analysis.Mode, audience analysis.Audience, images []analysis.Image) (history.Item, bool)
}

// SlotView is what a slot currently shows. Image is nil when only a
// preview (for example a history thumbnail) is held.
type SlotView struct {
	Image   *analysis.Image
	Preview string
}

type Orchestrator struct {
	analyzer analysis.Client
	auth     Auth
	history  History
	log      *logger.Logger

	mu        sync.Mutex
	state     State
	inputMode analysis.InputMode
	mode      analysis.Mode
	audience  analysis.Audience
	slots     [2]SlotView
	user      *users.User
	items     []history.Item
	inFlight  bool
}

func New(analyzer analysis.Client, auth Auth, hist History, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		analyzer:  analyzer,
		auth:      auth,
		history:   hist,
		log:       log,
		state:     Idle{},
		inputMode: analysis.InputSingle,
		mode:      analysis.DefaultMode,
		audience:  analysis.DefaultAudience,
	}
}

// Init restores the persisted session and its history.
func (o *Orchestrator) Init(ctx context.Context) {
	u := o.auth.CurrentUser(ctx)
	if u == nil {
		return
	}
	items := o.history.List(ctx, u.ID)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.user = u
	o.items = items
}

// SetInputMode switches between single and compare. Going to single drops
// the secondary image; switching back does not restore it.
func (o *Orchestrator) SetInputMode(m analysis.InputMode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inputMode = m
	if m == analysis.InputSingle {
		o.slots[SlotSecondary] = SlotView{}
	}
	o.settleLocked()
}

// SetImage stages img in slot, or clears the slot when img is nil. Clearing
// the primary image also clears the displayed result.
func (o *Orchestrator) SetImage(slot Slot, img *analysis.Image, preview string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch slot {
	case SlotPrimary:
	case SlotSecondary:
		if img != nil && o.inputMode != analysis.InputCompare {
			return ErrSecondaryNotAllowed
		}
	default:
		return ErrUnknownSlot
	}

	if img == nil {
		o.slots[slot] = SlotView{}
		if slot == SlotPrimary {
			if _, ok := o.state.(Analyzing); !ok {
				o.state = Idle{}
			}
		}
	} else {
		cp := *img
		o.slots[slot] = SlotView{Image: &cp, Preview: preview}
	}
	o.settleLocked()
	return nil
}

func (o *Orchestrator) SetMode(m analysis.Mode) {
	o.mu.Lock()
	o.mode = m
	o.mu.Unlock()
}

func (o *Orchestrator) SetAudience(a analysis.Audience) {
	o.mu.Lock()
	o.audience = a
	o.mu.Unlock()
}

// CanAnalyze reports whether the staged images satisfy the input mode.
func (o *Orchestrator) CanAnalyze() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.canAnalyzeLocked()
}

func (o *Orchestrator) canAnalyzeLocked() bool {
	if o.slots[SlotPrimary].Image == nil {
		return false
	}
	return o.inputMode == analysis.InputSingle || o.slots[SlotSecondary].Image != nil
}

// Analyze runs the pipeline on the staged images and blocks until it is done.
// Pipeline failures end in a Failed state, not in the returned error; the
// error is only ErrNotReady or ErrAnalysisInProgress. With an active session
// the result is saved to history automatically.
func (o *Orchestrator) Analyze(ctx context.Context) (State, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrAnalysisInProgress
	}
	if !o.canAnalyzeLocked() {
		o.mu.Unlock()
		return nil, ErrNotReady
	}
	images := o.stagedImagesLocked()
	mode, audience := o.mode, o.audience
	o.inFlight = true
	o.state = Analyzing{}
	o.mu.Unlock()

	res, err := o.analyzer.Analyze(ctx, analysis.Request{Images: images, Mode: mode, Audience: audience})

	o.mu.Lock()
	o.inFlight = false
	if _, still := o.state.(Analyzing); !still {
		// logout atau history load di tengah jalan, hasil dibuang
		st := o.state
		o.mu.Unlock()
		o.log.Debug().Msg("analysis finished after state changed, result dropped")
		return st, nil
	}
	if err != nil {
		o.state = failure(err)
		st := o.state
		o.mu.Unlock()
		return st, nil
	}
	o.state = Succeeded{Result: res}
	user := o.user
	o.mu.Unlock()

	if user != nil {
		o.save(ctx, *user, res, mode, audience, images)
	}
	return o.State(), nil
}

// Save stores the displayed result for the logged-in user. Without a
// session it returns ErrLoginRequired. A result whose source images are no
// longer held (loaded from history) or that is already saved is left alone.
func (o *Orchestrator) Save(ctx context.Context) error {
	o.mu.Lock()
	st, ok := o.state.(Succeeded)
	if !ok {
		o.mu.Unlock()
		return ErrNothingToSave
	}
	if o.user == nil {
		o.mu.Unlock()
		return ErrLoginRequired
	}
	if st.Saved {
		o.mu.Unlock()
		return nil
	}
	images := o.stagedImagesLocked()
	if len(images) == 0 {
		o.mu.Unlock()
		return nil
	}
	user, mode, audience := *o.user, o.mode, o.audience
	o.mu.Unlock()

	if !o.save(ctx, user, st.Result, mode, audience, images) {
		return ErrSaveFailed
	}
	return nil
}

// save writes to history and marks the result saved if it is still the one
// displayed.
func (o *Orchestrator) save(ctx context.Context, user users.User, res analysis.Result, mode analysis.Mode, audience analysis.Audience, images []analysis.Image) bool {
	_, ok := o.history.Save(ctx, user.ID, res, mode, audience, images)
	if !ok {
		o.log.Warn().Str("user_id", user.ID).Msg("result not saved to history")
		return false
	}
	items := o.history.List(ctx, user.ID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.user == nil || o.user.ID != user.ID {
		return true
	}
	o.items = items
	if cur, ok := o.state.(Succeeded); ok && !cur.Saved {
		cur.Saved = true
		o.state = cur
	}
	return true
}

// LoadHistoryItem shows a stored result. Live image blobs are dropped and
// the stored thumbnail stands in for every image of the item.
func (o *Orchestrator) LoadHistoryItem(item history.Item) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.mode = item.Mode
	o.audience = item.Audience
	o.slots[SlotPrimary] = SlotView{Preview: item.ThumbnailURL}
	if item.ImageCount > 1 {
		o.inputMode = analysis.InputCompare
		o.slots[SlotSecondary] = SlotView{Preview: item.ThumbnailURL}
	} else {
		o.inputMode = analysis.InputSingle
		o.slots[SlotSecondary] = SlotView{}
	}
	o.state = Succeeded{Result: item.Result, Saved: true}
}

// Login makes u the session user. A displayed unsaved result stays so it
// can be saved afterwards.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (users.User, error) {
	u, err := o.auth.Login(ctx, email, password)
	if err != nil {
		return users.User{}, err
	}
	o.setUser(ctx, u)
	return u, nil
}

func (o *Orchestrator) Signup(ctx context.Context, email, password, name string) (users.User, error) {
	u, err := o.auth.Signup(ctx, email, password, name)
	if err != nil {
		return users.User{}, err
	}
	o.setUser(ctx, u)
	return u, nil
}

func (o *Orchestrator) setUser(ctx context.Context, u users.User) {
	items := o.history.List(ctx, u.ID)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.user = &u
	o.items = items
}

// Logout clears the session, the in-memory history and the displayed
// result. Staged images stay.
func (o *Orchestrator) Logout(ctx context.Context) error {
	err := o.auth.Logout(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.user = nil
	o.items = nil
	o.state = Idle{}
	o.settleLocked()
	return err
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) User() *users.User {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.user == nil {
		return nil
	}
	u := *o.user
	return &u
}

func (o *Orchestrator) History() []history.Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]history.Item(nil), o.items...)
}

func (o *Orchestrator) InputMode() analysis.InputMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inputMode
}

func (o *Orchestrator) Mode() analysis.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

func (o *Orchestrator) Audience() analysis.Audience {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.audience
}

func (o *Orchestrator) Slot(s Slot) SlotView {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s != SlotPrimary && s != SlotSecondary {
		return SlotView{}
	}
	return o.slots[s]
}

func (o *Orchestrator) stagedImagesLocked() []analysis.Image {
	var out []analysis.Image
	if img := o.slots[SlotPrimary].Image; img != nil {
		out = append(out, *img)
	}
	if o.inputMode == analysis.InputCompare {
		if img := o.slots[SlotSecondary].Image; img != nil {
			out = append(out, *img)
		}
	}
	return out
}

// settleLocked moves between Idle and Configuring when nothing is displayed.
func (o *Orchestrator) settleLocked() {
	switch o.state.(type) {
	case Idle, Configuring:
		if o.slots[SlotPrimary].Image != nil || o.slots[SlotSecondary].Image != nil {
			o.state = Configuring{}
		} else {
			o.state = Idle{}
		}
	}
}

func failure(err error) Failed {
	if errors.Is(err, analysis.ErrQuotaExceeded) {
		return Failed{Kind: FailureQuota, Message: QuotaMessage}
	}
	var fe *analysis.FailedError
	if errors.As(err, &fe) && fe.Message != "" {
		return Failed{Kind: FailureGeneric, Message: fe.Message}
	}
	if msg := err.Error(); msg != "" {
		return Failed{Kind: FailureGeneric, Message: msg}
	}
	return Failed{Kind: FailureGeneric, Message: genericMessage}
}
