package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DefaultQuickActions are the prompts offered when none are configured.
var DefaultQuickActions = []string{
	"Analyze my store's SEO health",
	"What are my most critical SEO issues?",
	"Generate meta descriptions for products that are missing them",
	"Which fixes should I apply first?",
}

const canceledMessage = "Request cancelled"

// ErrSessionReset is returned by an operation whose response arrived after
// Reset; the response is discarded.
var ErrSessionReset = &Error{Kind: KindCanceled, Message: "session was reset before the response arrived"}

// Controller owns a SessionState and serializes the operations that mutate it.
// Every method is safe for concurrent use; the lock is never held across a
// call into the Service.
type Controller struct {
	svc        Service
	sessionKey string
	notify     func()
	logf       func(string)

	mu           sync.Mutex
	generation   uint64
	log          messageLog
	store        *StoreContext
	credits      *CreditLedger
	input        string
	isOpen       bool
	errMsg       string
	errKind      Kind
	quickActions []string

	// In-flight tokens: non-nil exactly while the matching request is outstanding.
	sendCancel   context.CancelFunc
	switchCancel context.CancelFunc
	loadCancel   context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotify registers a callback invoked after every state change.
// It runs outside the controller lock and may call Snapshot.
func WithNotify(fn func()) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithLogger routes controller diagnostics, including silent failures.
func WithLogger(fn func(string)) Option {
	return func(c *Controller) { c.logf = fn }
}

// WithQuickActions replaces the default quick-action prompts.
func WithQuickActions(actions []string) Option {
	return func(c *Controller) {
		if len(actions) > 0 {
			c.quickActions = append([]string(nil), actions...)
		}
	}
}

// New creates a controller bound to one session key.
func New(svc Service, sessionKey string, opts ...Option) *Controller {
	c := &Controller{
		svc:          svc,
		sessionKey:   sessionKey,
		quickActions: append([]string(nil), DefaultQuickActions...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionKey returns the key sent with every request.
func (c *Controller) SessionKey() string { return c.sessionKey }

// Open marks the session visible. The first transition to open while no store
// context is held (and none is loading) starts a background context load.
func (c *Controller) Open(ctx context.Context) {
	c.mu.Lock()
	wasOpen := c.isOpen
	c.isOpen = true
	var (
		loadCtx context.Context
		gen     uint64
		load    bool
	)
	if !wasOpen && c.store == nil && c.loadCancel == nil {
		loadCtx, gen = c.beginLoadLocked(ctx)
		load = true
	}
	c.mu.Unlock()

	if wasOpen {
		return
	}
	c.changed()
	if load {
		go func() { _ = c.runLoad(loadCtx, gen) }()
	}
}

// Close hides the session. State is kept and in-flight requests still complete.
func (c *Controller) Close() {
	c.mu.Lock()
	wasOpen := c.isOpen
	c.isOpen = false
	c.mu.Unlock()
	if wasOpen {
		c.changed()
	}
}

// LoadContext fetches the store context and replaces it wholesale on success.
// Failure leaves the context absent and does not touch the error slot; the
// error is only logged and returned to the caller.
func (c *Controller) LoadContext(ctx context.Context) error {
	c.mu.Lock()
	if c.loadCancel != nil {
		c.mu.Unlock()
		return ErrBusy
	}
	loadCtx, gen := c.beginLoadLocked(ctx)
	c.mu.Unlock()
	c.changed()
	return c.runLoad(loadCtx, gen)
}

func (c *Controller) beginLoadLocked(ctx context.Context) (context.Context, uint64) {
	loadCtx, cancel := context.WithCancel(ctx)
	c.loadCancel = cancel
	return loadCtx, c.generation
}

func (c *Controller) runLoad(ctx context.Context, gen uint64) error {
	sc, err := c.svc.GetContext(ctx, c.sessionKey)
	if err == nil && sc == nil {
		err = &Error{Kind: KindProtocol, Message: "empty store context response"}
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.debug("discarding store context from a reset session")
		return ErrSessionReset
	}
	c.loadCancel()
	c.loadCancel = nil
	if err == nil {
		stored := *sc
		c.store = &stored
		credits := sc.Credits
		c.credits = &credits
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		c.debug(fmt.Sprintf("store context load failed (%s): %v", KindOf(err), err))
		return err
	}
	c.debug(fmt.Sprintf("store context loaded: mode=%s credits=%s", sc.ExecutionMode, sc.Credits.Display()))
	return nil
}

// Send appends the trimmed text as a user turn, asks the service for a reply
// and appends it. On failure the user turn stays in the log and the error slot
// is set. Blank input and a send already in flight are rejected without side
// effects.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sendCancel != nil {
		c.mu.Unlock()
		return ErrBusy
	}
	c.log.append(RoleUser, text)
	c.input = ""
	reqCtx, cancel := context.WithCancel(ctx)
	c.sendCancel = cancel
	c.errMsg, c.errKind = "", KindUnknown
	transcript := c.log.snapshot()
	gen := c.generation
	c.mu.Unlock()
	c.changed()

	reply, err := c.svc.SendChat(reqCtx, c.sessionKey, transcript)
	if err == nil && reply == nil {
		err = &Error{Kind: KindProtocol, Message: "empty chat response"}
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.debug("discarding chat reply from a reset session")
		return ErrSessionReset
	}
	c.sendCancel = nil
	cancel()
	if err != nil {
		kind := KindOf(err)
		msg := UserMessage(err, sendFailedMessage)
		if kind == KindCanceled {
			msg = canceledMessage
		}
		c.errMsg, c.errKind = msg, kind
	} else {
		c.log.append(RoleAssistant, reply.Message)
		if reply.Credits != nil {
			credits := *reply.Credits
			c.credits = &credits
		}
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		c.debug(fmt.Sprintf("send failed (%s): %v", KindOf(err), err))
	}
	return err
}

// CancelSend aborts the outstanding send, if any.
func (c *Controller) CancelSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendCancel == nil {
		return false
	}
	c.sendCancel()
	return true
}

// RequestModeChange switches the store's execution mode. It is a silent no-op
// when the target equals the current mode, when a switch is already in flight,
// or when no store context has been loaded yet.
func (c *Controller) RequestModeChange(ctx context.Context, target ExecutionMode) error {
	if !target.Valid() {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("unknown execution mode %q", target)}
	}

	c.mu.Lock()
	if c.store == nil || c.switchCancel != nil || c.store.ExecutionMode == target {
		c.mu.Unlock()
		return nil
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.switchCancel = cancel
	gen := c.generation
	c.mu.Unlock()
	c.changed()

	_, err := c.svc.SetExecutionMode(reqCtx, c.sessionKey, target)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.debug("discarding mode change from a reset session")
		return ErrSessionReset
	}
	c.switchCancel = nil
	cancel()
	if err != nil {
		c.errMsg, c.errKind = modeChangeFailedMessage, KindOf(err)
	} else if c.store != nil {
		updated := *c.store
		updated.ExecutionMode = target
		c.store = &updated
		c.log.append(RoleAssistant, modeChangeAnnouncement(target))
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		c.debug(fmt.Sprintf("mode change to %s failed (%s): %v", target, KindOf(err), err))
	}
	return err
}

// DismissError clears the error slot.
func (c *Controller) DismissError() {
	c.mu.Lock()
	had := c.errMsg != ""
	c.errMsg, c.errKind = "", KindUnknown
	c.mu.Unlock()
	if had {
		c.changed()
	}
}

// SetInput replaces the pending input buffer.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
	c.changed()
}

// Input returns the pending input buffer.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// QuickActions returns the configured prefill prompts.
func (c *Controller) QuickActions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.quickActions...)
}

// SetQuickActions swaps the prompts; an empty list restores the defaults.
func (c *Controller) SetQuickActions(actions []string) {
	c.mu.Lock()
	if len(actions) == 0 {
		actions = DefaultQuickActions
	}
	c.quickActions = append([]string(nil), actions...)
	c.mu.Unlock()
	c.changed()
}

// ApplyQuickAction prefills the input buffer with the i-th quick action.
// It never sends.
func (c *Controller) ApplyQuickAction(i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.quickActions) {
		n := len(c.quickActions)
		c.mu.Unlock()
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("quick action %d out of range (have %d)", i, n)}
	}
	c.input = c.quickActions[i]
	c.mu.Unlock()
	c.changed()
	return nil
}

// Reset tears the session down: in-flight requests are cancelled, their late
// responses discarded, and all state returns to empty.
func (c *Controller) Reset() {
	c.mu.Lock()
	for _, cancel := range []context.CancelFunc{c.sendCancel, c.switchCancel, c.loadCancel} {
		if cancel != nil {
			cancel()
		}
	}
	c.generation++
	c.sendCancel, c.switchCancel, c.loadCancel = nil, nil, nil
	c.log = messageLog{}
	c.store = nil
	c.credits = nil
	c.input = ""
	c.isOpen = false
	c.errMsg, c.errKind = "", KindUnknown
	c.mu.Unlock()
	c.changed()
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Messages:         c.log.snapshot(),
		Input:            c.input,
		IsOpen:           c.isOpen,
		IsSending:        c.sendCancel != nil,
		IsSwitchingMode:  c.switchCancel != nil,
		IsLoadingContext: c.loadCancel != nil,
		Error:            c.errMsg,
		ErrorKind:        c.errKind,
	}
	if c.credits != nil {
		credits := *c.credits
		s.Credits = &credits
	}
	if c.store != nil {
		sc := *c.store
		if s.Credits != nil {
			sc.Credits = *s.Credits
		}
		s.Context = &sc
	}
	return s
}

func (c *Controller) changed() {
	if c.notify != nil {
		c.notify()
	}
}

func (c *Controller) debug(msg string) {
	if c.logf != nil {
		c.logf(msg)
	}
}
