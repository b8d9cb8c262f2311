package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bayloe/internal/convert"
	"bayloe/internal/format"
	"bayloe/internal/logging"
	"bayloe/internal/output"
	"bayloe/internal/retry"
	"bayloe/internal/services"
)

// DefaultPaceDelay is the pause before and after each ConvertAll item.
const DefaultPaceDelay = 100 * time.Millisecond

// Converter produces output bytes for one request; *convert.Converter
// satisfies it.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) (convert.Result, error)
}

// Outputs allocates output handles; *output.Registry satisfies it.
type Outputs interface {
	Create(data []byte, ext, mimeType string) (*output.Handle, error)
}

// Options configures a Manager.
type Options struct {
	Policy    retry.Policy
	PaceDelay time.Duration
	Logger    *slog.Logger
	// NewID overrides UUID generation in tests.
	NewID func() string
}

// BatchResult summarizes one ConvertAll run.
type BatchResult struct {
	Selected  int
	Completed int
	Failed    int
	Skipped   int
}

// Manager owns the queue and drives conversions.
type Manager struct {
	converter Converter
	outputs   Outputs
	policy    retry.Policy
	pace      time.Duration
	newID     func() string
	logger    *slog.Logger

	mu      sync.Mutex
	store   Store
	nextRun uint64
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// NewManager builds an empty queue.
func NewManager(converter Converter, outputs Outputs, opts Options) *Manager {
	policy := opts.Policy
	if policy == nil {
		policy = retry.Fixed(3, time.Second)
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Manager{
		converter: converter,
		outputs:   outputs,
		policy:    policy,
		pace:      opts.PaceDelay,
		newID:     newID,
		logger:    logging.NewComponentLogger(opts.Logger, "queue"),
		subs:      make(map[int]chan Event),
	}
}

// AddFiles appends one idle item per file and returns the new IDs in order.
func (m *Manager) AddFiles(files ...File) []string {
	if len(files) == 0 {
		return nil
	}
	items := make([]*Item, 0, len(files))
	for _, f := range files {
		items = append(items, &Item{
			ID:     m.newID(),
			Source: newSource(f),
			Format: format.Default,
			State:  Idle{},
		})
	}
	m.mu.Lock()
	m.store.Append(items...)
	m.mu.Unlock()

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
		m.logger.Debug("item added",
			logging.String(logging.FieldItemID, it.ID),
			logging.String("name", it.Source.Name()),
			logging.Int("bytes", int(it.Source.Size())))
		m.publish(Event{ItemID: it.ID, Status: StatusIdle})
	}
	return ids
}

// RemoveFile releases the item's output and deletes it. Unknown IDs are ignored.
func (m *Manager) RemoveFile(id string) {
	m.mu.Lock()
	item, ok := m.store.Remove(id)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.releaseState(item.ID, item.State)
	m.publish(Event{ItemID: id, Status: item.State.Status(), Removed: true})
}

// Clear removes every item, releasing outputs. In-flight results are dropped.
func (m *Manager) Clear() int {
	m.mu.Lock()
	items := m.store.Clear()
	m.mu.Unlock()
	for _, item := range items {
		m.releaseState(item.ID, item.State)
		m.publish(Event{ItemID: item.ID, Status: item.State.Status(), Removed: true})
	}
	return len(items)
}

// UpdateFormat sets the target for the next conversion. A completed item
// whose format changes loses its output and returns to idle; a running
// conversion keeps the format it started with.
func (m *Manager) UpdateFormat(id string, f format.Format) error {
	if !f.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, f)
	}
	m.mu.Lock()
	item, ok := m.store.Get(id)
	if !ok || item.Format == f {
		m.mu.Unlock()
		return nil
	}
	item.Format = f
	var released State
	if done, isDone := item.State.(Completed); isDone {
		released = done
		item.State = Idle{}
	}
	status := item.State.Status()
	m.mu.Unlock()

	if released != nil {
		m.releaseState(id, released)
	}
	m.publish(Event{ItemID: id, Status: status})
	return nil
}

// ConvertOne converts a single item with retries. It is a no-op when the ID
// is unknown or the item is already converting. Failures end up on the item,
// never in the return path.
func (m *Manager) ConvertOne(ctx context.Context, id string) {
	m.convert(ctx, id, false)
}

// ConvertAll converts every idle or failed item, one at a time in queue order.
// Items that left idle/error before their turn (removed, or converted by
// ConvertOne meanwhile) are skipped. Batch logs share one correlation ID.
func (m *Manager) ConvertAll(ctx context.Context) BatchResult {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, m.newID())
	}
	m.mu.Lock()
	ids := m.store.IDs(StatusIdle, StatusError)
	m.mu.Unlock()

	res := BatchResult{Selected: len(ids)}
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("batch conversion started", logging.Int("items", len(ids)))
	for _, id := range ids {
		if err := m.yield(ctx); err != nil {
			res.Skipped += len(ids) - res.Completed - res.Failed - res.Skipped
			break
		}
		switch m.convert(ctx, id, true) {
		case StatusCompleted:
			res.Completed++
		case StatusError:
			res.Failed++
		default:
			res.Skipped++
		}
		if err := m.yield(ctx); err != nil {
			res.Skipped += len(ids) - res.Completed - res.Failed - res.Skipped
			break
		}
	}
	logger.Info("batch conversion finished",
		logging.Int("completed", res.Completed),
		logging.Int("failed", res.Failed),
		logging.Int("skipped", res.Skipped))
	return res
}

// convert runs one item and returns the status it was left in, or "" when
// nothing was applied. pendingOnly restricts it to idle and failed items.
func (m *Manager) convert(ctx context.Context, id string, pendingOnly bool) Status {
	m.mu.Lock()
	item, ok := m.store.Get(id)
	if !ok || !eligible(item.State.Status(), pendingOnly) {
		m.mu.Unlock()
		return ""
	}
	m.nextRun++
	run := m.nextRun
	target := item.Format
	prior := item.State
	item.run = run
	item.State = Converting{Format: target}
	req := convert.Request{Name: item.Source.Name(), Data: item.Source.data, Format: target}
	m.mu.Unlock()

	m.releaseState(id, prior)
	m.publish(Event{ItemID: id, Status: StatusConverting})

	ctx = services.WithItemID(ctx, id)
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("conversion started",
		logging.String("name", req.Name),
		logging.String("target_format", string(target)))

	started := time.Now()
	handle, err := m.attempt(ctx, req, logger)

	m.mu.Lock()
	current, ok := m.store.Get(id)
	if !ok || current.run != run {
		m.mu.Unlock()
		if handle != nil {
			_ = handle.Release()
		}
		logger.Debug("stale conversion result dropped", logging.Bool("item_present", ok))
		return ""
	}
	if err != nil {
		current.State = Failed{Message: failureMessage(err)}
	} else {
		current.State = Completed{Format: target, Output: handle}
	}
	status := current.State.Status()
	m.mu.Unlock()

	if err != nil {
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
			logging.String(logging.FieldErrorHint, "retry the item or pick another output format"))
	} else {
		logger.Info("conversion completed",
			logging.String("target_format", string(target)),
			logging.Int("bytes", int(handle.Size())),
			logging.Duration("elapsed", time.Since(started)))
	}
	m.publish(Event{ItemID: id, Status: status})
	return status
}

func eligible(status Status, pendingOnly bool) bool {
	switch status {
	case StatusConverting:
		return false
	case StatusCompleted:
		return !pendingOnly
	default:
		return true
	}
}

// attempt wraps Convert and handle allocation in the retry policy.
func (m *Manager) attempt(ctx context.Context, req convert.Request, logger *slog.Logger) (*output.Handle, error) {
	var handle *output.Handle
	err := retry.Do(ctx, m.policy, func(ctx context.Context, attempt int) error {
		res, err := m.converter.Convert(ctx, req)
		if err == nil {
			handle, err = m.outputs.Create(res.Data, res.Format.Extension(), res.MIME)
		}
		if err != nil {
			logging.WarnWithContext(logger, "conversion attempt failed", "conversion_attempt_failed",
				logging.Int("attempt", attempt),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the item is retried until attempts run out"))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (m *Manager) yield(ctx context.Context) error {
	if m.pace <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.pace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Manager) releaseState(id string, st State) {
	done, ok := st.(Completed)
	if !ok || done.Output == nil {
		return
	}
	if err := done.Output.Release(); err != nil {
		logging.WarnWithContext(m.logger, "output release failed", "output_release_failed",
			logging.String(logging.FieldItemID, id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a staged file may remain until the session ends"))
	}
}

// Get returns a snapshot of one item.
func (m *Manager) Get(id string) (ItemView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store.Get(id)
	if !ok {
		return ItemView{}, false
	}
	return item.view(), true
}

// Items returns snapshots in queue order.
func (m *Manager) Items() []ItemView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Views()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Len()
}

// Counts tallies items per status.
func (m *Manager) Counts() map[Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Counts()
}

// Subscribe returns a channel of item events and a cancel func. Slow
// subscribers miss events rather than block the queue.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
			m.mu.Unlock()
		})
	}
}

func (m *Manager) publish(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close clears the queue and ends all subscriptions.
func (m *Manager) Close() {
	m.Clear()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}
