package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"bayloe/internal/logging"
	"bayloe/internal/services"
)

// DefaultMaxUses is the number of decodes an instance serves before it is
// recycled.
const DefaultMaxUses = 5

// Options tunes a Host.
type Options struct {
	MaxUses     int
	SettleDelay time.Duration
	// CallTimeout bounds each round-trip, including the launch handshake.
	// Zero disables the bound.
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Stats is a diagnostic snapshot.
type Stats struct {
	Launches   int
	Generation int64
	Uses       int
	Live       bool
}

// Host dispatches decodes to a recycled worker instance.
type Host struct {
	launcher Launcher
	opts     Options
	logger   *slog.Logger
	sem      *semaphore.Weighted

	mu         sync.Mutex
	current    *instance
	generation int64
	launches   int
	closed     bool
}

type instance struct {
	generation int64
	client     *rpc.Client
	uses       int
}

// NewHost builds a Host. No worker is started until the first call.
func NewHost(launcher Launcher, opts Options) *Host {
	if opts.MaxUses <= 0 {
		opts.MaxUses = DefaultMaxUses
	}
	return &Host{
		launcher: launcher,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "sandbox"),
		sem:      semaphore.NewWeighted(1),
	}
}

// Decode sends src to the current instance and returns the re-encoded bytes.
// Worker-reported failures are tagged services.ErrDecode; everything else
// (launch, timeout, crash, protocol mismatch) is tagged services.ErrSandbox.
func (h *Host) Decode(ctx context.Context, src []byte, encoding string, quality float64) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "decode", "wait for instance", err)
	}
	defer h.sem.Release(1)

	inst, err := h.ensure(ctx)
	if err != nil {
		return nil, err
	}

	var resp DecodeResponse
	req := DecodeRequest{Data: src, Encoding: encoding, Quality: quality}
	if err := h.call(ctx, inst, methodDecode, req, &resp); err != nil {
		var serverErr rpc.ServerError
		if errors.As(err, &serverErr) {
			h.recordUse(inst)
			return nil, services.Wrap(services.ErrDecode, "sandbox", "decode", string(serverErr), nil)
		}
		h.discard(inst, "call failed", err)
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "decode", fmt.Sprintf("instance %d", inst.generation), err)
	}
	if resp.Instance != inst.generation {
		h.discard(inst, "generation mismatch", nil)
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "decode",
			fmt.Sprintf("reply from instance %d, expected %d", resp.Instance, inst.generation), nil)
	}
	h.recordUse(inst)
	if len(resp.Data) == 0 {
		return nil, services.Wrap(services.ErrDecode, "sandbox", "decode", "worker returned no data", nil)
	}
	return resp.Data, nil
}

// Ping makes sure an instance is running and has completed its handshake.
func (h *Host) Ping(ctx context.Context) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return services.Wrap(services.ErrSandbox, "sandbox", "ping", "wait for instance", err)
	}
	defer h.sem.Release(1)
	_, err := h.ensure(ctx)
	return err
}

// Stats reports launch and use counters.
func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := Stats{Launches: h.launches, Generation: h.generation}
	if h.current != nil {
		st.Live = true
		st.Uses = h.current.uses
	}
	return st
}

// Close tears down the live instance. Later calls fail with ErrSandbox.
func (h *Host) Close() error {
	h.mu.Lock()
	h.closed = true
	inst := h.current
	h.current = nil
	h.mu.Unlock()
	if inst != nil {
		return inst.client.Close()
	}
	return nil
}

func (h *Host) ensure(ctx context.Context) (*instance, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "launch", "host closed", nil)
	}
	if h.current != nil {
		inst := h.current
		h.mu.Unlock()
		return inst, nil
	}
	h.generation++
	h.launches++
	generation := h.generation
	h.mu.Unlock()

	conn, err := h.launcher.Launch(ctx, generation)
	if err != nil {
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "launch", fmt.Sprintf("instance %d", generation), err)
	}
	inst := &instance{
		generation: generation,
		client:     rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)),
	}

	var ready ReadyResponse
	if err := h.call(ctx, inst, methodReady, ReadyRequest{}, &ready); err != nil {
		_ = inst.client.Close()
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "launch", "handshake", err)
	}
	if ready.Instance != generation {
		_ = inst.client.Close()
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "launch",
			fmt.Sprintf("handshake from instance %d, expected %d", ready.Instance, generation), nil)
	}
	h.logger.Debug("decoder instance started",
		logging.Int("instance", int(generation)),
		logging.Int("pid", ready.PID))

	if err := sleep(ctx, h.opts.SettleDelay); err != nil {
		_ = inst.client.Close()
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "launch", "settle", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		_ = inst.client.Close()
		return nil, services.Wrap(services.ErrSandbox, "sandbox", "launch", "host closed", nil)
	}
	h.current = inst
	return inst, nil
}

// call performs one round-trip. A call abandoned on timeout or cancellation
// leaves its reply unread, so the caller must discard the instance.
func (h *Host) call(ctx context.Context, inst *instance, method string, args, reply any) error {
	if h.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.CallTimeout)
		defer cancel()
	}
	call := inst.client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		return call.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordUse counts a finished call and recycles the instance once it has
// served MaxUses. uses is guarded by h.mu so Stats can read it.
func (h *Host) recordUse(inst *instance) {
	h.mu.Lock()
	inst.uses++
	uses := inst.uses
	spent := uses >= h.opts.MaxUses
	if spent && h.current == inst {
		h.current = nil
	}
	h.mu.Unlock()
	if !spent {
		return
	}
	_ = inst.client.Close()
	h.logger.Debug("decoder instance recycled",
		logging.Int("instance", int(inst.generation)),
		logging.Int("uses", uses))
}

func (h *Host) discard(inst *instance, reason string, err error) {
	h.mu.Lock()
	if h.current == inst {
		h.current = nil
	}
	h.mu.Unlock()
	_ = inst.client.Close()
	attrs := []logging.Attr{
		logging.Int("instance", int(inst.generation)),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "the next decode starts a fresh instance"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.WarnWithContext(h.logger, "decoder instance discarded", "sandbox_instance_discarded", attrs...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
