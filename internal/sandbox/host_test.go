package sandbox_test

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bayloe/internal/sandbox"
	"bayloe/internal/services"
)

// fakeBackend echoes a tagged payload and records concurrency.
type fakeBackend struct {
	mu       sync.Mutex
	active   int
	peak     int
	calls    int
	block    chan struct{}
	fail     string
	onDecode func(conn net.Conn)
	conn     net.Conn
}

func (b *fakeBackend) Decode(data []byte, encoding string, _ float64) ([]byte, error) {
	b.mu.Lock()
	b.active++
	b.calls++
	if b.active > b.peak {
		b.peak = b.active
	}
	block, fail, hook, conn := b.block, b.fail, b.onDecode, b.conn
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}()

	if hook != nil {
		hook(conn)
	}
	if block != nil {
		<-block
	}
	if fail != "" {
		return nil, errors.New(fail)
	}
	return []byte(encoding + ":" + string(data)), nil
}

// pipeLauncher serves each generation in-process over net.Pipe.
type pipeLauncher struct {
	backend *fakeBackend
	// skew is added to the generation the worker reports.
	skew     int64
	launches atomic.Int32
	failWith error
}

func (l *pipeLauncher) Launch(_ context.Context, generation int64) (io.ReadWriteCloser, error) {
	if l.failWith != nil {
		return nil, l.failWith
	}
	l.launches.Add(1)
	host, worker := net.Pipe()
	l.backend.mu.Lock()
	l.backend.conn = worker
	l.backend.mu.Unlock()
	go func() {
		_ = sandbox.Serve(worker, generation+l.skew, 4242, l.backend, nil)
		_ = worker.Close()
	}()
	return host, nil
}

func newHost(t *testing.T, l sandbox.Launcher, opts sandbox.Options) *sandbox.Host {
	t.Helper()
	h := sandbox.NewHost(l, opts)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHostRecyclesAfterMaxUses(t *testing.T) {
	launcher := &pipeLauncher{backend: &fakeBackend{}}
	host := newHost(t, launcher, sandbox.Options{MaxUses: 5})

	for i := 1; i <= 5; i++ {
		out, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9)
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if string(out) != "image/png:x" {
			t.Fatalf("unexpected output %q", out)
		}
	}
	st := host.Stats()
	if st.Launches != 1 || st.Live {
		t.Fatalf("after 5 decodes want 1 launch and no live instance, got %+v", st)
	}

	if _, err := host.Decode(context.Background(), []byte("y"), "image/jpeg", 0.9); err != nil {
		t.Fatalf("sixth decode: %v", err)
	}
	st = host.Stats()
	if st.Launches != 2 || st.Generation != 2 || st.Uses != 1 {
		t.Fatalf("sixth decode should run on a fresh instance, got %+v", st)
	}
	if got := launcher.launches.Load(); got != 2 {
		t.Fatalf("launcher called %d times, want 2", got)
	}
}

func TestHostWorkerErrorIsDecodeFailure(t *testing.T) {
	launcher := &pipeLauncher{backend: &fakeBackend{fail: "heif: unsupported brand"}}
	host := newHost(t, launcher, sandbox.Options{MaxUses: 5})

	_, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported brand") {
		t.Fatalf("expected worker message in %q", err)
	}
	if st := host.Stats(); !st.Live || st.Launches != 1 {
		t.Fatalf("worker-reported failure should keep the instance, got %+v", st)
	}
}

func TestHostDiscardsCrashedInstance(t *testing.T) {
	backend := &fakeBackend{}
	backend.onDecode = func(conn net.Conn) { _ = conn.Close() }
	launcher := &pipeLauncher{backend: backend}
	host := newHost(t, launcher, sandbox.Options{MaxUses: 5})

	_, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9)
	if !errors.Is(err, services.ErrSandbox) {
		t.Fatalf("expected ErrSandbox, got %v", err)
	}
	if st := host.Stats(); st.Live {
		t.Fatalf("crashed instance should be discarded, got %+v", st)
	}

	backend.mu.Lock()
	backend.onDecode = nil
	backend.mu.Unlock()
	if _, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9); err != nil {
		t.Fatalf("decode after crash: %v", err)
	}
	if st := host.Stats(); st.Launches != 2 {
		t.Fatalf("expected relaunch after crash, got %+v", st)
	}
}

func TestHostRejectsForeignGeneration(t *testing.T) {
	launcher := &pipeLauncher{backend: &fakeBackend{}, skew: 100}
	host := newHost(t, launcher, sandbox.Options{})

	_, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9)
	if !errors.Is(err, services.ErrSandbox) {
		t.Fatalf("expected ErrSandbox for mismatched generation, got %v", err)
	}
	if !strings.Contains(err.Error(), "expected 1") {
		t.Fatalf("unexpected error text %q", err)
	}
}

func TestHostCallTimeoutDiscardsInstance(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	defer close(backend.block)
	launcher := &pipeLauncher{backend: backend}
	host := newHost(t, launcher, sandbox.Options{CallTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9)
	if !errors.Is(err, services.ErrSandbox) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected sandbox timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took %s", elapsed)
	}
	if st := host.Stats(); st.Live {
		t.Fatalf("timed out instance should be discarded, got %+v", st)
	}
}

func TestHostSerializesCalls(t *testing.T) {
	backend := &fakeBackend{}
	backend.onDecode = func(net.Conn) { time.Sleep(10 * time.Millisecond) }
	host := newHost(t, &pipeLauncher{backend: backend}, sandbox.Options{MaxUses: 100})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9); err != nil {
				t.Errorf("decode: %v", err)
			}
		}()
	}
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.peak != 1 {
		t.Fatalf("expected one outstanding call at a time, peak was %d", backend.peak)
	}
	if backend.calls != 8 {
		t.Fatalf("expected 8 calls, got %d", backend.calls)
	}
}

func TestHostWaitsSettleDelayAfterLaunch(t *testing.T) {
	host := newHost(t, &pipeLauncher{backend: &fakeBackend{}}, sandbox.Options{SettleDelay: 40 * time.Millisecond})

	start := time.Now()
	if _, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("first decode returned after %s, before the settle delay", elapsed)
	}

	start = time.Now()
	if _, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 40*time.Millisecond {
		t.Fatalf("warm decode should not wait for settle, took %s", elapsed)
	}
}

func TestHostLaunchFailureAndClose(t *testing.T) {
	host := newHost(t, &pipeLauncher{backend: &fakeBackend{}, failWith: errors.New("exec: not found")}, sandbox.Options{})
	if _, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9); !errors.Is(err, services.ErrSandbox) {
		t.Fatalf("expected ErrSandbox on launch failure, got %v", err)
	}

	ok := newHost(t, &pipeLauncher{backend: &fakeBackend{}}, sandbox.Options{})
	if err := ok.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := ok.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := ok.Decode(context.Background(), []byte("x"), "image/png", 0.9); !errors.Is(err, services.ErrSandbox) {
		t.Fatalf("expected ErrSandbox after Close, got %v", err)
	}
}

func TestHostHonoursCancelledContext(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	defer close(backend.block)
	host := newHost(t, &pipeLauncher{backend: backend}, sandbox.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := host.Decode(ctx, []byte("x"), "image/png", 0.9); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestHostStatsReadableDuringDecodes(t *testing.T) {
	launcher := &pipeLauncher{backend: &fakeBackend{}}
	host := newHost(t, launcher, sandbox.Options{MaxUses: 5})

	stop := make(chan struct{})
	polled := make(chan int)
	go func() {
		n := 0
		for {
			select {
			case <-stop:
				polled <- n
				return
			default:
				if st := host.Stats(); st.Uses > 5 {
					t.Errorf("uses %d beyond recycle limit", st.Uses)
				}
				n++
			}
		}
	}()

	for i := range 12 {
		if _, err := host.Decode(context.Background(), []byte("x"), "image/png", 0.9); err != nil {
			t.Fatalf("decode %d: %v", i+1, err)
		}
	}
	close(stop)
	<-polled

	st := host.Stats()
	if st.Launches != 3 || st.Uses != 2 || !st.Live {
		t.Fatalf("after 12 decodes want 3 launches and 2 uses on the live instance, got %+v", st)
	}
}
