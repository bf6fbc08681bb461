package rotation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mercator-hq/gemrelay/pkg/rotation/storage"
)

type fakePinger struct {
	mu    sync.Mutex
	err   error
	pings int
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.err
}

func (f *fakePinger) Name() string { return "fake" }

func (f *fakePinger) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeProbeRecorder struct {
	mu  sync.Mutex
	ups []bool
}

func (f *fakeProbeRecorder) SetStoreUp(up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ups = append(f.ups, up)
}

func TestProber_Probe(t *testing.T) {
	pinger := &fakePinger{}
	rec := &fakeProbeRecorder{}
	p := NewProber(pinger, "@every 1h", rec, nil)
	ctx := context.Background()

	if !p.Probe(ctx) {
		t.Error("Expected healthy probe")
	}

	pinger.setErr(errors.New("connection reset"))
	if p.Probe(ctx) {
		t.Error("Expected failed probe")
	}

	pinger.setErr(nil)
	if !p.Probe(ctx) {
		t.Error("Expected recovered probe")
	}

	want := []bool{true, false, true}
	if len(rec.ups) != len(want) {
		t.Fatalf("Expected %d recordings, got %d", len(want), len(rec.ups))
	}
	for i := range want {
		if rec.ups[i] != want[i] {
			t.Errorf("recording %d = %v, want %v", i, rec.ups[i], want[i])
		}
	}
}

func TestProber_SkipsUninitializedLazyStore(t *testing.T) {
	lazy := NewLazyStore(storage.BackendMemory, func(ctx context.Context) (storage.Backend, error) {
		return storage.NewMemoryBackend(), nil
	}, 0, nil)
	defer lazy.Close()

	rec := &fakeProbeRecorder{}
	p := NewProber(lazy, "@every 1h", rec, nil)

	if p.Probe(context.Background()) {
		t.Error("Expected probe to skip an unopened store")
	}
	if len(rec.ups) != 0 {
		t.Errorf("Expected no recordings, got %v", rec.ups)
	}
	if lazy.Initialized() {
		t.Error("probe must not open the store")
	}

	if _, err := lazy.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !p.Probe(context.Background()) {
		t.Error("Expected healthy probe once opened")
	}
}

func TestProber_StartStop(t *testing.T) {
	tests := []struct {
		name      string
		schedule  string
		wantErr   bool
		scheduled bool
	}{
		{name: "disabled", schedule: "", scheduled: false},
		{name: "descriptor", schedule: "@every 30s", scheduled: true},
		{name: "standard", schedule: "*/5 * * * *", scheduled: true},
		{name: "invalid", schedule: "not a schedule", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			p := NewProber(&fakePinger{}, tt.schedule, nil, nil)
			err := p.Start(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer p.Stop()

			if got := p.NextRun() != nil; got != tt.scheduled {
				t.Errorf("NextRun scheduled = %v, want %v", got, tt.scheduled)
			}
		})
	}
}

func TestProber_StartTwice(t *testing.T) {
	p := NewProber(&fakePinger{}, "@every 1h", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	if err := p.Start(ctx); err == nil {
		t.Error("Expected error starting a running prober")
	}
}

func TestValidateSchedule(t *testing.T) {
	if err := ValidateSchedule("@every 1m"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateSchedule("61 * * * *"); err == nil {
		t.Error("Expected error for out of range minute")
	}
}
