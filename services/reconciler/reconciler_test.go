package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"assetd/services/assets"
)

type fakeLocators struct {
	mu       sync.Mutex
	pending  []assets.Asset
	failing  map[uuid.UUID]bool
	calls    []uuid.UUID
	listErr  error
	lastSize int
}

func (f *fakeLocators) ListPending(_ context.Context, limit int) ([]assets.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSize = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]assets.Asset, len(f.pending))
	copy(out, f.pending)
	return out, nil
}

func (f *fakeLocators) Reconcile(_ context.Context, id uuid.UUID) (assets.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.failing[id] {
		return assets.Asset{ID: id, QRState: assets.QRPending}, errors.New("storage unavailable")
	}
	for i, a := range f.pending {
		if a.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return assets.Asset{ID: id, QRState: assets.QRSet, QRLocator: "https://cdn/" + id.String()}, nil
}

func (f *fakeLocators) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type fakeSubscriber struct {
	handler func(context.Context, []byte) error
	subject string
}

func (f *fakeSubscriber) Subscribe(_ context.Context, subj, _ string, fn func(context.Context, []byte) error) (io.Closer, error) {
	f.subject = subj
	f.handler = fn
	return nopCloser{}, nil
}

func TestSweep(t *testing.T) {
	ok1, ok2, bad := uuid.New(), uuid.New(), uuid.New()
	svc := &fakeLocators{
		pending: []assets.Asset{{ID: ok1}, {ID: bad}, {ID: ok2}},
		failing: map[uuid.UUID]bool{bad: true},
	}
	r, err := New(svc, nil, Config{BatchSize: 10}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stats, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	want := Stats{Attempted: 3, Attached: 2, Failed: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	if svc.lastSize != 10 {
		t.Fatalf("batch size = %d, want 10", svc.lastSize)
	}
	if len(svc.pending) != 1 || svc.pending[0].ID != bad {
		t.Fatalf("remaining = %+v", svc.pending)
	}
}

func TestSweepSkipsInflightAssets(t *testing.T) {
	id := uuid.New()
	svc := &fakeLocators{pending: []assets.Asset{{ID: id}}}
	r, _ := New(svc, nil, Config{}, nil)

	if !r.acquire(id) {
		t.Fatal("acquire failed")
	}
	stats, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if stats.Skipped != 1 || svc.callCount() != 0 {
		t.Fatalf("stats = %+v calls = %d", stats, svc.callCount())
	}
	r.release(id)
}

func TestSweepListError(t *testing.T) {
	r, _ := New(&fakeLocators{listErr: errors.New("db down")}, nil, Config{}, nil)
	if _, err := r.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHandlePending(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name      string
		event     assets.AssetEvent
		wantCalls int
		wantErr   bool
	}{
		{name: "onboarding failure retried", event: assets.AssetEvent{AssetID: id, Trigger: assets.TriggerOnboard}, wantCalls: 1},
		{name: "retry failure ignored", event: assets.AssetEvent{AssetID: id, Trigger: assets.TriggerRetry}},
		{name: "reconcile failure ignored", event: assets.AssetEvent{AssetID: id, Trigger: assets.TriggerReconcile}},
		{name: "missing id", event: assets.AssetEvent{Trigger: assets.TriggerOnboard}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeLocators{}
			sub := &fakeSubscriber{}
			r, _ := New(svc, sub, Config{Interval: time.Hour}, nil)
			if err := r.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer r.Close()

			if sub.subject != assets.SubjectQRPending {
				t.Fatalf("subscribed to %q", sub.subject)
			}
			data, _ := json.Marshal(tt.event)
			err := sub.handler(context.Background(), data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handler error = %v, wantErr %v", err, tt.wantErr)
			}
			if svc.callCount() != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", svc.callCount(), tt.wantCalls)
			}
		})
	}
}

func TestLoopSweepsOnInterval(t *testing.T) {
	svc := &fakeLocators{pending: []assets.Asset{{ID: uuid.New()}}}
	r, _ := New(svc, nil, Config{Interval: 10 * time.Millisecond}, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if svc.callCount() == 0 {
		t.Fatal("loop never swept")
	}
}

func TestNewRequiresLocators(t *testing.T) {
	if _, err := New(nil, nil, Config{}, nil); err == nil {
		t.Fatal("expected error")
	}
}
