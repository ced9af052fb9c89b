package assets

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"assetd/pkg/apierr"
	"assetd/pkg/qrcode"
	"assetd/services/artifacts"
)

type recordingImages struct {
	mu       sync.Mutex
	payloads []string
	err      error
}

func (r *recordingImages) Generate(code, payload string) (qrcode.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	if r.err != nil {
		return qrcode.Image{}, r.err
	}
	return qrcode.Image{Name: qrcode.FileName(code), Data: []byte(payload)}, nil
}

type memoryArtifacts struct {
	mu    sync.Mutex
	base  string
	files map[string][]byte
	err   error
}

func (m *memoryArtifacts) Put(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[name] = data
	return m.base + "/" + name, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func newTestOnboarder(t *testing.T, store *GormStore, images ImageGenerator, arts artifacts.Store, opts ...Option) *Onboarder {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	o, err := NewOnboarder(store, images, arts, OnboardingConfig{ScanBaseURL: "https://scan.example.com/a/", CodePrefix: "QR-"}, opts...)
	if err != nil {
		t.Fatalf("NewOnboarder: %v", err)
	}
	return o
}

func TestOnboardGeneratesCodeAndAttachesLocator(t *testing.T) {
	store := newTestStore(t)
	images := &recordingImages{}
	arts := &memoryArtifacts{base: "https://cdn.example.com/qr"}
	events := &recordingPublisher{}
	o := newTestOnboarder(t, store, images, arts, WithPublisher(events))

	res, err := o.Onboard(context.Background(), Draft{Name: "Pump", ManualRef: "file:///m.txt"})
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if res.LocatorErr != nil {
		t.Fatalf("LocatorErr = %v", res.LocatorErr)
	}

	a := res.Asset
	if !regexp.MustCompile(`^QR-[A-Z0-9]{8}$`).MatchString(a.Code) {
		t.Fatalf("code %q does not match the generated format", a.Code)
	}
	if len(images.payloads) != 1 || images.payloads[0] != "https://scan.example.com/a/"+a.Code {
		t.Fatalf("payloads = %v", images.payloads)
	}
	if !strings.Contains(images.payloads[0], a.Code) {
		t.Fatalf("payload %q does not contain code %q", images.payloads[0], a.Code)
	}
	if a.QRState != QRSet || a.QRLocator != "https://cdn.example.com/qr/"+a.Code+".png" {
		t.Fatalf("state=%q locator=%q", a.QRState, a.QRLocator)
	}
	if _, ok := arts.files[a.Code+".png"]; !ok {
		t.Fatalf("artifact %s.png not stored", a.Code)
	}
	if !a.InstalledAt.Equal(fixedNow) {
		t.Fatalf("InstalledAt = %v, want %v", a.InstalledAt, fixedNow)
	}

	stored, err := store.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.QRLocator != a.QRLocator || stored.QRState != QRSet {
		t.Fatalf("stored asset %+v", stored)
	}
	if len(events.subjects) != 1 || events.subjects[0] != SubjectOnboarded {
		t.Fatalf("events = %v", events.subjects)
	}
}

func TestOnboardKeepsSuppliedCodeAndInstallTime(t *testing.T) {
	store := newTestStore(t)
	o := newTestOnboarder(t, store, &recordingImages{}, &memoryArtifacts{base: "/qr-images"})

	installed := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)
	res, err := o.Onboard(context.Background(), Draft{Code: "PUMP-7", Name: "Pump", ManualRef: "file:///m.txt", InstalledAt: &installed})
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if res.Asset.Code != "PUMP-7" {
		t.Fatalf("Code = %q", res.Asset.Code)
	}
	if !res.Asset.InstalledAt.Equal(installed) {
		t.Fatalf("InstalledAt = %v, want %v", res.Asset.InstalledAt, installed)
	}
	if res.Asset.QRLocator != "/qr-images/PUMP-7.png" {
		t.Fatalf("QRLocator = %q", res.Asset.QRLocator)
	}
}

func TestOnboardRejectsBadCode(t *testing.T) {
	store := newTestStore(t)
	o := newTestOnboarder(t, store, &recordingImages{}, &memoryArtifacts{})

	for _, code := range []string{"../etc", "has space", strings.Repeat("x", 65)} {
		_, err := o.Onboard(context.Background(), Draft{Code: code, Name: "x", ManualRef: "file:///m.txt"})
		if !apierr.Is(err, apierr.KindInvalidInput) {
			t.Fatalf("Onboard(code=%q) err = %v, want invalid input", code, err)
		}
	}
}

func TestOnboardDuplicateCodeIsConflict(t *testing.T) {
	store := newTestStore(t)
	images := &recordingImages{}
	o := newTestOnboarder(t, store, images, &memoryArtifacts{},
		WithCodeGenerator(func(prefix string) string { return prefix + "SAMECODE" }))

	if _, err := o.Onboard(context.Background(), Draft{Name: "a", ManualRef: "file:///m.txt"}); err != nil {
		t.Fatalf("first Onboard: %v", err)
	}
	_, err := o.Onboard(context.Background(), Draft{Name: "b", ManualRef: "file:///m.txt"})
	if !apierr.Is(err, apierr.KindConflict) {
		t.Fatalf("second Onboard err = %v, want conflict", err)
	}
	if len(images.payloads) != 1 {
		t.Fatalf("image generated %d times, want 1", len(images.payloads))
	}
}

func TestOnboardStorageFailureLeavesPending(t *testing.T) {
	store := newTestStore(t)
	arts := &memoryArtifacts{err: apierr.Wrap(apierr.KindStorage, "test", errors.New("disk full"))}
	events := &recordingPublisher{}
	o := newTestOnboarder(t, store, &recordingImages{}, arts, WithPublisher(events))

	res, err := o.Onboard(context.Background(), Draft{Name: "Pump", ManualRef: "file:///m.txt"})
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if !apierr.Is(res.LocatorErr, apierr.KindStorage) {
		t.Fatalf("LocatorErr = %v, want storage error", res.LocatorErr)
	}
	if res.Asset.QRState != QRPending || res.Asset.QRLocator != "" {
		t.Fatalf("asset state=%q locator=%q", res.Asset.QRState, res.Asset.QRLocator)
	}

	stored, err := store.Get(context.Background(), res.Asset.ID)
	if err != nil {
		t.Fatalf("asset not persisted: %v", err)
	}
	if stored.QRState != QRPending {
		t.Fatalf("stored state = %q", stored.QRState)
	}
	if len(events.subjects) != 1 || events.subjects[0] != SubjectQRPending {
		t.Fatalf("events = %v", events.subjects)
	}

	// Storage recovers: resuming attaches the locator.
	arts.err = nil
	resumed, err := o.AttachLocator(context.Background(), res.Asset.ID, TriggerRetry)
	if err != nil {
		t.Fatalf("AttachLocator: %v", err)
	}
	if resumed.QRState != QRSet || resumed.QRLocator == "" {
		t.Fatalf("resumed state=%q locator=%q", resumed.QRState, resumed.QRLocator)
	}
	if events.subjects[len(events.subjects)-1] != SubjectQRAttached {
		t.Fatalf("events = %v", events.subjects)
	}
}

func TestOnboardEncodingFailureLeavesPending(t *testing.T) {
	store := newTestStore(t)
	images := &recordingImages{err: apierr.Wrap(apierr.KindEncoding, "test", errors.New("too long"))}
	o := newTestOnboarder(t, store, images, &memoryArtifacts{})

	res, err := o.Onboard(context.Background(), Draft{Name: "Pump", ManualRef: "file:///m.txt"})
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if !apierr.Is(res.LocatorErr, apierr.KindEncoding) {
		t.Fatalf("LocatorErr = %v, want encoding error", res.LocatorErr)
	}
	if res.Asset.QRState != QRPending {
		t.Fatalf("state = %q", res.Asset.QRState)
	}
}

func TestAttachLocatorLeavesSetAssetAlone(t *testing.T) {
	store := newTestStore(t)
	images := &recordingImages{}
	o := newTestOnboarder(t, store, images, &memoryArtifacts{base: "/qr"})

	res, err := o.Onboard(context.Background(), Draft{Name: "Pump", ManualRef: "file:///m.txt"})
	if err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	again, err := o.AttachLocator(context.Background(), res.Asset.ID, TriggerRetry)
	if err != nil {
		t.Fatalf("AttachLocator: %v", err)
	}
	if again.QRLocator != res.Asset.QRLocator {
		t.Fatalf("locator changed from %q to %q", res.Asset.QRLocator, again.QRLocator)
	}
	if len(images.payloads) != 1 {
		t.Fatalf("image regenerated for a set asset")
	}
}

func TestScanPayloadTrimsOneTrailingSlash(t *testing.T) {
	store := newTestStore(t)
	o := newTestOnboarder(t, store, &recordingImages{}, &memoryArtifacts{})
	if got, want := o.ScanPayload("QR-1"), "https://scan.example.com/a/QR-1"; got != want {
		t.Fatalf("ScanPayload = %q, want %q", got, want)
	}
}

func TestGenerateCode(t *testing.T) {
	re := regexp.MustCompile(`^INV-[A-Z0-9]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		c := GenerateCode("INV-")
		if !re.MatchString(c) {
			t.Fatalf("GenerateCode = %q", c)
		}
		seen[c] = true
	}
	if len(seen) < 99 {
		t.Fatalf("only %d distinct codes out of 100", len(seen))
	}
}
