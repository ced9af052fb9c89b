package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"assetd/pkg/apierr"
	"assetd/pkg/logger"
	"assetd/services/assets"
)

type fakeService struct {
	asset      assets.Asset
	logs       []assets.WorkLog
	lastMax    int
	lastLog    assets.WorkLogDraft
	findErr    error
	previewErr error
}

func (f *fakeService) FindByCodeOrID(_ context.Context, value string) (assets.Asset, error) {
	if f.findErr != nil {
		return assets.Asset{}, f.findErr
	}
	if value == f.asset.Code || value == f.asset.ID.String() {
		return f.asset, nil
	}
	return assets.Asset{}, apierr.New(apierr.KindNotFound, "fake", "no asset %q", value)
}

func (f *fakeService) GetManualPreview(_ context.Context, id uuid.UUID, maxChars int) (assets.ManualPreview, error) {
	f.lastMax = maxChars
	if f.previewErr != nil {
		return assets.ManualPreview{}, f.previewErr
	}
	return assets.ManualPreview{AssetID: id, Text: "hello", Truncated: false}, nil
}

func (f *fakeService) CreateWorkLog(_ context.Context, d assets.WorkLogDraft) (assets.WorkLog, error) {
	f.lastLog = d
	if d.Action == "" {
		return assets.WorkLog{}, apierr.New(apierr.KindInvalidInput, "fake", "action is required")
	}
	return assets.WorkLog{ID: uuid.New(), AssetID: d.AssetID, Action: d.Action, Technician: d.Technician, DurationMinutes: d.DurationMinutes}, nil
}

func (f *fakeService) ListWorkLogs(_ context.Context, _ uuid.UUID) ([]assets.WorkLog, error) {
	return f.logs, nil
}

func (f *fakeService) Limits() assets.PreviewLimits { return assets.PreviewLimits{Default: 2000, Max: 50000} }

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestAssetSearch(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{asset: assets.Asset{ID: id, Code: "QR-ABC", Name: "Pump"}}
	tool := NewAssetSearchTool(svc, logger.NewNop())
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		wantText  string
	}{
		{name: "by code", args: map[string]any{"qr_or_id": "QR-ABC"}, wantText: `"code":"QR-ABC"`},
		{name: "by id", args: map[string]any{"qr_or_id": id.String()}, wantText: `"name":"Pump"`},
		{name: "not found", args: map[string]any{"qr_or_id": "QR-NOPE"}, wantText: `"status":"NOT_FOUND"`},
		{name: "missing argument", args: map[string]any{}, wantError: true, wantText: "invalid_input"},
		{name: "blank argument", args: map[string]any{"qr_or_id": "  "}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tool.Handle(ctx, call(assetSearchName, tt.args))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if res.IsError != tt.wantError {
				t.Fatalf("IsError = %v, want %v (%s)", res.IsError, tt.wantError, resultText(t, res))
			}
			if text := resultText(t, res); !strings.Contains(text, tt.wantText) {
				t.Fatalf("text %q does not contain %q", text, tt.wantText)
			}
		})
	}
}

func TestAssetSearchBackendFailureIsToolError(t *testing.T) {
	svc := &fakeService{findErr: apierr.New(apierr.KindInternal, "fake", "db down")}
	res, err := NewAssetSearchTool(svc, logger.NewNop()).Handle(context.Background(), call(assetSearchName, map[string]any{"qr_or_id": "x"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected a tool error")
	}
}

func TestManualGet(t *testing.T) {
	svc := &fakeService{}
	tool := NewManualGetTool(svc, logger.NewNop())
	ctx := context.Background()
	id := uuid.New()

	res, err := tool.Handle(ctx, call(manualGetName, map[string]any{"asset_id": id.String()}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError || svc.lastMax != 2000 {
		t.Fatalf("IsError=%v maxChars=%d", res.IsError, svc.lastMax)
	}
	var preview assets.ManualPreview
	if err := json.Unmarshal([]byte(resultText(t, res)), &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.AssetID != id || preview.Text != "hello" {
		t.Fatalf("preview = %+v", preview)
	}

	if _, err := tool.Handle(ctx, call(manualGetName, map[string]any{"asset_id": id.String(), "max_chars": float64(5)})); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if svc.lastMax != 5 {
		t.Fatalf("maxChars = %d, want 5", svc.lastMax)
	}

	res, _ = tool.Handle(ctx, call(manualGetName, map[string]any{"asset_id": "nope"}))
	if !res.IsError {
		t.Fatal("expected a tool error for a malformed id")
	}

	svc.previewErr = apierr.New(apierr.KindUnsupportedScheme, "fake", "ftp")
	res, _ = tool.Handle(ctx, call(manualGetName, map[string]any{"asset_id": id.String()}))
	if !res.IsError || !strings.HasPrefix(resultText(t, res), "unsupported_scheme") {
		t.Fatalf("result = %+v", res)
	}
}

func TestWorkLogTools(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{logs: []assets.WorkLog{{ID: uuid.New(), AssetID: id, Action: "inspect"}}}
	ctx := context.Background()

	create := NewWorkLogCreateTool(svc, logger.NewNop())
	res, err := create.Handle(ctx, call(workLogCreateName, map[string]any{
		"asset_id": id.String(), "action": "replace filter", "technician": "kim", "duration_minutes": float64(30),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if svc.lastLog.DurationMinutes != 30 || svc.lastLog.Technician != "kim" {
		t.Fatalf("draft = %+v", svc.lastLog)
	}

	res, _ = create.Handle(ctx, call(workLogCreateName, map[string]any{"asset_id": id.String()}))
	if !res.IsError {
		t.Fatal("expected a tool error for a missing action")
	}

	list := NewWorkLogListTool(svc, logger.NewNop())
	res, err = list.Handle(ctx, call(workLogListName, map[string]any{"asset_id": id.String()}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resultText(t, res), `"action":"inspect"`) {
		t.Fatalf("text = %s", resultText(t, res))
	}
}

func TestNewRegistersTools(t *testing.T) {
	s := New(&fakeService{}, nil)
	tools := s.ListTools()
	for _, name := range []string{assetSearchName, manualGetName, workLogCreateName, workLogListName} {
		if _, ok := tools[name]; !ok {
			t.Fatalf("tool %s not registered", name)
		}
	}
}
