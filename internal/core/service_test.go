package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"spatialcore/internal/storage"
	"spatialcore/pkg/domain"
	"spatialcore/pkg/frame"
	"spatialcore/pkg/raster"
	"spatialcore/pkg/transform"
)

func newServiceContainer(t *testing.T) *Container {
	t.Helper()
	c := NewContainer()

	mask, err := raster.NewDense(raster.Uint16, []int{4, 4})
	if err != nil {
		t.Fatalf("new dense: %v", err)
	}
	if err := mask.Set(7, 1, 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	labels, err := domain.NewLabels(mask, []string{"y", "x"})
	if err != nil {
		t.Fatalf("new labels: %v", err)
	}
	if err := labels.Transforms().Set("global", transform.NewIdentity()); err != nil {
		t.Fatalf("set transform: %v", err)
	}
	if err := c.SetLabels("cells", labels); err != nil {
		t.Fatalf("set labels: %v", err)
	}

	rows := frame.New()
	if err := rows.AddStrings("region", []string{"cells"}); err != nil {
		t.Fatalf("add region: %v", err)
	}
	if err := rows.AddInts("id", []int64{7}); err != nil {
		t.Fatalf("add id: %v", err)
	}
	table, err := domain.NewTable(rows)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if err := table.SetAnnotationTarget(context.Background(), []string{"cells"}, "region", "id"); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if _, err := c.SetTable("obs", table); err != nil {
		t.Fatalf("set table: %v", err)
	}
	return c
}

func TestServiceWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory())
	c := newServiceContainer(t)

	if err := svc.WriteContainer(ctx, "exp1", c, WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}
	loaded, report, err := svc.ReadContainer(ctx, "exp1", ReadOptions{})
	if err != nil {
		t.Fatalf("read container: %v", err)
	}
	if len(report.Failed()) != 0 {
		t.Fatalf("unexpected failures: %+v", report.Failed())
	}
	equal, err := c.Equal(ctx, loaded)
	if err != nil {
		t.Fatalf("equal: %v", err)
	}
	if !equal {
		t.Fatal("round trip changed the container")
	}
}

func TestServiceWriteTransformations(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory())
	c := newServiceContainer(t)

	if err := svc.WriteContainer(ctx, "exp1", c, WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}
	labels, err := c.Labels("cells")
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	scale, err := transform.NewScale([]float64{2, 2}, []string{"y", "x"})
	if err != nil {
		t.Fatalf("new scale: %v", err)
	}
	if err := labels.Transforms().Set("downsampled", scale); err != nil {
		t.Fatalf("set transform: %v", err)
	}
	ref := ElementRef{Kind: KindLabels, Name: "cells"}
	if err := svc.WriteTransformations(ctx, c, ref); err != nil {
		t.Fatalf("write transformations: %v", err)
	}

	loaded, _, err := svc.ReadContainer(ctx, "exp1", ReadOptions{})
	if err != nil {
		t.Fatalf("read container: %v", err)
	}
	reloaded, err := loaded.Labels("cells")
	if err != nil {
		t.Fatalf("reloaded labels: %v", err)
	}
	got, ok := reloaded.Transforms().Get("downsampled")
	if !ok || !got.Equal(scale) {
		t.Fatalf("transformation did not round trip: %v %v", got, ok)
	}
}

func TestServiceCheckContainerReportsDamage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := NewService(store)
	c := newServiceContainer(t)

	if err := svc.WriteContainer(ctx, "exp1", c, WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}
	if _, err := store.Put(ctx, "exp1/labels/cells/meta.json", nil); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	report, err := svc.CheckContainer(ctx, "exp1")
	if err != nil {
		t.Fatalf("check container: %v", err)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Path != "labels/cells" {
		t.Fatalf("unexpected check report: %+v", failed)
	}
}

func TestServiceValidateContainer(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory())
	c := newServiceContainer(t)
	if !c.Remove(ElementRef{Kind: KindLabels, Name: "cells"}) {
		t.Fatal("remove labels")
	}

	res, err := svc.ValidateContainer(ctx, c)
	if err != nil {
		t.Fatalf("validate container: %v", err)
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Check != "annotation_reference" {
		t.Fatalf("expected one dangling annotation warning, got %+v", warnings)
	}
}

type captureAudit struct {
	entries []AuditEntry
}

func (c *captureAudit) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAudit) find(op string, status AuditStatus) *AuditEntry {
	for i := range c.entries {
		if c.entries[i].Operation == op && c.entries[i].Status == status {
			return &c.entries[i]
		}
	}
	return nil
}

type captureMetrics struct {
	observed []struct {
		op      string
		success bool
	}
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.observed = append(c.observed, struct {
		op      string
		success bool
	}{op, success})
}

func (c *captureMetrics) has(op string, success bool) bool {
	for _, o := range c.observed {
		if o.op == op && o.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	ended []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

func TestServiceObservabilityCoversEveryOperation(t *testing.T) {
	ctx := context.Background()
	audit := &captureAudit{}
	metrics := &captureMetrics{}
	tracer := &captureTracer{}
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	svc := NewService(storage.NewMemory(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)
	c := newServiceContainer(t)

	if err := svc.WriteContainer(ctx, "exp1", c, WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}
	entry := audit.find("write_container", AuditStatusSuccess)
	if entry == nil {
		t.Fatal("missing audit entry for write_container")
	}
	if entry.Path != "exp1" || !entry.Timestamp.Equal(fixed) || entry.Duration != 0 {
		t.Fatalf("unexpected audit entry %+v", *entry)
	}
	if !metrics.has("write_container", true) {
		t.Fatal("missing metrics observation for write_container")
	}

	if _, _, err := svc.ReadContainer(ctx, "exp1", ReadOptions{}); err != nil {
		t.Fatalf("read container: %v", err)
	}
	if audit.find("read_container", AuditStatusSuccess) == nil {
		t.Fatal("missing audit entry for read_container")
	}

	// A failing operation must surface in every hook with error status.
	if _, _, err := svc.ReadContainer(ctx, "no-such-prefix", ReadOptions{}); err == nil {
		t.Fatal("expected read of a missing prefix to fail")
	}
	if audit.find("read_container", AuditStatusError) == nil {
		t.Fatal("missing audit error entry for read_container")
	}
	if !metrics.has("read_container", false) {
		t.Fatal("missing metrics observation for failed read_container")
	}
	var sawFailedSpan bool
	for _, s := range tracer.ended {
		if s.op == "read_container" && s.err != nil {
			sawFailedSpan = true
		}
	}
	if !sawFailedSpan {
		t.Fatal("missing trace span for failed read_container")
	}

	if _, err := svc.CheckContainer(ctx, "exp1"); err != nil {
		t.Fatalf("check container: %v", err)
	}
	if audit.find("check_container", AuditStatusSuccess) == nil {
		t.Fatal("missing audit entry for check_container")
	}
	if _, err := svc.ValidateContainer(ctx, c); err != nil {
		t.Fatalf("validate container: %v", err)
	}
	if audit.find("validate_container", AuditStatusSuccess) == nil {
		t.Fatal("missing audit entry for validate_container")
	}
}

func TestServiceSurfacesValidationErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storage.NewMemory())
	c := newServiceContainer(t)

	if err := svc.WriteContainer(ctx, "exp1", c, WriteOptions{}); err != nil {
		t.Fatalf("write container: %v", err)
	}
	err := svc.WriteContainer(ctx, "exp1", c, WriteOptions{Overwrite: true})
	var verr domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for in-place overwrite, got %v", err)
	}
}
