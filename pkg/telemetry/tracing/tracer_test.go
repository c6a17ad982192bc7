package tracing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/lifecycle"
)

func newTestTracer(t *testing.T, sampler string) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tr, err := New(&config.TracingConfig{Enabled: true, ServiceName: "archivist-test", Sampler: sampler}, WithExporter(exp))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	return tr, exp
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.TracingConfig
		enabled bool
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "disabled", cfg: &config.TracingConfig{}, enabled: false},
		{
			name:    "otlp exporter",
			cfg:     &config.TracingConfig{Enabled: true, Endpoint: "localhost:4317", Insecure: true, ServiceName: "archivist", Sampler: "ratio", SampleRatio: 0.5},
			enabled: true,
		},
		{
			name:    "unknown sampler",
			cfg:     &config.TracingConfig{Enabled: true, Endpoint: "localhost:4317", Sampler: "sometimes"},
			wantErr: true,
		},
		{
			name:    "ratio out of range",
			cfg:     &config.TracingConfig{Enabled: true, Endpoint: "localhost:4317", Sampler: "ratio", SampleRatio: 1.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer tr.Shutdown(context.Background())
			if tr.Enabled() != tt.enabled {
				t.Errorf("Enabled() = %v, want %v", tr.Enabled(), tt.enabled)
			}
		})
	}
}

func TestTracer_Step(t *testing.T) {
	tr, exp := newTestTracer(t, SamplerAlways)

	ctx, endRun := tr.Step(context.Background(), SpanRun, RunAttributes("r1", lifecycle.ModeArchive, "logs", "2024")...)
	_, endUpload := tr.Step(ctx, SpanUpload, attribute.String(AttrArtifact, "logs_x.json.gz"))
	endUpload(errors.New("hdfs refused"))
	endRun(nil)

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}
	upload, run := spans[0], spans[1]

	if upload.Name != "archivist.upload" || run.Name != "archivist.run" {
		t.Errorf("span names = %q, %q", upload.Name, run.Name)
	}
	if upload.Parent.SpanID() != run.SpanContext.SpanID() {
		t.Error("upload span is not a child of the run span")
	}
	if upload.Status.Code != codes.Error || upload.Status.Description != "hdfs refused" {
		t.Errorf("upload status = %+v", upload.Status)
	}
	if len(upload.Events) != 1 || upload.Events[0].Name != "exception" {
		t.Errorf("upload events = %+v, want a recorded error", upload.Events)
	}
	if run.Status.Code != codes.Ok {
		t.Errorf("run status = %+v", run.Status)
	}

	attrs := map[attribute.Key]string{}
	for _, kv := range run.Attributes {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs[AttrRunID] != "r1" || attrs[AttrMode] != "archive" || attrs[AttrCollection] != "logs" {
		t.Errorf("run attributes = %v", attrs)
	}
}

func TestTracer_NeverSampler(t *testing.T) {
	tr, exp := newTestTracer(t, SamplerNever)

	_, end := tr.Step(context.Background(), SpanExtract)
	end(nil)

	if n := len(exp.GetSpans()); n != 0 {
		t.Errorf("exported %d spans with the never sampler", n)
	}
}

func TestTracer_NilAndNoop(t *testing.T) {
	for name, tr := range map[string]*Tracer{"nil": nil, "noop": Noop()} {
		t.Run(name, func(t *testing.T) {
			ctx, end := tr.Step(context.Background(), SpanPurge)
			end(errors.New("ignored"))
			if TraceID(ctx) != "" {
				t.Error("disabled tracer produced a valid span context")
			}
			if tr.Enabled() {
				t.Error("Enabled() = true")
			}
			if err := tr.Shutdown(context.Background()); err != nil {
				t.Errorf("Shutdown() failed: %v", err)
			}
		})
	}
}

func TestInject(t *testing.T) {
	tr, _ := newTestTracer(t, SamplerAlways)

	ctx, end := tr.Step(context.Background(), SpanExtract)
	defer end(nil)

	headers := http.Header{}
	Inject(ctx, headers)
	parent := headers.Get("traceparent")
	if !strings.Contains(parent, TraceID(ctx)) {
		t.Errorf("traceparent = %q, want trace id %s", parent, TraceID(ctx))
	}
	if !strings.HasSuffix(parent, "-01") {
		t.Errorf("traceparent = %q, want the sampled flag", parent)
	}

	if got := Headers(ctx)["traceparent"]; got != parent {
		t.Errorf("Headers() traceparent = %q, want %q", got, parent)
	}
	if got := Headers(context.Background()); len(got) != 0 {
		t.Errorf("Headers() without a span = %v", got)
	}
}
