package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nhle/buildfast"

// Span attribute keys.
var (
	AttrSectionID = attribute.Key("buildfast.section.id")
	AttrIdeaID    = attribute.Key("buildfast.idea.id")
	AttrToolName  = attribute.Key("buildfast.tool.name")
	AttrRound     = attribute.Key("buildfast.chat.round")
	AttrModel     = attribute.Key("buildfast.ai.model")
)

// TracerProvider wraps the SDK provider so callers can flush on exit.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider installs a global provider exporting spans as JSON to w.
func NewTracerProvider(ctx context.Context, serviceName string, w io.Writer) (*TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider}, nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}

// Tracer returns the application tracer. Without a configured provider it
// is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
