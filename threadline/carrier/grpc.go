package carrier

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"
)

// gRPC metadata keys are lowercase on the wire; the stdlib MIME
// canonicalization used by HeaderCarrier produces "Traceparent", so both
// directions normalize casing explicitly.
const (
	metadataTraceparent = "traceparent"
	metadataTracestate  = "tracestate"
)

// InjectGRPCContext injects the active trace identity into outgoing gRPC
// metadata, normalizing the W3C header casing for gRPC compatibility.
func InjectGRPCContext(ctx context.Context) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	if md == nil {
		md = metadata.New(nil)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(md))

	if values, exists := md["Traceparent"]; exists && len(values) > 0 {
		md[metadataTraceparent] = values
		delete(md, "Traceparent")
	}

	if values, exists := md["Tracestate"]; exists && len(values) > 0 {
		md[metadataTracestate] = values
		delete(md, "Tracestate")
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// ExtractGRPCContext extracts trace identity from incoming gRPC metadata and
// returns a context carrying it. Missing metadata returns ctx unchanged.
func ExtractGRPCContext(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok || md == nil {
		return ctx
	}

	mdCopy := md.Copy()

	if values, exists := mdCopy[metadataTraceparent]; exists && len(values) > 0 {
		mdCopy["Traceparent"] = values
		delete(mdCopy, metadataTraceparent)
	}

	if values, exists := mdCopy[metadataTracestate]; exists && len(values) > 0 {
		mdCopy["Tracestate"] = values
		delete(mdCopy, metadataTracestate)
	}

	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(mdCopy))
}
