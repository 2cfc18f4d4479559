package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for file service spans.
const (
	AttrClientIP     = "client.ip"
	AttrClientID     = "client.id"
	AttrRPCMethod    = "rpc.method"
	AttrDirectory    = "fs.directory"
	AttrPath         = "fs.path"
	AttrOffset       = "fs.offset"
	AttrLength       = "fs.length"
	AttrBytesRead    = "fs.bytes_read"
	AttrBytesWritten = "fs.bytes_written"
	AttrStatus       = "fs.status"
)

func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

func ClientID(id string) attribute.KeyValue {
	return attribute.String(AttrClientID, id)
}

func Directory(name string) attribute.KeyValue {
	return attribute.String(AttrDirectory, name)
}

// Path is the client-visible virtual path, never the resolved one.
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

func Offset(off uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(off))
}

func Length(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrLength, int64(n))
}

func BytesRead(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrBytesRead, int64(n))
}

func BytesWritten(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrBytesWritten, int64(n))
}

func Status(code string) attribute.KeyValue {
	return attribute.String(AttrStatus, code)
}

// StartRPCSpan starts a server span named "fileserver.<method>".
func StartRPCSpan(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{attribute.String(AttrRPCMethod, method)}, attrs...)
	return StartSpan(ctx, "fileserver."+method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(all...),
	)
}
