package gateway

import (
	"github.com/bert42/fileserver/internal/telemetry"
	"github.com/bert42/fileserver/pkg/fsrpc"
	"github.com/bert42/fileserver/pkg/metrics"
	"github.com/bert42/fileserver/pkg/transfer"
	"google.golang.org/grpc"
)

// Read streams the requested byte range as ordered chunks.
//
// A client that disconnects cancels the stream context, which stops the
// producer and its disk reads.
func (g *Gateway) Read(req *fsrpc.ReadRequest, stream grpc.ServerStreamingServer[fsrpc.DataChunk]) error {
	ctx, c := g.begin(stream.Context(), "Read", req.Path)

	rr := transfer.ReadRequest{Path: req.Path}
	if req.HasOffset {
		rr.Offset = req.Offset
		c.span.SetAttributes(telemetry.Offset(req.Offset))
	}
	if req.HasLength {
		length := req.Length
		rr.Length = &length
		c.span.SetAttributes(telemetry.Length(length))
	}

	sent, err := g.transfers.ReadTo(ctx, rr, func(chunk *transfer.Chunk) error {
		return stream.Send(&fsrpc.DataChunk{
			Path:   chunk.Path,
			Data:   chunk.Data,
			Offset: chunk.Offset,
			IsLast: chunk.IsLast,
		})
	})

	c.span.SetAttributes(telemetry.BytesRead(sent))
	g.metrics.RecordBytesTransferred(c.directory, metrics.DirectionRead, sent)
	return c.end(ctx, err)
}

// Write receives a chunk stream and commits it once the final chunk arrives.
func (g *Gateway) Write(stream grpc.ClientStreamingServer[fsrpc.DataChunk, fsrpc.WriteResponse]) error {
	ctx, c := g.begin(stream.Context(), "Write", "")

	src := &chunkSource{stream: stream, call: c, gateway: g}
	result, err := g.transfers.Write(ctx, src)
	if err != nil {
		return c.end(ctx, err)
	}

	c.span.SetAttributes(telemetry.BytesWritten(result.BytesWritten))
	g.metrics.RecordBytesTransferred(c.directory, metrics.DirectionWrite, result.BytesWritten)

	if err := stream.SendAndClose(&fsrpc.WriteResponse{
		Success:      true,
		Message:      "File written successfully",
		BytesWritten: result.BytesWritten,
	}); err != nil {
		return c.end(ctx, err)
	}
	return c.end(ctx, nil)
}

// chunkSource adapts the inbound stream to transfer.ChunkSource and labels
// the call with the path of the first chunk.
type chunkSource struct {
	stream  grpc.ClientStreamingServer[fsrpc.DataChunk, fsrpc.WriteResponse]
	call    *call
	gateway *Gateway
}

func (s *chunkSource) Recv() (*transfer.Chunk, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		return nil, err
	}

	if s.call.path == "" {
		s.call.path = msg.Path
		s.call.directory = s.gateway.directoryLabel(msg.Path)
		s.call.span.SetAttributes(telemetry.Path(msg.Path), telemetry.Directory(s.call.directory))
	}

	return &transfer.Chunk{
		Path:   msg.Path,
		Data:   msg.Data,
		Offset: msg.Offset,
		IsLast: msg.IsLast,
	}, nil
}
