package fsrpc

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype under which the XDR codec is
// registered ("application/grpc+xdr").
const CodecName = "xdr"

// Codec marshals messages with XDR (RFC 4506).
type Codec struct{}

func init() {
	encoding.RegisterCodec(Codec{})
}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("xdr marshal %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v. No length prefix may claim more bytes than
// the message holds, so a forged prefix cannot force a large allocation.
func (Codec) Unmarshal(data []byte, v any) error {
	if _, err := xdr.UnmarshalLimited(bytes.NewReader(data), v, uint(len(data))); err != nil {
		return fmt.Errorf("xdr unmarshal %T: %w", v, err)
	}
	return nil
}

// CallOption selects the XDR codec for client calls.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
