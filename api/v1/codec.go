package apiv1

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the gRPC content-subtype of the coordination messages. It
// replaces grpc's default "proto" codec; generated protobuf messages still go
// through proto.Marshal, so other services on the same process keep working.
const CodecName = "proto"

func init() {
	encoding.RegisterCodec(codec{})
}

// wireMessage is implemented by every message of this package. The encoding
// is the protobuf wire format of coordination.proto.
type wireMessage interface {
	appendWire(b []byte) []byte
	unmarshalWire(b []byte) error
}

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.appendWire(nil), nil
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("apiv1: cannot marshal %T", v)
	}
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	switch m := v.(type) {
	case wireMessage:
		if err := m.unmarshalWire(data); err != nil {
			return fmt.Errorf("apiv1: unmarshal %T: %w", v, err)
		}
		return nil
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("apiv1: cannot unmarshal into %T", v)
	}
}

func (codec) Name() string { return CodecName }
