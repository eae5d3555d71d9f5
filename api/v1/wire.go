package apiv1

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers follow coordination.proto. Zero values are omitted, as in
// proto3.

func (m *StartRoundRequest) appendWire(b []byte) []byte {
	b = appendUint64(b, 1, m.RoundId)
	b = appendInt32(b, 2, m.ExpectedWorkers)
	return b
}

func (m *StartRoundRequest) unmarshalWire(b []byte) error {
	*m = StartRoundRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeUint64(typ, v, &m.RoundId)
		case 2:
			return consumeInt32(typ, v, &m.ExpectedWorkers)
		}
		return 0, nil
	})
}

func (m *StartRoundResponse) appendWire(b []byte) []byte {
	return appendBool(b, 1, m.Success)
}

func (m *StartRoundResponse) unmarshalWire(b []byte) error {
	*m = StartRoundResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 {
			return consumeBool(typ, v, &m.Success)
		}
		return 0, nil
	})
}

func (m *KeyValuePair) appendWire(b []byte) []byte {
	b = appendString(b, 1, m.Key)
	b = appendBytes(b, 2, m.Value)
	return b
}

func (m *KeyValuePair) unmarshalWire(b []byte) error {
	*m = KeyValuePair{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Key)
		case 2:
			return consumeBytes(typ, v, &m.Value)
		}
		return 0, nil
	})
}

func (m *PublishValuesRequest) appendWire(b []byte) []byte {
	b = appendUint64(b, 1, m.RoundId)
	b = appendString(b, 2, m.WorkerId)
	b = appendPairs(b, 3, m.Pairs)
	return b
}

func (m *PublishValuesRequest) unmarshalWire(b []byte) error {
	*m = PublishValuesRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeUint64(typ, v, &m.RoundId)
		case 2:
			return consumeString(typ, v, &m.WorkerId)
		case 3:
			return consumePair(typ, v, &m.Pairs)
		}
		return 0, nil
	})
}

func (m *PublishValuesResponse) appendWire(b []byte) []byte {
	b = appendBool(b, 1, m.Success)
	b = appendBool(b, 2, m.RoundComplete)
	return b
}

func (m *PublishValuesResponse) unmarshalWire(b []byte) error {
	*m = PublishValuesResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeBool(typ, v, &m.Success)
		case 2:
			return consumeBool(typ, v, &m.RoundComplete)
		}
		return 0, nil
	})
}

func (m *GetValueRequest) appendWire(b []byte) []byte {
	b = appendUint64(b, 1, m.RoundId)
	b = appendString(b, 2, m.Key)
	return b
}

func (m *GetValueRequest) unmarshalWire(b []byte) error {
	*m = GetValueRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeUint64(typ, v, &m.RoundId)
		case 2:
			return consumeString(typ, v, &m.Key)
		}
		return 0, nil
	})
}

func (m *GetValueResponse) appendWire(b []byte) []byte {
	return appendBytes(b, 1, m.Value)
}

func (m *GetValueResponse) unmarshalWire(b []byte) error {
	*m = GetValueResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 {
			return consumeBytes(typ, v, &m.Value)
		}
		return 0, nil
	})
}

func (m *GetRoundRequest) appendWire(b []byte) []byte {
	return appendUint64(b, 1, m.RoundId)
}

func (m *GetRoundRequest) unmarshalWire(b []byte) error {
	*m = GetRoundRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 {
			return consumeUint64(typ, v, &m.RoundId)
		}
		return 0, nil
	})
}

func (m *GetRoundResponse) appendWire(b []byte) []byte {
	b = appendBool(b, 1, m.Complete)
	b = appendPairs(b, 2, m.Pairs)
	return b
}

func (m *GetRoundResponse) unmarshalWire(b []byte) error {
	*m = GetRoundResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeBool(typ, v, &m.Complete)
		case 2:
			return consumePair(typ, v, &m.Pairs)
		}
		return 0, nil
	})
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendInt32 sign-extends negative values to ten bytes, as protobuf does.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendPairs writes every pair, empty ones included, so the count survives.
func appendPairs(b []byte, num protowire.Number, pairs []*KeyValuePair) []byte {
	for _, p := range pairs {
		if p == nil {
			p = &KeyValuePair{}
		}
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, p.appendWire(nil))
	}
	return b
}

// consumeFields walks the fields of b. fn returns how many bytes of the value
// it consumed, or 0 for a field it does not know, which is then skipped.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(m))
			}
		}
		b = b[m:]
	}
	return nil
}

func wantType(got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("wire type %d, want %d", got, want)
	}
	return nil
}

func consumeUint64(typ protowire.Type, b []byte, out *uint64) (int, error) {
	if err := wantType(typ, protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*out = v
	return n, nil
}

func consumeInt32(typ protowire.Type, b []byte, out *int32) (int, error) {
	var v uint64
	n, err := consumeUint64(typ, b, &v)
	if err != nil {
		return 0, err
	}
	*out = int32(v)
	return n, nil
}

func consumeBool(typ protowire.Type, b []byte, out *bool) (int, error) {
	var v uint64
	n, err := consumeUint64(typ, b, &v)
	if err != nil {
		return 0, err
	}
	*out = protowire.DecodeBool(v)
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte, out *[]byte) (int, error) {
	if err := wantType(typ, protowire.BytesType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*out = append([]byte(nil), v...)
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, out *string) (int, error) {
	if err := wantType(typ, protowire.BytesType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*out = v
	return n, nil
}

func consumePair(typ protowire.Type, b []byte, out *[]*KeyValuePair) (int, error) {
	var raw []byte
	n, err := consumeBytes(typ, b, &raw)
	if err != nil {
		return 0, err
	}
	p := &KeyValuePair{}
	if err := p.unmarshalWire(raw); err != nil {
		return 0, err
	}
	*out = append(*out, p)
	return n, nil
}
