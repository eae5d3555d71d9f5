package common

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
)

// Wire layout of a published block, in protobuf encoding:
//
//	1: start  (varint)
//	2: end    (varint)
//	3: colors (packed zigzag varints, one per vertex of [start, end))
//
// A final result reuses the layout with field 4 holding the packed
// conflict list.
const (
	blockStartField     protowire.Number = 1
	blockEndField       protowire.Number = 2
	blockColorsField    protowire.Number = 3
	blockConflictsField protowire.Number = 4
)

// BlockKey is the key under which worker i publishes its block.
func BlockKey(worker int) string {
	return fmt.Sprintf("block-%d", worker)
}

// ResultKey is the key of the resolved global coloring.
const ResultKey = "coloring"

// EncodeBlock serializes one worker's partial coloring.
func EncodeBlock(p *coloring.PartialColoring) []byte {
	return encodeBlock(p.Range, p.Colors, nil)
}

// DecodeBlock parses a payload written by EncodeBlock.
func DecodeBlock(b []byte) (*coloring.PartialColoring, error) {
	r, colors, _, err := decodeBlock(b)
	if err != nil {
		return nil, err
	}
	return &coloring.PartialColoring{Range: r, Colors: colors}, nil
}

// EncodeResult serializes a resolved global coloring and the conflicts that
// were repaired to reach it.
func EncodeResult(colors coloring.Coloring, conflicts []int) []byte {
	return encodeBlock(coloring.Range{Start: 0, End: len(colors)}, colors, conflicts)
}

// DecodeResult parses a payload written by EncodeResult.
func DecodeResult(b []byte) (coloring.Coloring, []int, error) {
	r, colors, conflicts, err := decodeBlock(b)
	if err != nil {
		return nil, nil, err
	}
	if r.Start != 0 {
		return nil, nil, fmt.Errorf("result block must start at 0, got %d", r.Start)
	}
	return coloring.Coloring(colors), conflicts, nil
}

func encodeBlock(r coloring.Range, colors []int, conflicts []int) []byte {
	b := make([]byte, 0, 8+2*len(colors))
	b = protowire.AppendTag(b, blockStartField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Start))
	b = protowire.AppendTag(b, blockEndField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.End))

	if len(colors) > 0 {
		var packed []byte
		for _, c := range colors {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(c)))
		}
		b = protowire.AppendTag(b, blockColorsField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}

	if len(conflicts) > 0 {
		var packed []byte
		for _, v := range conflicts {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		b = protowire.AppendTag(b, blockConflictsField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func decodeBlock(b []byte) (coloring.Range, []int, []int, error) {
	var (
		r         coloring.Range
		colors    []int
		conflicts []int
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return r, nil, nil, fmt.Errorf("block tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == blockStartField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, nil, nil, fmt.Errorf("block start: %w", protowire.ParseError(n))
			}
			if v > math.MaxInt32 {
				return r, nil, nil, fmt.Errorf("block start %d out of range", v)
			}
			r.Start = int(v)
			b = b[n:]
		case num == blockEndField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return r, nil, nil, fmt.Errorf("block end: %w", protowire.ParseError(n))
			}
			if v > math.MaxInt32 {
				return r, nil, nil, fmt.Errorf("block end %d out of range", v)
			}
			r.End = int(v)
			b = b[n:]
		case num == blockColorsField && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return r, nil, nil, fmt.Errorf("block colors: %w", protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return r, nil, nil, fmt.Errorf("block colors: %w", protowire.ParseError(m))
				}
				colors = append(colors, int(protowire.DecodeZigZag(v)))
				packed = packed[m:]
			}
		case num == blockConflictsField && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return r, nil, nil, fmt.Errorf("block conflicts: %w", protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return r, nil, nil, fmt.Errorf("block conflicts: %w", protowire.ParseError(m))
				}
				if v > math.MaxInt32 {
					return r, nil, nil, fmt.Errorf("block conflict vertex %d out of range", v)
				}
				conflicts = append(conflicts, int(v))
				packed = packed[m:]
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return r, nil, nil, fmt.Errorf("block field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if r.End < r.Start {
		return r, nil, nil, fmt.Errorf("block range %v is inverted", r)
	}
	if len(colors) != r.Len() {
		return r, nil, nil, fmt.Errorf("block %v carries %d colors", r, len(colors))
	}
	if colors == nil {
		colors = []int{}
	}
	return r, colors, conflicts, nil
}
