package world

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/models"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	ErrTypeInvalidMesh = "world-invalid-mesh"

	quadField      protowire.Number = 1
	quadPosField   protowire.Number = 1
	quadFaceField  protowire.Number = 2
	quadBlockField protowire.Number = 3
)

// Quad is a visible block face of a section mesh. Coordinates are local to
// the section.
type Quad struct {
	X, Y, Z uint8
	Face    models.Direction
	Block   Block
}

// appendQuad encodes a quad as a length-delimited protobuf message.
func appendQuad(b, scratch []byte, q Quad) ([]byte, []byte) {
	m := scratch[:0]
	m = protowire.AppendTag(m, quadPosField, protowire.VarintType)
	m = protowire.AppendVarint(m, uint64(q.X)<<8|uint64(q.Y)<<4|uint64(q.Z))
	m = protowire.AppendTag(m, quadFaceField, protowire.VarintType)
	m = protowire.AppendVarint(m, uint64(q.Face))
	m = protowire.AppendTag(m, quadBlockField, protowire.VarintType)
	m = protowire.AppendVarint(m, uint64(q.Block))

	b = protowire.AppendTag(b, quadField, protowire.BytesType)
	b = protowire.AppendBytes(b, m)
	return b, m
}

// DecodeMesh decodes the quads of a section mesh.
func DecodeMesh(b []byte) ([]Quad, error) {
	var quads []Quad

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, invalidMesh(protowire.ParseError(n))
		}
		b = b[n:]

		if num != quadField || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, invalidMesh(protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		m, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, invalidMesh(protowire.ParseError(n))
		}
		b = b[n:]

		q, err := decodeQuad(m)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}

	return quads, nil
}

func decodeQuad(b []byte) (Quad, error) {
	var q Quad

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return q, invalidMesh(protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return q, invalidMesh(protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return q, invalidMesh(protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case quadPosField:
			q.X = uint8(v >> 8 & sectionMask)
			q.Y = uint8(v >> 4 & sectionMask)
			q.Z = uint8(v & sectionMask)
		case quadFaceField:
			if v >= uint64(models.DirectionCount) {
				return q, errors.New("invalid quad face").
					WithType(ErrTypeInvalidMesh).
					WithTag("face", v)
			}
			q.Face = models.Direction(v)
		case quadBlockField:
			if v >= uint64(blockCount) {
				return q, errors.New("invalid quad block").
					WithType(ErrTypeInvalidMesh).
					WithTag("block", v)
			}
			q.Block = Block(v)
		}
	}

	return q, nil
}

func invalidMesh(err error) error {
	return errors.New("invalid section mesh").
		WithType(ErrTypeInvalidMesh).
		Wrap(err)
}
