package protocol

import (
	"errors"

	"github.com/vango-dev/listdiff/pkg/listdiff"
)

// ErrInvalidOp is returned when an operation carries an unknown kind.
var ErrInvalidOp = errors.New("protocol: invalid operation kind")

// minOpSize is the encoded size of the smallest operation: kind byte plus
// four one-byte varints.
const minOpSize = 5

// StageFrame carries one stage of a changeset.
type StageFrame struct {
	Seq        uint32               // 1-based stage number
	Operations []listdiff.Operation // Operations of the stage
	Result     []byte               // Snapshot after the stage, as a JSON document
}

// EncodeStage encodes a StageFrame to bytes.
func EncodeStage(sf *StageFrame) []byte {
	e := NewEncoder(8 + len(sf.Operations)*minOpSize + len(sf.Result))
	e.WriteUvarint(uint64(sf.Seq))
	e.WriteUvarint(uint64(len(sf.Operations)))
	for _, op := range sf.Operations {
		EncodeOperation(e, op)
	}
	e.WriteLenBytes(sf.Result)
	return e.Bytes()
}

// DecodeStage decodes a StageFrame from bytes.
func DecodeStage(data []byte) (*StageFrame, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount(minOpSize)
	if err != nil {
		return nil, err
	}
	sf := &StageFrame{
		Seq:        uint32(seq),
		Operations: make([]listdiff.Operation, count),
	}
	for i := range sf.Operations {
		if sf.Operations[i], err = DecodeOperation(d); err != nil {
			return nil, err
		}
	}
	if sf.Result, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	return sf, d.Finish()
}

// EncodeOperation appends one operation.
func EncodeOperation(e *Encoder, op listdiff.Operation) {
	e.WriteUint8(uint8(op.Op))
	e.WritePath(op.At)
	e.WritePath(op.To)
}

// DecodeOperation reads one operation.
func DecodeOperation(d *Decoder) (listdiff.Operation, error) {
	var op listdiff.Operation

	kind, err := d.ReadByte()
	if err != nil {
		return op, err
	}
	op.Op = listdiff.OpKind(kind)
	if op.Op.String() == "Unknown" {
		return op, ErrInvalidOp
	}
	if op.At, err = d.ReadPath(); err != nil {
		return op, err
	}
	if op.To, err = d.ReadPath(); err != nil {
		return op, err
	}
	return op, nil
}
