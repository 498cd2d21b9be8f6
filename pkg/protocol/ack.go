package protocol

import "encoding/binary"

// Ack is sent by the client once its list shows the result of a stage.
// The server does not send the next stage before the Ack arrives, so Ack
// doubles as flow control.
type Ack struct {
	Seq uint32 // Stage number applied
}

// EncodeAck encodes an Ack to bytes.
func EncodeAck(ack *Ack) []byte {
	e := NewEncoder(binary.MaxVarintLen32)
	e.WriteUvarint(uint64(ack.Seq))
	return e.Bytes()
}

// DecodeAck decodes an Ack from bytes.
func DecodeAck(data []byte) (*Ack, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	return &Ack{Seq: uint32(seq)}, d.Finish()
}
