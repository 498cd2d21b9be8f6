package protocol

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidControl is returned for unknown control types.
var ErrInvalidControl = errors.New("protocol: invalid control type")

// ControlType identifies the type of control message.
type ControlType uint8

const (
	ControlInterrupt   ControlType = 0x01 // Client asks to stop before the next stage
	ControlDone        ControlType = 0x02 // Server: every stage was acknowledged
	ControlInterrupted ControlType = 0x03 // Server: stopped early, reload the new snapshot
	ControlClose       ControlType = 0x20 // Session close
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlInterrupt:
		return "Interrupt"
	case ControlDone:
		return "Done"
	case ControlInterrupted:
		return "Interrupted"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// Control is a control message. Applied and Total are set on Done and
// Interrupted.
type Control struct {
	Type    ControlType
	Applied uint32
	Total   uint32
}

// EncodeControl encodes a control message to bytes.
func EncodeControl(c *Control) []byte {
	e := NewEncoder(1 + 2*binary.MaxVarintLen32)
	e.WriteUint8(uint8(c.Type))
	switch c.Type {
	case ControlDone, ControlInterrupted:
		e.WriteUvarint(uint64(c.Applied))
		e.WriteUvarint(uint64(c.Total))
	}
	return e.Bytes()
}

// DecodeControl decodes a control message from bytes.
func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	b, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(b)}

	switch c.Type {
	case ControlInterrupt, ControlClose:
	case ControlDone, ControlInterrupted:
		applied, err := d.ReadUvarint()
		if err != nil {
			return nil, err
		}
		total, err := d.ReadUvarint()
		if err != nil {
			return nil, err
		}
		c.Applied, c.Total = uint32(applied), uint32(total)
	default:
		return nil, ErrInvalidControl
	}
	return c, d.Finish()
}
