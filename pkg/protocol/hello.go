package protocol

import "fmt"

// HelloStatus is the server's verdict on a Hello.
type HelloStatus uint8

const (
	HelloOK              HelloStatus = 0x00
	HelloVersionMismatch HelloStatus = 0x01
	HelloInvalidDocument HelloStatus = 0x02 // A document failed to decode
	HelloTooLarge        HelloStatus = 0x03 // A document exceeds the server limit
	HelloInternalError   HelloStatus = 0x04
)

// String returns the string representation of the status.
func (s HelloStatus) String() string {
	switch s {
	case HelloOK:
		return "OK"
	case HelloVersionMismatch:
		return "VersionMismatch"
	case HelloInvalidDocument:
		return "InvalidDocument"
	case HelloTooLarge:
		return "TooLarge"
	case HelloInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// String returns "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// Compatible reports whether a peer speaking other can talk to v.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Hello is the first frame a client sends.
type Hello struct {
	Version           ProtocolVersion
	Format            string // "json" or "yaml"
	CrossSectionMoves bool
	Old               []byte
	New               []byte
}

// Welcome is the server's answer to Hello.
type Welcome struct {
	Status    HelloStatus
	SessionID string
	Stages    uint32 // Number of Stage frames that follow
	Message   string // Reason when Status is not OK
}

// EncodeHello encodes a Hello to bytes.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder(16 + len(h.Format) + len(h.Old) + len(h.New))
	e.WriteUint8(h.Version.Major)
	e.WriteUint8(h.Version.Minor)
	e.WriteString(h.Format)
	e.WriteBool(h.CrossSectionMoves)
	e.WriteLenBytes(h.Old)
	e.WriteLenBytes(h.New)
	return e.Bytes()
}

// DecodeHello decodes a Hello from bytes.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	h := &Hello{}
	var err error

	if h.Version.Major, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if h.Version.Minor, err = d.ReadByte(); err != nil {
		return nil, err
	}
	if h.Format, err = d.ReadString(); err != nil {
		return nil, err
	}
	if h.CrossSectionMoves, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if h.Old, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	if h.New, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	return h, d.Finish()
}

// EncodeWelcome encodes a Welcome to bytes.
func EncodeWelcome(w *Welcome) []byte {
	e := NewEncoder(16 + len(w.SessionID) + len(w.Message))
	e.WriteUint8(uint8(w.Status))
	e.WriteString(w.SessionID)
	e.WriteUvarint(uint64(w.Stages))
	e.WriteString(w.Message)
	return e.Bytes()
}

// DecodeWelcome decodes a Welcome from bytes.
func DecodeWelcome(data []byte) (*Welcome, error) {
	d := NewDecoder(data)
	w := &Welcome{}

	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	w.Status = HelloStatus(status)
	if w.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	stages, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	w.Stages = uint32(stages)
	if w.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	return w, d.Finish()
}
