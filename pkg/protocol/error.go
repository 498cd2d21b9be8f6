package protocol

import "fmt"

// ErrorCode classifies an Error frame. Codes below 0x0100 blame the peer,
// the rest the server.
type ErrorCode uint16

const (
	ErrUnknown         ErrorCode = 0x0000
	ErrInvalidFrame    ErrorCode = 0x0001 // Payload could not be decoded
	ErrUnexpectedFrame ErrorCode = 0x0002 // Frame type not accepted at this point
	ErrOutOfOrder      ErrorCode = 0x0003 // Ack for a stage that was not sent
	ErrTimeout         ErrorCode = 0x0004 // No Ack within the ack timeout
	ErrServerError     ErrorCode = 0x0100
	ErrDiffFailed      ErrorCode = 0x0101 // The changeset could not be computed
)

var errorCodeNames = map[ErrorCode]string{
	ErrInvalidFrame:    "InvalidFrame",
	ErrUnexpectedFrame: "UnexpectedFrame",
	ErrOutOfOrder:      "OutOfOrder",
	ErrTimeout:         "Timeout",
	ErrServerError:     "ServerError",
	ErrDiffFailed:      "DiffFailed",
}

func (ec ErrorCode) String() string {
	if name, ok := errorCodeNames[ec]; ok {
		return name
	}
	return "Unknown"
}

// ErrorMessage is the payload of an Error frame. A fatal error is the last
// frame of a session.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool
}

// NewError returns a non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError returns an ErrorMessage that ends the session.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return fmt.Sprintf("fatal: %s: %s", em.Code, em.Message)
	}
	return fmt.Sprintf("%s: %s", em.Code, em.Message)
}

// EncodeErrorMessage encodes em as code, message, fatal flag.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder(4 + len(em.Message))
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

// DecodeErrorMessage decodes an Error frame payload.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	d := NewDecoder(data)
	em := &ErrorMessage{}

	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	em.Code = ErrorCode(code)
	if em.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return em, d.Finish()
}
