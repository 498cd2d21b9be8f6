// Package protocol implements the binary wire protocol of the staged apply
// session.
//
// A client sends the old and new snapshot documents in a Hello frame. The
// server answers with a Welcome, then streams the changeset one Stage frame
// at a time. The client acknowledges each stage with an Ack once its list
// shows the stage result, or sends an Interrupt control to stop early. The
// server closes the exchange with a Done or Interrupted control.
//
// # Wire Format
//
// All messages are framed with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): Client → Server documents and options
//   - FrameWelcome (0x01): Server → Client session and stage count
//   - FrameStage (0x02): Server → Client one stage
//   - FrameAck (0x03): Client → Server stage applied
//   - FrameControl (0x04): Interrupt, Done, Interrupted
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: compact unsigned integers (protobuf-style)
//   - ZigZag: signed integers, used for coordinates where -1 marks "unused"
//   - Length-prefixed: strings and byte arrays prefixed with varint length
//   - Big-endian: fixed-width integers
//
// An operation is encoded as its kind byte followed by four signed varints:
//
//	[Op: 1 byte][At.Section][At.Element][To.Section][To.Element]
package protocol
