package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/listdiff"
	"github.com/vango-dev/listdiff/pkg/protocol"
)

// Client runs staged apply sessions against a listdiff server.
//
// Example:
//
//	c := server.NewClient("ws://localhost:7070/v1/apply")
//	report, err := c.Apply(ctx, oldJSON, newJSON, document.FormatJSON, applier)
type Client struct {
	// URL is the websocket endpoint, e.g. ws://host/v1/apply.
	URL string

	// Header is sent with the upgrade request.
	Header http.Header

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// CrossSectionMoves asks the server for cross-section moves.
	CrossSectionMoves bool

	// Timeout bounds every single frame read and write (default: 30s).
	Timeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewClient creates a Client with cross-section moves enabled.
func NewClient(url string) *Client {
	return &Client{URL: url, CrossSectionMoves: true}
}

// Applier is the consumer a Client drives.
type Applier = listdiff.Applier[document.Header, document.Element]

// Apply sends both documents, then feeds every received stage to a: the
// stage's operations first, then its result snapshot, then an Ack. When
// a.Interrupted reports true before a stage, the client sends an Interrupt
// instead and the session ends with E111. A consumer error also interrupts
// the session and is returned as E110.
func (c *Client) Apply(ctx context.Context, old, new []byte, format document.Format, a Applier) (listdiff.ApplyReport, error) {
	var report listdiff.ApplyReport

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	conn, _, err := dialer.DialContext(ctx, c.URL, c.Header)
	if err != nil {
		return report, errors.New("E152").WithDetailf("dial %s", c.URL).Wrap(err)
	}
	defer conn.Close()

	// Unblock reads when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	cc := &clientConn{conn: conn, timeout: timeout}

	hello := &protocol.Hello{
		Version:           protocol.CurrentVersion,
		Format:            string(format),
		CrossSectionMoves: c.CrossSectionMoves,
		Old:               old,
		New:               new,
	}
	if err := cc.write(protocol.NewFrame(protocol.FrameHello, protocol.EncodeHello(hello))); err != nil {
		return report, errors.New("E152").Wrap(err)
	}

	frame, err := cc.read()
	if err != nil {
		return report, errors.New("E152").Wrap(err)
	}
	if frame.Type != protocol.FrameWelcome {
		return report, errors.New("E150").WithDetailf("got %s, expected Welcome", frame.Type)
	}
	welcome, err := protocol.DecodeWelcome(frame.Payload)
	if err != nil {
		return report, errors.New("E150").Wrap(err)
	}
	if welcome.Status != protocol.HelloOK {
		return report, errors.New("E151").
			WithDetailf("%s: %s", welcome.Status, welcome.Message)
	}
	report.Total = int(welcome.Stages)
	logger = logger.With("session_id", welcome.SessionID)
	logger.Debug("session started", "stages", report.Total)

	var consumerErr error
	for {
		frame, err := cc.read()
		if err != nil {
			if ctx.Err() != nil {
				report.Interrupted = true
				return report, errors.New("E111").Wrap(ctx.Err())
			}
			return report, errors.New("E152").Wrap(err)
		}

		switch frame.Type {
		case protocol.FrameStage:
			sf, err := protocol.DecodeStage(frame.Payload)
			if err != nil {
				return report, errors.New("E150").Wrap(err)
			}
			if a.Interrupted() || consumerErr != nil {
				if err := cc.write(controlFrame(protocol.ControlInterrupt)); err != nil {
					return report, errors.New("E152").Wrap(err)
				}
				continue
			}
			result, err := document.DecodeBytes(sf.Result, document.FormatJSON)
			if err != nil {
				return report, errors.New("E150").WithDetailf("stage %d result", sf.Seq).Wrap(err)
			}
			if err := a.ApplyOperations(sf.Operations); err != nil {
				consumerErr = errors.New("E110").WithDetailf("stage %d of %d", sf.Seq, report.Total).Wrap(err)
				if err := cc.write(controlFrame(protocol.ControlInterrupt)); err != nil {
					return report, errors.New("E152").Wrap(err)
				}
				continue
			}
			a.CommitSnapshot(result.Snapshot())
			report.Applied++
			if err := cc.write(protocol.NewFrame(protocol.FrameAck, protocol.EncodeAck(&protocol.Ack{Seq: sf.Seq}))); err != nil {
				return report, errors.New("E152").Wrap(err)
			}

		case protocol.FrameControl:
			ctrl, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				return report, errors.New("E150").Wrap(err)
			}
			switch ctrl.Type {
			case protocol.ControlDone:
				logger.Debug("session done", "applied", report.Applied)
				return report, nil
			case protocol.ControlInterrupted:
				report.Interrupted = true
				if consumerErr != nil {
					return report, consumerErr
				}
				return report, errors.New("E111").
					WithDetailf("stopped after %d of %d stages", report.Applied, report.Total)
			default:
				return report, errors.New("E150").WithDetailf("control %s", ctrl.Type)
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				return report, errors.New("E150").Wrap(err)
			}
			if em.Fatal {
				return report, errors.New("E152").Wrap(em)
			}
			logger.Warn("server error", "error", em.Error())

		default:
			return report, errors.New("E150").WithDetail(fmt.Sprintf("got %s", frame.Type))
		}
	}
}

func controlFrame(ct protocol.ControlType) *protocol.Frame {
	return protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{Type: ct}))
}

type clientConn struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (c *clientConn) read() (*protocol.Frame, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.DecodeFrame(msg)
}

func (c *clientConn) write(f *protocol.Frame) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}
