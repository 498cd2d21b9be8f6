package server

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/listdiff"
	"github.com/vango-dev/listdiff/pkg/middleware"
	"github.com/vango-dev/listdiff/pkg/protocol"
)

type changeset = listdiff.Changeset[document.Header, document.Element]

// errFinished stops the session's errgroup once the last frame is written.
var errFinished = stderrors.New("session finished")

// session is one staged apply exchange over a websocket.
type session struct {
	id     string
	server *Server
	conn   *websocket.Conn
	logger *slog.Logger

	ctx       context.Context
	cs        *changeset
	committed int

	writeMu     sync.Mutex
	acks        chan uint32
	interrupt   chan struct{}
	interrupted atomic.Bool
	finished    atomic.Bool
}

// handleApply upgrades to a websocket and runs one staged apply session.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(int64(protocol.FrameHeaderSize) + protocol.MaxPayloadSize)

	sess := &session{
		id:        uuid.NewString(),
		server:    s,
		conn:      conn,
		acks:      make(chan uint32, 1),
		interrupt: make(chan struct{}),
	}
	sess.logger = s.logger.With("session_id", sess.id)

	s.sessions.Add(1)
	s.config.Metrics.SessionStarted()
	outcome := sess.run(r.Context())
	s.config.Metrics.SessionEnded(outcome)
	s.sessions.Add(-1)

	sess.logger.Info("session closed", "outcome", outcome)
}

// run performs the handshake and streams the stages. It returns the outcome
// label for metrics.
func (ss *session) run(ctx context.Context) string {
	cs, welcome := ss.handshake(ctx)
	if err := ss.writeFrame(protocol.NewFrame(protocol.FrameWelcome, protocol.EncodeWelcome(welcome))); err != nil {
		ss.logger.Warn("welcome write failed", "error", err)
		return middleware.OutcomeError
	}
	if welcome.Status != protocol.HelloOK {
		ss.logger.Info("hello rejected", "status", welcome.Status.String(), "message", welcome.Message)
		ss.close(websocket.ClosePolicyViolation, welcome.Status.String())
		return middleware.OutcomeRejected
	}

	g, gctx := errgroup.WithContext(ctx)
	ss.ctx = gctx
	ss.cs = cs

	g.Go(func() error {
		return ss.readLoop(gctx)
	})

	var report listdiff.ApplyReport
	var applyErr error
	g.Go(func() error {
		report, applyErr = listdiff.StagedApply(gctx, cs, ss)
		ss.finish(report, applyErr)
		return errFinished
	})

	if err := g.Wait(); err != nil && !stderrors.Is(err, errFinished) {
		ss.logger.Warn("session read failed", "error", err)
	}

	switch {
	case applyErr == nil:
		return middleware.OutcomeComplete
	case stderrors.Is(applyErr, listdiff.ErrInterrupted):
		return middleware.OutcomeInterrupted
	}
	return middleware.OutcomeError
}

// handshake reads the Hello and computes the changeset. The returned
// Welcome carries the verdict.
func (ss *session) handshake(ctx context.Context) (*changeset, *protocol.Welcome) {
	cfg := ss.server.config
	reject := func(status protocol.HelloStatus, msg string) (*changeset, *protocol.Welcome) {
		return nil, &protocol.Welcome{Status: status, SessionID: ss.id, Message: msg}
	}

	ss.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	_, msg, err := ss.conn.ReadMessage()
	if err != nil {
		return reject(protocol.HelloInternalError, "hello read failed")
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil || frame.Type != protocol.FrameHello {
		ss.server.config.Metrics.FrameError("invalid_hello")
		return reject(protocol.HelloInvalidDocument, errors.New("E151").FormatCompact())
	}
	hello, err := protocol.DecodeHello(frame.Payload)
	if err != nil {
		ss.server.config.Metrics.FrameError("invalid_hello")
		return reject(protocol.HelloInvalidDocument, errors.New("E151").Wrap(err).Error())
	}
	if !protocol.CurrentVersion.Compatible(hello.Version) {
		return reject(protocol.HelloVersionMismatch,
			fmt.Sprintf("server speaks %s, client %s", protocol.CurrentVersion, hello.Version))
	}
	if int64(len(hello.Old)) > cfg.MaxDocumentBytes || int64(len(hello.New)) > cfg.MaxDocumentBytes {
		return reject(protocol.HelloTooLarge,
			errors.New("E142").WithDetailf("limit %d bytes", cfg.MaxDocumentBytes).FormatCompact())
	}

	format, err := document.ParseFormat(hello.Format)
	if err != nil {
		return reject(protocol.HelloInvalidDocument, errors.FromError(err, "E121").FormatCompact())
	}
	var docs [2]*document.Document
	for i, data := range [][]byte{hello.Old, hello.New} {
		doc, err := document.DecodeBytes(data, format)
		if err != nil {
			return reject(protocol.HelloInvalidDocument, errors.FromError(err, "E120").FormatCompact())
		}
		docs[i] = doc
	}

	cs, err := ss.server.diff(ctx, docs[0], docs[1], hello.CrossSectionMoves && cfg.CrossSectionMoves)
	if err != nil {
		return reject(protocol.HelloInternalError, errors.FromError(err, "E101").FormatCompact())
	}

	ss.logger.Info("session started", "stages", len(cs.Stages), "format", string(format))
	return cs, &protocol.Welcome{Status: protocol.HelloOK, SessionID: ss.id, Stages: uint32(len(cs.Stages))}
}

// readLoop receives Acks and controls until the session finishes.
func (ss *session) readLoop(ctx context.Context) error {
	cfg := ss.server.config
	for {
		ss.conn.SetReadDeadline(time.Now().Add(cfg.AckTimeout + cfg.ReadTimeout))
		_, msg, err := ss.conn.ReadMessage()
		if err != nil {
			if ss.finished.Load() {
				return nil
			}
			return err
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			ss.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			continue
		}

		switch frame.Type {
		case protocol.FrameAck:
			ack, err := protocol.DecodeAck(frame.Payload)
			if err != nil {
				ss.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
				continue
			}
			select {
			case ss.acks <- ack.Seq:
			case <-ctx.Done():
				return nil
			}

		case protocol.FrameControl:
			c, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				ss.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
				continue
			}
			switch c.Type {
			case protocol.ControlInterrupt:
				if ss.interrupted.CompareAndSwap(false, true) {
					ss.logger.Info("interrupt requested")
					close(ss.interrupt)
				}
			case protocol.ControlClose:
				return errors.New("E111").WithDetail("client closed the session")
			default:
				ss.sendError(protocol.NewError(protocol.ErrUnexpectedFrame, c.Type.String()))
			}

		default:
			ss.sendError(protocol.NewError(protocol.ErrUnexpectedFrame, frame.Type.String()))
		}
	}
}

// ApplyOperations sends the next stage and waits for its Ack. An Interrupt
// received instead of the Ack means the stage was not applied.
func (ss *session) ApplyOperations(ops []listdiff.Operation) error {
	return ss.applyStage(ss.ctx, ops)
}

func (ss *session) applyStage(ctx context.Context, ops []listdiff.Operation) error {
	seq := ss.nextSeq()
	st := ss.cs.Stages[seq-1]

	var result bytes.Buffer
	if err := document.Encode(&result, document.FromSnapshot(st.Result), document.FormatJSON); err != nil {
		return err
	}
	frame := protocol.NewFrame(protocol.FrameStage, protocol.EncodeStage(&protocol.StageFrame{
		Seq:        seq,
		Operations: ops,
		Result:     result.Bytes(),
	}))
	if int(seq) == len(ss.cs.Stages) {
		frame.Flags |= protocol.FlagFinal
	}
	if err := ss.writeFrame(frame); err != nil {
		return err
	}

	timer := time.NewTimer(ss.server.config.AckTimeout)
	defer timer.Stop()
	for {
		select {
		case got := <-ss.acks:
			switch {
			case got < seq:
				// Repeated Ack for a stage already committed.
				ss.logger.Debug("stale ack dropped", "seq", got, "expected", seq)
				continue
			case got > seq:
				return ss.protocolError(protocol.ErrOutOfOrder, fmt.Sprintf("ack %d, expected %d", got, seq))
			}
			return nil
		case <-ss.interrupt:
			return listdiff.ErrInterrupted
		case <-timer.C:
			return ss.protocolError(protocol.ErrTimeout, fmt.Sprintf("no ack for stage %d", seq))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CommitSnapshot counts an acknowledged stage.
func (ss *session) CommitSnapshot(document.Snapshot) {
	ss.committed++
	ss.server.config.Metrics.StageApplied()
}

// Interrupted implements listdiff.Applier.
func (ss *session) Interrupted() bool {
	return ss.interrupted.Load()
}

func (ss *session) nextSeq() uint32 {
	return uint32(ss.committed) + 1
}

// finish reports the outcome to the client and closes the connection.
func (ss *session) finish(report listdiff.ApplyReport, err error) {
	ss.finished.Store(true)
	ctrl := &protocol.Control{Type: protocol.ControlDone, Applied: uint32(report.Applied), Total: uint32(report.Total)}

	switch {
	case err == nil:
	case stderrors.Is(err, listdiff.ErrInterrupted):
		ctrl.Type = protocol.ControlInterrupted
	default:
		var em *protocol.ErrorMessage
		if !stderrors.As(err, &em) {
			em = protocol.NewFatalError(protocol.ErrServerError, err.Error())
		}
		ss.sendError(em)
		ss.close(websocket.CloseInternalServerErr, em.Code.String())
		return
	}

	if werr := ss.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ctrl))); werr != nil {
		ss.logger.Warn("control write failed", "error", werr)
	}
	ss.close(websocket.CloseNormalClosure, ctrl.Type.String())
}

func (ss *session) protocolError(code protocol.ErrorCode, msg string) error {
	return protocol.NewFatalError(code, msg)
}

func (ss *session) sendError(em *protocol.ErrorMessage) {
	ss.server.config.Metrics.FrameError(frameErrorType(em.Code))
	if err := ss.writeFrame(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em))); err != nil {
		ss.logger.Warn("error write failed", "error", err)
	}
}

func (ss *session) writeFrame(f *protocol.Frame) error {
	ss.writeMu.Lock()
	defer ss.writeMu.Unlock()

	ss.conn.SetWriteDeadline(time.Now().Add(ss.server.config.WriteTimeout))
	return ss.conn.WriteMessage(websocket.BinaryMessage, f.Encode())
}

// close sends a close message and closes the connection, which ends readLoop.
func (ss *session) close(code int, text string) {
	ss.writeMu.Lock()
	ss.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(ss.server.config.WriteTimeout))
	ss.writeMu.Unlock()
	ss.conn.Close()
}
