package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/listdiff/pkg/listdiff"
)

func TestHelloRoundTrip(t *testing.T) {
	h := &Hello{
		Version:           CurrentVersion,
		Format:            "yaml",
		CrossSectionMoves: true,
		Old:               []byte("sections: []"),
		New:               []byte(`sections: [{id: a}]`),
	}

	got, err := DecodeHello(EncodeHello(h))
	if err != nil {
		t.Fatalf("DecodeHello: %v", err)
	}
	if !reflect.DeepEqual(got, h) {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestWelcomeRoundTrip(t *testing.T) {
	w := &Welcome{Status: HelloTooLarge, SessionID: "abc", Stages: 3, Message: "too big"}
	got, err := DecodeWelcome(EncodeWelcome(w))
	if err != nil {
		t.Fatalf("DecodeWelcome: %v", err)
	}
	if *got != *w {
		t.Errorf("got %+v, want %+v", got, w)
	}
	if got.Status.String() != "TooLarge" {
		t.Errorf("Status.String() = %q", got.Status.String())
	}
}

func TestStageRoundTrip(t *testing.T) {
	sf := &StageFrame{
		Seq: 2,
		Operations: []listdiff.Operation{
			{Op: listdiff.OpDeleteSection, At: listdiff.SectionPath(4), To: listdiff.NoPath},
			{Op: listdiff.OpMoveElement, At: listdiff.ElementPath(0, 3), To: listdiff.ElementPath(2, 0)},
			{Op: listdiff.OpUpdateElement, At: listdiff.ElementPath(1, 200), To: listdiff.ElementPath(1, 200)},
		},
		Result: []byte(`{"sections":[]}`),
	}

	got, err := DecodeStage(EncodeStage(sf))
	if err != nil {
		t.Fatalf("DecodeStage: %v", err)
	}
	if !reflect.DeepEqual(got, sf) {
		t.Errorf("got %+v, want %+v", got, sf)
	}
}

func TestStageDecodeErrors(t *testing.T) {
	e := NewEncoder(16)
	e.WriteUvarint(1)
	e.WriteUvarint(1)
	e.WriteUint8(0x42)
	e.WritePath(listdiff.Path{})
	e.WritePath(listdiff.Path{})
	e.WriteLenBytes(nil)
	if _, err := DecodeStage(e.Bytes()); !errors.Is(err, ErrInvalidOp) {
		t.Errorf("unknown op err = %v", err)
	}

	e = NewEncoder(16)
	e.WriteUvarint(1)
	e.WriteUvarint(1)
	e.WriteUint8(uint8(listdiff.OpDeleteElement))
	e.WritePath(listdiff.Path{Section: -7})
	e.WritePath(listdiff.Path{})
	e.WriteLenBytes(nil)
	if _, err := DecodeStage(e.Bytes()); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("negative coordinate err = %v", err)
	}

	data := append(EncodeStage(&StageFrame{Seq: 1}), 0x00)
	if _, err := DecodeStage(data); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("trailing bytes err = %v", err)
	}
}

func TestControlRoundTrip(t *testing.T) {
	tests := []*Control{
		{Type: ControlInterrupt},
		{Type: ControlDone, Applied: 4, Total: 4},
		{Type: ControlInterrupted, Applied: 1, Total: 4},
		{Type: ControlClose},
	}
	for _, c := range tests {
		t.Run(c.Type.String(), func(t *testing.T) {
			got, err := DecodeControl(EncodeControl(c))
			if err != nil {
				t.Fatalf("DecodeControl: %v", err)
			}
			if *got != *c {
				t.Errorf("got %+v, want %+v", got, c)
			}
		})
	}

	if _, err := DecodeControl([]byte{0x55}); !errors.Is(err, ErrInvalidControl) {
		t.Errorf("unknown control err = %v", err)
	}
}

func TestAckRoundTrip(t *testing.T) {
	got, err := DecodeAck(EncodeAck(&Ack{Seq: 300}))
	if err != nil {
		t.Fatalf("DecodeAck: %v", err)
	}
	if got.Seq != 300 {
		t.Errorf("Seq = %d, want 300", got.Seq)
	}
}

func TestErrorMessage(t *testing.T) {
	em := NewFatalError(ErrDiffFailed, "E101: Stage result mismatch")
	got, err := DecodeErrorMessage(EncodeErrorMessage(em))
	if err != nil {
		t.Fatalf("DecodeErrorMessage: %v", err)
	}
	if *got != *em {
		t.Errorf("got %+v, want %+v", got, em)
	}
	if want := "fatal: DiffFailed: E101: Stage result mismatch"; got.Error() != want {
		t.Errorf("Error() = %q, want %q", got.Error(), want)
	}
	if got := NewError(ErrTimeout, "slow").Error(); got != "Timeout: slow" {
		t.Errorf("Error() = %q", got)
	}
}

func TestPathRoundTrip(t *testing.T) {
	paths := []listdiff.Path{
		{Section: 0, Element: 0},
		{Section: 3, Element: -1},
		listdiff.NoPath,
		{Section: 200, Element: 70000},
	}
	e := NewEncoder(len(paths) * 8)
	for _, p := range paths {
		e.WritePath(p)
	}
	d := NewDecoder(e.Bytes())
	for _, want := range paths {
		got, err := d.ReadPath()
		if err != nil {
			t.Fatalf("ReadPath: %v", err)
		}
		if got != want {
			t.Errorf("ReadPath() = %v, want %v", got, want)
		}
	}
	if err := d.Finish(); err != nil {
		t.Errorf("Finish() = %v", err)
	}

	e = NewEncoder(2)
	e.WriteUint16(0x0102)
	if !bytes.Equal(e.Bytes(), []byte{1, 2}) {
		t.Errorf("Bytes() = %v", e.Bytes())
	}
}
