package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameEncodeDecode(t *testing.T) {
	f := &Frame{Type: FrameCommands, Flags: FlagFlushed, Payload: []byte{1, 2, 3}}
	data := f.Encode()

	if len(data) != FrameHeaderSize+3 {
		t.Fatalf("len(Encode()) = %d, want %d", len(data), FrameHeaderSize+3)
	}

	got, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if got.Type != FrameCommands || !got.Flags.Has(FlagFlushed) {
		t.Errorf("DecodeFrame() = %v/%v", got.Type, got.Flags)
	}
	if !bytes.Equal(got.Payload, f.Payload) {
		t.Errorf("Payload = %v, want %v", got.Payload, f.Payload)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short_header", []byte{0x01, 0x00}, io.ErrUnexpectedEOF},
		{"short_payload", []byte{0x01, 0x00, 0x00, 0x05, 0xAA}, io.ErrUnexpectedEOF},
		{"trailing", []byte{0x01, 0x00, 0x00, 0x01, 0xAA, 0xBB}, ErrTrailingBytes},
		{"bad_type", []byte{0x09, 0x00, 0x00, 0x00}, ErrInvalidFrameType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeFrame(tc.data); !errors.Is(err, tc.want) {
				t.Errorf("DecodeFrame() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, NewFrame(FrameEvent, []byte("hi"))); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if got.Type != FrameEvent || string(got.Payload) != "hi" {
		t.Errorf("ReadFrame() = %v %q", got.Type, got.Payload)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	f := NewFrame(FrameCommands, make([]byte, MaxPayloadSize+1))
	if err := WriteFrame(io.Discard, f); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameTypeString(t *testing.T) {
	if FrameCommands.String() != "Commands" {
		t.Errorf("FrameCommands.String() = %q", FrameCommands.String())
	}
	if FrameType(0x7F).String() != "Unknown" {
		t.Errorf("unknown frame type String() = %q", FrameType(0x7F).String())
	}
}
