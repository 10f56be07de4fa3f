package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncoderDecoderPrimitives(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0xAB)
	e.WriteUvarint(300)
	e.WriteString("https://example.com/a?b#c")
	e.WriteBool(true)
	e.WriteUint16(0xBEEF)
	e.WriteUint64(1 << 40)

	d := NewDecoder(e.Bytes())

	if b, err := d.ReadByte(); err != nil || b != 0xAB {
		t.Fatalf("ReadByte() = %x, %v", b, err)
	}
	if v, err := d.ReadUvarint(); err != nil || v != 300 {
		t.Fatalf("ReadUvarint() = %d, %v", v, err)
	}
	if s, err := d.ReadString(); err != nil || s != "https://example.com/a?b#c" {
		t.Fatalf("ReadString() = %q, %v", s, err)
	}
	if b, err := d.ReadBool(); err != nil || !b {
		t.Fatalf("ReadBool() = %v, %v", b, err)
	}
	if v, err := d.ReadUint16(); err != nil || v != 0xBEEF {
		t.Fatalf("ReadUint16() = %x, %v", v, err)
	}
	if v, err := d.ReadUint64(); err != nil || v != 1<<40 {
		t.Fatalf("ReadUint64() = %d, %v", v, err)
	}
	if err := d.Finish(); err != nil {
		t.Errorf("Finish() = %v, want nil", err)
	}
}

func TestEncoderReset(t *testing.T) {
	e := NewEncoder()
	e.WriteString("hello")
	e.Reset()
	if e.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", e.Len())
	}
}

func TestDecoderRejectsOversizedString(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxStringLen + 1)
	e.WriteBytes([]byte(strings.Repeat("x", 16)))

	_, err := NewDecoder(e.Bytes()).ReadString()
	if !errors.Is(err, ErrStringTooLarge) {
		t.Errorf("ReadString() error = %v, want ErrStringTooLarge", err)
	}
}

func TestDecoderTruncatedString(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(10)
	e.WriteBytes([]byte("abc"))

	_, err := NewDecoder(e.Bytes()).ReadString()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadString() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestDecoderReadCount(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(5)
	if _, err := NewDecoder(e.Bytes()).ReadCount(4); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("count above max: error = %v", err)
	}
	// Within max, but claims more items than bytes left.
	if _, err := NewDecoder(e.Bytes()).ReadCount(10); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("count above remaining: error = %v", err)
	}
}

func TestDecoderVarintOverflow(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	if _, err := NewDecoder(data).ReadUvarint(); !errors.Is(err, ErrVarintOverflow) {
		t.Errorf("ReadUvarint() error = %v, want ErrVarintOverflow", err)
	}
}
