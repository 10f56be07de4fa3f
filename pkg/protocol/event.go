package protocol

import "errors"

// EventType identifies a browser event reported by the client.
type EventType uint8

const (
	EventHashChange EventType = 0x01 // window "hashchange"
	EventIdle       EventType = 0x02 // document became idle
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventHashChange:
		return "HashChange"
	case EventIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// ErrUnknownEvent is returned when decoding an event of unknown type.
var ErrUnknownEvent = errors.New("protocol: unknown event type")

// Event is a browser event sent from client to server.
type Event struct {
	Seq  uint64
	Type EventType
	Hash string // EventHashChange only
}

// EncodeEvent encodes an Event to bytes.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	EncodeEventTo(e, ev)
	return e.Bytes()
}

// EncodeEventTo encodes an Event using the provided encoder.
func EncodeEventTo(e *Encoder, ev *Event) {
	e.WriteUvarint(ev.Seq)
	e.WriteByte(byte(ev.Type))
	if ev.Type == EventHashChange {
		e.WriteString(ev.Hash)
	}
}

// DecodeEvent decodes an Event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	ev, err := DecodeEventFrom(d)
	if err != nil {
		return nil, err
	}
	return ev, d.Finish()
}

// DecodeEventFrom decodes an Event from a decoder.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	typ, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	ev := &Event{Seq: seq, Type: EventType(typ)}
	switch ev.Type {
	case EventHashChange:
		if ev.Hash, err = d.ReadString(); err != nil {
			return nil, err
		}
	case EventIdle:
	default:
		return nil, ErrUnknownEvent
	}
	return ev, nil
}
