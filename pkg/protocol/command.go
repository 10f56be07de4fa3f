package protocol

import (
	"errors"
	"fmt"
)

// CommandOp identifies a navigation command the client performs on
// window.history or window.location.
type CommandOp uint8

const (
	CmdPushState    CommandOp = 0x01 // history.pushState(null, "", url)
	CmdReplaceState CommandOp = 0x02 // history.replaceState(null, "", url)
	CmdSetHref      CommandOp = 0x03 // location.href = url
	CmdSetHash      CommandOp = 0x04 // location.hash = hash
	CmdReload       CommandOp = 0x05 // location.reload()
)

// String returns the string representation of the command op.
func (op CommandOp) String() string {
	switch op {
	case CmdPushState:
		return "PushState"
	case CmdReplaceState:
		return "ReplaceState"
	case CmdSetHref:
		return "SetHref"
	case CmdSetHash:
		return "SetHash"
	case CmdReload:
		return "Reload"
	default:
		return "Unknown"
	}
}

// ErrUnknownCommand is returned when decoding a command with an unknown op.
var ErrUnknownCommand = errors.New("protocol: unknown command op")

// Command is a single navigation command. Arg is the URL (or hash for
// CmdSetHash); it is empty for CmdReload.
type Command struct {
	Op  CommandOp
	Arg string
}

// String returns e.g. "PushState(/a?b)".
func (c Command) String() string {
	return fmt.Sprintf("%s(%s)", c.Op, c.Arg)
}

// CommandsFrame is a batch of commands applied by the client in order.
type CommandsFrame struct {
	Seq      uint64
	Commands []Command
}

// EncodeCommands encodes a CommandsFrame to bytes.
func EncodeCommands(cf *CommandsFrame) []byte {
	e := NewEncoder()
	EncodeCommandsTo(e, cf)
	return e.Bytes()
}

// EncodeCommandsTo encodes a CommandsFrame using the provided encoder.
func EncodeCommandsTo(e *Encoder, cf *CommandsFrame) {
	e.WriteUvarint(cf.Seq)
	e.WriteUvarint(uint64(len(cf.Commands)))
	for _, c := range cf.Commands {
		e.WriteByte(byte(c.Op))
		e.WriteString(c.Arg)
	}
}

// DecodeCommands decodes a CommandsFrame from bytes.
func DecodeCommands(data []byte) (*CommandsFrame, error) {
	d := NewDecoder(data)
	cf, err := DecodeCommandsFrom(d)
	if err != nil {
		return nil, err
	}
	return cf, d.Finish()
}

// DecodeCommandsFrom decodes a CommandsFrame from a decoder.
func DecodeCommandsFrom(d *Decoder) (*CommandsFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCount(MaxCommandCount)
	if err != nil {
		return nil, err
	}

	cf := &CommandsFrame{Seq: seq, Commands: make([]Command, 0, count)}
	for i := 0; i < count; i++ {
		op, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		if op < byte(CmdPushState) || op > byte(CmdReload) {
			return nil, ErrUnknownCommand
		}
		arg, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		cf.Commands = append(cf.Commands, Command{Op: CommandOp(op), Arg: arg})
	}
	return cf, nil
}
