// Package protocol implements the binary wire protocol between the locsync
// server and the thin browser client.
//
// The server owns the location model; the client owns window.location. The
// client reports what the browser does (its location at connect time, hash
// changes, the document becoming idle) and the server sends back navigation
// commands (push/replace state, set href, set hash, reload).
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): ClientHello / ServerHello
//   - FrameEvent (0x01): Client → Server browser events
//   - FrameCommands (0x02): Server → Client navigation commands
//   - FrameControl (0x03): Ping, pong, close
//   - FrameError (0x04): Error message
//
// # Encoding
//
//   - Varint: protobuf-style unsigned integers (sequence numbers, lengths)
//   - Length-prefixed: strings are a varint byte length followed by UTF-8
//   - Big-endian: fixed-width integers in the handshake
//
// # Handshake
//
//	Client                              Server
//	  │                                    │
//	  │──── ClientHello ─────────────────>│
//	  │     (version, session, href, idle) │
//	  │                                    │
//	  │<──── ServerHello ─────────────────│
//	  │     (status, session, time)        │
//
// # Events
//
//	HashChange: [Seq: varint][Type: 0x01][Hash: len-prefixed]
//	Idle:       [Seq: varint][Type: 0x02]
//
// # Commands
//
//	[Seq: varint][Count: varint]([Op: byte][Arg: len-prefixed])*
package protocol
