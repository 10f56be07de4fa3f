package server

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/locsync/pkg/protocol"
)

// ReadLoop reads frames from the client until the connection fails or the
// session closes. Events are queued for the EventLoop.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && !s.closed.Load() {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.lastActive.Store(time.Now().UnixNano())

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.protocolError("frame", err)
			s.sendError(protocol.NewError(protocol.ErrInvalidFrame, "invalid frame"))
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(frame.Payload)
		case protocol.FrameControl:
			s.handleControlFrame(frame.Payload)
		default:
			s.protocolError("frame", &ProtocolError{Kind: "frame", Err: protocol.ErrInvalidFrameType})
			s.sendError(protocol.NewError(protocol.ErrInvalidFrame, "unexpected "+frame.Type.String()+" frame"))
		}
	}
}

func (s *Session) handleEventFrame(payload []byte) {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.protocolError("event", err)
		s.sendError(protocol.NewError(protocol.ErrInvalidEvent, "invalid event"))
		return
	}
	s.recvSeq.Store(ev.Seq)

	if err := s.QueueEvent(ev); err != nil {
		s.protocolError("rate_limit", err)
		s.sendError(protocol.NewError(protocol.ErrRateLimited, "event queue full"))
	}
}

func (s *Session) handleControlFrame(payload []byte) {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.protocolError("control", err)
		return
	}

	switch c.Type {
	case protocol.ControlPing:
		s.writeFrame(protocol.NewFrame(protocol.FrameControl,
			protocol.EncodeControl(protocol.NewPong(c.Timestamp))))
	case protocol.ControlPong:
		s.logger.Debug("received pong")
	case protocol.ControlClose:
		s.logger.Info("client closing", "reason", c.Reason, "message", c.Message)
		s.Close()
	}
}

// WriteLoop sends heartbeat pings until the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping := protocol.NewPing(uint64(time.Now().UnixMilli()))
			if err := s.writeFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ping))); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// EventLoop applies client events and dispatched updates, flushing the
// resulting commands after each one. It is the only goroutine that drives
// the session's Sync.
func (s *Session) EventLoop() {
	defer s.finish()

	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case fn := <-s.dispatchCh:
			s.runDispatch(fn)
			s.flushCommands(0)
		case <-s.done:
			return
		}
	}
}

func (s *Session) handleEvent(ev *protocol.Event) {
	switch ev.Type {
	case protocol.EventHashChange:
		s.browser.HandleHashChange(ev.Hash)
		s.flushCommands(0)
	case protocol.EventIdle:
		if s.doc.markIdle() {
			s.flushCommands(protocol.FlagFlushed)
		}
	}
}

// flushCommands sends the commands queued on the browser, splitting them
// into frames of at most protocol.MaxCommandCount commands.
func (s *Session) flushCommands(flags protocol.FrameFlags) {
	cmds := s.browser.Drain()
	for len(cmds) > 0 {
		n := min(len(cmds), protocol.MaxCommandCount)
		cf := &protocol.CommandsFrame{
			Seq:      s.sendSeq.Add(1),
			Commands: cmds[:n],
		}
		cmds = cmds[n:]

		frame := protocol.NewFrame(protocol.FrameCommands, protocol.EncodeCommands(cf))
		frame.Flags = flags
		if err := s.writeFrame(frame); err != nil {
			return
		}
	}
}

func (s *Session) sendError(em *protocol.ErrorMessage) {
	s.writeFrame(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)))
}

// SendClose sends a close control message to the client.
func (s *Session) SendClose(reason protocol.CloseReason, message string) {
	s.writeFrame(protocol.NewFrame(protocol.FrameControl,
		protocol.EncodeControl(protocol.NewClose(reason, message))))
}

func (s *Session) writeFrame(f *protocol.Frame) error {
	if len(f.Payload) > protocol.MaxPayloadSize {
		s.logger.Error("frame too large", "type", f.Type, "size", len(f.Payload))
		return protocol.ErrFrameTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, f.Encode()); err != nil {
		s.logger.Error("write error", "error", err)
		go s.Close()
		return err
	}
	return nil
}
