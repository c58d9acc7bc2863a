package hdlc

// HandlerFunc reacts to an incoming command frame and produces a
// response frame. Returning a non-Success StatusError disconnects the
// session; returning a frame whose Type() is UNSET suppresses the reply
// (spec.md §4.6).
type HandlerFunc func(s *SecondarySession, cmd Frame) (Frame, StatusError)

// SecondarySession is the secondary/client role (C5): a reactive
// dispatcher that answers only when polled by the primary. Grounded on
// original_source/hdlc/include/hdlc/snrm_session_client.h.
type SecondarySession struct {
	linkIdentity
	io       *IO
	handlers map[FrameType]HandlerFunc
}

// NewSecondarySession constructs a secondary session bound to io, with
// the given primary (peer's) and secondary (this station's) addresses.
// The SNRM and TEST default handlers are installed automatically.
func NewSecondarySession(io *IO, primaryAddr, secondaryAddr byte) *SecondarySession {
	s := &SecondarySession{
		linkIdentity: newLinkIdentity(primaryAddr, secondaryAddr),
		io:           io,
		handlers:     make(map[FrameType]HandlerFunc),
	}
	s.InstallHandler(SNRM, defaultSNRMHandler)
	s.InstallHandler(TEST, defaultTESTHandler)
	return s
}

// InstallHandler registers (or replaces) the handler for an incoming
// frame type.
func (s *SecondarySession) InstallHandler(typ FrameType, handler HandlerFunc) {
	s.handlers[typ] = handler
}

// UninstallHandler removes a registered handler, falling back to
// defaultHandler for that type.
func (s *SecondarySession) UninstallHandler(typ FrameType) {
	delete(s.handlers, typ)
}

// handle dispatches cmd to the appropriate handler per spec.md §4.6: if
// disconnected and cmd is not SNRM, reply SARM_DM without consulting the
// handler map; otherwise look up (or default) a handler.
func (s *SecondarySession) handle(cmd Frame) (Frame, StatusError) {
	if !s.Connected() && cmd.Type() != SNRM {
		return NewFrame(SARM_DM, s.Secondary(), true), Success
	}
	if h, ok := s.handlers[cmd.Type()]; ok {
		return h(s, cmd)
	}
	return defaultHandler(s, cmd)
}

// Run executes a single step: receive one frame (bounded by the IO
// core's response timeout), and if addressed to this station's primary,
// dispatch it. It returns the resulting connection status. A handler
// failure (non-Success StatusError) disconnects the session; a reply
// whose type is UNSET is not sent.
func (s *SecondarySession) Run() ConnectionStatus {
	cmd, ok := s.io.RecvFrame()
	if !ok {
		return s.Status()
	}
	if cmd.Address() != s.Primary() {
		return s.Status()
	}

	resp, status := s.handle(cmd)
	switch status {
	case Success:
		if !resp.IsUnset() {
			s.io.SendFrame(resp)
		}
	default:
		s.disconnect()
	}
	return s.Status()
}

// defaultHandler is used when no handler is installed for an incoming
// frame type.
func defaultHandler(s *SecondarySession, cmd Frame) (Frame, StatusError) {
	_ = s
	_ = cmd
	return Frame{}, InvalidRequest
}

// defaultSNRMHandler transitions the session to Connected and replies
// UA(final=true).
func defaultSNRMHandler(s *SecondarySession, cmd Frame) (Frame, StatusError) {
	_ = cmd
	s.setStatus(Connected)
	return NewFrame(UA, s.Secondary(), true), Success
}

// defaultTESTHandler echoes the TEST frame's payload back unchanged.
func defaultTESTHandler(s *SecondarySession, cmd Frame) (Frame, StatusError) {
	return NewPayloadFrame(TEST, s.Secondary(), true, append([]byte(nil), cmd.Payload()...)), Success
}

// AnswerInformation installs a handler that replies to every Information
// frame with a bare UA, setting this station's recv_seq to the peer's
// N(S)+1, the next sequence number it expects (the mirror of
// PrimarySession's N(R) tracking). It is a
// convenience for hosts that just want to acknowledge inbound data
// without writing a custom handler.
func (s *SecondarySession) AnswerInformation() {
	s.InstallHandler(I, func(s *SecondarySession, cmd Frame) (Frame, StatusError) {
		s.linkIdentity.mu.Lock()
		s.linkIdentity.recvSeq = (cmd.SendSeq() + 1) & 0x07
		s.linkIdentity.mu.Unlock()
		return NewFrame(UA, s.Secondary(), true), Success
	})
}
