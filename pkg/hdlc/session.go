package hdlc

import "sync"

// linkIdentity is the state shared by PrimarySession and SecondarySession:
// the two fixed addresses, the connection status (with its coercing
// setter), and the send/receive sequence counters. Grounded on
// original_source/hdlc/include/hdlc/session.h, where both session roles
// inherit from a common Session base; here expressed as struct embedding
// since Go has no class inheritance.
type linkIdentity struct {
	mu sync.Mutex

	primary   byte
	secondary byte
	status    ConnectionStatus
	sendSeq   byte
	recvSeq   byte
}

func newLinkIdentity(primary, secondary byte) linkIdentity {
	return linkIdentity{primary: primary, secondary: secondary}
}

// Primary returns the primary station's address.
func (l *linkIdentity) Primary() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.primary
}

// Secondary returns the secondary station's address.
func (l *linkIdentity) Secondary() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.secondary
}

// Status returns the current connection status.
func (l *linkIdentity) Status() ConnectionStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Connected reports whether the link is in the Connected state.
func (l *linkIdentity) Connected() bool {
	return l.Status() == Connected
}

// setStatus applies the coercing setter from spec.md §4.7/§9: only
// Connecting and Connected may be set explicitly; any other value
// (including Disconnected itself) is coerced to Disconnected and both
// sequence counters are reset to 0.
func (l *linkIdentity) setStatus(status ConnectionStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch status {
	case Connecting, Connected:
		l.status = status
	default:
		l.status = Disconnected
		l.sendSeq = 0
		l.recvSeq = 0
	}
}

// disconnect transitions to Disconnected via the coercing setter.
func (l *linkIdentity) disconnect() { l.setStatus(Disconnected) }

// SendSeq returns the current N(S) counter, for diagnostics/mirroring.
func (l *linkIdentity) SendSeq() byte { return l.currentSendSeq() }

// RecvSeq returns the current N(R) counter, for diagnostics/mirroring.
func (l *linkIdentity) RecvSeq() byte { return l.currentRecvSeq() }

func (l *linkIdentity) currentSendSeq() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sendSeq
}

func (l *linkIdentity) currentRecvSeq() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recvSeq
}

func (l *linkIdentity) advanceSendSeq() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendSeq = (l.sendSeq + 1) & 0x07
}

func (l *linkIdentity) advanceRecvSeq() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recvSeq = (l.recvSeq + 1) & 0x07
}
