// Package service wires the HDLC protocol core to a physical transport
// and a link-state mirror, and runs either the primary or secondary
// session loop. Grounded on the teacher's pkg/service/service.go (Service
// struct shape) and cmd/bluetooth-service/main.go's wiring sequence.
package service

import (
	"context"
	"log"
	"time"

	"github.com/librescoot/hdlc-link/pkg/hdlc"
	"github.com/librescoot/hdlc-link/pkg/linkstate"
)

// Role selects which end of the link this process plays.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// Config holds the parameters needed to run a session over a transport.
type Config struct {
	Role          Role
	PrimaryAddr   byte
	SecondaryAddr byte
	PipeCapacity  int
	ResponseWait  time.Duration
	// TestInterval is how often the primary role issues a link test while
	// idle-connected. Zero disables periodic testing.
	TestInterval time.Duration
}

// DefaultConfig returns sane defaults, matching spec.md §4.4's 2-second
// response timeout and a generous pipe capacity for typical frame sizes.
func DefaultConfig(role Role) Config {
	return Config{
		Role:          role,
		PrimaryAddr:   0x01,
		SecondaryAddr: 0x01,
		PipeCapacity:  1024,
		ResponseWait:  2 * time.Second,
		TestInterval:  5 * time.Second,
	}
}

// Service owns the IO core, the session for the configured role, and the
// link-state mirror, and drives the role's run loop until Stop is called
// or its context is cancelled.
type Service struct {
	cfg  Config
	io   *hdlc.IO
	link *linkstate.Client

	primary   *hdlc.PrimarySession
	secondary *hdlc.SecondarySession

	stopCh chan struct{}
}

// New constructs a Service bound to transport (typically a *serialport.Port)
// and an optional link-state mirror (nil disables mirroring).
func New(cfg Config, transport hdlc.Transport, link *linkstate.Client) *Service {
	io := hdlc.NewIO(cfg.PipeCapacity, transport)
	io.SetResponseTimeout(cfg.ResponseWait)
	io.Logger = func(format string, args ...interface{}) { log.Printf(format, args...) }

	svc := &Service{cfg: cfg, io: io, link: link, stopCh: make(chan struct{})}

	switch cfg.Role {
	case RolePrimary:
		svc.primary = hdlc.NewPrimarySession(io, cfg.PrimaryAddr, cfg.SecondaryAddr)
	default:
		svc.secondary = hdlc.NewSecondarySession(io, cfg.PrimaryAddr, cfg.SecondaryAddr)
		svc.secondary.AnswerInformation()
	}

	return svc
}

// Stop signals the run loop to exit.
func (s *Service) Stop() { close(s.stopCh) }

// Run starts the IO pumps and drives the configured role's session loop
// until ctx is cancelled or Stop is called.
func (s *Service) Run(ctx context.Context) error {
	s.io.Start()
	defer s.io.Close()

	if s.primary != nil {
		return s.runPrimary(ctx)
	}
	return s.runSecondary(ctx)
}

func (s *Service) runPrimary(ctx context.Context) error {
	lastStatus := hdlc.Disconnected
	s.mirrorStatus(lastStatus)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastTest time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
		}

		if !s.primary.Connected() {
			if status := s.primary.Connect(); status == hdlc.Success {
				log.Printf("hdlc: connected")
			}
		} else if s.cfg.TestInterval > 0 && time.Since(lastTest) >= s.cfg.TestInterval {
			lastTest = time.Now()
			if status := s.primary.Test(); status != hdlc.Success {
				log.Printf("hdlc: link test failed: %s", status)
			}
		}

		if status := s.primary.Status(); status != lastStatus {
			lastStatus = status
			s.mirrorStatus(lastStatus)
		}
		s.mirrorSequences(s.primary.Status())
	}
}

func (s *Service) runSecondary(ctx context.Context) error {
	lastStatus := hdlc.Disconnected
	s.mirrorStatus(lastStatus)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}

		status := s.secondary.Run()
		if status != lastStatus {
			lastStatus = status
			log.Printf("hdlc: status changed to %s", status)
			s.mirrorStatus(status)
		}
	}
}

func (s *Service) mirrorStatus(status hdlc.ConnectionStatus) {
	if s.link == nil {
		return
	}
	if err := s.link.WriteStatus(status); err != nil {
		log.Printf("hdlc: failed to mirror status: %v", err)
	}
}

func (s *Service) mirrorSequences(status hdlc.ConnectionStatus) {
	if s.link == nil || status != hdlc.Connected {
		return
	}
	if err := s.link.WriteSequences(s.primary.SendSeq(), s.primary.RecvSeq()); err != nil {
		log.Printf("hdlc: failed to mirror sequences: %v", err)
	}
}

// SendInformation is a convenience that performs a primary-role
// information exchange and mirrors the resulting frame and sequence
// state, for callers (e.g. the CLI) driving ad hoc sends.
func (s *Service) SendInformation(payload []byte) (hdlc.Frame, hdlc.StatusError) {
	resp, status := s.primary.SendInformation(payload)
	if s.link != nil {
		if err := s.link.WriteFrame("rx", resp); err != nil {
			log.Printf("hdlc: failed to mirror frame: %v", err)
		}
	}
	s.mirrorSequences(s.primary.Status())
	return resp, status
}
