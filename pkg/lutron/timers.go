package lutron

import (
	"context"
	"time"
)

// armIdleTimerLocked replaces any pending idle timer with a fresh one.
// Requires mu.
//
// A timer that already fired may be blocked on mu while it is replaced;
// the sequence number tells it that it lost the race.
func (s *Session) armIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleSeq++
	seq := s.idleSeq
	s.idleTimer = time.AfterFunc(s.cfg.idleTimeout, func() {
		s.idleExpired(seq)
	})
	s.logger.Debug("idle timer reset", "timeout", s.cfg.idleTimeout)
}

// stopIdleTimerLocked requires mu.
func (s *Session) stopIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.idleSeq++
}

func (s *Session) idleExpired(seq uint64) {
	closed := s.teardown(func() bool {
		return s.idleSeq == seq && s.connected
	})
	if closed {
		s.logger.Info("auto-disconnected after inactivity", "timeout", s.cfg.idleTimeout)
		return
	}
	s.logger.Debug("stale idle timer ignored")
}

// startPingLocked restarts the keep-alive loop. Requires mu.
func (s *Session) startPingLocked() {
	s.stopPingLocked()
	if !s.connected || s.closed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.pingCancel = cancel
	s.bg.Add(1)
	go s.pingLoop(ctx)
	s.logger.Debug("ping timer reset", "interval", s.cfg.pingInterval)
}

// stopPingLocked requires mu.
func (s *Session) stopPingLocked() {
	if s.pingCancel != nil {
		s.pingCancel()
		s.pingCancel = nil
	}
}

// pingLoop probes the hub every ping interval while connected. It never
// touches the idle timer, so an otherwise idle session still times out.
func (s *Session) pingLoop(ctx context.Context) {
	defer s.bg.Done()

	t := time.NewTimer(s.cfg.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		if !s.IsConnected() {
			return
		}
		s.ping(ctx)
		t.Reset(s.cfg.pingInterval)
	}
}

// ping queries the current ping zone directly on the connection. Failures
// are logged at debug level and never disconnect; only the idle timer and
// the command path may close the connection.
func (s *Session) ping(ctx context.Context) {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()

	// Superseded by a command or a disconnect while waiting for the lock.
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	conn, reader, log := s.conn, s.reader, s.connLog
	s.mu.Unlock()
	if conn == nil {
		return
	}

	command, err := QueryLevelCommand(s.PingZone())
	if err != nil {
		log.Debug("invalid ping zone", "error", err)
		return
	}

	log.Debug("sending ping", "command", command)

	resp, err := s.exchange(ctx, conn, reader, command)
	if err != nil {
		log.Debug("error sending ping", "error", err)
		return
	}

	level, err := ParseLevel(resp)
	if err != nil {
		log.Debug("ping received no valid response", "response", resp, "error", err)
		return
	}
	log.Debug("ping response", "zone", level.Zone, "level", level.Value)
}
