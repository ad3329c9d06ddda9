package scale

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"weighstation/internal/logger"
)

// Options tunes one channel controller. Zero fields fall back to the
// defaults below, which match the deployed station.
type Options struct {
	BaudRate            int
	ReconnectAttempts   int
	ReconnectDelay      time.Duration
	ReadAttempts        int
	ReadDelay           time.Duration
	ValidationThreshold float64 // kg
	ValidationRetries   int

	// Seams for tests; default to the real serial opener, os.Stat and
	// time.Sleep.
	Open   Opener
	Exists func(path string) bool
	Sleep  func(d time.Duration)
}

const (
	defaultBaudRate            = 9600
	defaultReconnectAttempts   = 5
	defaultReconnectDelay      = 5 * time.Second
	defaultReadAttempts        = 5
	defaultReadDelay           = 200 * time.Millisecond
	defaultValidationThreshold = 0.5
	defaultValidationRetries   = 10
)

func (o Options) withDefaults() Options {
	if o.BaudRate == 0 {
		o.BaudRate = defaultBaudRate
	}
	if o.ReconnectAttempts == 0 {
		o.ReconnectAttempts = defaultReconnectAttempts
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.ReadAttempts == 0 {
		o.ReadAttempts = defaultReadAttempts
	}
	if o.ReadDelay == 0 {
		o.ReadDelay = defaultReadDelay
	}
	if o.ValidationThreshold == 0 {
		o.ValidationThreshold = defaultValidationThreshold
	}
	if o.ValidationRetries == 0 {
		o.ValidationRetries = defaultValidationRetries
	}
	if o.Open == nil {
		o.Open = OpenSerial
	}
	if o.Exists == nil {
		o.Exists = func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return o
}

// Scale owns one physical serial connection and its reading state machine.
// It is not safe for concurrent use; the poll loop reads channels
// sequentially.
type Scale struct {
	port string
	opts Options
	log  *logger.Logger

	conn      Conn
	failed    bool
	lastValid *float64
}

// New builds a controller for the device at port. It does not connect;
// call Connect, or let the first read connect transparently.
func New(port string, opts Options, log *logger.Logger) *Scale {
	return &Scale{port: port, opts: opts.withDefaults(), log: log}
}

// Port returns the device path this controller owns.
func (s *Scale) Port() string { return s.port }

// Failed reports whether the channel exhausted its reconnect budget. It is a
// reporting flag for the poll orchestrator, not a lockout: reads keep trying
// to reconnect regardless.
func (s *Scale) Failed() bool { return s.failed }

// MarkFailed flags the channel for fleet recovery.
func (s *Scale) MarkFailed() { s.failed = true }

// Connect attempts to open the serial device, retrying up to the configured
// attempt cap with a fixed delay. A missing device path counts toward the cap
// and still waits the delay. On exhaustion the channel is flagged failed.
func (s *Scale) Connect() error {
	for attempt := 1; attempt <= s.opts.ReconnectAttempts; attempt++ {
		if !s.opts.Exists(s.port) {
			s.log.Warnw("device does not exist, skipping connection attempt",
				"port", s.port, "attempt", attempt)
			s.opts.Sleep(s.opts.ReconnectDelay)
			continue
		}
		conn, err := s.opts.Open(s.port, s.opts.BaudRate)
		if err != nil {
			s.log.Warnw("error connecting to scale",
				"port", s.port, "attempt", attempt, "err", err)
			s.opts.Sleep(s.opts.ReconnectDelay)
			continue
		}
		s.conn = conn
		s.failed = false
		s.log.Infow("connected to scale", "port", s.port)
		return nil
	}
	s.conn = nil
	s.failed = true
	s.log.Errorw("failed to connect to scale after retries",
		"port", s.port, "attempts", s.opts.ReconnectAttempts)
	return fmt.Errorf("connect %s: exhausted %d attempts", s.port, s.opts.ReconnectAttempts)
}

// reconnect drops the current handle and runs the connect state machine
// again. Used after a mid-read I/O error.
func (s *Scale) reconnect() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	_ = s.Connect()
}

// ReadWeight performs one bounded-retry raw read. Each attempt ensures a
// connection exists, discards stale buffered input so the line reflects the
// current scale state, then reads and decodes one line. Exhausting all
// attempts reports no reading, which callers must treat as a normal outcome
// of noisy hardware.
func (s *Scale) ReadWeight() (float64, bool) {
	for attempt := 1; attempt <= s.opts.ReadAttempts; attempt++ {
		if s.conn == nil {
			s.log.Warnw("serial port not open, reconnecting", "port", s.port)
			if s.Connect() != nil {
				continue
			}
		}
		line, err := s.readOnce()
		if err != nil {
			s.log.Warnw("error reading from scale",
				"port", s.port, "attempt", attempt, "err", err)
			s.reconnect()
			s.opts.Sleep(s.opts.ReadDelay)
			continue
		}
		s.log.Debugw("raw line", "port", s.port, "line", line)
		if w, ok := ParseWeight(line); ok {
			return w, true
		}
		s.opts.Sleep(s.opts.ReadDelay)
	}
	s.log.Errorw("failed to get valid weight after retries", "port", s.port)
	return 0, false
}

func (s *Scale) readOnce() (string, error) {
	if s.conn == nil {
		return "", errors.New("not connected")
	}
	if err := s.conn.ResetInputBuffer(); err != nil {
		return "", err
	}
	return readLine(s.conn)
}

// ValidatedWeight gates a raw read against the previous accepted value. The
// first successful reading is accepted unconditionally and becomes the
// baseline. Afterwards a reading is accepted only when it stays within the
// validation threshold of the baseline; each accepted reading rebases the
// window, so slow true changes pass while spikes are rejected. When every
// retry is out of band the previous baseline is returned unchanged: under
// normal load a scale does not move by more than the threshold within one
// interval, so a stale value beats a gap.
func (s *Scale) ValidatedWeight() (float64, bool) {
	if s.lastValid == nil {
		w, ok := s.ReadWeight()
		if !ok {
			return 0, false
		}
		s.lastValid = &w
		s.log.Infow("initial weight reading", "port", s.port, "kg", w)
		return w, true
	}

	for attempt := 1; attempt <= s.opts.ValidationRetries; attempt++ {
		w, ok := s.ReadWeight()
		if !ok {
			s.log.Warnw("scale returned no reading",
				"port", s.port, "attempt", attempt)
			continue
		}
		diff := math.Abs(w - *s.lastValid)
		if diff <= s.opts.ValidationThreshold {
			s.lastValid = &w
			s.log.Infow("valid weight reading",
				"port", s.port, "kg", w, "diff", diff)
			return w, true
		}
		s.log.Warnw("weight reading too different",
			"port", s.port, "kg", w, "diff", diff,
			"threshold", s.opts.ValidationThreshold)
	}

	s.log.Warnw("using last valid weight after failed validation attempts",
		"port", s.port, "kg", *s.lastValid,
		"attempts", s.opts.ValidationRetries)
	return *s.lastValid, true
}

// Close releases the serial handle. Safe to call when disconnected.
func (s *Scale) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err == nil {
		s.log.Infow("closed serial port", "port", s.port)
	}
	return err
}
