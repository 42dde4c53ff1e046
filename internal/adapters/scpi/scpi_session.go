package scpi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

// ErrClosed is returned for I/O on a session after Close.
var ErrClosed = errors.New("scpi: session closed")

// Config captures the raw socket details of the instrument's command port.
type Config struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 4000
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}

// Connector dials the instrument's SCPI socket server.
type Connector struct {
	address string
	cfg     Config
}

func NewConnector(address string, cfg Config) (*Connector, error) {
	if address == "" {
		return nil, errors.New("address is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Connector{address: address, cfg: cfg}, nil
}

// Endpoint is the host:port the connector dials.
func (c *Connector) Endpoint() string {
	return net.JoinHostPort(c.address, strconv.Itoa(c.cfg.Port))
}

func (c *Connector) Connect(ctx context.Context) (ports.ControlSession, error) {
	d := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", c.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("scpi dial %s: %w", c.Endpoint(), err)
	}
	return NewSession(conn, c.cfg.Timeout), nil
}

// Session is a newline-terminated SCPI exchange over one connection.
type Session struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// NewSession wraps an established connection. timeout bounds each
// operation whose context carries no deadline.
func NewSession(conn net.Conn, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Session{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}
}

func (s *Session) Write(ctx context.Context, cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	stop := s.bind(ctx)
	defer stop()
	if err := s.writeLocked(cmd); err != nil {
		return s.ioErr(ctx, "write", cmd, err)
	}
	return nil
}

func (s *Session) Query(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	stop := s.bind(ctx)
	defer stop()
	if err := s.writeLocked(cmd); err != nil {
		return "", s.ioErr(ctx, "write", cmd, err)
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", s.ioErr(ctx, "read", cmd, err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) writeLocked(cmd string) error {
	_, err := io.WriteString(s.conn, cmd+"\n")
	return err
}

// bind applies the context deadline (or the session timeout) to the
// connection and interrupts blocked I/O when ctx is cancelled.
func (s *Session) bind(ctx context.Context) func() {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.timeout)
	}
	_ = s.conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(time.Unix(1, 0))
	})
	return func() { stop() }
}

func (s *Session) ioErr(ctx context.Context, op, cmd string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		err = context.DeadlineExceeded
	}
	return fmt.Errorf("scpi %s %q: %w", op, cmd, err)
}

var (
	_ ports.ControlSession   = (*Session)(nil)
	_ ports.ControlConnector = (*Connector)(nil)
)
