package hsi

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"

	"github.com/abruno-tek/Oscope-automation/internal/domain"
	"github.com/abruno-tek/Oscope-automation/internal/ports"
)

var (
	connectProcedure                = procedure("Connect", "Connect")
	disconnectProcedure             = procedure("Connect", "Disconnect")
	waitForDataAccessProcedure      = procedure("Connect", "WaitForDataAccess")
	finishedWithDataAccessProcedure = procedure("Connect", "FinishedWithDataAccess")
	getHeaderProcedure              = procedure("NativeData", "GetHeader")
	getWaveformProcedure            = procedure("NativeData", "GetWaveform")
)

var (
	// ErrConnectRejected is returned when the server refuses a session request.
	ErrConnectRejected = errors.New("hsi: request rejected")
	// ErrNoData is returned when the requested source holds no acquisition.
	ErrNoData = errors.New("hsi: source has no data")
	// ErrClosed is returned for calls on a session after Close.
	ErrClosed = errors.New("hsi: session closed")
)

// Config captures the high-speed interface endpoint details.
type Config struct {
	Port       int           `yaml:"port"`
	ClientName string        `yaml:"client_name"`
	ChunkSize  int           `yaml:"chunk_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.ClientName == "" {
		c.ClientName = "scopeplot"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 80_000
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	return nil
}

// Connector opens sessions against the instrument's transfer server.
type Connector struct {
	cfg     Config
	baseURL string
	client  *http.Client
}

func NewConnector(address string, cfg Config) (*Connector, error) {
	if address == "" {
		return nil, errors.New("address is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Connector{
		cfg:     cfg,
		baseURL: "http://" + net.JoinHostPort(address, strconv.Itoa(cfg.Port)),
		client:  newH2CClient(cfg.Timeout),
	}, nil
}

// newH2CClient speaks HTTP/2 with prior knowledge over plain TCP, which is
// what the instrument's gRPC server expects.
func newH2CClient(dialTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				d := net.Dialer{Timeout: dialTimeout}
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

func (c *Connector) Connect(ctx context.Context) (ports.TransferSession, error) {
	opts := []connect.ClientOption{connect.WithGRPC(), connect.WithCodec(codec{})}
	s := &Session{
		cfg:          c.cfg,
		http:         c.client,
		connect:      connect.NewClient[connectRequest, connectReply](c.client, c.baseURL+connectProcedure, opts...),
		disconnect:   connect.NewClient[connectRequest, connectReply](c.client, c.baseURL+disconnectProcedure, opts...),
		waitAccess:   connect.NewClient[connectRequest, connectReply](c.client, c.baseURL+waitForDataAccessProcedure, opts...),
		finishAccess: connect.NewClient[connectRequest, connectReply](c.client, c.baseURL+finishedWithDataAccessProcedure, opts...),
		header:       connect.NewClient[waveformRequest, waveformHeader](c.client, c.baseURL+getHeaderProcedure, opts...),
		waveform:     connect.NewClient[waveformRequest, rawReply](c.client, c.baseURL+getWaveformProcedure, opts...),
	}
	if err := s.call(ctx, s.connect, "connect"); err != nil {
		return nil, err
	}
	return s, nil
}

// Session is one registered client of the transfer server.
type Session struct {
	cfg  Config
	http *http.Client

	connect      *connect.Client[connectRequest, connectReply]
	disconnect   *connect.Client[connectRequest, connectReply]
	waitAccess   *connect.Client[connectRequest, connectReply]
	finishAccess *connect.Client[connectRequest, connectReply]
	header       *connect.Client[waveformRequest, waveformHeader]
	waveform     *connect.Client[waveformRequest, rawReply]

	mu     sync.Mutex
	closed bool

	closeOnce sync.Once
	closeErr  error
}

func (s *Session) WaitForDataAccess(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.call(ctx, s.waitAccess, "wait for data access")
}

func (s *Session) FinishedWithDataAccess(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.call(ctx, s.finishAccess, "finished with data access")
}

// Waveform fetches the header and the sample stream for source.
func (s *Session) Waveform(ctx context.Context, source string) (*domain.AnalogWaveform, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	req := &waveformRequest{SourceName: source, ChunkSize: int64(s.cfg.ChunkSize)}

	hres, err := s.header.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, fmt.Errorf("hsi get header %s: %w", source, err)
	}
	hdr := hres.Msg
	if !hdr.HasData {
		return nil, fmt.Errorf("%w: %s", ErrNoData, source)
	}
	switch hdr.WfmType {
	case wfmTypeUnspecified, wfmTypeAnalog8, wfmTypeAnalog16, wfmTypeAnalogFloat:
	default:
		return nil, fmt.Errorf("hsi %s: unsupported waveform type %d", source, hdr.WfmType)
	}
	if err := checkRecordSize(hdr.NoOfSamples, hdr.SourceWidth); err != nil {
		return nil, fmt.Errorf("hsi %s: %w", source, err)
	}

	stream, err := s.waveform.CallServerStream(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, fmt.Errorf("hsi get waveform %s: %w", source, err)
	}
	defer stream.Close()

	var data []byte
	if hdr.NoOfSamples > 0 {
		data = make([]byte, 0, min(hdr.NoOfSamples*hdr.SourceWidth, maxPrealloc))
	}
	for stream.Receive() {
		chunk := stream.Msg().HeaderOrData
		if int64(len(data))+int64(len(chunk)) > maxRecordBytes {
			return nil, fmt.Errorf("hsi %s: record exceeds %d bytes", source, int64(maxRecordBytes))
		}
		data = append(data, chunk...)
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("hsi get waveform %s: %w", source, err)
	}

	raw, err := decodeSamples(data, hdr.SourceWidth)
	if err != nil {
		return nil, fmt.Errorf("hsi %s: %w", source, err)
	}
	if hdr.NoOfSamples > 0 && int64(len(raw)) != hdr.NoOfSamples {
		return nil, fmt.Errorf("hsi %s: received %d samples, header announced %d", source, len(raw), hdr.NoOfSamples)
	}

	return domain.NewAnalogWaveform(domain.WaveformParams{
		Source:              hdr.SourceName,
		HorizontalSpacing:   hdr.HorizontalSpacing,
		HorizontalZeroIndex: hdr.HorizontalZeroIndex,
		VerticalSpacing:     hdr.VerticalSpacing,
		VerticalOffset:      hdr.VerticalOffset,
		HorizontalUnits:     hdr.HorizontalUnits,
		VerticalUnits:       hdr.VerticalUnits,
	}, raw)
}

// Close unregisters the client and drops idle connections. Safe to call
// more than once; only the first call talks to the server.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		s.closeErr = s.call(ctx, s.disconnect, "disconnect")
		s.http.CloseIdleConnections()
	})
	return s.closeErr
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) call(ctx context.Context, client *connect.Client[connectRequest, connectReply], op string) error {
	res, err := client.CallUnary(ctx, connect.NewRequest(&connectRequest{Name: s.cfg.ClientName}))
	if err != nil {
		return fmt.Errorf("hsi %s: %w", op, err)
	}
	if res.Msg.Status != statusSuccess {
		return fmt.Errorf("%w: %s: %s", ErrConnectRejected, op, statusText(res.Msg.Status))
	}
	return nil
}

// maxRecordBytes bounds one transferred record. The largest analog record
// the instruments produce is 1G points of 8-bit data.
const maxRecordBytes = 1 << 30

// Larger records grow the buffer as chunks arrive.
const maxPrealloc = 64 << 20

// checkRecordSize validates the header fields that size the receive buffer.
func checkRecordSize(samples, width int64) error {
	if width != 1 && width != 2 && width != 4 {
		return fmt.Errorf("unsupported sample width %d", width)
	}
	if samples < 0 || samples > maxRecordBytes/width {
		return fmt.Errorf("header announces %d samples of %d bytes, limit is %d bytes", samples, width, int64(maxRecordBytes))
	}
	return nil
}

// decodeSamples converts little-endian digitizer words to float64.
func decodeSamples(b []byte, width int64) ([]float64, error) {
	if width != 1 && width != 2 && width != 4 {
		return nil, fmt.Errorf("unsupported sample width %d", width)
	}
	if len(b)%int(width) != 0 {
		return nil, fmt.Errorf("payload of %d bytes is not a multiple of sample width %d", len(b), width)
	}
	out := make([]float64, len(b)/int(width))
	for i := range out {
		switch width {
		case 1:
			out[i] = float64(int8(b[i]))
		case 2:
			out[i] = float64(int16(binary.LittleEndian.Uint16(b[2*i:])))
		case 4:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
		}
	}
	return out, nil
}

var (
	_ ports.TransferSession   = (*Session)(nil)
	_ ports.TransferConnector = (*Connector)(nil)
)
