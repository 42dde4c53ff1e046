package hsi

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type fakeServer struct {
	mu         sync.Mutex
	calls      []string
	header     waveformHeader
	chunks     [][]byte
	connectSts int64
}

func (f *fakeServer) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeServer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeServer) status(name string) func(context.Context, *connect.Request[connectRequest]) (*connect.Response[connectReply], error) {
	return func(_ context.Context, req *connect.Request[connectRequest]) (*connect.Response[connectReply], error) {
		f.record(name + ":" + req.Msg.Name)
		st := statusSuccess
		if name == "connect" && f.connectSts != 0 {
			st = f.connectSts
		}
		return connect.NewResponse(&connectReply{Status: st}), nil
	}
}

func startFakeServer(t *testing.T, f *fakeServer) (string, Config) {
	t.Helper()
	opt := connect.WithCodec(codec{})
	mux := http.NewServeMux()
	mux.Handle(connectProcedure, connect.NewUnaryHandler(connectProcedure, f.status("connect"), opt))
	mux.Handle(disconnectProcedure, connect.NewUnaryHandler(disconnectProcedure, f.status("disconnect"), opt))
	mux.Handle(waitForDataAccessProcedure, connect.NewUnaryHandler(waitForDataAccessProcedure, f.status("wait"), opt))
	mux.Handle(finishedWithDataAccessProcedure, connect.NewUnaryHandler(finishedWithDataAccessProcedure, f.status("finished"), opt))
	mux.Handle(getHeaderProcedure, connect.NewUnaryHandler(getHeaderProcedure,
		func(_ context.Context, req *connect.Request[waveformRequest]) (*connect.Response[waveformHeader], error) {
			f.record("header:" + req.Msg.SourceName)
			h := f.header
			return connect.NewResponse(&h), nil
		}, opt))
	mux.Handle(getWaveformProcedure, connect.NewServerStreamHandler(getWaveformProcedure,
		func(_ context.Context, req *connect.Request[waveformRequest], stream *connect.ServerStream[rawReply]) error {
			f.record("waveform:" + req.Msg.SourceName)
			for _, c := range f.chunks {
				if err := stream.Send(&rawReply{HeaderOrData: c}); err != nil {
					return err
				}
			}
			return nil
		}, opt))

	srv := httptest.NewServer(h2c.NewHandler(mux, &http2.Server{}))
	t.Cleanup(srv.Close)

	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, Config{Port: p, ClientName: "tester", Timeout: 2 * time.Second}
}

func int16Chunk(vals ...int16) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

func TestSessionFetchesInt16Waveform(t *testing.T) {
	f := &fakeServer{
		header: waveformHeader{
			SourceName:          "ch1",
			SourceWidth:         2,
			WfmType:             wfmTypeAnalog16,
			HasData:             true,
			HorizontalSpacing:   1e-6,
			HorizontalZeroIndex: 2,
			VerticalSpacing:     0.5,
			VerticalOffset:      1,
			VerticalUnits:       "V",
			HorizontalUnits:     "s",
			NoOfSamples:         5,
		},
		chunks: [][]byte{int16Chunk(-2, 0), int16Chunk(2, 4, 6)},
	}
	addr, cfg := startFakeServer(t, f)

	conn, err := NewConnector(addr, cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := conn.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.WaitForDataAccess(ctx))
	wf, err := sess.Waveform(ctx, "ch1")
	require.NoError(t, err)
	require.NoError(t, sess.FinishedWithDataAccess(ctx))
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	require.Equal(t, 5, wf.Len())
	require.Equal(t, "s", wf.HorizontalUnits())
	require.Equal(t, "V", wf.VerticalUnits())
	require.Equal(t, []float64{0, 1, 2, 3, 4}, wf.NormalizedVertical())
	x := wf.NormalizedHorizontal()
	require.InDelta(t, -2e-6, x[0], 1e-15)
	require.InDelta(t, 0, x[2], 1e-15)

	require.Equal(t, []string{
		"connect:tester", "wait:tester", "header:ch1", "waveform:ch1", "finished:tester", "disconnect:tester",
	}, f.Calls())
}

func TestSessionNoData(t *testing.T) {
	f := &fakeServer{header: waveformHeader{SourceName: "ch2", SourceWidth: 1}}
	addr, cfg := startFakeServer(t, f)
	conn, err := NewConnector(addr, cfg)
	require.NoError(t, err)

	sess, err := conn.Connect(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Waveform(context.Background(), "ch2")
	require.ErrorIs(t, err, ErrNoData)
	for _, c := range f.Calls() {
		require.NotEqual(t, "waveform:ch2", c, "stream must not be requested without data")
	}
}

func TestSessionRejectsOversizedHeader(t *testing.T) {
	headers := []waveformHeader{
		{SourceName: "ch1", HasData: true, SourceWidth: 2, NoOfSamples: 1 << 62},
		{SourceName: "ch1", HasData: true, SourceWidth: 1, NoOfSamples: 1 << 40},
		{SourceName: "ch1", HasData: true, SourceWidth: 2, NoOfSamples: -5},
		{SourceName: "ch1", HasData: true, SourceWidth: 3, NoOfSamples: 10},
	}
	for _, h := range headers {
		f := &fakeServer{header: h, chunks: [][]byte{int16Chunk(1, 2)}}
		addr, cfg := startFakeServer(t, f)
		conn, err := NewConnector(addr, cfg)
		require.NoError(t, err)
		sess, err := conn.Connect(context.Background())
		require.NoError(t, err)

		_, err = sess.Waveform(context.Background(), "ch1")
		require.Error(t, err, "header %+v", h)
		require.NotContains(t, f.Calls(), "waveform:ch1", "stream must not be requested for header %+v", h)
		require.NoError(t, sess.Close())
	}
}

func TestCheckRecordSize(t *testing.T) {
	require.NoError(t, checkRecordSize(0, 2))
	require.NoError(t, checkRecordSize(maxRecordBytes/4, 4))
	require.Error(t, checkRecordSize(maxRecordBytes/4+1, 4))
	require.Error(t, checkRecordSize(10, 0))
}

func TestConnectRejected(t *testing.T) {
	f := &fakeServer{connectSts: statusInUse}
	addr, cfg := startFakeServer(t, f)
	conn, err := NewConnector(addr, cfg)
	require.NoError(t, err)

	_, err = conn.Connect(context.Background())
	require.ErrorIs(t, err, ErrConnectRejected)
	require.Contains(t, err.Error(), "inuse failure")
}

func TestClosedSession(t *testing.T) {
	addr, cfg := startFakeServer(t, &fakeServer{})
	conn, err := NewConnector(addr, cfg)
	require.NoError(t, err)
	sess, err := conn.Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	require.True(t, errors.Is(sess.WaitForDataAccess(context.Background()), ErrClosed))
	_, err = sess.Waveform(context.Background(), "ch1")
	require.ErrorIs(t, err, ErrClosed)
}

func TestDecodeSamples(t *testing.T) {
	got, err := decodeSamples([]byte{0xff, 0x7f, 0x80}, 1)
	require.NoError(t, err)
	require.Equal(t, []float64{-1, 127, -128}, got)

	f := make([]byte, 8)
	binary.LittleEndian.PutUint32(f, math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(f[4:], math.Float32bits(-0.25))
	got, err = decodeSamples(f, 4)
	require.NoError(t, err)
	require.Equal(t, []float64{1.5, -0.25}, got)

	_, err = decodeSamples([]byte{1, 2, 3}, 2)
	require.Error(t, err)
	_, err = decodeSamples(nil, 8)
	require.Error(t, err)
}

func TestMessageRoundTripSkipsUnknownFields(t *testing.T) {
	h := waveformHeader{SourceName: "ch3", HasData: true, HorizontalSpacing: 2.5, NoOfSamples: 7}
	b, err := h.marshal()
	require.NoError(t, err)
	b = append(b, 0xa8, 0x01, 0x05) // field 21, varint 5
	var got waveformHeader
	require.NoError(t, got.unmarshal(b))
	require.Equal(t, h, got)
}

func TestSchemaDeclaresProcedures(t *testing.T) {
	require.Equal(t, "/tekscope_hsi.Connect/WaitForDataAccess", waitForDataAccessProcedure)
	require.Equal(t, "/tekscope_hsi.NativeData/GetWaveform", getWaveformProcedure)
	require.True(t, schema.Services().ByName("NativeData").Methods().ByName("GetWaveform").IsStreamingServer())
	require.Panics(t, func() { procedure("Connect", "Reset") })
	require.Panics(t, func() { newRecord("Missing") })
}

func TestStatusText(t *testing.T) {
	require.Equal(t, "success", statusText(statusSuccess))
	require.Equal(t, "outside sequence failure", statusText(statusOutsideSequence))
	require.Equal(t, "status 42", statusText(42))
}

func TestConnectorConfig(t *testing.T) {
	_, err := NewConnector("", Config{})
	require.Error(t, err)
	_, err = NewConnector("scope", Config{Port: 70000})
	require.Error(t, err)

	cfg := Config{}
	cfg.ApplyDefaults()
	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, "scopeplot", cfg.ClientName)
}
