package hsi

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const schemaFile = "tekscope_hsi.proto"

//go:embed tekscope_hsi.proto
var schemaSource string

// schema is compiled from the embedded .proto at init. Field numbers and
// procedure names are declared only there.
var schema = compileSchema()

func compileSchema() protoreflect.FileDescriptor {
	c := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{schemaFile: schemaSource}),
		},
	}
	files, err := c.Compile(context.Background(), schemaFile)
	if err != nil {
		panic(fmt.Sprintf("hsi: compile %s: %v", schemaFile, err))
	}
	return files[0]
}

// procedure returns the gRPC path of service/method, e.g.
// "/tekscope_hsi.Connect/Connect".
func procedure(service, method protoreflect.Name) string {
	sd := schema.Services().ByName(service)
	if sd == nil || sd.Methods().ByName(method) == nil {
		panic(fmt.Sprintf("hsi: %s has no method %s.%s", schemaFile, service, method))
	}
	return "/" + string(sd.FullName()) + "/" + string(method)
}

// Connection status values reported by the Connect service.
const (
	statusUnspecified     int64 = 0
	statusSuccess         int64 = 1
	statusUnknownFailure  int64 = 2
	statusInUse           int64 = 3
	statusNotConnected    int64 = 4
	statusOutsideSequence int64 = 5
	statusTimeout         int64 = 6
)

func statusText(s int64) string {
	v := schema.Enums().ByName("ConnectStatus").Values().ByNumber(protoreflect.EnumNumber(s))
	if v == nil {
		return "status " + strconv.FormatInt(s, 10)
	}
	name := strings.TrimPrefix(string(v.Name()), "CONNECT_STATUS_")
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

// Waveform record types. Only the analog types are decoded.
const (
	wfmTypeUnspecified int64 = 0
	wfmTypeAnalog8     int64 = 1
	wfmTypeAnalog16    int64 = 2
	wfmTypeAnalogFloat int64 = 3
)

// record is a dynamic instance of one schema message.
type record struct {
	msg *dynamicpb.Message
}

func newRecord(name protoreflect.Name) record {
	md := schema.Messages().ByName(name)
	if md == nil {
		panic(fmt.Sprintf("hsi: %s has no message %s", schemaFile, name))
	}
	return record{msg: dynamicpb.NewMessage(md)}
}

func (r record) field(name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := r.msg.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("hsi: %s has no field %s", r.msg.Descriptor().FullName(), name))
	}
	return fd
}

func (r record) set(name protoreflect.Name, v protoreflect.Value) { r.msg.Set(r.field(name), v) }
func (r record) get(name protoreflect.Name) protoreflect.Value    { return r.msg.Get(r.field(name)) }

func (r record) str(name protoreflect.Name) string   { return r.get(name).String() }
func (r record) i64(name protoreflect.Name) int64    { return r.get(name).Int() }
func (r record) f64(name protoreflect.Name) float64  { return r.get(name).Float() }
func (r record) enum(name protoreflect.Name) int64   { return int64(r.get(name).Enum()) }
func (r record) boolean(name protoreflect.Name) bool { return r.get(name).Bool() }

func (r record) marshal() ([]byte, error) { return proto.Marshal(r.msg) }

func decodeRecord(name protoreflect.Name, b []byte) (record, error) {
	r := newRecord(name)
	if err := proto.Unmarshal(b, r.msg); err != nil {
		return record{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return r, nil
}

type connectRequest struct {
	Name string
}

func (m *connectRequest) marshal() ([]byte, error) {
	r := newRecord("ConnectRequest")
	r.set("name", protoreflect.ValueOfString(m.Name))
	return r.marshal()
}

func (m *connectRequest) unmarshal(b []byte) error {
	r, err := decodeRecord("ConnectRequest", b)
	if err != nil {
		return err
	}
	m.Name = r.str("name")
	return nil
}

type connectReply struct {
	Status int64
}

func (m *connectReply) marshal() ([]byte, error) {
	r := newRecord("ConnectReply")
	r.set("status", protoreflect.ValueOfEnum(protoreflect.EnumNumber(m.Status)))
	return r.marshal()
}

func (m *connectReply) unmarshal(b []byte) error {
	r, err := decodeRecord("ConnectReply", b)
	if err != nil {
		return err
	}
	m.Status = r.enum("status")
	return nil
}

type waveformRequest struct {
	SourceName string
	ChunkSize  int64
}

func (m *waveformRequest) marshal() ([]byte, error) {
	r := newRecord("WaveformRequest")
	r.set("sourcename", protoreflect.ValueOfString(m.SourceName))
	r.set("chunksize", protoreflect.ValueOfInt64(m.ChunkSize))
	return r.marshal()
}

func (m *waveformRequest) unmarshal(b []byte) error {
	r, err := decodeRecord("WaveformRequest", b)
	if err != nil {
		return err
	}
	m.SourceName = r.str("sourcename")
	m.ChunkSize = r.i64("chunksize")
	return nil
}

type waveformHeader struct {
	SourceName          string
	SourceWidth         int64
	WfmType             int64
	HasData             bool
	HorizontalSpacing   float64
	HorizontalZeroIndex float64
	VerticalSpacing     float64
	VerticalOffset      float64
	VerticalUnits       string
	HorizontalUnits     string
	NoOfSamples         int64
	DataID              int64
}

func (m *waveformHeader) marshal() ([]byte, error) {
	r := newRecord("WaveformHeader")
	r.set("sourcename", protoreflect.ValueOfString(m.SourceName))
	r.set("sourcewidth", protoreflect.ValueOfInt64(m.SourceWidth))
	r.set("wfmtype", protoreflect.ValueOfEnum(protoreflect.EnumNumber(m.WfmType)))
	r.set("hasdata", protoreflect.ValueOfBool(m.HasData))
	r.set("horizontal_spacing", protoreflect.ValueOfFloat64(m.HorizontalSpacing))
	r.set("horizontal_zero_index", protoreflect.ValueOfFloat64(m.HorizontalZeroIndex))
	r.set("verticalspacing", protoreflect.ValueOfFloat64(m.VerticalSpacing))
	r.set("verticaloffset", protoreflect.ValueOfFloat64(m.VerticalOffset))
	r.set("verticalunits", protoreflect.ValueOfString(m.VerticalUnits))
	r.set("horizontalunits", protoreflect.ValueOfString(m.HorizontalUnits))
	r.set("noofsamples", protoreflect.ValueOfInt64(m.NoOfSamples))
	r.set("dataid", protoreflect.ValueOfInt64(m.DataID))
	return r.marshal()
}

func (m *waveformHeader) unmarshal(b []byte) error {
	r, err := decodeRecord("WaveformHeader", b)
	if err != nil {
		return err
	}
	*m = waveformHeader{
		SourceName:          r.str("sourcename"),
		SourceWidth:         r.i64("sourcewidth"),
		WfmType:             r.enum("wfmtype"),
		HasData:             r.boolean("hasdata"),
		HorizontalSpacing:   r.f64("horizontal_spacing"),
		HorizontalZeroIndex: r.f64("horizontal_zero_index"),
		VerticalSpacing:     r.f64("verticalspacing"),
		VerticalOffset:      r.f64("verticaloffset"),
		VerticalUnits:       r.str("verticalunits"),
		HorizontalUnits:     r.str("horizontalunits"),
		NoOfSamples:         r.i64("noofsamples"),
		DataID:              r.i64("dataid"),
	}
	return nil
}

// rawReply is one chunk of the sample stream.
type rawReply struct {
	HeaderOrData []byte
}

func (m *rawReply) marshal() ([]byte, error) {
	r := newRecord("RawReply")
	r.set("headerordata", protoreflect.ValueOfBytes(m.HeaderOrData))
	return r.marshal()
}

func (m *rawReply) unmarshal(b []byte) error {
	r, err := decodeRecord("RawReply", b)
	if err != nil {
		return err
	}
	m.HeaderOrData = append([]byte(nil), r.get("headerordata").Bytes()...)
	return nil
}
