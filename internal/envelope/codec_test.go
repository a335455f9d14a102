package envelope

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

type CodecSuite struct {
	suite.Suite
	codec *Codec
}

func (s *CodecSuite) SetupSuite() {
	s.codec = NewCodec(nil)
}

func (s *CodecSuite) TestEncodeDecode() {
	values := []any{
		35, 9.0, "x", []int{1, 2, 3}, map[string]int{"a": 1},
		[]any{1, 2, 3},
		map[string]any{"n": 20},
		[]any{int64(1<<53 + 1)},
	}
	for _, v := range values {
		text, err := s.codec.Encode(v, serde.Options{})
		s.Require().NoError(err)
		out, err := s.codec.Decode(text, serde.Options{})
		s.Require().NoError(err)
		s.Equal(v, out)
	}
}

func (s *CodecSuite) TestDecodeCorrupt() {
	for _, text := range []string{"", "!!!not-base64!!!", base64.StdEncoding.EncodeToString([]byte("garbage"))} {
		v, err := s.codec.Decode(text, serde.Options{})
		s.ErrorIs(err, merr.ErrCorruptEnvelope, text)
		s.Nil(v)
	}
}

func (s *CodecSuite) TestPackUnpack() {
	origin := OriginTag{Major: 1, Minor: 1, Runtime: "gc"}
	payload := []byte{0x00, 0x01, 0xfe, 0xff}
	text, err := Pack(payload, origin)
	s.Require().NoError(err)

	env, err := Unpack(text)
	s.Require().NoError(err)
	s.Equal(payload, env.Payload())
	s.Equal(origin, env.Origin())
	s.Equal(serde.ProtocolPlain, env.Options().Compat)
	s.Equal("gc/1.1", env.Origin().String())
}

func (s *CodecSuite) TestImmutable() {
	payload := []byte("abc")
	env := New(payload, OriginTag{Major: 1, Minor: 2})
	payload[0] = 'z'
	got := env.Payload()
	s.Equal([]byte("abc"), got)
	got[1] = 'z'
	s.Equal([]byte("abc"), env.Payload())
}

func (s *CodecSuite) TestUnpackCorrupt() {
	b64 := func(v string) string { return base64.StdEncoding.EncodeToString([]byte(v)) }
	cases := map[string]string{
		"empty":          "",
		"not base64":     "%%%",
		"not json":       b64("hello"),
		"missing marker": b64(`{"payload":"AQ==","origin":{"major":1,"minor":2,"runtime":"gc"}}`),
		"wrong marker":   b64(`{"v":2,"payload":"AQ==","origin":{"major":1,"minor":2,"runtime":"gc"}}`),
		"missing origin": b64(`{"v":1,"payload":"AQ=="}`),
		"bad payload":    b64(`{"v":1,"payload":"%%","origin":{"major":1,"minor":2,"runtime":"gc"}}`),
		"empty payload":  b64(`{"v":1,"payload":"","origin":{"major":1,"minor":2,"runtime":"gc"}}`),
	}
	for name, text := range cases {
		_, err := Unpack(text)
		s.ErrorIs(err, merr.ErrCorruptEnvelope, name)
	}
}

func (s *CodecSuite) TestSealOpen() {
	for _, origin := range []OriginTag{
		{Major: 1, Minor: 1, Runtime: "gc"},
		{Major: 1, Minor: 2, Runtime: "gc"},
	} {
		text, err := s.codec.Seal([]int{7, 8}, origin, true)
		s.Require().NoError(err)
		v, got, err := s.codec.Open(text, false)
		s.Require().NoError(err)
		s.Equal([]int{7, 8}, v)
		s.Equal(origin, got)
	}
}

func (s *CodecSuite) TestOpenWrongProtocol() {
	// 内层用 zstd 写出，却标记为旧版本来源
	payload, err := serde.Default.Serialize(1, serde.Options{Compat: serde.ProtocolZstd})
	s.Require().NoError(err)
	text, err := Pack(payload, OriginTag{Major: 1, Minor: 0, Runtime: "gc"})
	s.Require().NoError(err)
	_, _, err = s.codec.Open(text, false)
	s.ErrorIs(err, merr.ErrCorruptEnvelope)
}

func TestCodec(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func TestPackEmpty(t *testing.T) {
	_, err := Pack(nil, OriginTag{})
	require.Error(t, err)
	assert.ErrorIs(t, err, merr.ErrParameterMissing)
}
