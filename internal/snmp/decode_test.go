package snmp

import (
	"errors"
	"net"
	"os"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

func TestDecodePDUIntegerShapes(t *testing.T) {
	cases := []struct {
		wire gosnmp.Asn1BER
		want ValueKind
	}{
		{gosnmp.Integer, KindInteger},
		{gosnmp.Counter32, KindCounter32},
		{gosnmp.Counter64, KindCounter64},
		{gosnmp.Gauge32, KindGauge},
		{gosnmp.TimeTicks, KindTimeTicks},
	}
	for _, tc := range cases {
		v, err := decodePDU(gosnmp.SnmpPDU{Name: "1.2.3", Type: tc.wire, Value: 42})
		require.NoError(t, err)
		require.Equal(t, tc.want, v.Kind)
		require.Equal(t, int64(42), v.Int)
	}
}

func TestDecodePDUOctetString(t *testing.T) {
	v, err := decodePDU(gosnmp.SnmpPDU{Name: "1.2.3", Type: gosnmp.OctetString, Value: []byte("IOS-XE 17.3")})
	require.NoError(t, err)
	require.Equal(t, KindOctetString, v.Kind)
	require.Equal(t, "IOS-XE 17.3", v.Str)
}

func TestDecodePDUNoSuchMarkers(t *testing.T) {
	v, err := decodePDU(gosnmp.SnmpPDU{Name: "1.2.3", Type: gosnmp.NoSuchObject})
	require.NoError(t, err)
	require.True(t, v.IsAbsent())

	v, err = decodePDU(gosnmp.SnmpPDU{Name: "1.2.3", Type: gosnmp.NoSuchInstance})
	require.NoError(t, err)
	require.True(t, v.IsAbsent())
}

func TestDecodePDUWrongPayloadTypeIsProtocolError(t *testing.T) {
	_, err := decodePDU(gosnmp.SnmpPDU{Name: "1.2.3", Type: gosnmp.OctetString, Value: 42})
	require.Error(t, err)
	require.Equal(t, errs.KindProtocolError, errs.KindOf(err))
}

func TestValueStringification(t *testing.T) {
	require.Equal(t, "42", IntValue(KindCounter64, 42).String())
	require.Equal(t, "eth0", StrValue(KindOctetString, "eth0").String())
	require.Equal(t, "", NullValue().String())
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestClassifyErrorTimeout(t *testing.T) {
	err := classifyError("snmp.get", "10.0.0.1", timeoutNetError{})
	require.Equal(t, errs.KindTimeout, errs.KindOf(err))

	err = classifyError("snmp.get", "10.0.0.1", os.ErrDeadlineExceeded)
	require.Equal(t, errs.KindTimeout, errs.KindOf(err))
}

func TestClassifyErrorUnreachable(t *testing.T) {
	opErr := &net.OpError{Op: "write", Net: "udp", Err: errors.New("connection refused")}
	err := classifyError("snmp.get", "10.0.0.1", opErr)
	require.Equal(t, errs.KindUnreachable, errs.KindOf(err))
}

func TestClassifyErrorFallsBackToProtocolError(t *testing.T) {
	err := classifyError("snmp.get", "10.0.0.1", errors.New("malformed PDU"))
	require.Equal(t, errs.KindProtocolError, errs.KindOf(err))
	require.Nil(t, classifyError("snmp.get", "10.0.0.1", nil))
}

func TestConfigFingerprintSeparatesCredentials(t *testing.T) {
	a := Config{Target: "10.0.0.1", Version: VersionV2c, Community: "public"}
	b := Config{Target: "10.0.0.1", Version: VersionV2c, Community: "private"}
	c := Config{Target: "10.0.0.1", Version: VersionV3, V3: V3Credentials{Username: "ops"}}
	require.NotEqual(t, a.fingerprint(), b.fingerprint())
	require.NotEqual(t, a.fingerprint(), c.fingerprint())
}

func TestConfigApplyDefaults(t *testing.T) {
	c := Config{Target: "10.0.0.1"}
	c.applyDefaults()
	require.Equal(t, uint16(161), c.Port)
	require.Equal(t, uint32(1500), c.MaxPDUSize)
	require.NotZero(t, c.Timeout)
}

func TestV3ProtocolMapping(t *testing.T) {
	require.Equal(t, gosnmp.MD5, authProtocolOf(AuthMD5))
	require.Equal(t, gosnmp.SHA, authProtocolOf(AuthSHA))
	require.Equal(t, gosnmp.NoAuth, authProtocolOf(AuthNone))
	require.Equal(t, gosnmp.DES, privProtocolOf(PrivDES))
	require.Equal(t, gosnmp.AES, privProtocolOf(PrivAES))
	require.Equal(t, gosnmp.NoPriv, privProtocolOf(PrivNone))
}

func TestV3MsgFlagsEscalateWithCredentials(t *testing.T) {
	require.Equal(t, gosnmp.NoAuthNoPriv, msgFlagsOf(V3Credentials{}))
	require.Equal(t, gosnmp.AuthNoPriv, msgFlagsOf(V3Credentials{AuthProtocol: AuthSHA}))
	require.Equal(t, gosnmp.AuthPriv, msgFlagsOf(V3Credentials{AuthProtocol: AuthSHA, PrivProtocol: PrivAES}))
}

func TestDecodeVariablesPreservesOrder(t *testing.T) {
	results, err := decodeVariables([]gosnmp.SnmpPDU{
		{Name: ".1.3.6.1.2.1.1.3.0", Type: gosnmp.TimeTicks, Value: 100},
		{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("core-01")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, ".1.3.6.1.2.1.1.3.0", results[0].OID)
	require.Equal(t, "core-01", results[1].Value.Str)
}
