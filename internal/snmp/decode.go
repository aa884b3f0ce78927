package snmp

import (
	"fmt"

	"github.com/gosnmp/gosnmp"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// decodePDU converts one gosnmp.SnmpPDU into our typed Value,
// so nothing above this package ever imports gosnmp directly.
func decodePDU(pdu gosnmp.SnmpPDU) (Value, error) {
	switch pdu.Type {
	case gosnmp.NoSuchObject:
		return Value{Kind: KindNoSuchObject}, nil
	case gosnmp.NoSuchInstance:
		return Value{Kind: KindNoSuchInstance}, nil
	case gosnmp.EndOfMibView:
		return Value{Kind: KindNoSuchObject}, nil
	case gosnmp.Null:
		return Value{Kind: KindNull}, nil
	case gosnmp.Integer:
		return Value{Kind: KindInteger, Int: gosnmp.ToBigInt(pdu.Value).Int64()}, nil
	case gosnmp.Counter32:
		return Value{Kind: KindCounter32, Int: gosnmp.ToBigInt(pdu.Value).Int64()}, nil
	case gosnmp.Counter64:
		return Value{Kind: KindCounter64, Int: gosnmp.ToBigInt(pdu.Value).Int64()}, nil
	case gosnmp.Gauge32:
		return Value{Kind: KindGauge, Int: gosnmp.ToBigInt(pdu.Value).Int64()}, nil
	case gosnmp.TimeTicks:
		return Value{Kind: KindTimeTicks, Int: gosnmp.ToBigInt(pdu.Value).Int64()}, nil
	case gosnmp.OctetString:
		b, ok := pdu.Value.([]byte)
		if !ok {
			return Value{}, errs.New(errs.KindProtocolError, "snmp.decode", "expected octet string payload").With("oid", pdu.Name)
		}
		return Value{Kind: KindOctetString, Str: string(b)}, nil
	case gosnmp.ObjectIdentifier:
		s, ok := pdu.Value.(string)
		if !ok {
			return Value{}, errs.New(errs.KindProtocolError, "snmp.decode", "expected object identifier payload").With("oid", pdu.Name)
		}
		return Value{Kind: KindObjectIdentifier, Str: s}, nil
	case gosnmp.IPAddress:
		s, ok := pdu.Value.(string)
		if !ok {
			return Value{}, errs.New(errs.KindProtocolError, "snmp.decode", "expected ip address payload").With("oid", pdu.Name)
		}
		return Value{Kind: KindIPAddress, Str: s}, nil
	case gosnmp.Opaque:
		b, ok := pdu.Value.([]byte)
		if !ok {
			return Value{}, errs.New(errs.KindProtocolError, "snmp.decode", "expected opaque payload").With("oid", pdu.Name)
		}
		return Value{Kind: KindOpaque, Str: fmt.Sprintf("%x", b)}, nil
	default:
		return Value{}, errs.New(errs.KindProtocolError, "snmp.decode", fmt.Sprintf("unsupported wire type %v", pdu.Type)).With("oid", pdu.Name)
	}
}

func decodeVariables(pdus []gosnmp.SnmpPDU) ([]Result, error) {
	out := make([]Result, 0, len(pdus))
	for _, pdu := range pdus {
		v, err := decodePDU(pdu)
		if err != nil {
			return nil, err
		}
		out = append(out, Result{OID: pdu.Name, Value: v})
	}
	return out, nil
}
