package snmp

import (
	"net"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
)

var metricTrapsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "unet_snmp_traps_received_total",
	Help: "Number of SNMP trap PDUs received on the trap listener",
})

// TrapObserver listens for SNMP traps and records them: each trap is
// decoded, logged, and counted, nothing more. Traps never feed derived
// state; the poller's periodic snapshots stay the single source of truth
// there, so a spoofed or storming trap can't corrupt the model.
type TrapObserver struct {
	Community string // v2c community expected on inbound traps
	Logger    collab.Logger

	listener *gosnmp.TrapListener
}

// Listen blocks serving traps on addr (conventionally ":162") until Close
// is called.
func (o *TrapObserver) Listen(addr string) error {
	const op = "snmp.traps.listen"
	if o.Logger == nil {
		return errs.New(errs.KindValidation, op, "logger is required")
	}

	l := gosnmp.NewTrapListener()
	l.Params = &gosnmp.GoSNMP{
		Transport: "udp",
		Port:      162,
		Version:   gosnmp.Version2c,
		Community: o.Community,
		Timeout:   2 * time.Second,
		Retries:   0,
		MaxOids:   gosnmp.MaxOids,
	}
	l.OnNewTrap = o.handle
	o.listener = l

	if err := l.Listen(addr); err != nil {
		return errs.Wrap(errs.KindIO, op, "trap listener failed", err).With("addr", addr)
	}
	return nil
}

// Close stops the listener; Listen returns after the socket is torn down.
func (o *TrapObserver) Close() {
	if o.listener != nil {
		o.listener.Close()
	}
}

func (o *TrapObserver) handle(packet *gosnmp.SnmpPacket, addr *net.UDPAddr) {
	metricTrapsReceived.Inc()

	results, err := decodeVariables(packet.Variables)
	if err != nil {
		o.Logger.Log(collab.LevelWarn, "snmp trap with undecodable varbinds", "source", addr.String(), "error", err)
		return
	}

	kv := []any{"source", addr.String(), "varbinds", len(results)}
	for _, r := range results {
		if r.OID == sysUpTimeOID || r.OID == snmpTrapOID {
			kv = append(kv, r.OID, r.Value.String())
		}
	}
	o.Logger.Log(collab.LevelInfo, "snmp trap received", kv...)
}

// Well-known varbinds every v2c trap carries first, surfaced in the log
// line so traps are identifiable without decoding the whole PDU.
const (
	sysUpTimeOID = ".1.3.6.1.2.1.1.3.0"
	snmpTrapOID  = ".1.3.6.1.6.3.1.1.4.1.0"
)
