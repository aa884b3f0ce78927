package snmp

import (
	"errors"
	"net"
	"os"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// classifyError maps a raw gosnmp/network error into the SNMP client's
// error kinds (Timeout, Unreachable, AuthenticationFailed, ProtocolError).
func classifyError(op string, target string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Wrap(errs.KindTimeout, op, "snmp request timed out", err).With("target", target)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return errs.Wrap(errs.KindTimeout, op, "snmp request timed out", err).With("target", target)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errs.Wrap(errs.KindUnreachable, op, "snmp target unreachable", err).With("target", target)
	}
	return errs.Wrap(errs.KindProtocolError, op, "snmp protocol error", err).With("target", target)
}
