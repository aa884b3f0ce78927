package snmp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// Version selects the SNMP protocol version a Session speaks.
type Version int

const (
	VersionV2c Version = iota
	VersionV3
)

// AuthProtocol and PrivProtocol name the USM algorithms supported for
// SNMPv3: MD5/SHA authentication, DES/AES privacy.
type AuthProtocol int

const (
	AuthNone AuthProtocol = iota
	AuthMD5
	AuthSHA
)

type PrivProtocol int

const (
	PrivNone PrivProtocol = iota
	PrivDES
	PrivAES
)

// V3Credentials carries USM parameters for an SNMPv3 session.
type V3Credentials struct {
	Username     string
	AuthProtocol AuthProtocol
	AuthKey      string
	PrivProtocol PrivProtocol
	PrivKey      string
}

// Config parameterizes one Session: target address, version, credentials,
// timeout, and retry count.
type Config struct {
	Target     string
	Port       uint16 // defaults to 161
	Version    Version
	Community  string // v2c only
	V3         V3Credentials
	Timeout    time.Duration
	Retries    int
	MaxPDUSize uint32 // defaults to 1500, negotiable
}

func (c *Config) fingerprint() string {
	switch c.Version {
	case VersionV3:
		return fmt.Sprintf("%s|v3|%s", c.Target, c.V3.Username)
	default:
		return fmt.Sprintf("%s|v2c|%s", c.Target, c.Community)
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 161
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.MaxPDUSize == 0 {
		c.MaxPDUSize = 1500
	}
}

// Session is one open SNMP connection. It wraps *gosnmp.GoSNMP so nothing
// above this package imports gosnmp directly.
type Session struct {
	cfg Config
	gs  *gosnmp.GoSNMP
	mu  sync.Mutex
}

// NewSession opens a Session and connects its underlying UDP socket.
// Connection itself does not round-trip with the device (SNMP is
// connectionless); errors here are local (socket, USM key derivation).
func NewSession(cfg Config) (*Session, error) {
	cfg.applyDefaults()
	gs := &gosnmp.GoSNMP{
		Target:  cfg.Target,
		Port:    cfg.Port,
		Timeout: cfg.Timeout,
		Retries: cfg.Retries,
		MaxOids: 60,
	}
	switch cfg.Version {
	case VersionV2c:
		gs.Version = gosnmp.Version2c
		gs.Community = cfg.Community
	case VersionV3:
		gs.Version = gosnmp.Version3
		gs.SecurityModel = gosnmp.UserSecurityModel
		usm := &gosnmp.UsmSecurityParameters{
			UserName:                 cfg.V3.Username,
			AuthenticationProtocol:   authProtocolOf(cfg.V3.AuthProtocol),
			AuthenticationPassphrase: cfg.V3.AuthKey,
			PrivacyProtocol:          privProtocolOf(cfg.V3.PrivProtocol),
			PrivacyPassphrase:        cfg.V3.PrivKey,
		}
		gs.SecurityParameters = usm
		gs.MsgFlags = msgFlagsOf(cfg.V3)
	default:
		return nil, errs.New(errs.KindValidation, "snmp.session.new", "unknown snmp version")
	}
	if err := gs.Connect(); err != nil {
		return nil, classifyError("snmp.session.new", cfg.Target, err)
	}
	return &Session{cfg: cfg, gs: gs}, nil
}

func authProtocolOf(p AuthProtocol) gosnmp.SnmpV3AuthProtocol {
	switch p {
	case AuthMD5:
		return gosnmp.MD5
	case AuthSHA:
		return gosnmp.SHA
	default:
		return gosnmp.NoAuth
	}
}

func privProtocolOf(p PrivProtocol) gosnmp.SnmpV3PrivProtocol {
	switch p {
	case PrivDES:
		return gosnmp.DES
	case PrivAES:
		return gosnmp.AES
	default:
		return gosnmp.NoPriv
	}
}

func msgFlagsOf(v3 V3Credentials) gosnmp.SnmpV3MsgFlags {
	flags := gosnmp.NoAuthNoPriv
	if v3.AuthProtocol != AuthNone {
		flags = gosnmp.AuthNoPriv
	}
	if v3.PrivProtocol != PrivNone {
		flags = gosnmp.AuthPriv
	}
	return flags
}

func (s *Session) Close() error {
	if s.gs.Conn != nil {
		return s.gs.Conn.Close()
	}
	return nil
}

// Get issues a single GetRequest for exactly these OIDs.
func (s *Session) Get(ctx context.Context, oids []string) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, "snmp.get", "context cancelled before request", err).With("target", s.cfg.Target)
	}
	pkt, err := s.gs.Get(oids)
	if err != nil {
		return nil, classifyError("snmp.get", s.cfg.Target, err)
	}
	return decodeVariables(pkt.Variables)
}

// GetNext issues a single GetNextRequest.
func (s *Session) GetNext(ctx context.Context, oid string) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, "snmp.get_next", "context cancelled before request", err).With("target", s.cfg.Target)
	}
	pkt, err := s.gs.GetNext([]string{oid})
	if err != nil {
		return nil, classifyError("snmp.get_next", s.cfg.Target, err)
	}
	return decodeVariables(pkt.Variables)
}

// Walk performs a full subtree walk via repeated GetNext/GetBulk under
// the hood (gosnmp.BulkWalk).
func (s *Session) Walk(ctx context.Context, subtreeOID string) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, "snmp.walk", "context cancelled before request", err).With("target", s.cfg.Target)
	}
	var out []Result
	walkErr := s.gs.BulkWalk(subtreeOID, func(pdu gosnmp.SnmpPDU) error {
		v, err := decodePDU(pdu)
		if err != nil {
			return err
		}
		out = append(out, Result{OID: pdu.Name, Value: v})
		return nil
	})
	if walkErr != nil {
		return nil, classifyError("snmp.walk", s.cfg.Target, walkErr)
	}
	return out, nil
}

// BulkGet issues a GetBulkRequest, the operation the poller scheduler
// uses for every scheduled task.
func (s *Session) BulkGet(ctx context.Context, oids []string, maxRepetitions uint8) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, "snmp.bulk_get", "context cancelled before request", err).With("target", s.cfg.Target)
	}
	pkt, err := s.gs.GetBulk(oids, 0, uint32(maxRepetitions))
	if err != nil {
		return nil, classifyError("snmp.bulk_get", s.cfg.Target, err)
	}
	return decodeVariables(pkt.Variables)
}

// Pool caps concurrent sessions per (address, credential fingerprint) and
// total concurrent queries globally. Sessions are created lazily and kept
// open; GetSession is safe for concurrent callers.
type Pool struct {
	globalSem chan struct{}

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewPool builds a Pool with globalLimit total concurrent queries allowed
// across every target.
func NewPool(globalLimit int) *Pool {
	if globalLimit <= 0 {
		globalLimit = 1
	}
	return &Pool{
		globalSem: make(chan struct{}, globalLimit),
		sessions:  map[string]*Session{},
	}
}

// Acquire blocks (respecting ctx) until a global query permit is free,
// returning a release func. The per-target cap is enforced implicitly:
// GetSession returns one shared *Session per fingerprint, and Session
// itself serializes requests with its own mutex.
func (p *Pool) Acquire(ctx context.Context) (func(), error) {
	select {
	case p.globalSem <- struct{}{}:
		return func() { <-p.globalSem }, nil
	case <-ctx.Done():
		return nil, errs.Wrap(errs.KindTimeout, "snmp.pool.acquire", "context cancelled waiting for query permit", ctx.Err())
	}
}

// GetSession returns the pooled Session for cfg's fingerprint, opening one
// if none exists yet.
func (p *Pool) GetSession(cfg Config) (*Session, error) {
	key := cfg.fingerprint()
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[key]; ok {
		return s, nil
	}
	s, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	p.sessions[key] = s
	return s, nil
}

// Close closes every pooled session.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for k, s := range p.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.sessions, k)
	}
	return firstErr
}
