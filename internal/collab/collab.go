// Package collab declares the external collaborator contracts the core
// consumes but does not implement: policy-file loading, live-device config
// fetch, template rendering, and structured logging.
// Everything here is an interface; wiring a concrete implementation (a git
// fetcher, an SSH client, a template engine) is left to cmd/unetd.
package collab

import (
	"context"
	"time"

	"github.com/bedecarroll/unet-sub002/internal/model"
)

// PolicyFileSource lists and reads policy rule files. The core caches parsed
// rule sets keyed by (path, last-modified) so an unchanged file is not
// re-parsed on every orchestrator tick.
type PolicyFileSource interface {
	ListFiles(ctx context.Context) ([]string, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	LastModified(ctx context.Context, path string) (time.Time, error)
}

// LiveConfigSource fetches a device's raw running configuration over
// whatever transport the implementation chooses (SSH, NETCONF, REST); the
// protocol is opaque to the core.
type LiveConfigSource interface {
	Fetch(ctx context.Context, nodeID string) (FetchedConfig, error)
}

// FetchedConfig is one device-configuration snapshot from a LiveConfigSource.
type FetchedConfig struct {
	ConfigText string
	VendorHint string
	FetchedAt  time.Time
}

// TemplateRenderer renders a template against node context. The core
// supplies RenderContext from a node's desired+derived state plus its
// assigned-template metadata; it never inspects template syntax itself.
type TemplateRenderer interface {
	Render(ctx context.Context, templateID string, rc RenderContext) (text string, warnings []string, err error)
}

// RenderContext is the context a TemplateRenderer receives for one node.
type RenderContext struct {
	Node        *model.Node
	Derived     *model.NodeStatus
	Assignments []*model.TemplateAssignment
}

// LogLevel is one of the five levels a Logger accepts.
type LogLevel string

const (
	LevelTrace LogLevel = "trace"
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Logger is a structured key-value sink. The default implementation is
// SlogLogger; components depend on this interface, never on slog directly,
// so a test can substitute a recording logger.
type Logger interface {
	Log(level LogLevel, msg string, kv ...any)
}
