// Package mcp exposes the library over the Model Context Protocol:
// read-only resources for catalog and circulation state, side-effecting
// tools that drive the circulation engine, and prompt templates for
// common librarian correspondence. Served over stdio by cmd/openshelf.
package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-server-go/mcp"
	"github.com/ggoodman/mcp-server-go/mcpservice"
	"github.com/ggoodman/mcp-server-go/sessions"

	"github.com/openshelf/openshelf-server/internal/catalog"
	"github.com/openshelf/openshelf-server/internal/circulation"
	domainerrors "github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/ratelimit"
)

// dateLayout is the wire format for dates in tool arguments.
const dateLayout = "2006-01-02"

const instructions = `OpenShelf manages a lending library: a catalog of books,
registered patrons, and the circulation between them (checkouts, returns,
renewals, reservations, fines).

Read state through the openshelf:// resources. Change state through the
tools; every tool returns a one-line summary followed by the JSON record
it created or updated, or a structured error with a machine-readable code.
Amounts are integer cents, dates are YYYY-MM-DD.`

// Options collects the collaborators the MCP surface is built from.
type Options struct {
	Name    string
	Version string

	Engine  *circulation.Engine
	Catalog *catalog.Service
	Limiter *ratelimit.KeyedRateLimiter
	Logger  *slog.Logger
}

// NewServer assembles the full server surface: tools, resources and
// prompts over the given engine and catalog.
func NewServer(opts Options) mcpservice.ServerCapabilities {
	h := newHandlers(opts)
	return mcpservice.NewServer(
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: opts.Name, Version: opts.Version}),
		mcpservice.WithInstructions(instructions),
		mcpservice.WithToolsCapability(h.tools()),
		mcpservice.WithResourcesCapability(h.resources()),
		mcpservice.WithPromptsCapability(h.prompts()),
	)
}

// handlers binds the protocol surface to the domain services. One
// instance serves all sessions; the services are safe for concurrent use.
type handlers struct {
	engine  *circulation.Engine
	catalog *catalog.Service
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

func newHandlers(opts Options) *handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handlers{
		engine:  opts.Engine,
		catalog: opts.Catalog,
		limiter: opts.Limiter,
		logger:  logger,
	}
}

// guard enforces the per-session rate limit. When the budget is spent it
// writes a tool-level error result and reports false; the caller returns
// nil so the client sees a retryable tool error, not a protocol failure.
func (h *handlers) guard(session sessions.Session, w mcpservice.ToolResponseWriter) bool {
	if h.limiter == nil || h.limiter.Allow(session.SessionID()) {
		return true
	}
	w.SetError(true)
	_ = w.AppendText("rate limit exceeded; retry shortly")
	return false
}

// reply writes a one-line summary followed by the JSON record the
// operation produced.
func (h *handlers) reply(w mcpservice.ToolResponseWriter, summary string, record any) error {
	if err := w.AppendText(summary); err != nil {
		return err
	}
	body, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return w.AppendText(string(body))
}

// fail renders a failure as a tool error result. Domain errors travel as
// a JSON block carrying code, message and details so callers can branch
// on the code without parsing prose. Anything else is logged and reported
// as an internal error without leaking its cause.
func (h *handlers) fail(w mcpservice.ToolResponseWriter, tool string, err error) error {
	w.SetError(true)
	var derr *domainerrors.Error
	if stderrors.As(err, &derr) {
		if aErr := w.AppendText(fmt.Sprintf("%s failed: %s", tool, derr.Message)); aErr != nil {
			return aErr
		}
		body, mErr := json.MarshalIndent(derr, "", "  ")
		if mErr != nil {
			return nil
		}
		return w.AppendText(string(body))
	}
	h.logger.Error("tool failed", "tool", tool, "error", err)
	return w.AppendText(fmt.Sprintf("%s failed: internal error", tool))
}

// parseDate parses an optional YYYY-MM-DD argument. An empty value means
// "not provided" and yields nil.
func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, domainerrors.Validationf("%s must be a YYYY-MM-DD date, got %q", field, value)
	}
	t = t.UTC()
	return &t, nil
}
