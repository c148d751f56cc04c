package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ggoodman/mcp-server-go/mcp"
	"github.com/ggoodman/mcp-server-go/mcpservice"
	"github.com/ggoodman/mcp-server-go/sessions"

	domainerrors "github.com/openshelf/openshelf-server/internal/errors"
)

// Resource URIs. The three prefixed forms are parameterized and
// advertised as templates rather than list entries.
const (
	uriBooks        = "openshelf://catalog/books"
	uriBookPrefix   = "openshelf://catalog/books/"
	uriPatrons      = "openshelf://patrons"
	uriPatronPrefix = "openshelf://patrons/"
	uriActive       = "openshelf://circulation/checkouts/active"
	uriOverdue      = "openshelf://circulation/overdue"
	uriQueuePrefix  = "openshelf://circulation/queue/"
	uriStats        = "openshelf://circulation/stats"
)

func (h *handlers) resources() mcpservice.ResourcesCapability {
	return mcpservice.NewDynamicResources(
		mcpservice.WithResourcesListFunc(h.listResources),
		mcpservice.WithResourcesListTemplatesFunc(h.listResourceTemplates),
		mcpservice.WithResourcesReadFunc(h.readResource),
	)
}

func (h *handlers) listResources(_ context.Context, _ sessions.Session, _ *string) (mcpservice.Page[mcp.Resource], error) {
	return mcpservice.NewPage([]mcp.Resource{
		{URI: uriBooks, Name: "catalog-books", Description: "Every book in the catalog with copy counts.", MimeType: "application/json"},
		{URI: uriPatrons, Name: "patrons", Description: "Every registered patron with membership status and fine balance.", MimeType: "application/json"},
		{URI: uriActive, Name: "active-checkouts", Description: "All loans currently out, including overdue ones.", MimeType: "application/json"},
		{URI: uriOverdue, Name: "overdue-checkouts", Description: "Loans past their due date with fines accrued to date.", MimeType: "application/json"},
		{URI: uriStats, Name: "circulation-stats", Description: "Aggregate circulation statistics.", MimeType: "application/json"},
	}), nil
}

func (h *handlers) listResourceTemplates(_ context.Context, _ sessions.Session, _ *string) (mcpservice.Page[mcp.ResourceTemplate], error) {
	return mcpservice.NewPage([]mcp.ResourceTemplate{
		{URITemplate: uriBookPrefix + "{isbn}", Name: "catalog-book", Description: "A single book by ISBN.", MimeType: "application/json"},
		{URITemplate: uriPatronPrefix + "{id}", Name: "patron", Description: "A single patron by identifier.", MimeType: "application/json"},
		{URITemplate: uriQueuePrefix + "{isbn}", Name: "reservation-queue", Description: "The open reservation queue for a book, in position order.", MimeType: "application/json"},
	}), nil
}

func (h *handlers) readResource(ctx context.Context, _ sessions.Session, uri string) ([]mcp.ResourceContents, error) {
	switch {
	case uri == uriBooks:
		books, err := h.catalog.ListBooks(ctx)
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, books)
	case uri == uriPatrons:
		patrons, err := h.catalog.ListPatrons(ctx)
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, patrons)
	case uri == uriActive:
		checkouts, err := h.engine.ActiveCheckouts(ctx)
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, checkouts)
	case uri == uriOverdue:
		overdue, err := h.engine.OverdueCheckouts(ctx)
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, overdue)
	case uri == uriStats:
		stats, err := h.engine.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, stats)
	case strings.HasPrefix(uri, uriBookPrefix):
		book, err := h.catalog.GetBook(ctx, strings.TrimPrefix(uri, uriBookPrefix))
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, book)
	case strings.HasPrefix(uri, uriPatronPrefix):
		patron, err := h.catalog.GetPatron(ctx, strings.TrimPrefix(uri, uriPatronPrefix))
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, patron)
	case strings.HasPrefix(uri, uriQueuePrefix):
		queue, err := h.engine.Queue(ctx, strings.TrimPrefix(uri, uriQueuePrefix))
		if err != nil {
			return nil, err
		}
		return jsonContents(uri, queue)
	default:
		return nil, domainerrors.NotFoundf("unknown resource %q", uri)
	}
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(body),
	}}, nil
}
