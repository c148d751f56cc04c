package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ggoodman/mcp-server-go/mcp"
	"github.com/ggoodman/mcp-server-go/mcpservice"
	"github.com/ggoodman/mcp-server-go/sessions"

	domainerrors "github.com/openshelf/openshelf-server/internal/errors"
	"github.com/openshelf/openshelf-server/internal/genre"
)

func (h *handlers) prompts() *mcpservice.PromptsContainer {
	return mcpservice.NewPromptsContainer(
		mcpservice.StaticPrompt{
			Descriptor: mcp.Prompt{
				Name:        "recommend-books",
				Description: "Recommend books from the catalog, optionally narrowed to a genre or tailored to a patron's borrowing history.",
				Arguments: []mcp.PromptArgument{
					{Name: "genre", Description: "Limit recommendations to this genre"},
					{Name: "patron_id", Description: "Tailor recommendations to this patron's history"},
				},
			},
			Handler: h.recommendBooks,
		},
		mcpservice.StaticPrompt{
			Descriptor: mcp.Prompt{
				Name:        "overdue-notice",
				Description: "Draft a courteous overdue notice listing a patron's overdue items and accrued fines.",
				Arguments: []mcp.PromptArgument{
					{Name: "patron_id", Description: "Patron to address the notice to", Required: true},
				},
			},
			Handler: h.overdueNotice,
		},
		mcpservice.StaticPrompt{
			Descriptor: mcp.Prompt{
				Name:        "condition-review",
				Description: "Draft a damage-assessment note for a returned item.",
				Arguments: []mcp.PromptArgument{
					{Name: "checkout_id", Description: "The returned loan to review", Required: true},
					{Name: "condition", Description: "Condition observed at return; defaults to the recorded one"},
				},
			},
			Handler: h.conditionReview,
		},
	)
}

// stringArg decodes an optional string argument; missing or malformed
// values yield "".
func stringArg(args map[string]json.RawMessage, key string) string {
	raw, ok := args[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func userMessage(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{{
			Role:    mcp.RoleUser,
			Content: []mcp.ContentBlock{{Type: "text", Text: text}},
		}},
	}
}

func (h *handlers) recommendBooks(ctx context.Context, _ sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
	wantGenre := genre.Normalize(stringArg(req.Arguments, "genre"))
	patronID := stringArg(req.Arguments, "patron_id")

	books, err := h.catalog.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful librarian. Recommend up to five books from the catalog below.\n")
	if wantGenre != "" {
		fmt.Fprintf(&sb, "Only recommend %s titles.\n", wantGenre)
	}
	sb.WriteString("Prefer books with a copy on the shelf, and explain each pick in a sentence.\n\nCatalog:\n")
	for _, b := range books {
		if wantGenre != "" && b.Genre != wantGenre {
			continue
		}
		fmt.Fprintf(&sb, "- %q by %s (%s, %d), %d of %d copies available\n",
			b.Title, b.AuthorName, b.Genre, b.PublicationYear, b.AvailableCopies, b.TotalCopies)
	}

	if patronID != "" {
		history, err := h.engine.PatronCheckouts(ctx, patronID)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			sb.WriteString("\nThe patron has previously borrowed:\n")
			for _, c := range history {
				fmt.Fprintf(&sb, "- %s (%s)\n", c.BookISBN, c.Status)
			}
			sb.WriteString("Do not recommend books they have already borrowed.\n")
		}
	}

	return userMessage("Book recommendation request", sb.String()), nil
}

func (h *handlers) overdueNotice(ctx context.Context, _ sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
	patronID := stringArg(req.Arguments, "patron_id")
	if patronID == "" {
		return nil, domainerrors.Validation("patron_id is required")
	}

	patron, err := h.catalog.GetPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}
	overdue, err := h.engine.OverdueCheckouts(ctx)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Draft a courteous overdue notice addressed to %s <%s>.\n", patron.Name, patron.Email)
	sb.WriteString("Keep the tone friendly; invite them to renew or return at their convenience.\n\nOverdue items:\n")
	count := 0
	for _, o := range overdue {
		if o.Checkout.PatronID != patronID {
			continue
		}
		count++
		fmt.Fprintf(&sb, "- %s, due %s, %d day(s) late, fine to date %s\n",
			o.Checkout.BookISBN, o.Checkout.DueDate.Format(dateLayout), o.LateDays, o.AccruedFine)
	}
	if count == 0 {
		sb.WriteString("- none\n")
	}
	fmt.Fprintf(&sb, "\nOutstanding fine balance on the account: %s.\n", patron.OutstandingFines)

	return userMessage(fmt.Sprintf("Overdue notice for %s", patron.Name), sb.String()), nil
}

func (h *handlers) conditionReview(ctx context.Context, _ sessions.Session, req *mcp.GetPromptRequestReceived) (*mcp.GetPromptResult, error) {
	checkoutID := stringArg(req.Arguments, "checkout_id")
	if checkoutID == "" {
		return nil, domainerrors.Validation("checkout_id is required")
	}

	ret, err := h.engine.ReturnForCheckout(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	condition := stringArg(req.Arguments, "condition")
	if condition == "" {
		condition = string(ret.Condition)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Draft a brief damage-assessment note for a returned library book.\n\n")
	fmt.Fprintf(&sb, "Book: %s\nPatron: %s\nReturned: %s\nCondition at return: %s\n",
		ret.BookISBN, ret.PatronID, ret.ReturnedAt.Format(dateLayout), condition)
	if ret.LateDays > 0 {
		fmt.Fprintf(&sb, "Returned %d day(s) late; fine assessed %s.\n", ret.LateDays, ret.FineAssessed)
	}
	if ret.Notes != "" {
		fmt.Fprintf(&sb, "Staff notes: %s\n", ret.Notes)
	}
	sb.WriteString("\nState whether the copy should stay in circulation, be repaired, or be withdrawn, and whether a replacement charge is warranted.\n")

	return userMessage("Condition review for a returned item", sb.String()), nil
}
