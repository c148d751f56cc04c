package mcp

import (
	"context"
	"fmt"

	"github.com/ggoodman/mcp-server-go/mcpservice"
	"github.com/ggoodman/mcp-server-go/sessions"

	"github.com/openshelf/openshelf-server/internal/catalog"
	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/domain"
)

func (h *handlers) tools() *mcpservice.ToolsContainer {
	return mcpservice.NewToolsContainer(
		mcpservice.NewTool("checkout_book", h.checkoutBook,
			mcpservice.WithToolDescription("Lend one copy of a book to a patron. Fails if the patron is ineligible or no copy is on the shelf.")),
		mcpservice.NewTool("return_book", h.returnBook,
			mcpservice.WithToolDescription("Accept a borrowed copy back, assess any late fine, and promote the next reservation if one is waiting.")),
		mcpservice.NewTool("renew_checkout", h.renewCheckout,
			mcpservice.WithToolDescription("Extend an active loan's due date. Renewals are capped by policy and blocked once the loan is overdue.")),
		mcpservice.NewTool("reserve_book", h.reserveBook,
			mcpservice.WithToolDescription("Place a hold at the back of a book's reservation queue.")),
		mcpservice.NewTool("cancel_reservation", h.cancelReservation,
			mcpservice.WithToolDescription("Cancel an open reservation. Queue positions of other holds are unchanged.")),
		mcpservice.NewTool("fulfill_reservation", h.fulfillReservation,
			mcpservice.WithToolDescription("Hand the held copy to the waiting patron: completes the hold and checks the book out in one step.")),
		mcpservice.NewTool("pay_fine", h.payFine,
			mcpservice.WithToolDescription("Apply a payment against a patron's outstanding fines. The balance floors at zero.")),
		mcpservice.NewTool("add_book", h.addBook,
			mcpservice.WithToolDescription("Add a book to the catalog with a number of copies, all starting on the shelf.")),
		mcpservice.NewTool("register_patron", h.registerPatron,
			mcpservice.WithToolDescription("Register a new patron with an active membership.")),
		mcpservice.NewTool("set_patron_status", h.setPatronStatus,
			mcpservice.WithToolDescription("Change a patron's membership status (active, suspended, expired, pending).")),
		mcpservice.NewTool("search_catalog", h.searchCatalog,
			mcpservice.WithToolDescription("Full-text search over the catalog by title, author and genre.")),
		mcpservice.NewTool("run_circulation_sweep", h.runSweep,
			mcpservice.WithToolDescription("Run the overdue and reservation-expiry sweeps now and report how many records each touched.")),
	)
}

type checkoutBookArgs struct {
	PatronID string `json:"patron_id" jsonschema:"description=Patron identifier"`
	ISBN     string `json:"isbn" jsonschema:"description=ISBN of the book to lend"`
	DueDate  string `json:"due_date,omitempty" jsonschema:"description=Due date (YYYY-MM-DD); defaults to the policy loan period"`
	Notes    string `json:"notes,omitempty" jsonschema:"description=Free-form note attached to the loan"`
}

func (h *handlers) checkoutBook(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[checkoutBookArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	due, err := parseDate("due_date", args.DueDate)
	if err != nil {
		return h.fail(w, "checkout_book", err)
	}
	checkout, _, err := h.engine.Checkout(ctx, circulation.CheckoutRequest{
		PatronID: args.PatronID,
		BookISBN: args.ISBN,
		DueDate:  due,
		Notes:    args.Notes,
	})
	if err != nil {
		return h.fail(w, "checkout_book", err)
	}
	summary := fmt.Sprintf("Checked out %s to %s, due %s.",
		checkout.BookISBN, checkout.PatronID, checkout.DueDate.Format(dateLayout))
	return h.reply(w, summary, checkout)
}

type returnBookArgs struct {
	CheckoutID string `json:"checkout_id" jsonschema:"description=Identifier of the loan being returned"`
	Condition  string `json:"condition,omitempty" jsonschema:"description=Condition of the returned copy: excellent, good, fair, damaged or lost; defaults to good"`
	Notes      string `json:"notes,omitempty" jsonschema:"description=Free-form note attached to the return"`
}

func (h *handlers) returnBook(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[returnBookArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	result, _, err := h.engine.Return(ctx, circulation.ReturnRequest{
		CheckoutID: args.CheckoutID,
		Condition:  domain.Condition(args.Condition),
		Notes:      args.Notes,
	})
	if err != nil {
		return h.fail(w, "return_book", err)
	}
	summary := fmt.Sprintf("Returned %s in %s condition.", result.Return.BookISBN, result.Return.Condition)
	if result.Return.FineAssessed > 0 {
		summary = fmt.Sprintf("%s %d days late; fine assessed: %s.",
			summary, result.Return.LateDays, result.Return.FineAssessed)
	}
	return h.reply(w, summary, result)
}

type renewCheckoutArgs struct {
	CheckoutID    string `json:"checkout_id" jsonschema:"description=Identifier of the loan to renew"`
	ExtensionDays int    `json:"extension_days,omitempty" jsonschema:"description=Days to extend by; defaults to the policy loan period"`
}

func (h *handlers) renewCheckout(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[renewCheckoutArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	checkout, _, err := h.engine.Renew(ctx, args.CheckoutID, args.ExtensionDays)
	if err != nil {
		return h.fail(w, "renew_checkout", err)
	}
	summary := fmt.Sprintf("Renewed %s; now due %s (renewal %d).",
		checkout.ID, checkout.DueDate.Format(dateLayout), checkout.RenewalCount)
	return h.reply(w, summary, checkout)
}

type reserveBookArgs struct {
	PatronID string `json:"patron_id" jsonschema:"description=Patron placing the hold"`
	ISBN     string `json:"isbn" jsonschema:"description=ISBN of the book to reserve"`
	Expires  string `json:"expires,omitempty" jsonschema:"description=Expiration date for the hold (YYYY-MM-DD); defaults to the policy reservation lifetime"`
	Notes    string `json:"notes,omitempty" jsonschema:"description=Free-form note attached to the hold"`
}

func (h *handlers) reserveBook(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[reserveBookArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	expires, err := parseDate("expires", args.Expires)
	if err != nil {
		return h.fail(w, "reserve_book", err)
	}
	reservation, _, err := h.engine.Reserve(ctx, circulation.ReserveRequest{
		PatronID:       args.PatronID,
		BookISBN:       args.ISBN,
		ExpirationDate: expires,
		Notes:          args.Notes,
	})
	if err != nil {
		return h.fail(w, "reserve_book", err)
	}
	summary := fmt.Sprintf("Reserved %s for %s at queue position %d.",
		reservation.BookISBN, reservation.PatronID, reservation.QueuePosition)
	return h.reply(w, summary, reservation)
}

type cancelReservationArgs struct {
	ReservationID string `json:"reservation_id" jsonschema:"description=Identifier of the reservation to cancel"`
}

func (h *handlers) cancelReservation(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[cancelReservationArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	reservation, _, err := h.engine.CancelReservation(ctx, r.Args().ReservationID)
	if err != nil {
		return h.fail(w, "cancel_reservation", err)
	}
	summary := fmt.Sprintf("Cancelled reservation %s for %s.", reservation.ID, reservation.BookISBN)
	return h.reply(w, summary, reservation)
}

type fulfillReservationArgs struct {
	ReservationID string `json:"reservation_id" jsonschema:"description=Identifier of the reservation to fulfill"`
}

func (h *handlers) fulfillReservation(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[fulfillReservationArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	result, _, err := h.engine.FulfillReservation(ctx, r.Args().ReservationID)
	if err != nil {
		return h.fail(w, "fulfill_reservation", err)
	}
	summary := fmt.Sprintf("Fulfilled reservation %s: %s checked out to %s, due %s.",
		result.Reservation.ID, result.Checkout.BookISBN, result.Checkout.PatronID,
		result.Checkout.DueDate.Format(dateLayout))
	return h.reply(w, summary, result)
}

type payFineArgs struct {
	PatronID string `json:"patron_id" jsonschema:"description=Patron whose fines are being paid"`
	Amount   int64  `json:"amount" jsonschema:"description=Payment amount in integer cents; must be positive"`
}

func (h *handlers) payFine(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[payFineArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	patron, _, err := h.engine.PayFine(ctx, args.PatronID, domain.Cents(args.Amount))
	if err != nil {
		return h.fail(w, "pay_fine", err)
	}
	summary := fmt.Sprintf("Payment accepted; %s now owes %s.", patron.Name, patron.OutstandingFines)
	return h.reply(w, summary, patron)
}

type addBookArgs struct {
	ISBN   string `json:"isbn" jsonschema:"description=ISBN-10 or ISBN-13, separators allowed"`
	Title  string `json:"title" jsonschema:"description=Book title"`
	Author string `json:"author" jsonschema:"description=Author name"`
	Genre  string `json:"genre" jsonschema:"description=Genre; normalized to a canonical slug"`
	Year   int    `json:"year" jsonschema:"description=Publication year"`
	Copies int    `json:"copies" jsonschema:"description=Number of copies the library owns"`
}

func (h *handlers) addBook(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[addBookArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	book, err := h.catalog.AddBook(ctx, catalog.AddBookRequest{
		ISBN:            args.ISBN,
		Title:           args.Title,
		Author:          args.Author,
		Genre:           args.Genre,
		PublicationYear: args.Year,
		TotalCopies:     args.Copies,
	})
	if err != nil {
		return h.fail(w, "add_book", err)
	}
	summary := fmt.Sprintf("Added %q by %s (%s), %d copies.",
		book.Title, book.AuthorName, book.ISBN, book.TotalCopies)
	return h.reply(w, summary, book)
}

type registerPatronArgs struct {
	Name  string `json:"name" jsonschema:"description=Patron's full name"`
	Email string `json:"email" jsonschema:"description=Contact email address"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Borrowing limit; defaults to the standard allowance"`
}

func (h *handlers) registerPatron(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[registerPatronArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	patron, err := h.catalog.RegisterPatron(ctx, catalog.RegisterPatronRequest{
		Name:           args.Name,
		Email:          args.Email,
		BorrowingLimit: args.Limit,
	})
	if err != nil {
		return h.fail(w, "register_patron", err)
	}
	summary := fmt.Sprintf("Registered %s as %s (borrowing limit %d).",
		patron.Name, patron.ID, patron.BorrowingLimit)
	return h.reply(w, summary, patron)
}

type setPatronStatusArgs struct {
	PatronID string `json:"patron_id" jsonschema:"description=Patron identifier"`
	Status   string `json:"status" jsonschema:"description=New membership status: active, suspended, expired or pending"`
}

func (h *handlers) setPatronStatus(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[setPatronStatusArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	patron, err := h.catalog.SetPatronStatus(ctx, args.PatronID, domain.MembershipStatus(args.Status))
	if err != nil {
		return h.fail(w, "set_patron_status", err)
	}
	summary := fmt.Sprintf("%s is now %s.", patron.Name, patron.Status)
	return h.reply(w, summary, patron)
}

type searchCatalogArgs struct {
	Query string `json:"query" jsonschema:"description=Search terms; matches titles, authors and genres"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum hits to return; defaults to 20"`
}

func (h *handlers) searchCatalog(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[searchCatalogArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	args := r.Args()
	result, err := h.catalog.Search(ctx, args.Query, args.Limit)
	if err != nil {
		return h.fail(w, "search_catalog", err)
	}
	summary := fmt.Sprintf("%d match(es) for %q.", result.Total, args.Query)
	return h.reply(w, summary, result)
}

type runSweepArgs struct{}

func (h *handlers) runSweep(ctx context.Context, session sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[runSweepArgs]) error {
	if !h.guard(session, w) {
		return nil
	}
	result, _, err := h.engine.Sweep(ctx)
	if err != nil {
		return h.fail(w, "run_circulation_sweep", err)
	}
	summary := fmt.Sprintf("Sweep complete: %d loan(s) marked overdue, %d reservation(s) expired.",
		result.OverdueMarked, result.ReservationsExpired)
	return h.reply(w, summary, result)
}
