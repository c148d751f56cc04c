package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ggoodman/mcp-server-go/mcp"
	"github.com/ggoodman/mcp-server-go/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf-server/internal/catalog"
	"github.com/openshelf/openshelf-server/internal/circulation"
	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/domain"
	"github.com/openshelf/openshelf-server/internal/ratelimit"
	"github.com/openshelf/openshelf-server/internal/search"
	"github.com/openshelf/openshelf-server/internal/store/sqlite"
)

type fakeSession string

func (s fakeSession) SessionID() string       { return string(s) }
func (s fakeSession) UserID() string          { return string(s) }
func (s fakeSession) ProtocolVersion() string { return "" }
func (s fakeSession) GetSamplingCapability() (cap sessions.SamplingCapability, ok bool) {
	return nil, false
}
func (s fakeSession) GetRootsCapability() (cap sessions.RootsCapability, ok bool) {
	return nil, false
}
func (s fakeSession) GetElicitationCapability() (cap sessions.ElicitationCapability, ok bool) {
	return nil, false
}

type fixture struct {
	h       *handlers
	engine  *circulation.Engine
	catalog *catalog.Service
	clock   *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: dir, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	clk := clock.NewFake(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	engine := circulation.NewEngine(st, clk, circulation.DefaultPolicy(), logger)
	cat := catalog.New(st, idx, clk, logger)

	return &fixture{
		h:       newHandlers(Options{Engine: engine, Catalog: cat, Logger: logger}),
		engine:  engine,
		catalog: cat,
		clock:   clk,
	}
}

func (f *fixture) addBook(t *testing.T, isbn, title, author string, copies int) *domain.Book {
	t.Helper()
	book, err := f.catalog.AddBook(context.Background(), catalog.AddBookRequest{
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		Genre:           "Fantasy",
		PublicationYear: 1954,
		TotalCopies:     copies,
	})
	require.NoError(t, err)
	return book
}

func (f *fixture) addPatron(t *testing.T, name, email string) *domain.Patron {
	t.Helper()
	patron, err := f.catalog.RegisterPatron(context.Background(), catalog.RegisterPatronRequest{
		Name:  name,
		Email: email,
	})
	require.NoError(t, err)
	return patron
}

func (f *fixture) callTool(t *testing.T, name string, args any) *mcp.CallToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := f.h.tools().Call(context.Background(), fakeSession("sess-1"), &mcp.CallToolRequestReceived{
		Name:      name,
		Arguments: raw,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

// decodeRecord unmarshals the JSON block that follows the summary line.
func decodeRecord(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	require.False(t, res.IsError, "unexpected tool error: %+v", res.Content)
	require.Len(t, res.Content, 2)
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), v))
}

// decodeToolError unmarshals the structured error block of a failed call.
func decodeToolError(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.True(t, res.IsError, "expected a tool error, got: %+v", res.Content)
	require.Len(t, res.Content, 2)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &payload))
	return payload
}

func TestCheckoutBookTool(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 2)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	res := f.callTool(t, "checkout_book", checkoutBookArgs{
		PatronID: patron.ID,
		ISBN:     book.ISBN,
	})

	var checkout domain.Checkout
	decodeRecord(t, res, &checkout)
	assert.Equal(t, patron.ID, checkout.PatronID)
	assert.Equal(t, book.ISBN, checkout.BookISBN)
	assert.Contains(t, res.Content[0].Text, "due 2024-03-15")
}

func TestCheckoutBookToolUnknownPatron(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)

	res := f.callTool(t, "checkout_book", checkoutBookArgs{
		PatronID: "pat-missing",
		ISBN:     book.ISBN,
	})

	payload := decodeToolError(t, res)
	assert.Equal(t, "NOT_FOUND", payload["code"])
}

func TestCheckoutBookToolBadDueDate(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	res := f.callTool(t, "checkout_book", checkoutBookArgs{
		PatronID: patron.ID,
		ISBN:     book.ISBN,
		DueDate:  "soon",
	})

	payload := decodeToolError(t, res)
	assert.Equal(t, "VALIDATION", payload["code"])
}

func TestReturnBookToolWithFine(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	checkout, _, err := f.engine.Checkout(context.Background(), circulation.CheckoutRequest{
		PatronID: patron.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)

	// Loan period is 14 days; 20 days later it is 6 days late.
	f.clock.AdvanceDays(20)

	res := f.callTool(t, "return_book", returnBookArgs{
		CheckoutID: checkout.ID,
		Condition:  "damaged",
	})

	var result circulation.ReturnResult
	decodeRecord(t, res, &result)
	assert.Equal(t, domain.ConditionDamaged, result.Return.Condition)
	assert.Equal(t, 6, result.Return.LateDays)
	assert.Equal(t, domain.Cents(150), result.Return.FineAssessed)
	assert.Contains(t, res.Content[0].Text, "late")
}

func TestRenewCheckoutTool(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	checkout, _, err := f.engine.Checkout(context.Background(), circulation.CheckoutRequest{
		PatronID: patron.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)

	res := f.callTool(t, "renew_checkout", renewCheckoutArgs{CheckoutID: checkout.ID})

	var renewed domain.Checkout
	decodeRecord(t, res, &renewed)
	assert.Equal(t, 1, renewed.RenewalCount)
	assert.True(t, renewed.DueDate.After(checkout.DueDate))
}

func TestReserveAndCancelTools(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	res := f.callTool(t, "reserve_book", reserveBookArgs{
		PatronID: patron.ID,
		ISBN:     book.ISBN,
	})
	var reservation domain.Reservation
	decodeRecord(t, res, &reservation)
	assert.Equal(t, 1, reservation.QueuePosition)

	res = f.callTool(t, "cancel_reservation", cancelReservationArgs{ReservationID: reservation.ID})
	var cancelled domain.Reservation
	decodeRecord(t, res, &cancelled)
	assert.Equal(t, domain.ReservationCancelled, cancelled.Status)
}

func TestFulfillReservationTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	borrower := f.addPatron(t, "Ada Lovelace", "ada@example.com")
	holder := f.addPatron(t, "Grace Hopper", "grace@example.com")

	checkout, _, err := f.engine.Checkout(ctx, circulation.CheckoutRequest{
		PatronID: borrower.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)
	reservation, _, err := f.engine.Reserve(ctx, circulation.ReserveRequest{
		PatronID: holder.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)

	// Returning the only copy promotes the hold to available.
	_, _, err = f.engine.Return(ctx, circulation.ReturnRequest{CheckoutID: checkout.ID})
	require.NoError(t, err)

	res := f.callTool(t, "fulfill_reservation", fulfillReservationArgs{ReservationID: reservation.ID})

	var result circulation.FulfillResult
	decodeRecord(t, res, &result)
	assert.Equal(t, holder.ID, result.Checkout.PatronID)
	assert.Equal(t, book.ISBN, result.Checkout.BookISBN)
}

func TestPayFineTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	checkout, _, err := f.engine.Checkout(ctx, circulation.CheckoutRequest{
		PatronID: patron.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)
	f.clock.AdvanceDays(20)
	_, _, err = f.engine.Return(ctx, circulation.ReturnRequest{CheckoutID: checkout.ID})
	require.NoError(t, err)

	res := f.callTool(t, "pay_fine", payFineArgs{PatronID: patron.ID, Amount: 100})

	var paid domain.Patron
	decodeRecord(t, res, &paid)
	assert.Equal(t, domain.Cents(50), paid.OutstandingFines)
}

func TestPayFineToolRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	res := f.callTool(t, "pay_fine", payFineArgs{PatronID: patron.ID, Amount: 0})

	payload := decodeToolError(t, res)
	assert.Equal(t, "VALIDATION", payload["code"])
}

func TestAddBookTool(t *testing.T) {
	f := newFixture(t)

	res := f.callTool(t, "add_book", addBookArgs{
		ISBN:   "978-0-618-00221-3",
		Title:  "The Hobbit",
		Author: "J.R.R. Tolkien",
		Genre:  "Fantasy",
		Year:   1937,
		Copies: 3,
	})

	var book domain.Book
	decodeRecord(t, res, &book)
	assert.Equal(t, "9780618002213", book.ISBN)
	assert.Equal(t, "fantasy", book.Genre)
	assert.Equal(t, 3, book.AvailableCopies)
}

func TestAddBookToolDuplicate(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)

	res := f.callTool(t, "add_book", addBookArgs{
		ISBN:   "978-0-618-00221-3",
		Title:  "The Hobbit",
		Author: "J.R.R. Tolkien",
		Genre:  "Fantasy",
		Year:   1937,
		Copies: 1,
	})

	payload := decodeToolError(t, res)
	assert.Equal(t, "CONFLICT", payload["code"])
}

func TestRegisterPatronTool(t *testing.T) {
	f := newFixture(t)

	res := f.callTool(t, "register_patron", registerPatronArgs{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	})

	var patron domain.Patron
	decodeRecord(t, res, &patron)
	assert.Equal(t, domain.MembershipActive, patron.Status)
	assert.NotEmpty(t, patron.ID)
}

func TestRegisterPatronToolBadEmail(t *testing.T) {
	f := newFixture(t)

	res := f.callTool(t, "register_patron", registerPatronArgs{
		Name:  "Ada Lovelace",
		Email: "not-an-email",
	})

	payload := decodeToolError(t, res)
	assert.Equal(t, "VALIDATION", payload["code"])
}

func TestSetPatronStatusTool(t *testing.T) {
	f := newFixture(t)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	res := f.callTool(t, "set_patron_status", setPatronStatusArgs{
		PatronID: patron.ID,
		Status:   "suspended",
	})

	var updated domain.Patron
	decodeRecord(t, res, &updated)
	assert.Equal(t, domain.MembershipSuspended, updated.Status)
}

func TestSearchCatalogTool(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 2)
	f.addBook(t, "9780441013593", "Dune", "Frank Herbert", 1)

	res := f.callTool(t, "search_catalog", searchCatalogArgs{Query: "hobbit"})

	var result search.Result
	decodeRecord(t, res, &result)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "9780618002213", result.Hits[0].ISBN)
}

func TestRunSweepTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")

	_, _, err := f.engine.Checkout(ctx, circulation.CheckoutRequest{
		PatronID: patron.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)
	f.clock.AdvanceDays(20)

	res := f.callTool(t, "run_circulation_sweep", runSweepArgs{})

	var result circulation.SweepResult
	decodeRecord(t, res, &result)
	assert.Equal(t, 1, result.OverdueMarked)
}

func TestToolDispatchRateLimited(t *testing.T) {
	f := newFixture(t)
	limiter := ratelimit.New(0.001, 1)
	t.Cleanup(limiter.Stop)
	f.h.limiter = limiter

	first := f.callTool(t, "run_circulation_sweep", runSweepArgs{})
	assert.False(t, first.IsError)

	second := f.callTool(t, "run_circulation_sweep", runSweepArgs{})
	require.True(t, second.IsError)
	assert.Contains(t, second.Content[0].Text, "rate limit")
}

func TestListResources(t *testing.T) {
	f := newFixture(t)

	page, err := f.h.listResources(context.Background(), fakeSession("sess-1"), nil)
	require.NoError(t, err)

	uris := make([]string, 0, len(page.Items))
	for _, r := range page.Items {
		uris = append(uris, r.URI)
	}
	assert.Contains(t, uris, uriBooks)
	assert.Contains(t, uris, uriPatrons)
	assert.Contains(t, uris, uriActive)
	assert.Contains(t, uris, uriOverdue)
	assert.Contains(t, uris, uriStats)
}

func TestReadBookResource(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 2)

	contents, err := f.h.readResource(context.Background(), fakeSession("sess-1"), uriBookPrefix+book.ISBN)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "application/json", contents[0].MimeType)

	var got domain.Book
	require.NoError(t, json.Unmarshal([]byte(contents[0].Text), &got))
	assert.Equal(t, "The Hobbit", got.Title)
}

func TestReadStatsResource(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 2)
	f.addPatron(t, "Ada Lovelace", "ada@example.com")

	contents, err := f.h.readResource(context.Background(), fakeSession("sess-1"), uriStats)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	var stats domain.CirculationStats
	require.NoError(t, json.Unmarshal([]byte(contents[0].Text), &stats))
	assert.Equal(t, 1, stats.TotalBooks)
	assert.Equal(t, 2, stats.TotalCopies)
	assert.Equal(t, 1, stats.TotalPatrons)
}

func TestReadQueueResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")
	_, _, err := f.engine.Reserve(ctx, circulation.ReserveRequest{
		PatronID: patron.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)

	contents, err := f.h.readResource(ctx, fakeSession("sess-1"), uriQueuePrefix+book.ISBN)
	require.NoError(t, err)

	var queue []*domain.Reservation
	require.NoError(t, json.Unmarshal([]byte(contents[0].Text), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, patron.ID, queue[0].PatronID)
}

func TestReadUnknownResource(t *testing.T) {
	f := newFixture(t)

	_, err := f.h.readResource(context.Background(), fakeSession("sess-1"), "openshelf://nope")
	assert.Error(t, err)
}

func getPrompt(t *testing.T, f *fixture, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	t.Helper()
	raw := make(map[string]json.RawMessage, len(args))
	for k, v := range args {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		raw[k] = b
	}
	return f.h.prompts().Get(context.Background(), fakeSession("sess-1"), &mcp.GetPromptRequestReceived{
		Name:      name,
		Arguments: raw,
	})
}

func TestRecommendBooksPrompt(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 2)

	result, err := getPrompt(t, f, "recommend-books", map[string]string{"genre": "Fantasy"})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, mcp.RoleUser, result.Messages[0].Role)
	assert.Contains(t, result.Messages[0].Content[0].Text, "The Hobbit")
}

func TestOverdueNoticePrompt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")
	_, _, err := f.engine.Checkout(ctx, circulation.CheckoutRequest{
		PatronID: patron.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)
	f.clock.AdvanceDays(20)

	result, err := getPrompt(t, f, "overdue-notice", map[string]string{"patron_id": patron.ID})
	require.NoError(t, err)

	text := result.Messages[0].Content[0].Text
	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, book.ISBN)
	assert.Contains(t, text, "late")
}

func TestOverdueNoticePromptRequiresPatron(t *testing.T) {
	f := newFixture(t)

	_, err := getPrompt(t, f, "overdue-notice", nil)
	assert.Error(t, err)
}

func TestConditionReviewPrompt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := f.addBook(t, "9780618002213", "The Hobbit", "J.R.R. Tolkien", 1)
	patron := f.addPatron(t, "Ada Lovelace", "ada@example.com")
	checkout, _, err := f.engine.Checkout(ctx, circulation.CheckoutRequest{
		PatronID: patron.ID,
		BookISBN: book.ISBN,
	})
	require.NoError(t, err)
	_, _, err = f.engine.Return(ctx, circulation.ReturnRequest{
		CheckoutID: checkout.ID,
		Condition:  domain.ConditionDamaged,
	})
	require.NoError(t, err)

	result, err := getPrompt(t, f, "condition-review", map[string]string{"checkout_id": checkout.ID})
	require.NoError(t, err)

	text := result.Messages[0].Content[0].Text
	assert.Contains(t, text, "damaged")
	assert.Contains(t, text, book.ISBN)
}
