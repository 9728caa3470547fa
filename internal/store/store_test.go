package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestSeedIsIdempotent(t *testing.T) {
	s := testStore(t)
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	c, err := s.CustomerByEmail(context.Background(), "sarah.johnson@email.com")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Sarah Johnson" {
		t.Errorf("name = %q", c.Name)
	}
}

func TestCustomerByEmailCaseInsensitive(t *testing.T) {
	s := testStore(t)
	c, err := s.CustomerByEmail(context.Background(), "Sarah.Johnson@Email.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.FavoriteGenres) != 2 || c.FavoriteGenres[0] != "Fiction" {
		t.Errorf("genres = %v", c.FavoriteGenres)
	}
	if !c.HasShippingAddress {
		t.Error("expected shipping address")
	}
}

func TestCustomerByEmailNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.CustomerByEmail(context.Background(), "nobody@example.com")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOrderByNumberLoadsItems(t *testing.T) {
	s := testStore(t)
	o, err := s.OrderByNumber(context.Background(), orderNumber(1))
	if err != nil {
		t.Fatal(err)
	}
	if o.CustomerEmail != "sarah.johnson@email.com" {
		t.Errorf("customer email = %q", o.CustomerEmail)
	}
	if o.Status != StatusDelivered {
		t.Errorf("status = %q", o.Status)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(o.Items))
	}
	if o.Items[0].Title == "" || o.Items[0].PricePerUnit == 0 {
		t.Errorf("item not joined with book: %+v", o.Items[0])
	}
	if o.DeliveredDate.IsZero() {
		t.Error("delivered order should have delivered date")
	}
}

func TestOrderByNumberNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.OrderByNumber(context.Background(), "ORD-1999-99999")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOrdersByEmailNewestFirst(t *testing.T) {
	s := testStore(t)
	orders, err := s.OrdersByEmail(context.Background(), "sarah.johnson@email.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 4 {
		t.Fatalf("orders = %d, want 4", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i].OrderDate.After(orders[i-1].OrderDate) {
			t.Error("orders not sorted newest first")
		}
	}
}

func TestOrdersByEmailUnknownAccount(t *testing.T) {
	s := testStore(t)
	_, err := s.OrdersByEmail(context.Background(), "ghost@example.com")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOrdersByEmailNoOrders(t *testing.T) {
	s := testStore(t)
	orders, err := s.OrdersByEmail(context.Background(), "david.kim@email.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Errorf("orders = %d, want 0", len(orders))
	}
}

func TestMarkReturned(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	before, err := s.OrderByNumber(ctx, orderNumber(2))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MarkReturned(ctx, before.ID, "damaged"); err != nil {
		t.Fatal(err)
	}

	after, err := s.OrderByNumber(ctx, orderNumber(2))
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != StatusReturned {
		t.Errorf("status = %q", after.Status)
	}
	if !after.ReturnRequested || !after.ReturnApproved || !after.RefundProcessed {
		t.Errorf("return flags not set: %+v", after)
	}
	if after.RefundAmount != before.TotalAmount {
		t.Errorf("refund = %v, want %v", after.RefundAmount, before.TotalAmount)
	}
	if after.ReturnReason != "damaged" {
		t.Errorf("reason = %q", after.ReturnReason)
	}
}

func TestMarkReturnedMissingOrder(t *testing.T) {
	s := testStore(t)
	if err := s.MarkReturned(context.Background(), 99999, "damaged"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPolicyByType(t *testing.T) {
	s := testStore(t)
	p, err := s.PolicyByType(context.Background(), "return")
	if err != nil {
		t.Fatal(err)
	}
	if p.Title != "Return Policy" {
		t.Errorf("title = %q", p.Title)
	}
	if !strings.Contains(p.Content, "30 days") {
		t.Error("return policy should mention the 30 day window")
	}

	if _, err := s.PolicyByType(context.Background(), "warranty"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecommendationsExcludePurchased(t *testing.T) {
	s := testStore(t)
	books, basedOn, err := s.Recommendations(context.Background(), RecommendationQuery{
		Email: "sarah.johnson@email.com",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(basedOn) == 0 {
		t.Error("expected favorite genres to drive recommendations")
	}
	for _, b := range books {
		if b.Title == "Pride and Prejudice" || b.Title == "The Harbor Murder" {
			t.Errorf("recommended already purchased book %q", b.Title)
		}
		if b.Genre != "Fiction" && b.Genre != "Mystery" {
			t.Errorf("genre %q outside favorites", b.Genre)
		}
		if b.Stock <= 0 {
			t.Errorf("recommended out of stock book %q", b.Title)
		}
	}
}

func TestRecommendationsExplicitGenreOverridesFavorites(t *testing.T) {
	s := testStore(t)
	books, basedOn, err := s.Recommendations(context.Background(), RecommendationQuery{
		Email: "sarah.johnson@email.com",
		Genre: "Business",
		Limit: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(basedOn) != 0 {
		t.Errorf("explicit genre should not report favorites, got %v", basedOn)
	}
	for _, b := range books {
		if b.Genre != "Business" {
			t.Errorf("genre = %q, want Business", b.Genre)
		}
	}
}

func TestRecommendationsAnonymous(t *testing.T) {
	s := testStore(t)
	books, basedOn, err := s.Recommendations(context.Background(), RecommendationQuery{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(basedOn) != 0 {
		t.Errorf("anonymous query should have no favorites, got %v", basedOn)
	}
	if len(books) != 5 {
		t.Errorf("books = %d, want 5", len(books))
	}
	for i := 1; i < len(books); i++ {
		if books[i].Rating > books[i-1].Rating {
			t.Error("books not sorted by rating")
		}
	}
}

func TestSearchBooks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	books, err := s.SearchBooks(ctx, "quantum", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 1 || books[0].Title != "The Quantum Protocol" {
		t.Errorf("books = %+v", books)
	}

	// Author match
	books, err = s.SearchBooks(ctx, "austen", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 1 || books[0].Author != "Jane Austen" {
		t.Errorf("books = %+v", books)
	}

	// Genre filter narrows
	books, err = s.SearchBooks(ctx, "the", "Thriller")
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range books {
		if b.Genre != "Thriller" {
			t.Errorf("genre = %q", b.Genre)
		}
	}

	// No match is empty, not an error
	books, err = s.SearchBooks(ctx, "zzzzz", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 0 {
		t.Errorf("books = %d, want 0", len(books))
	}
}

func TestCreateTicket(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c, err := s.CustomerByEmail(ctx, "mike.chen@email.com")
	if err != nil {
		t.Fatal(err)
	}

	tk := &Ticket{
		CustomerID:  c.ID,
		Category:    "billing",
		Subject:     "Charged twice",
		Description: "My card shows two charges for order ORD-2024-00005.",
	}
	if err := s.CreateTicket(ctx, tk); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(tk.Number, "TKT-") {
		t.Errorf("ticket number = %q", tk.Number)
	}
	if tk.Priority != "medium" || tk.Status != "open" {
		t.Errorf("defaults not applied: %+v", tk)
	}
	if tk.ID == 0 {
		t.Error("expected generated id")
	}
}

func TestAnalyticsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.InsertAnalyticsEvent(ctx, AnalyticsEvent{
		SessionID: "sess-1",
		Type:      "tool_call",
		Payload:   map[string]any{"tool": "get_order_status"},
	})
	if err != nil {
		t.Fatal(err)
	}

	started := time.Now().Add(-2 * time.Minute).UTC().Truncate(time.Second)
	stats := ConversationStats{
		SessionID:     "sess-1",
		CustomerEmail: "sarah.johnson@email.com",
		StartedAt:     started,
		MessageCount:  3,
		ToolCallCount: 1,
		Topics:        []string{"order_status"},
		Sentiment:     "neutral",
	}
	if err := s.SaveConversationStats(ctx, stats); err != nil {
		t.Fatal(err)
	}

	// Upsert updates in place
	stats.MessageCount = 5
	stats.EndedAt = time.Now().UTC().Truncate(time.Second)
	stats.Resolved = true
	if err := s.SaveConversationStats(ctx, stats); err != nil {
		t.Fatal(err)
	}

	got, err := s.ConversationStatsBySession(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.MessageCount != 5 || !got.Resolved {
		t.Errorf("stats = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started = %v, want %v", got.StartedAt, started)
	}
	if len(got.Topics) != 1 || got.Topics[0] != "order_status" {
		t.Errorf("topics = %v", got.Topics)
	}
}

// orderNumber formats seed order numbers, which use the current year.
func orderNumber(i int) string {
	return fmt.Sprintf("ORD-%d-%05d", time.Now().UTC().Year(), i)
}
