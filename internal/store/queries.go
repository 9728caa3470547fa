package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CustomerByEmail looks up a customer account. Email matching is
// case-insensitive.
func (s *Store) CustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, COALESCE(phone, ''), COALESCE(favorite_genres, '[]'),
		       shipping_address IS NOT NULL, created_at
		FROM customers WHERE email = ? COLLATE NOCASE`, email)

	var c Customer
	var genresJSON string
	var createdAt int64
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &genresJSON, &c.HasShippingAddress, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	if err := json.Unmarshal([]byte(genresJSON), &c.FavoriteGenres); err != nil {
		c.FavoriteGenres = nil
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}

// OrderCountByCustomer returns how many orders a customer has placed.
func (s *Store) OrderCountByCustomer(ctx context.Context, customerID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = ?`, customerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

const orderColumns = `
	o.id, o.order_number, o.customer_id, c.email, c.name, o.status, o.total_amount,
	COALESCE(o.shipping_method, 'standard'), COALESCE(o.tracking_number, ''),
	COALESCE(o.carrier, ''), o.estimated_delivery, o.order_date,
	o.shipped_date, o.delivered_date, o.return_requested, COALESCE(o.return_reason, ''),
	o.return_approved, o.refund_amount, o.refund_processed`

func scanOrder(scan func(...any) error) (*Order, error) {
	var o Order
	var estimated, shipped, delivered sql.NullInt64
	var orderDate int64
	err := scan(
		&o.ID, &o.Number, &o.CustomerID, &o.CustomerEmail, &o.CustomerName,
		&o.Status, &o.TotalAmount, &o.ShippingMethod, &o.TrackingNumber,
		&o.Carrier, &estimated, &orderDate, &shipped, &delivered,
		&o.ReturnRequested, &o.ReturnReason, &o.ReturnApproved,
		&o.RefundAmount, &o.RefundProcessed,
	)
	if err != nil {
		return nil, err
	}
	o.EstimatedDelivery = unixOrZero(estimated)
	o.OrderDate = time.Unix(orderDate, 0).UTC()
	o.ShippedDate = unixOrZero(shipped)
	o.DeliveredDate = unixOrZero(delivered)
	return &o, nil
}

// OrderByNumber loads an order with its line items and customer identity.
func (s *Store) OrderByNumber(ctx context.Context, number string) (*Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE o.order_number = ?`, number)

	o, err := scanOrder(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// OrdersByEmail returns a customer's orders, newest first, with items.
// Returns ErrNotFound if no account exists for the email.
func (s *Store) OrdersByEmail(ctx context.Context, email string) ([]*Order, error) {
	if _, err := s.CustomerByEmail(ctx, email); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE c.email = ? COLLATE NOCASE
		ORDER BY o.order_date DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if err := s.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *Store) loadItems(ctx context.Context, o *Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.book_id, b.title, b.author, i.quantity, i.price_per_unit
		FROM order_items i JOIN books b ON b.id = i.book_id
		WHERE i.order_id = ?
		ORDER BY i.id`, o.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.BookID, &it.Title, &it.Author, &it.Quantity, &it.PricePerUnit); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// MarkReturned records an approved return: sets the return flags, moves
// the order to returned status, and books the full refund. Eligibility
// checks happen in the tool layer before this is called.
func (s *Store) MarkReturned(ctx context.Context, orderID int64, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			return_requested = 1,
			return_reason = ?,
			return_approved = 1,
			status = ?,
			refund_amount = total_amount,
			refund_processed = 1
		WHERE id = ?`, reason, StatusReturned, orderID)
	if err != nil {
		return fmt.Errorf("mark returned: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PolicyByType returns the policy document for the given type.
func (s *Store) PolicyByType(ctx context.Context, policyType string) (*Policy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT policy_type, title, content, last_updated
		FROM policies WHERE policy_type = ?`, policyType)

	var p Policy
	var updated int64
	err := row.Scan(&p.Type, &p.Title, &p.Content, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query policy: %w", err)
	}
	p.LastUpdated = time.Unix(updated, 0).UTC()
	return &p, nil
}

// RecommendationQuery filters personalized recommendations.
type RecommendationQuery struct {
	Email string // optional, personalizes against history and preferences
	Genre string // optional explicit genre filter
	Limit int
}

// Recommendations returns in-stock books ranked by rating. When the
// email matches an account, previously purchased books are excluded and
// the customer's favorite genres narrow the pool unless an explicit
// genre filter is given. The returned genres are the ones the
// recommendations were based on (empty means popularity only).
func (s *Store) Recommendations(ctx context.Context, q RecommendationQuery) ([]Book, []string, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	var favoriteGenres []string
	var customerID int64
	if q.Email != "" {
		c, err := s.CustomerByEmail(ctx, q.Email)
		if err == nil {
			favoriteGenres = c.FavoriteGenres
			customerID = c.ID
		} else if err != ErrNotFound {
			return nil, nil, err
		}
	}

	var sb strings.Builder
	var args []any
	sb.WriteString(`
		SELECT id, isbn, title, author, genre, price, description,
		       stock_quantity, rating, num_reviews
		FROM books WHERE stock_quantity > 0`)

	if customerID != 0 {
		sb.WriteString(` AND id NOT IN (
			SELECT i.book_id FROM order_items i
			JOIN orders o ON o.id = i.order_id
			WHERE o.customer_id = ?)`)
		args = append(args, customerID)
	}

	switch {
	case q.Genre != "":
		sb.WriteString(` AND genre = ?`)
		args = append(args, q.Genre)
		favoriteGenres = nil
	case len(favoriteGenres) > 0:
		sb.WriteString(` AND genre IN (?` + strings.Repeat(",?", len(favoriteGenres)-1) + `)`)
		for _, g := range favoriteGenres {
			args = append(args, g)
		}
	}

	sb.WriteString(` ORDER BY rating DESC LIMIT ?`)
	args = append(args, limit)

	books, err := s.queryBooks(ctx, sb.String(), args...)
	if err != nil {
		return nil, nil, err
	}
	return books, favoriteGenres, nil
}

// SearchBooks matches the catalog by title or author substring, with an
// optional genre filter. Returns at most 10 results.
func (s *Store) SearchBooks(ctx context.Context, query, genre string) ([]Book, error) {
	pattern := "%" + query + "%"
	q := `
		SELECT id, isbn, title, author, genre, price, description,
		       stock_quantity, rating, num_reviews
		FROM books
		WHERE (title LIKE ? COLLATE NOCASE OR author LIKE ? COLLATE NOCASE)`
	args := []any{pattern, pattern}
	if genre != "" {
		q += ` AND genre = ?`
		args = append(args, genre)
	}
	q += ` ORDER BY rating DESC LIMIT 10`
	return s.queryBooks(ctx, q, args...)
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.Price,
			&b.Description, &b.Stock, &b.Rating, &b.NumReviews); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CreateTicket inserts a support ticket for the customer and fills in
// the generated ticket number and timestamps.
func (s *Store) CreateTicket(ctx context.Context, t *Ticket) error {
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if t.Status == "" {
		t.Status = "open"
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.Number = fmt.Sprintf("TKT-%s", now.Format("20060102150405"))

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO support_tickets
			(ticket_number, customer_id, category, subject, description, priority, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Number, t.CustomerID, t.Category, t.Subject, t.Description,
		t.Priority, t.Status, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

// AnalyticsEvent is a single recorded conversation event.
type AnalyticsEvent struct {
	SessionID string
	Type      string
	Payload   map[string]any
	CreatedAt time.Time
}

// InsertAnalyticsEvent appends an event to the analytics log.
func (s *Store) InsertAnalyticsEvent(ctx context.Context, ev AnalyticsEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (session_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		ev.SessionID, ev.Type, string(payload), ev.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// ConversationStats is the per-conversation analytics rollup.
type ConversationStats struct {
	SessionID         string
	CustomerEmail     string
	StartedAt         time.Time
	EndedAt           time.Time
	MessageCount      int
	ToolCallCount     int
	ProviderFallbacks int
	Topics            []string
	Sentiment         string
	Resolved          bool
}

// SaveConversationStats upserts the rollup row for a session.
func (s *Store) SaveConversationStats(ctx context.Context, cs ConversationStats) error {
	topics, err := json.Marshal(cs.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_analytics
			(session_id, customer_email, started_at, ended_at, message_count,
			 tool_call_count, provider_fallbacks, topics, sentiment, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			customer_email = excluded.customer_email,
			ended_at = excluded.ended_at,
			message_count = excluded.message_count,
			tool_call_count = excluded.tool_call_count,
			provider_fallbacks = excluded.provider_fallbacks,
			topics = excluded.topics,
			sentiment = excluded.sentiment,
			resolved = excluded.resolved`,
		cs.SessionID, cs.CustomerEmail, cs.StartedAt.Unix(), unixOrNull(cs.EndedAt),
		cs.MessageCount, cs.ToolCallCount, cs.ProviderFallbacks,
		string(topics), cs.Sentiment, cs.Resolved)
	if err != nil {
		return fmt.Errorf("save conversation stats: %w", err)
	}
	return nil
}

// ConversationStatsBySession loads a rollup row, mainly for tests and
// the admin endpoints.
func (s *Store) ConversationStatsBySession(ctx context.Context, sessionID string) (*ConversationStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, COALESCE(customer_email, ''), started_at, ended_at,
		       message_count, tool_call_count, provider_fallbacks,
		       COALESCE(topics, '[]'), COALESCE(sentiment, ''), resolved
		FROM conversation_analytics WHERE session_id = ?`, sessionID)

	var cs ConversationStats
	var started int64
	var ended sql.NullInt64
	var topicsJSON string
	err := row.Scan(&cs.SessionID, &cs.CustomerEmail, &started, &ended,
		&cs.MessageCount, &cs.ToolCallCount, &cs.ProviderFallbacks,
		&topicsJSON, &cs.Sentiment, &cs.Resolved)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation stats: %w", err)
	}
	cs.StartedAt = time.Unix(started, 0).UTC()
	cs.EndedAt = unixOrZero(ended)
	if err := json.Unmarshal([]byte(topicsJSON), &cs.Topics); err != nil {
		cs.Topics = nil
	}
	return &cs, nil
}
