// Package store provides SQLite-backed persistence for the bookstore:
// catalog, customers, orders, policies, tickets, and analytics.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Order status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusReturned   = "returned"
)

// Genres recognized by the catalog. Tool input is validated against this list.
var Genres = []string{
	"Fiction", "Sci-Fi", "Mystery", "Romance", "Self-Help",
	"Biography", "History", "Business", "Fantasy", "Thriller",
}

// Customer is a bookstore account.
type Customer struct {
	ID                 int64
	Email              string
	Name               string
	Phone              string
	FavoriteGenres     []string
	HasShippingAddress bool
	CreatedAt          time.Time
}

// Book is a catalog entry.
type Book struct {
	ID          int64
	ISBN        string
	Title       string
	Author      string
	Genre       string
	Price       float64
	Description string
	Stock       int
	Rating      float64
	NumReviews  int
}

// Order is a customer order with its line items.
type Order struct {
	ID                int64
	Number            string
	CustomerID        int64
	CustomerEmail     string
	CustomerName      string
	Status            string
	TotalAmount       float64
	ShippingMethod    string
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery time.Time
	OrderDate         time.Time
	ShippedDate       time.Time
	DeliveredDate     time.Time
	ReturnRequested   bool
	ReturnReason      string
	ReturnApproved    bool
	RefundAmount      float64
	RefundProcessed   bool
	Items             []OrderItem
}

// OrderItem is a line item within an order.
type OrderItem struct {
	BookID       int64
	Title        string
	Author       string
	Quantity     int
	PricePerUnit float64
}

// Policy is an official store policy document used to ground agent answers.
type Policy struct {
	Type        string
	Title       string
	Content     string
	LastUpdated time.Time
}

// Ticket is a support ticket escalated to a human.
type Ticket struct {
	ID          int64
	Number      string
	CustomerID  int64
	Category    string
	Subject     string
	Description string
	Priority    string
	Status      string
	CreatedAt   time.Time
}

// Store is a SQLite-backed data store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL for concurrent readers, busy timeout so the websocket handlers
	// and the analytics collector can share the connection pool.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		favorite_genres TEXT,
		shipping_address TEXT,
		newsletter_subscribed INTEGER DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_customers_email ON customers(email);

	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		isbn TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		genre TEXT NOT NULL,
		price REAL NOT NULL,
		description TEXT NOT NULL,
		stock_quantity INTEGER DEFAULT 0,
		rating REAL DEFAULT 0,
		num_reviews INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
	CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
	CREATE INDEX IF NOT EXISTS idx_books_genre ON books(genre);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_number TEXT NOT NULL UNIQUE,
		customer_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total_amount REAL NOT NULL,
		shipping_method TEXT DEFAULT 'standard',
		tracking_number TEXT,
		carrier TEXT,
		estimated_delivery INTEGER,
		return_requested INTEGER DEFAULT 0,
		return_reason TEXT,
		return_approved INTEGER DEFAULT 0,
		refund_amount REAL DEFAULT 0,
		refund_processed INTEGER DEFAULT 0,
		order_date INTEGER NOT NULL,
		shipped_date INTEGER,
		delivered_date INTEGER,
		FOREIGN KEY (customer_id) REFERENCES customers(id)
	);
	CREATE INDEX IF NOT EXISTS idx_orders_number ON orders(order_number);
	CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, order_date);

	CREATE TABLE IF NOT EXISTS order_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		book_id INTEGER NOT NULL,
		quantity INTEGER DEFAULT 1,
		price_per_unit REAL NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		FOREIGN KEY (book_id) REFERENCES books(id)
	);
	CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

	CREATE TABLE IF NOT EXISTS policies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		policy_type TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		last_updated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS support_tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_number TEXT NOT NULL UNIQUE,
		customer_id INTEGER NOT NULL,
		category TEXT NOT NULL,
		subject TEXT NOT NULL,
		description TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'medium',
		status TEXT NOT NULL DEFAULT 'open',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (customer_id) REFERENCES customers(id)
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_session ON analytics_events(session_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics_events(event_type);

	CREATE TABLE IF NOT EXISTS conversation_analytics (
		session_id TEXT PRIMARY KEY,
		customer_email TEXT,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		message_count INTEGER DEFAULT 0,
		tool_call_count INTEGER DEFAULT 0,
		provider_fallbacks INTEGER DEFAULT 0,
		topics TEXT,
		sentiment TEXT,
		resolved INTEGER DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// unixOrZero converts a nullable unix-seconds column to a time.Time.
func unixOrZero(v sql.NullInt64) time.Time {
	if !v.Valid || v.Int64 == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}

// unixOrNull converts a time.Time to a nullable unix-seconds value.
func unixOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
