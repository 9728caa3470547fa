package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with demo catalog, customers, orders, and
// policies. It is a no-op if customers already exist.
func (s *Store) Seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	type seedBook struct {
		isbn, title, author, genre, desc string
		price, rating                    float64
		stock, reviews                   int
	}
	books := []seedBook{
		{"978-0-14-143951-8", "Pride and Prejudice", "Jane Austen", "Fiction",
			"Elizabeth Bennet navigates manners, marriage, and misjudgment in Regency England.", 9.99, 4.7, 42, 1843},
		{"978-0-553-21311-7", "The Quantum Protocol", "James Chen", "Sci-Fi",
			"A physicist discovers her entanglement experiments are being mirrored by something on the far side of the relay network.", 14.99, 4.5, 30, 512},
		{"978-0-7432-7356-5", "The Harbor Murder", "Arthur Conan Doyle", "Mystery",
			"A body washes up beneath the customs house and every witness tells a different tide.", 11.50, 4.4, 25, 760},
		{"978-1-5011-7321-9", "Love in Lisbon", "Elena Rodriguez", "Romance",
			"Two rival tour guides keep crossing paths in the Alfama, one missed tram at a time.", 8.99, 4.2, 55, 410},
		{"978-0-7352-1129-2", "The Mindful Habit", "Aisha Patel", "Self-Help",
			"A practical system for building small daily practices that survive busy weeks.", 16.00, 4.6, 61, 1320},
		{"978-0-679-64115-3", "Becoming Ada", "Sophia Williams", "Biography",
			"The life of Ada Lovelace, from tutored prodigy to the first published programmer.", 18.50, 4.8, 19, 905},
		{"978-0-06-231609-7", "Empires of Salt", "Thomas Anderson", "History",
			"How the salt trade financed empires and started wars across three continents.", 21.00, 4.3, 14, 388},
		{"978-1-59184-849-9", "The Founder's Compass", "Jennifer Lee", "Business",
			"Decision frameworks for the first two years of a company, drawn from 40 postmortems.", 19.99, 4.1, 33, 276},
		{"978-0-7564-0407-9", "Crown of Embers", "Rachel Green", "Fantasy",
			"The heir to a dying throne must bargain with the fire court to keep her city lit.", 12.99, 4.6, 48, 1105},
		{"978-0-316-03770-4", "The Final Cipher", "Marcus Johnson", "Thriller",
			"A retired codebreaker receives a message only she can read, signed by a dead man.", 13.50, 4.4, 38, 834},
		{"978-0-14-118776-1", "The Silent Garden", "Emily Bronte", "Fiction",
			"Three generations of a family tend a walled garden that remembers more than they do.", 10.99, 4.0, 27, 213},
		{"978-0-441-01234-5", "Nebula Station", "H.G. Wells", "Sci-Fi",
			"The last refueling stop before the outer colonies goes quiet during the night shift.", 15.50, 4.7, 0, 1490},
	}

	bookIDs := make(map[string]int64)
	for _, b := range books {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO books (isbn, title, author, genre, price, description, stock_quantity, rating, num_reviews, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.isbn, b.title, b.author, b.genre, b.price, b.desc, b.stock, b.rating, b.reviews, now.Unix())
		if err != nil {
			return fmt.Errorf("seed book %q: %w", b.title, err)
		}
		id, _ := res.LastInsertId()
		bookIDs[b.title] = id
	}

	type seedCustomer struct {
		email, name, phone string
		genres             []string
		memberSinceDays    int
	}
	customers := []seedCustomer{
		{"sarah.johnson@email.com", "Sarah Johnson", "+1-555-0101", []string{"Fiction", "Mystery"}, 700},
		{"mike.chen@email.com", "Mike Chen", "+1-555-0102", []string{"Sci-Fi", "Business"}, 420},
		{"emma.wilson@email.com", "Emma Wilson", "+1-555-0103", []string{"Romance", "Self-Help"}, 900},
		{"olivia.smith@email.com", "Olivia Smith", "", []string{"Fantasy", "Sci-Fi"}, 300},
		{"david.kim@email.com", "David Kim", "", []string{"Thriller", "Mystery"}, 60},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("BooklyDemo1"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	customerIDs := make(map[string]int64)
	for _, c := range customers {
		genres, _ := json.Marshal(c.genres)
		addr, _ := json.Marshal(map[string]string{
			"name": c.name, "street": "100 Demo St", "city": "Portland", "state": "OR", "zip": "97201",
		})
		res, err := tx.ExecContext(ctx, `
			INSERT INTO customers (email, password_hash, name, phone, favorite_genres, shipping_address, newsletter_subscribed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			c.email, string(hash), c.name, c.phone, string(genres), string(addr),
			now.AddDate(0, 0, -c.memberSinceDays).Unix())
		if err != nil {
			return fmt.Errorf("seed customer %q: %w", c.email, err)
		}
		id, _ := res.LastInsertId()
		customerIDs[c.email] = id
	}

	type seedOrder struct {
		email    string
		status   string
		daysAgo  int
		returned bool
		titles   []string
	}
	orders := []seedOrder{
		{"sarah.johnson@email.com", StatusDelivered, 60, false, []string{"Pride and Prejudice", "The Harbor Murder"}},
		{"sarah.johnson@email.com", StatusDelivered, 20, false, []string{"The Silent Garden"}},
		{"sarah.johnson@email.com", StatusShipped, 3, false, []string{"The Final Cipher", "Crown of Embers"}},
		{"sarah.johnson@email.com", StatusProcessing, 1, false, []string{"Becoming Ada"}},
		{"mike.chen@email.com", StatusDelivered, 90, false, []string{"The Quantum Protocol"}},
		{"mike.chen@email.com", StatusDelivered, 45, false, []string{"The Founder's Compass"}},
		{"mike.chen@email.com", StatusShipped, 5, false, []string{"Nebula Station"}},
		{"emma.wilson@email.com", StatusDelivered, 180, false, []string{"Love in Lisbon"}},
		{"emma.wilson@email.com", StatusDelivered, 15, false, []string{"The Mindful Habit"}},
		{"olivia.smith@email.com", StatusReturned, 45, true, []string{"Crown of Embers"}},
		{"olivia.smith@email.com", StatusDelivered, 10, false, []string{"The Quantum Protocol", "Nebula Station"}},
	}

	for i, o := range orders {
		number := fmt.Sprintf("ORD-%d-%05d", now.Year(), i+1)
		orderDate := now.AddDate(0, 0, -o.daysAgo)

		var total float64
		for _, title := range o.titles {
			for _, b := range books {
				if b.title == title {
					total += b.price
				}
			}
		}

		var shipped, delivered any
		var tracking, carrier string
		switch o.status {
		case StatusShipped:
			shipped = orderDate.AddDate(0, 0, 1).Unix()
			tracking, carrier = fmt.Sprintf("9400111899%06d", i+1), "USPS"
		case StatusDelivered, StatusReturned:
			shipped = orderDate.AddDate(0, 0, 1).Unix()
			delivered = orderDate.AddDate(0, 0, 4).Unix()
			tracking, carrier = fmt.Sprintf("1Z999AA1%08d", i+1), "UPS"
		}

		returnReason := ""
		if o.returned {
			returnReason = "no_longer_needed"
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (order_number, customer_id, status, total_amount, shipping_method,
				tracking_number, carrier, estimated_delivery, return_requested, return_reason,
				return_approved, refund_amount, refund_processed, order_date, shipped_date, delivered_date)
			VALUES (?, ?, ?, ?, 'standard', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			number, customerIDs[o.email], o.status, total,
			nullIfEmpty(tracking), nullIfEmpty(carrier),
			orderDate.AddDate(0, 0, 6).Unix(),
			o.returned, nullIfEmpty(returnReason), o.returned,
			refundIf(o.returned, total), o.returned,
			orderDate.Unix(), shipped, delivered)
		if err != nil {
			return fmt.Errorf("seed order %s: %w", number, err)
		}
		orderID, _ := res.LastInsertId()

		for _, title := range o.titles {
			var price float64
			for _, b := range books {
				if b.title == title {
					price = b.price
				}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, book_id, quantity, price_per_unit)
				VALUES (?, ?, 1, ?)`, orderID, bookIDs[title], price); err != nil {
				return fmt.Errorf("seed order item %q: %w", title, err)
			}
		}
	}

	for _, p := range seedPolicies {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO policies (policy_type, title, content, last_updated)
			VALUES (?, ?, ?, ?)`, p.Type, p.Title, p.Content, now.Unix()); err != nil {
			return fmt.Errorf("seed policy %q: %w", p.Type, err)
		}
	}

	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func refundIf(returned bool, total float64) float64 {
	if returned {
		return total
	}
	return 0
}
