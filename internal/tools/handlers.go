package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bookly/support-agent/internal/store"
)

const displayDate = "January 2, 2006"

// returnWindowDays is the policy return window after delivery.
const returnWindowDays = 30

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "get_order_status",
		Description: "Retrieves the current status of a customer's order including items, shipping info, and tracking. Use this when a customer asks about their order status, shipping updates, or delivery information. Requires either order_id or customer email.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"order_id": map[string]any{
					"type":        "string",
					"description": "The order number (e.g., 'ORD-2024-00001')",
				},
				"email": map[string]any{
					"type":        "string",
					"description": "Customer's email address for verification",
				},
			},
			"required": []string{},
		},
		Handler: r.handleGetOrderStatus,
	})

	r.Register(&Tool{
		Name:        "search_orders",
		Description: "Searches for orders based on customer email. Use this when the customer doesn't have their order ID or wants to see all their orders. Returns a list of orders.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{
					"type":        "string",
					"description": "Customer's email address",
				},
			},
			"required": []string{"email"},
		},
		Handler: r.handleSearchOrders,
	})

	r.Register(&Tool{
		Name:        "get_customer_info",
		Description: "Retrieves customer account information including order history summary and preferences. Use this to personalize responses and understand the customer's context.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{
					"type":        "string",
					"description": "Customer's email address",
				},
			},
			"required": []string{"email"},
		},
		Handler: r.handleGetCustomerInfo,
	})

	r.Register(&Tool{
		Name:        "initiate_return",
		Description: "Starts the return process for an order. IMPORTANT: Only use after confirming with the customer that they want to proceed. Checks if order is eligible for return (within 30 days, not already returned).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"order_id": map[string]any{
					"type":        "string",
					"description": "The order number to return",
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Customer's reason for return",
					"enum":        []string{"damaged", "wrong_item", "not_as_described", "no_longer_needed", "other"},
				},
				"email": map[string]any{
					"type":        "string",
					"description": "Customer email for verification",
				},
			},
			"required": []string{"order_id", "reason", "email"},
		},
		Handler: r.handleInitiateReturn,
	})

	r.Register(&Tool{
		Name:        "get_policy_info",
		Description: "Retrieves official company policy information. ALWAYS use this tool instead of general knowledge when asked about policies. This ensures accuracy.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"policy_type": map[string]any{
					"type":        "string",
					"description": "Type of policy to retrieve",
					"enum":        []string{"return", "refund", "shipping", "privacy", "payment", "account"},
				},
			},
			"required": []string{"policy_type"},
		},
		Handler: r.handleGetPolicyInfo,
	})

	r.Register(&Tool{
		Name:        "get_recommendations",
		Description: "Gets personalized book recommendations based on customer's order history and stated preferences.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{
					"type":        "string",
					"description": "Customer's email for personalized recommendations",
				},
				"genre": map[string]any{
					"type":        "string",
					"description": "Optional genre filter",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Number of recommendations (default 5)",
				},
			},
			"required": []string{},
		},
		Handler: r.handleGetRecommendations,
	})

	r.Register(&Tool{
		Name:        "search_books",
		Description: "Searches the book catalog by title, author, or keyword. Use when customers ask about book availability.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query (title, author, keyword)",
				},
				"genre": map[string]any{
					"type":        "string",
					"description": "Optional genre filter",
				},
			},
			"required": []string{"query"},
		},
		Handler: r.handleSearchBooks,
	})

	r.Register(&Tool{
		Name:        "create_support_ticket",
		Description: "Creates a support ticket for issues that require human follow-up. Use when you cannot resolve the issue or the customer needs escalation.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{
					"type":        "string",
					"description": "Customer's email",
				},
				"category": map[string]any{
					"type": "string",
					"enum": []string{"order", "billing", "shipping", "product", "account", "other"},
				},
				"subject": map[string]any{
					"type":        "string",
					"description": "Brief subject line",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Detailed description of the issue",
				},
				"priority": map[string]any{
					"type":        "string",
					"enum":        []string{"low", "medium", "high", "urgent"},
					"description": "Priority level",
				},
			},
			"required": []string{"email", "category", "subject", "description"},
		},
		Handler: r.handleCreateSupportTicket,
	})
}

func (r *Registry) handleGetOrderStatus(ctx context.Context, args map[string]any) Result {
	orderID := strArg(args, "order_id")
	email := strArg(args, "email")

	if orderID == "" && email == "" {
		return failure(CodeInvalidArgument, "Please provide either order_id or email.")
	}
	if orderID == "" {
		// Fall back to the customer's most recent order.
		orders, err := r.store.OrdersByEmail(ctx, email)
		if err == store.ErrNotFound {
			return failure(CodeNotFound, fmt.Sprintf("No account found with email %s.", email))
		}
		if err != nil {
			return r.storeFailure("get_order_status", err)
		}
		if len(orders) == 0 {
			return failure(CodeNotFound, "No orders found for this account.")
		}
		orderID = orders[0].Number
	}

	order, err := r.store.OrderByNumber(ctx, orderID)
	if err == store.ErrNotFound {
		return failure(CodeNotFound, "Order not found. Please verify the order number.")
	}
	if err != nil {
		return r.storeFailure("get_order_status", err)
	}

	if email != "" && !strings.EqualFold(order.CustomerEmail, email) {
		return failure(CodeEmailMismatch, "Email does not match this order. Please verify your information.")
	}

	items := make([]map[string]any, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, map[string]any{
			"title":    it.Title,
			"author":   it.Author,
			"quantity": it.Quantity,
			"price":    it.PricePerUnit,
		})
	}

	return success("", map[string]any{
		"order_number":       order.Number,
		"status":             order.Status,
		"total_amount":       order.TotalAmount,
		"order_date":         order.OrderDate.Format(displayDate),
		"items":              items,
		"shipping_method":    order.ShippingMethod,
		"tracking_number":    order.TrackingNumber,
		"carrier":            order.Carrier,
		"estimated_delivery": formatOrEmpty(order.EstimatedDelivery),
		"shipped_date":       formatOrEmpty(order.ShippedDate),
		"delivered_date":     formatOrEmpty(order.DeliveredDate),
		"return_requested":   order.ReturnRequested,
		"return_approved":    order.ReturnApproved,
	})
}

func (r *Registry) handleSearchOrders(ctx context.Context, args map[string]any) Result {
	email := strArg(args, "email")

	orders, err := r.store.OrdersByEmail(ctx, email)
	if err == store.ErrNotFound {
		return failure(CodeNotFound, fmt.Sprintf("No account found with email %s.", email))
	}
	if err != nil {
		return r.storeFailure("search_orders", err)
	}
	if len(orders) == 0 {
		return success("No orders found for this account.", map[string]any{
			"orders":       []any{},
			"total_orders": 0,
		})
	}

	list := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		list = append(list, map[string]any{
			"order_number":  o.Number,
			"status":        o.Status,
			"order_date":    o.OrderDate.Format(displayDate),
			"total_amount":  o.TotalAmount,
			"items_summary": itemsSummary(o.Items),
			"item_count":    len(o.Items),
		})
	}

	return success("", map[string]any{
		"customer_name": orders[0].CustomerName,
		"orders":        list,
		"total_orders":  len(list),
	})
}

// itemsSummary lists up to three titles, noting how many were omitted.
func itemsSummary(items []store.OrderItem) string {
	var titles []string
	for i, it := range items {
		if i == 3 {
			break
		}
		titles = append(titles, "'"+it.Title+"'")
	}
	summary := strings.Join(titles, ", ")
	if extra := len(items) - 3; extra > 0 {
		summary += fmt.Sprintf(" and %d more", extra)
	}
	return summary
}

func (r *Registry) handleGetCustomerInfo(ctx context.Context, args map[string]any) Result {
	email := strArg(args, "email")

	c, err := r.store.CustomerByEmail(ctx, email)
	if err == store.ErrNotFound {
		return failure(CodeNotFound, fmt.Sprintf("No account found with email %s.", email))
	}
	if err != nil {
		return r.storeFailure("get_customer_info", err)
	}

	count, err := r.store.OrderCountByCustomer(ctx, c.ID)
	if err != nil {
		return r.storeFailure("get_customer_info", err)
	}

	genres := c.FavoriteGenres
	if genres == nil {
		genres = []string{}
	}

	return success("", map[string]any{
		"name":                 c.Name,
		"email":                c.Email,
		"member_since":         c.CreatedAt.Format("January 2006"),
		"favorite_genres":      genres,
		"total_orders":         count,
		"has_shipping_address": c.HasShippingAddress,
	})
}

func (r *Registry) handleInitiateReturn(ctx context.Context, args map[string]any) Result {
	orderID := strArg(args, "order_id")
	reason := strArg(args, "reason")
	email := strArg(args, "email")

	order, err := r.store.OrderByNumber(ctx, orderID)
	if err == store.ErrNotFound {
		return failure(CodeNotFound, fmt.Sprintf("Order %s not found.", orderID))
	}
	if err != nil {
		return r.storeFailure("initiate_return", err)
	}

	if !strings.EqualFold(order.CustomerEmail, email) {
		return failure(CodeEmailMismatch, "Email does not match this order.")
	}
	if order.ReturnRequested {
		return failure(CodeNotEligible, "A return has already been requested for this order.")
	}
	if order.Status != store.StatusDelivered {
		return failure(CodeNotEligible,
			fmt.Sprintf("Order status is '%s'. Only delivered orders can be returned.", order.Status))
	}
	if !order.DeliveredDate.IsZero() {
		days := int(time.Since(order.DeliveredDate).Hours() / 24)
		if days > returnWindowDays {
			return failure(CodeNotEligible, fmt.Sprintf(
				"This order was delivered %d days ago. Our return policy allows returns within %d days of delivery. However, I can create a support ticket for our team to review your request.",
				days, returnWindowDays))
		}
	}

	if err := r.store.MarkReturned(ctx, order.ID, reason); err != nil {
		return r.storeFailure("initiate_return", err)
	}

	return success(fmt.Sprintf("Return approved for order %s", orderID), map[string]any{
		"return_details": map[string]any{
			"order_number":  orderID,
			"refund_amount": order.TotalAmount,
			"reason":        reason,
			"instructions":  "A prepaid return shipping label has been sent to your email. Please ship the items within 7 days. Your refund will be processed within 5-7 business days after we receive the return.",
		},
	})
}

func (r *Registry) handleGetPolicyInfo(ctx context.Context, args map[string]any) Result {
	policyType := strArg(args, "policy_type")

	p, err := r.store.PolicyByType(ctx, policyType)
	if err == store.ErrNotFound {
		return failure(CodeNotFound, fmt.Sprintf("Policy '%s' not found.", policyType))
	}
	if err != nil {
		return r.storeFailure("get_policy_info", err)
	}

	return success("", map[string]any{
		"policy_type":  p.Type,
		"title":        p.Title,
		"content":      p.Content,
		"last_updated": p.LastUpdated.Format(displayDate),
	})
}

func (r *Registry) handleGetRecommendations(ctx context.Context, args map[string]any) Result {
	books, basedOnGenres, err := r.store.Recommendations(ctx, store.RecommendationQuery{
		Email: strArg(args, "email"),
		Genre: strArg(args, "genre"),
		Limit: intArg(args, "limit", 5),
	})
	if err != nil {
		return r.storeFailure("get_recommendations", err)
	}

	recs := make([]map[string]any, 0, len(books))
	for _, b := range books {
		recs = append(recs, map[string]any{
			"title":       b.Title,
			"author":      b.Author,
			"genre":       b.Genre,
			"price":       b.Price,
			"rating":      b.Rating,
			"description": truncate(b.Description, 200),
		})
	}

	basedOn := "popular books"
	if len(basedOnGenres) > 0 {
		basedOn = fmt.Sprintf("your preferences (%s)", strings.Join(basedOnGenres, ", "))
	}

	return success("", map[string]any{
		"recommendations": recs,
		"based_on":        basedOn,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (r *Registry) handleSearchBooks(ctx context.Context, args map[string]any) Result {
	query := strArg(args, "query")

	books, err := r.store.SearchBooks(ctx, query, strArg(args, "genre"))
	if err != nil {
		return r.storeFailure("search_books", err)
	}
	if len(books) == 0 {
		return success(fmt.Sprintf("No books found matching '%s'.", query), map[string]any{
			"books":       []any{},
			"total_found": 0,
		})
	}

	list := make([]map[string]any, 0, len(books))
	for _, b := range books {
		list = append(list, map[string]any{
			"title":    b.Title,
			"author":   b.Author,
			"genre":    b.Genre,
			"price":    b.Price,
			"in_stock": b.Stock > 0,
			"rating":   b.Rating,
		})
	}

	return success("", map[string]any{
		"books":       list,
		"total_found": len(list),
	})
}

func (r *Registry) handleCreateSupportTicket(ctx context.Context, args map[string]any) Result {
	email := strArg(args, "email")

	c, err := r.store.CustomerByEmail(ctx, email)
	if err == store.ErrNotFound {
		return failure(CodeNotFound,
			fmt.Sprintf("No account found with email %s. Please verify your email.", email))
	}
	if err != nil {
		return r.storeFailure("create_support_ticket", err)
	}

	priority := strArg(args, "priority")
	if priority == "" {
		priority = "medium"
	}

	ticket := &store.Ticket{
		CustomerID:  c.ID,
		Category:    strArg(args, "category"),
		Subject:     strArg(args, "subject"),
		Description: strArg(args, "description"),
		Priority:    priority,
	}
	if err := r.store.CreateTicket(ctx, ticket); err != nil {
		return r.storeFailure("create_support_ticket", err)
	}

	return success(
		fmt.Sprintf("Support ticket %s has been created. Our team will contact you within 24 hours at %s.", ticket.Number, email),
		map[string]any{
			"ticket_number": ticket.Number,
			"priority":      priority,
		})
}

func (r *Registry) storeFailure(tool string, err error) Result {
	r.logger.Error("tool store error", "tool", tool, "error", err)
	return failure(CodeInternal, "Something went wrong looking that up. Please try again in a moment.")
}

func formatOrEmpty(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(displayDate)
}
