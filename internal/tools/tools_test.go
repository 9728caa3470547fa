package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bookly/support-agent/internal/store"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewRegistry(st, 15*time.Second, nil)
}

func seedOrderNumber(t *testing.T, i int) string {
	t.Helper()
	return fmt.Sprintf("ORD-%d-%05d", time.Now().UTC().Year(), i)
}

func TestExecuteUnknownTool(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "launch_missiles", nil)
	if res.Success || res.ErrorCode != CodeUnknownTool {
		t.Errorf("result = %+v", res)
	}
}

func TestExecuteMissingRequiredArgument(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "search_orders", map[string]any{})
	if res.Success || res.ErrorCode != CodeInvalidArgument {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Message, "email") {
		t.Errorf("message should name the missing argument: %q", res.Message)
	}
}

func TestExecuteEnumViolation(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_policy_info", map[string]any{
		"policy_type": "warranty",
	})
	if res.Success || res.ErrorCode != CodeInvalidArgument {
		t.Errorf("result = %+v", res)
	}
}

func TestExecuteWrongArgumentType(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "search_books", map[string]any{
		"query": 42,
	})
	if res.Success || res.ErrorCode != CodeInvalidArgument {
		t.Errorf("result = %+v", res)
	}
}

func TestExecuteDropsUnknownArguments(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_policy_info", map[string]any{
		"policy_type": "return",
		"verbosity":   "high",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
}

func TestGetOrderStatus(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_order_status", map[string]any{
		"order_id": seedOrderNumber(t, 1),
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Data["status"] != store.StatusDelivered {
		t.Errorf("status = %v", res.Data["status"])
	}
	items, ok := res.Data["items"].([]map[string]any)
	if !ok || len(items) != 2 {
		t.Errorf("items = %v", res.Data["items"])
	}
}

func TestGetOrderStatusEmailMismatch(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_order_status", map[string]any{
		"order_id": seedOrderNumber(t, 1),
		"email":    "mike.chen@email.com",
	})
	if res.Success || res.ErrorCode != CodeEmailMismatch {
		t.Errorf("result = %+v", res)
	}
}

func TestGetOrderStatusByEmailUsesLatestOrder(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_order_status", map[string]any{
		"email": "mike.chen@email.com",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Data["status"] != store.StatusShipped {
		t.Errorf("status = %v, want most recent (shipped)", res.Data["status"])
	}
}

func TestGetOrderStatusNeitherArgument(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_order_status", map[string]any{})
	if res.Success || res.ErrorCode != CodeInvalidArgument {
		t.Errorf("result = %+v", res)
	}
}

func TestSearchOrdersEmptyIsNotError(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "search_orders", map[string]any{
		"email": "david.kim@email.com",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Data["total_orders"] != 0 {
		t.Errorf("total_orders = %v", res.Data["total_orders"])
	}
}

func TestSearchOrdersUnknownAccount(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "search_orders", map[string]any{
		"email": "ghost@example.com",
	})
	if res.Success || res.ErrorCode != CodeNotFound {
		t.Errorf("result = %+v", res)
	}
}

func TestGetCustomerInfo(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_customer_info", map[string]any{
		"email": "sarah.johnson@email.com",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Data["name"] != "Sarah Johnson" {
		t.Errorf("name = %v", res.Data["name"])
	}
	if res.Data["total_orders"] != 4 {
		t.Errorf("total_orders = %v", res.Data["total_orders"])
	}
}

func TestInitiateReturnHappyPath(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "initiate_return", map[string]any{
		"order_id": seedOrderNumber(t, 2),
		"reason":   "damaged",
		"email":    "sarah.johnson@email.com",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	details, _ := res.Data["return_details"].(map[string]any)
	if details["refund_amount"] == nil {
		t.Errorf("return details = %v", details)
	}

	// Second attempt is rejected
	res = r.Execute(context.Background(), "initiate_return", map[string]any{
		"order_id": seedOrderNumber(t, 2),
		"reason":   "damaged",
		"email":    "sarah.johnson@email.com",
	})
	if res.Success || res.ErrorCode != CodeNotEligible {
		t.Errorf("repeat return result = %+v", res)
	}
}

func TestInitiateReturnNotDelivered(t *testing.T) {
	r := testRegistry(t)
	// Seed order 3 is still shipped
	res := r.Execute(context.Background(), "initiate_return", map[string]any{
		"order_id": seedOrderNumber(t, 3),
		"reason":   "no_longer_needed",
		"email":    "sarah.johnson@email.com",
	})
	if res.Success || res.ErrorCode != CodeNotEligible {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Message, "delivered") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestInitiateReturnWindowExpired(t *testing.T) {
	r := testRegistry(t)
	// Seed order 8 was delivered 180 days ago
	res := r.Execute(context.Background(), "initiate_return", map[string]any{
		"order_id": seedOrderNumber(t, 8),
		"reason":   "no_longer_needed",
		"email":    "emma.wilson@email.com",
	})
	if res.Success || res.ErrorCode != CodeNotEligible {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Message, "support ticket") {
		t.Errorf("expired-window message should offer escalation: %q", res.Message)
	}
}

func TestInitiateReturnInvalidReason(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "initiate_return", map[string]any{
		"order_id": seedOrderNumber(t, 2),
		"reason":   "changed_my_mind",
		"email":    "sarah.johnson@email.com",
	})
	if res.Success || res.ErrorCode != CodeInvalidArgument {
		t.Errorf("result = %+v", res)
	}
}

func TestGetPolicyInfo(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_policy_info", map[string]any{
		"policy_type": "shipping",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	content, _ := res.Data["content"].(string)
	if !strings.Contains(content, "Standard Shipping") {
		t.Errorf("content = %q", content)
	}
}

func TestGetPolicyInfoRepeatable(t *testing.T) {
	r := testRegistry(t)
	args := map[string]any{"policy_type": "return"}

	first := r.Execute(context.Background(), "get_policy_info", args)
	second := r.Execute(context.Background(), "get_policy_info", args)
	if !first.Success {
		t.Fatalf("result = %+v", first)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calls differ:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestGetRecommendationsAnonymous(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "get_recommendations", map[string]any{
		"limit": float64(3),
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Data["based_on"] != "popular books" {
		t.Errorf("based_on = %v", res.Data["based_on"])
	}
	recs, _ := res.Data["recommendations"].([]map[string]any)
	if len(recs) != 3 {
		t.Errorf("recommendations = %d", len(recs))
	}
}

func TestSearchBooksNoMatches(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "search_books", map[string]any{
		"query": "nonexistent title xyz",
	})
	if !res.Success {
		t.Fatalf("no matches should still succeed: %+v", res)
	}
	if res.Data["total_found"] != 0 {
		t.Errorf("total_found = %v", res.Data["total_found"])
	}
}

func TestCreateSupportTicket(t *testing.T) {
	r := testRegistry(t)
	res := r.Execute(context.Background(), "create_support_ticket", map[string]any{
		"email":       "mike.chen@email.com",
		"category":    "shipping",
		"subject":     "Package stuck in transit",
		"description": "Tracking has not updated in five days.",
	})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	number, _ := res.Data["ticket_number"].(string)
	if !strings.HasPrefix(number, "TKT-") {
		t.Errorf("ticket_number = %q", number)
	}
	if res.Data["priority"] != "medium" {
		t.Errorf("priority = %v", res.Data["priority"])
	}
}

func TestResultJSONAlwaysSerializes(t *testing.T) {
	res := failure(CodeNotFound, "nope")
	if !strings.Contains(res.JSON(), `"error_code":"NOT_FOUND"`) {
		t.Errorf("json = %s", res.JSON())
	}
}

func TestDefinitionsOpenAIFormat(t *testing.T) {
	r := testRegistry(t)
	defs := r.Definitions()
	if len(defs) != 8 {
		t.Fatalf("definitions = %d, want 8", len(defs))
	}
	first, _ := defs[0]["function"].(map[string]any)
	if first["name"] != "get_order_status" {
		t.Errorf("first tool = %v, registration order not preserved", first["name"])
	}
	for _, d := range defs {
		if d["type"] != "function" {
			t.Errorf("definition type = %v", d["type"])
		}
	}
}

func TestAcceptsParam(t *testing.T) {
	r := testRegistry(t)
	if !r.AcceptsParam("search_orders", "email") {
		t.Error("search_orders should accept email")
	}
	if r.AcceptsParam("get_policy_info", "email") {
		t.Error("get_policy_info should not accept email")
	}
	if r.AcceptsParam("no_such_tool", "email") {
		t.Error("unknown tool should not accept anything")
	}
}
