package prompts

import (
	"strings"
	"testing"
)

func TestBuildAnonymous(t *testing.T) {
	p := Build(Context{})
	if !strings.Contains(p, "Customer is not logged in") {
		t.Error("anonymous prompt should say customer is not logged in")
	}
	if strings.Contains(p, "{context}") {
		t.Error("context placeholder not substituted")
	}
}

func TestBuildWithIdentity(t *testing.T) {
	p := Build(Context{
		Email:          "sarah.johnson@email.com",
		Name:           "Sarah Johnson",
		CurrentOrderID: "ORD-2024-00003",
	})
	if !strings.Contains(p, "Customer email: sarah.johnson@email.com") {
		t.Error("email missing from context")
	}
	if !strings.Contains(p, "Customer name: Sarah Johnson") {
		t.Error("name missing from context")
	}
	if !strings.Contains(p, "Current order being discussed: ORD-2024-00003") {
		t.Error("current order missing from context")
	}
	if strings.Contains(p, "not logged in") {
		t.Error("logged-in prompt should not carry anonymous context")
	}
}

func TestBuildPartialContext(t *testing.T) {
	p := Build(Context{Email: "mike.chen@email.com"})
	if !strings.Contains(p, "Customer email: mike.chen@email.com") {
		t.Error("email missing")
	}
	if strings.Contains(p, "Customer name:") {
		t.Error("name should be omitted when unknown")
	}
}

func TestBuildMentionsAllTools(t *testing.T) {
	p := Build(Context{})
	for _, tool := range []string{
		"get_order_status", "search_orders", "get_customer_info",
		"initiate_return", "get_policy_info", "get_recommendations",
		"search_books", "create_support_ticket",
	} {
		if !strings.Contains(p, tool) {
			t.Errorf("prompt missing tool %s", tool)
		}
	}
}
