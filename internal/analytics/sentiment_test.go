package analytics

import "testing"

func TestAnalyzeSentiment(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Thanks, that was really helpful!", "positive"},
		{"This is terrible, my order is wrong and I'm frustrated", "negative"},
		{"Where is my order?", "neutral"},
		{"Thanks, but there is still a problem", "neutral"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := AnalyzeSentiment(tc.text); got != tc.want {
			t.Errorf("AnalyzeSentiment(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestTopicForTool(t *testing.T) {
	cases := []struct {
		tool string
		want string
	}{
		{"get_order_status", "Order Status"},
		{"search_orders", "Order Status"},
		{"initiate_return", "Returns & Refunds"},
		{"get_recommendations", "Product Information"},
		{"get_policy_info", "Policy Questions"},
		{"create_support_ticket", "Escalations"},
		{"something_else", "Other"},
	}
	for _, tc := range cases {
		if got := TopicForTool(tc.tool); got != tc.want {
			t.Errorf("TopicForTool(%q) = %q, want %q", tc.tool, got, tc.want)
		}
	}
}

func TestSentimentLabelThresholds(t *testing.T) {
	if got := sentimentLabel(0.5); got != "positive" {
		t.Errorf("sentimentLabel(0.5) = %q", got)
	}
	if got := sentimentLabel(-0.5); got != "negative" {
		t.Errorf("sentimentLabel(-0.5) = %q", got)
	}
	if got := sentimentLabel(0.1); got != "neutral" {
		t.Errorf("sentimentLabel(0.1) = %q", got)
	}
}
