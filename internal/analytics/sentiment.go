package analytics

import "strings"

// toolTopics maps tool names to reporting topic categories.
var toolTopics = map[string]string{
	"get_order_status":      "Order Status",
	"search_orders":         "Order Status",
	"initiate_return":       "Returns & Refunds",
	"search_books":          "Product Information",
	"get_recommendations":   "Product Information",
	"get_policy_info":       "Policy Questions",
	"get_customer_info":     "Account Issues",
	"create_support_ticket": "Escalations",
}

// TopicForTool maps a tool name to its topic category.
func TopicForTool(tool string) string {
	if topic, ok := toolTopics[tool]; ok {
		return topic
	}
	return "Other"
}

var positiveKeywords = []string{
	"thank", "thanks", "great", "helpful", "excellent", "perfect",
	"good", "appreciate", "awesome",
}

var negativeKeywords = []string{
	"frustrated", "disappointed", "problem", "issue", "wrong", "bad",
	"terrible", "horrible", "angry", "upset",
}

// AnalyzeSentiment classifies text as positive, negative, or neutral by
// keyword counting. Crude, but cheap enough to run on every message.
func AnalyzeSentiment(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)

	var positive, negative int
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			positive++
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return "positive"
	case negative > positive:
		return "negative"
	default:
		return "neutral"
	}
}

// sentimentValue converts a label to a score for the rolling average.
func sentimentValue(label string) float64 {
	switch label {
	case "positive":
		return 1
	case "negative":
		return -1
	default:
		return 0
	}
}

// sentimentLabel converts a rolling score back to a label.
func sentimentLabel(score float64) string {
	switch {
	case score > 0.2:
		return "positive"
	case score < -0.2:
		return "negative"
	default:
		return "neutral"
	}
}
