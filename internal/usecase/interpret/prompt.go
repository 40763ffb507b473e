package interpret

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/receiptdex/internal/domain"
)

const instructions = `You translate questions about purchase receipts into a JSON filter.
Today is %s (%s).

Attributes:
- vendor_name: merchant name, string
- transaction_date: purchase date, YYYY-MM-DD
- total_amount: receipt total, number
- item_name: name of a purchased line item (items[].item_name), string
- raw_text: any word printed on the receipt, string

Each attribute maps to exactly one of:
- "value" for an exact match
- {"contains": "text"} for a substring match, or {"contains": ["a", "b"]} when every word must appear
- {"between": ["lower", "upper"]} for an inclusive range, dates and amounts only

Resolve relative dates ("last week", "early September") to YYYY-MM-DD bounds.
Leave out attributes the question does not mention. Never filter by user.
Reply with one JSON object only, without prose or code fences. Reply {} if nothing applies.

Example: "starbucks purchase in march" -> {"vendor_name":"Starbucks","transaction_date":{"between":["%s-03-01","%s-03-31"]}}`

// Messages builds the conversation sent to the language model.
func Messages(query string, today time.Time) []domain.Message {
	year := marchYear(today)
	return []domain.Message{
		{
			Role: domain.RoleSystem,
			Content: fmt.Sprintf(instructions,
				today.Format("2006-01-02"), today.Weekday(), year, year),
		},
		{Role: domain.RoleUser, Content: strings.TrimSpace(query)},
	}
}

// marchYear keeps the example consistent with the "most recent month" rule.
func marchYear(today time.Time) string {
	y := today.Year()
	if today.Month() < time.March {
		y--
	}
	return fmt.Sprintf("%04d", y)
}
