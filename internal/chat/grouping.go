package chat

import "time"

// History bucket labels, in display order
const (
	BucketToday         = "Today"
	BucketYesterday     = "Yesterday"
	BucketPrevious7Days = "Previous 7 Days"
)

// Group is one labelled bucket of the history list
type Group struct {
	Label string
	Items []HistoryItem
}

// GroupHistory buckets items by calendar day in now's location. Conversations older than
// seven days fall out of every bucket. Source order is kept inside a bucket and empty
// buckets are omitted.
func GroupHistory(items []HistoryItem, now time.Time) []Group {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	buckets := []Group{{Label: BucketToday}, {Label: BucketYesterday}, {Label: BucketPrevious7Days}}
	for _, item := range items {
		switch t := item.CreatedAt; {
		case !t.Before(today):
			buckets[0].Items = append(buckets[0].Items, item)
		case !t.Before(yesterday):
			buckets[1].Items = append(buckets[1].Items, item)
		case !t.Before(weekAgo):
			buckets[2].Items = append(buckets[2].Items, item)
		}
	}

	out := make([]Group, 0, len(buckets))
	for _, g := range buckets {
		if len(g.Items) > 0 {
			out = append(out, g)
		}
	}
	return out
}
