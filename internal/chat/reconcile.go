package chat

// Derive computes the active conversation from the route's conversation id and the loaded
// history. It is a pure function of its inputs plus the previous state:
//   - no route id: a fresh NEW conversation
//   - route id found in history: that item's messages, keeping the language tags already
//     shown for the same conversation
//   - route id not (yet) in history: prev unchanged
//
// Optimistic entries survive only while the same conversation stays active.
func Derive(routeID string, history []HistoryItem, prev Active) Active {
	if routeID == "" {
		next := Active{}
		if prev.ID == "" {
			next.Pending = cloneMessages(prev.Pending)
			next.Messages = cloneMessages(prev.Messages)
			next.Phase = prev.Phase
		}
		return next
	}
	for _, item := range history {
		if item.ID != routeID {
			continue
		}
		next := Active{ID: item.ID, Messages: cloneMessages(item.Messages)}
		if prev.ID == routeID {
			carryTags(next.Messages, prev.Messages)
			next.Pending = cloneMessages(prev.Pending)
			next.Phase = prev.Phase
		}
		return next
	}
	return prev.clone()
}

// carryTags copies DetectedLanguage from prev onto untagged messages with the same id
func carryTags(msgs, prev []Message) {
	if len(prev) == 0 {
		return
	}
	tags := make(map[string]string, len(prev))
	for _, m := range prev {
		if m.DetectedLanguage != "" {
			tags[m.ID] = m.DetectedLanguage
		}
	}
	for i := range msgs {
		if msgs[i].DetectedLanguage == "" {
			msgs[i].DetectedLanguage = tags[msgs[i].ID]
		}
	}
}
