package exec

import "encoding/json"

// OrderIDFromResponse extracts the order identifier from an order
// placement response. A response without a uuid is a rejection whatever
// its shape.
func OrderIDFromResponse(raw json.RawMessage) string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if id, ok := payload["uuid"].(string); ok {
		return id
	}
	return ""
}
