package session

import "encoding/json"

// sanitizeMessage strips a message down to what can round-trip through JSON.
// Two keys hold raw provider-SDK objects and are special-cased: a
// "thinking_block" contributes its text as "thinking_text" and is otherwise
// dropped, and "content_blocks" is dropped entirely. Everything else passes
// through sanitizeValue. The result is a fixed point: sanitizing an already
// sanitized message changes nothing.
func (s *Store) sanitizeMessage(message Message) Message {
	sanitized := make(Message, len(message))
	for key, value := range message {
		switch key {
		case "thinking_block":
			if block, ok := value.(map[string]any); ok {
				if text, ok := block["text"]; ok {
					sanitized["thinking_text"] = text
				}
			}
			continue
		case "content_blocks":
			continue
		}
		if clean, keep := s.sanitizeValue(value); keep {
			sanitized[key] = clean
		}
	}
	return sanitized
}

// sanitizeValue returns a JSON-serializable version of value, or keep=false
// when the value cannot be represented and should be dropped.
func (s *Store) sanitizeValue(value any) (clean any, keep bool) {
	switch v := value.(type) {
	case nil:
		// Explicit nulls are dropped from maps and lists.
		return nil, false
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return v, true
	case map[string]any:
		return s.sanitizeMessage(v), true
	case []any:
		sanitized := make([]any, 0, len(v))
		for _, item := range v {
			if clean, keep := s.sanitizeValue(item); keep {
				sanitized = append(sanitized, clean)
			}
		}
		return sanitized, true
	default:
		if _, err := json.Marshal(v); err != nil {
			s.logger.Debug("Skipping non-serializable value of type %T", v)
			return nil, false
		}
		return v, true
	}
}
