package audit

// Entry is one line in the hash-chained JSONL governance log. A flat
// struct (no map[string]any) keeps json.Marshal field order
// deterministic so hashes are reproducible.
type Entry struct {
	Timestamp  string  `json:"ts"`
	Event      string  `json:"event"`
	Action     string  `json:"action,omitempty"`
	Agent      string  `json:"agent,omitempty"`
	Wave       int     `json:"wave,omitempty"`
	Story      string  `json:"story,omitempty"`
	Operation  string  `json:"operation,omitempty"`
	Level      string  `json:"level,omitempty"`
	Decision   string  `json:"decision,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Spent      float64 `json:"spent,omitempty"`
	Budget     float64 `json:"budget,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	PrevHash   string  `json:"prev_hash"`
}
