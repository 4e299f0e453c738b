package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Score bounds of the oracle's relevance scale (8 = best)
const (
	ScoreMin = 0
	ScoreMax = 8
)

// Score is an oracle relevance score. Valid is false when the oracle returned
// something that could not be parsed as a number; such scores are kept as
// unparsable rather than coerced to 0, which is a legitimate lowest score.
type Score struct {
	Value int
	Valid bool
}

// NewScore creates a valid score
func NewScore(v int) Score {
	return Score{Value: v, Valid: true}
}

// InRange reports whether the score is valid and within the 0-8 scale
func (s Score) InRange() bool {
	return s.Valid && s.Value >= ScoreMin && s.Value <= ScoreMax
}

// MarshalJSON writes the numeric value, or null for an unparsable score
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
// Anything else yields the unparsable sentinel, never an error: the decision
// about what to do with a malformed score belongs to the caller.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Score{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = NewScore(int(math.Round(n)))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			*s = NewScore(int(math.Round(f)))
			return nil
		}
	}
	*s = Score{}
	return nil
}

// Quality codes per score value, as defined by the scoring service
var reasonCodes = map[int]string{
	8: "Excellent",
	7: "Good",
	6: "Okay",
	5: "Informational",
	4: "Bad",
	3: "Nonsensical",
	2: "Embarrassing",
	1: "UTD (Unable To Determine)",
	0: "PDNL (Page Does Not Load)",
}

// ReasonCodeForScore returns the quality code for a score. Used when the
// oracle omits the reason code: a null code takes the table default.
func ReasonCodeForScore(s Score) string {
	if !s.Valid {
		return "Unparsable"
	}
	if code, ok := reasonCodes[s.Value]; ok {
		return code
	}
	return "Error: Invalid Score"
}

// EvaluationResult is the normalized oracle verdict for one query/item pair.
// Immutable once produced.
type EvaluationResult struct {
	Score      Score   `json:"score"`
	Confidence float64 `json:"confidence"`
	ReasonCode string  `json:"reason_code"`
	Reasoning  string  `json:"reasoning,omitempty"`
}
