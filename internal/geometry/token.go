package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Token is one raw geometry input. It holds either coordinate text
// ("34.2,-83.8", "33°45'N,84°23'W"), a numeric list (two values for a point,
// four for a bbox) or, in poly mode, a nested list of tokens that forms a
// complete polygon on its own.
type Token struct {
	Text   string
	Values []float64
	Nested []Token
}

func Text(s string) Token { return Token{Text: s} }

func Values(v ...float64) Token { return Token{Values: v} }

func Texts(ss ...string) []Token {
	out := make([]Token, len(ss))
	for i, s := range ss {
		out[i] = Text(s)
	}
	return out
}

func (t Token) String() string {
	switch {
	case t.Nested != nil:
		parts := make([]string, len(t.Nested))
		for i, n := range t.Nested {
			parts[i] = n.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case t.Values != nil:
		parts := make([]string, len(t.Values))
		for i, v := range t.Values {
			parts[i] = fmt.Sprint(v)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return t.Text
	}
}

// blank tokens are pure separators in poly mode and never produce a warning.
func (t Token) blank() bool {
	if t.Values != nil || t.Nested != nil {
		return false
	}
	return strings.Trim(t.Text, " \t,;") == ""
}

// UnmarshalJSON accepts a string, a list of numbers, a list of tokens or null.
// Anything else decodes into a token that never parses, which makes it a
// separator in poly mode.
func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Token{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &t.Text)
	case '[':
		var nums []float64
		if err := json.Unmarshal(data, &nums); err == nil {
			t.Values = nums
			if t.Values == nil {
				t.Values = []float64{}
			}
			return nil
		}
		var nested []Token
		if err := json.Unmarshal(data, &nested); err != nil {
			return fmt.Errorf("decode token list: %w", err)
		}
		t.Nested = nested
		return nil
	default:
		t.Text = string(data)
		return nil
	}
}

func (t Token) MarshalJSON() ([]byte, error) {
	switch {
	case t.Nested != nil:
		return json.Marshal(t.Nested)
	case t.Values != nil:
		return json.Marshal(t.Values)
	default:
		return json.Marshal(t.Text)
	}
}
