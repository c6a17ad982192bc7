package solrtest

import (
	"testing"
)

func TestParseQuery(t *testing.T) {
	doc := Doc("id", "c", "ts", "2024-01-01T00:00:00.000Z", "type", "audit")

	tests := []struct {
		query string
		want  bool
	}{
		{"*:*", true},
		{"type:audit", true},
		{`type:"other"`, false},
		{`ts:[* TO "2024-01-01T00:00:00.000Z"]`, true},
		{`ts:[* TO "2024-01-01T00:00:00.000Z"}`, false},
		{`ts:{"2024-01-01T00:00:00.000Z" TO *]`, false},
		{`(ts:"2024-01-01T00:00:00.000Z" AND id:{"b" TO *]) OR ts:{"2024-01-01T00:00:00.000Z" TO "2025"]`, true},
		{`(ts:"2024-01-01T00:00:00.000Z" AND id:{"c" TO *]) OR ts:{"2024-01-01T00:00:00.000Z" TO "2025"]`, false},
		{`ts:[* TO "2024-01-01T00:00:00.000Z"} OR (ts:"2024-01-01T00:00:00.000Z" AND id:[* TO "c"])`, true},
		{`(type:audit) AND (id:[* TO "b"])`, false},
		{`missing:[* TO *]`, false},
		{`type:*`, true},
		{`missing:*`, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m, err := parseQuery(tt.query)
			if err != nil {
				t.Fatalf("parseQuery() failed: %v", err)
			}
			if got := m(doc); got != tt.want {
				t.Errorf("match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseQuery_Invalid(t *testing.T) {
	for _, q := range []string{`ts:[* TO "x"`, `ts:"open`, `ts`, `(a:b`, `a:b c:d`} {
		if _, err := parseQuery(q); err == nil {
			t.Errorf("parseQuery(%q) expected error", q)
		}
	}
}
