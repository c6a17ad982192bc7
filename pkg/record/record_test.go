package record

import (
	"encoding/json"
	"testing"
)

func TestRecord_RoundTripPreservesOrder(t *testing.T) {
	input := `{"logtime":"2023-12-31T10:00:00.000Z","id":"c","seq":42,"tags":["a","b"],"ok":true,"host":null,"meta":{"k": 1}}`

	var rec Record
	if err := json.Unmarshal([]byte(input), &rec); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	wantNames := []string{"logtime", "id", "seq", "tags", "ok", "host", "meta"}
	if rec.Len() != len(wantNames) {
		t.Fatalf("Len() = %d, want %d", rec.Len(), len(wantNames))
	}
	for i, f := range rec.Fields() {
		if f.Name != wantNames[i] {
			t.Errorf("field %d = %q, want %q", i, f.Name, wantNames[i])
		}
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	want := `{"logtime":"2023-12-31T10:00:00.000Z","id":"c","seq":42,"tags":["a","b"],"ok":true,"host":null,"meta":{"k":1}}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestRecord_Get(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`{"id":"x","seq":1.50}`), &rec); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	id, ok := rec.Get("id")
	if !ok || id.Kind() != KindString || id.String() != "x" {
		t.Errorf("Get(id) = %v, %v", id, ok)
	}

	seq, ok := rec.Get("seq")
	if !ok || seq.Kind() != KindNumber || seq.String() != "1.50" {
		t.Errorf("Get(seq) = %q (kind %d), want literal 1.50", seq.String(), seq.Kind())
	}

	if _, ok := rec.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
}

func TestRecord_Without(t *testing.T) {
	rec := New(
		Field{Name: "id", Value: String("a")},
		Field{Name: "_version_", Value: Number("1700000000000")},
		Field{Name: "msg", Value: String("hello")},
	)

	projected := rec.Without("_version_", "absent")
	if projected.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", projected.Len())
	}
	if _, ok := projected.Get("_version_"); ok {
		t.Error("excluded field still present")
	}
	if rec.Len() != 3 {
		t.Error("Without() must not modify the original record")
	}

	out, _ := json.Marshal(projected)
	if string(out) != `{"id":"a","msg":"hello"}` {
		t.Errorf("Marshal() = %s", out)
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{String("2023-12-31T00:00:00Z"), "2023-12-31T00:00:00Z"},
		{Number("17"), "17"},
		{Bool(true), "true"},
		{Null(), ""},
		{List(String("a"), Number("2")), "a,2"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`["a"]`), &rec); err == nil {
		t.Error("expected error decoding an array into a Record")
	}
}

func TestRecord_StringEscaping(t *testing.T) {
	rec := New(Field{Name: "msg", Value: String("quote \" and <tag>")})
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var back Record
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	v, _ := back.Get("msg")
	if v.String() != "quote \" and <tag>" {
		t.Errorf("round trip = %q", v.String())
	}
}
