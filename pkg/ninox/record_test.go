package ninox

import (
	"encoding/json"
	"testing"
)

func TestRecordID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  RecordID
	}{
		{name: "number", input: `12`, want: "12"},
		{name: "string", input: `"A12"`, want: "A12"},
		{name: "null", input: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id RecordID
			if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if id != tt.want {
				t.Errorf("id = %q, want %q", id, tt.want)
			}
		})
	}
}

func TestRecord_UnmarshalKeepsExtraAttributes(t *testing.T) {
	raw := `{"id": 7, "sequence": 42, "createdAt": "2024-01-01T00:00:00", "fields": {"Name": "Ada"}, "score": 3}`

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if r.ID != "7" {
		t.Errorf("ID = %q, want %q", r.ID, "7")
	}
	if r.Sequence != 42 {
		t.Errorf("Sequence = %d, want 42", r.Sequence)
	}
	if r.Fields["Name"] != "Ada" {
		t.Errorf("Fields[Name] = %v, want Ada", r.Fields["Name"])
	}
	if r.Extra["score"] != float64(3) {
		t.Errorf("Extra[score] = %v, want 3", r.Extra["score"])
	}
	if _, ok := r.Extra["fields"]; ok {
		t.Error("reserved attribute leaked into Extra")
	}
}

func TestRecord_MarshalWritesNumericID(t *testing.T) {
	r := Record{ID: "7", Sequence: 3, Fields: map[string]any{"A": 1}}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out["id"] != float64(7) {
		t.Errorf("id = %v (%T), want numeric 7", out["id"], out["id"])
	}
}

func TestRecordID_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		id   RecordID
		want string
	}{
		{name: "number", id: "42", want: `42`},
		{name: "negative", id: "-3", want: `-3`},
		{name: "leading zero", id: "007", want: `"007"`},
		{name: "plus sign", id: "+5", want: `"+5"`},
		{name: "negative zero", id: "-0", want: `"-0"`},
		{name: "alphanumeric", id: "B12", want: `"B12"`},
		{name: "empty", id: "", want: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(RecordInput{ID: tt.id, Fields: map[string]any{}})
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var out map[string]json.RawMessage
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("body %s is not valid JSON: %v", data, err)
			}
			got, ok := out["id"]
			if tt.id == "" {
				if ok {
					t.Errorf("id = %s, want omitted", got)
				}
				return
			}
			if string(got) != tt.want {
				t.Errorf("id = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecordInput_OmitsEmptyID(t *testing.T) {
	data, err := json.Marshal(RecordInput{Fields: map[string]any{"A": "x"}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got, want := string(data), `{"fields":{"A":"x"}}`; got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}
