package ninox

import (
	"errors"
	"testing"
)

func TestTableRef_Paths(t *testing.T) {
	ref := TableRef{Team: "t1", Database: "db1", Table: "A"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"table", ref.TablePath(), "teams/t1/databases/db1/tables/A"},
		{"records", ref.RecordsPath(), "teams/t1/databases/db1/tables/A/records"},
		{"record", ref.RecordPath("5"), "teams/t1/databases/db1/tables/A/records/5"},
		{"files", ref.FilesPath("5"), "teams/t1/databases/db1/tables/A/records/5/files"},
		{"file", ref.FilePath("5", "a b.pdf"), "teams/t1/databases/db1/tables/A/records/5/files/a%20b.pdf"},
		{"query", ref.DatabaseRef().QueryPath(), "teams/t1/databases/db1/query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("path = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTableRef_Validate(t *testing.T) {
	if err := (TableRef{Team: "t", Database: "d", Table: "A"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	err := (TableRef{Team: "t", Table: "A"}).Validate()
	if !errors.Is(err, ErrMissingReference) {
		t.Errorf("Validate() error = %v, want ErrMissingReference", err)
	}
}

func TestListQuery_Values(t *testing.T) {
	tests := []struct {
		name  string
		query ListQuery
		want  map[string]string
	}{
		{
			name:  "paging only",
			query: ListQuery{},
			want:  map[string]string{"page": "2", "perPage": "500"},
		},
		{
			name:  "updated since sequence",
			query: ListQuery{Updated: true, SinceSequence: 17},
			want:  map[string]string{"page": "2", "perPage": "500", "updated": "true", "sinceSq": "17"},
		},
		{
			name:  "filters and order",
			query: ListQuery{Filters: map[string]any{"A": "x"}, Order: "Name", Desc: true},
			want: map[string]string{
				"page": "2", "perPage": "500",
				"filters": `{"fields":{"A":"x"}}`,
				"order":   "Name", "desc": "true",
			},
		},
		{
			name:  "newest first since id",
			query: ListQuery{NewestFirst: true, SinceID: 9},
			want:  map[string]string{"page": "2", "perPage": "500", "new": "true", "sinceId": "9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.query.Values(2, 500)
			if err != nil {
				t.Fatalf("Values() error = %v", err)
			}
			if len(v) != len(tt.want) {
				t.Errorf("Values() = %v, want %d keys", v, len(tt.want))
			}
			for key, want := range tt.want {
				if got := v.Get(key); got != want {
					t.Errorf("%s = %q, want %q", key, got, want)
				}
			}
		})
	}
}
