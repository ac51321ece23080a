package ninox

// Team is an entry of the team list.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Database is an entry of a team's database list.
type Database struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Field describes a table column.
type Field struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is the schema of one table.
type Table struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// FieldKind is the host-side value kind of a field.
type FieldKind string

const (
	KindString   FieldKind = "string"
	KindNumber   FieldKind = "number"
	KindBoolean  FieldKind = "boolean"
	KindDateTime FieldKind = "dateTime"
	KindTime     FieldKind = "time"
	KindObject   FieldKind = "object"
	KindArray    FieldKind = "array"
)

// kindOrder fixes lookup order; "duration" maps to number before time.
var kindOrder = []FieldKind{KindString, KindNumber, KindBoolean, KindDateTime, KindTime, KindObject, KindArray}

var kindTypes = map[FieldKind][]string{
	KindString:   {"text", "multilineText", "richText", "email", "phoneNumber", "url", "choice"},
	KindNumber:   {"rating", "percent", "number", "duration", "currency"},
	KindBoolean:  {"boolean"},
	KindDateTime: {"dateTime", "date"},
	KindTime:     {"duration"},
	KindObject:   {"json"},
	KindArray:    {"array"},
}

// KindOf maps a Ninox field type to a host kind. Unknown types are strings.
func KindOf(ninoxType string) FieldKind {
	for _, kind := range kindOrder {
		for _, t := range kindTypes[kind] {
			if t == ninoxType {
				return kind
			}
		}
	}
	return KindString
}

// MappedField is a field enriched with its host kind.
type MappedField struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Kind        FieldKind `json:"type"`
	Required    bool      `json:"required"`
	Match       bool      `json:"canBeUsedToMatch"`
}

// MapFields converts table fields to host field descriptors. Only the id
// column can be used to match existing records.
func MapFields(fields []Field) []MappedField {
	out := make([]MappedField, 0, len(fields))
	for _, f := range fields {
		out = append(out, MappedField{
			ID:          f.ID,
			DisplayName: f.Name,
			Kind:        KindOf(f.Type),
			Match:       f.ID == "id",
		})
	}
	return out
}
