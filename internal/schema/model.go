package schema

import (
	"strings"
	"unicode"
)

// DefaultPrimaryKey is used when a model marks no attribute as primary.
const DefaultPrimaryKey = "id"

// Attribute is a single model attribute.
type Attribute struct {
	Name       string
	Column     string
	Type       DataType
	PrimaryKey bool
	Unique     bool
	AllowNull  bool
}

// Model is the table metadata a spell is compiled against.
type Model struct {
	Name  string
	Table string
	// Alias qualifies the base table when a spell joins other models.
	Alias       string
	Attributes  []*Attribute
	ShardingKey string
	// CreatedAt names the audit attribute that upserts must not overwrite.
	CreatedAt string
}

// NewModel creates a model. Attribute columns default to the snake_case of
// the attribute name, the alias defaults to the table, and an attribute named
// createdAt is picked up as the created-at attribute.
func NewModel(name, table string, attrs ...*Attribute) *Model {
	m := &Model{
		Name:       name,
		Table:      table,
		Alias:      table,
		Attributes: attrs,
	}
	for _, attr := range attrs {
		if attr.Column == "" {
			attr.Column = SnakeCase(attr.Name)
		}
		if attr.Name == "createdAt" {
			m.CreatedAt = attr.Name
		}
	}
	return m
}

// Attribute returns the attribute with the given name, or nil.
func (m *Model) Attribute(name string) *Attribute {
	for _, attr := range m.Attributes {
		if attr.Name == name {
			return attr
		}
	}
	return nil
}

// HasAttribute reports whether name is a declared attribute.
func (m *Model) HasAttribute(name string) bool {
	return m.Attribute(name) != nil
}

// ColumnName maps an attribute name to its column. Unknown names are
// returned unchanged so raw column names keep working.
func (m *Model) ColumnName(name string) string {
	if attr := m.Attribute(name); attr != nil {
		return attr.Column
	}
	return name
}

// AttributeNames returns the attribute names in declaration order.
func (m *Model) AttributeNames() []string {
	names := make([]string, len(m.Attributes))
	for i, attr := range m.Attributes {
		names[i] = attr.Name
	}
	return names
}

// PrimaryKey returns the name of the primary key attribute.
func (m *Model) PrimaryKey() string {
	for _, attr := range m.Attributes {
		if attr.PrimaryKey {
			return attr.Name
		}
	}
	return DefaultPrimaryKey
}

// PrimaryColumn returns the column of the primary key.
func (m *Model) PrimaryColumn() string {
	return m.ColumnName(m.PrimaryKey())
}

// UniqueKey returns the first attribute marked unique, or "".
func (m *Model) UniqueKey() string {
	for _, attr := range m.Attributes {
		if attr.Unique {
			return attr.Name
		}
	}
	return ""
}

// SnakeCase converts an attribute name such as authorId into author_id.
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
