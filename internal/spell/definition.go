package spell

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/schema"
)

// Definition is the YAML form of a spell. Expressions stay textual until
// Build parses them against a model registry.
type Definition struct {
	Command     string                `yaml:"command"`
	Model       string                `yaml:"model"`
	Table       string                `yaml:"table,omitempty"`
	From        *Definition           `yaml:"from,omitempty"`
	Columns     []Clause              `yaml:"columns,omitempty"`
	Where       []Clause              `yaml:"where,omitempty"`
	Group       []string              `yaml:"group,omitempty"`
	Having      []Clause              `yaml:"having,omitempty"`
	Order       []Clause              `yaml:"order,omitempty"`
	Joins       yaml.Node             `yaml:"joins,omitempty"`
	Limit       int                   `yaml:"limit,omitempty"`
	Offset      int                   `yaml:"offset,omitempty"`
	Sets        yaml.Node             `yaml:"sets,omitempty"`
	Attributes  []string              `yaml:"attributes,omitempty"`
	Hints       []string              `yaml:"hints,omitempty"`
	IndexHints  []IndexHintDefinition `yaml:"indexHints,omitempty"`
	OnDuplicate yaml.Node             `yaml:"onDuplicate,omitempty"`
	UniqueKeys  []string              `yaml:"uniqueKeys,omitempty"`
	Returning   yaml.Node             `yaml:"returning,omitempty"`
}

// Clause is an expression with its placeholder values. In YAML it is either
// a bare string or a mapping:
//
//	- "title LIKE '%Leah%'"
//	- expr: "authorId IN ?"
//	  values: [[1, 2, 3]]
type Clause struct {
	Expr   string      `yaml:"expr"`
	Values []yaml.Node `yaml:"values,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand.
func (c *Clause) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Expr = node.Value
		return nil
	}
	type plain Clause
	return node.Decode((*plain)(c))
}

// JoinDefinition is one entry of the joins mapping, keyed by qualifier.
type JoinDefinition struct {
	Model   string      `yaml:"model"`
	On      string      `yaml:"on"`
	Values  []yaml.Node `yaml:"values,omitempty"`
	HasMany bool        `yaml:"hasMany,omitempty"`
}

// IndexHintDefinition is the YAML form of an IndexHint.
type IndexHintDefinition struct {
	Type    string   `yaml:"type"`
	Scope   string   `yaml:"scope,omitempty"`
	Indexes []string `yaml:"indexes"`
}

// LoadDefinition reads a spell definition from a YAML file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spell file: %w", err)
	}
	return ParseDefinition(data)
}

// ParseDefinition decodes a spell definition, rejecting unknown fields.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &def, nil
}

// Build turns the definition into a spell. Model names resolve through reg.
// The command is not validated here; unknown commands are reported by the
// spellbook when the spell is compiled.
func (d *Definition) Build(reg *schema.Registry) (*Spell, error) {
	if d.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	model, ok := reg.Model(d.Model)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", d.Model)
	}

	cmd := Command(d.Command)
	if cmd == "" {
		cmd = Select
	}

	s := New(cmd, model)
	s.Table = d.Table
	s.Skip = d.Offset
	s.RowCount = d.Limit
	s.Attributes = d.Attributes
	s.UniqueKeys = d.UniqueKeys

	if d.From != nil {
		from, err := d.From.Build(reg)
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		s.From = from
	}

	for i, c := range d.Columns {
		values, err := resolveValues(c.Values, reg)
		if err != nil {
			return nil, fmt.Errorf("columns[%d]: %w", i, err)
		}
		if err := s.AddColumns(c.Expr, values...); err != nil {
			return nil, fmt.Errorf("columns[%d]: %w", i, err)
		}
	}

	for i, c := range d.Where {
		values, err := resolveValues(c.Values, reg)
		if err != nil {
			return nil, fmt.Errorf("where[%d]: %w", i, err)
		}
		if err := s.AddWhere(c.Expr, values...); err != nil {
			return nil, fmt.Errorf("where[%d]: %w", i, err)
		}
	}

	for i, g := range d.Group {
		if err := s.AddGroups(g); err != nil {
			return nil, fmt.Errorf("group[%d]: %w", i, err)
		}
	}

	for i, c := range d.Having {
		values, err := resolveValues(c.Values, reg)
		if err != nil {
			return nil, fmt.Errorf("having[%d]: %w", i, err)
		}
		if err := s.AddHaving(c.Expr, values...); err != nil {
			return nil, fmt.Errorf("having[%d]: %w", i, err)
		}
	}

	for i, c := range d.Order {
		values, err := resolveValues(c.Values, reg)
		if err != nil {
			return nil, fmt.Errorf("order[%d]: %w", i, err)
		}
		if err := s.AddOrder(c.Expr, values...); err != nil {
			return nil, fmt.Errorf("order[%d]: %w", i, err)
		}
	}

	if err := d.buildJoins(s, reg); err != nil {
		return nil, err
	}

	rows, err := buildRows(&d.Sets, reg)
	if err != nil {
		return nil, err
	}
	s.Sets = rows

	for _, h := range d.Hints {
		s.Hints = append(s.Hints, Hint{Text: h})
	}
	for i, h := range d.IndexHints {
		hint, err := h.build()
		if err != nil {
			return nil, fmt.Errorf("indexHints[%d]: %w", i, err)
		}
		s.IndexHints = append(s.IndexHints, hint)
	}

	s.UpdateOnDuplicate.Enabled, s.UpdateOnDuplicate.Columns, err = decodeToggle(&d.OnDuplicate)
	if err != nil {
		return nil, fmt.Errorf("onDuplicate: %w", err)
	}
	s.Returning.Enabled, s.Returning.Columns, err = decodeToggle(&d.Returning)
	if err != nil {
		return nil, fmt.Errorf("returning: %w", err)
	}

	return s, nil
}

// buildJoins walks the joins mapping in document order.
func (d *Definition) buildJoins(s *Spell, reg *schema.Registry) error {
	if d.Joins.Kind == 0 {
		return nil
	}
	if d.Joins.Kind != yaml.MappingNode {
		return fmt.Errorf("joins: expected a mapping of qualifier to join")
	}

	for i := 0; i+1 < len(d.Joins.Content); i += 2 {
		qualifier := d.Joins.Content[i].Value

		var jd JoinDefinition
		if err := d.Joins.Content[i+1].Decode(&jd); err != nil {
			return fmt.Errorf("joins.%s: %w", qualifier, err)
		}
		model, ok := reg.Model(jd.Model)
		if !ok {
			return fmt.Errorf("joins.%s: unknown model %q", qualifier, jd.Model)
		}
		values, err := resolveValues(jd.Values, reg)
		if err != nil {
			return fmt.Errorf("joins.%s: %w", qualifier, err)
		}
		if err := s.AddJoin(qualifier, model, jd.On, values...); err != nil {
			return err
		}
		s.Joins[len(s.Joins)-1].HasMany = jd.HasMany
	}

	return nil
}

func (h IndexHintDefinition) build() (IndexHint, error) {
	typ, err := ParseIndexHintType(h.Type)
	if err != nil {
		return IndexHint{}, err
	}
	scope, err := ParseIndexHintScope(h.Scope)
	if err != nil {
		return IndexHint{}, err
	}
	if len(h.Indexes) == 0 {
		return IndexHint{}, fmt.Errorf("indexes is required")
	}
	return IndexHint{Type: typ, Scope: scope, Indexes: h.Indexes}, nil
}

// buildRows accepts a single mapping or a sequence of mappings.
func buildRows(node *yaml.Node, reg *schema.Registry) ([]Row, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
		row, err := buildRow(node, reg)
		if err != nil {
			return nil, fmt.Errorf("sets: %w", err)
		}
		return []Row{row}, nil
	case yaml.SequenceNode:
		rows := make([]Row, 0, len(node.Content))
		for i, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("sets[%d]: expected a mapping", i)
			}
			row, err := buildRow(item, reg)
			if err != nil {
				return nil, fmt.Errorf("sets[%d]: %w", i, err)
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("sets: expected a mapping or a list of mappings")
	}
}

// buildRow decodes attribute values. {raw: SQL} marks a raw value and
// {expr: text, values: [...]} an expression value.
func buildRow(node *yaml.Node, reg *schema.Registry) (Row, error) {
	row := make(Row, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, valueNode := node.Content[i].Value, node.Content[i+1]

		if valueNode.Kind == yaml.MappingNode {
			if exprNode := mappingValue(valueNode, "expr"); exprNode != nil {
				var c Clause
				if err := valueNode.Decode(&c); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				values, err := resolveValues(c.Values, reg)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				parsed, err := expr.Parse(c.Expr, values...)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				row[name] = parsed
				continue
			}
		}

		value, err := resolveValue(valueNode, reg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		row[name] = value
	}
	return row, nil
}

func resolveValues(nodes []yaml.Node, reg *schema.Registry) ([]any, error) {
	values := make([]any, 0, len(nodes))
	for i := range nodes {
		v, err := resolveValue(&nodes[i], reg)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// resolveValue decodes a placeholder value. {spell: ...} builds a nested
// spell and {raw: SQL} a raw fragment; sequences become []any.
func resolveValue(node *yaml.Node, reg *schema.Registry) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		if raw := mappingValue(node, "raw"); raw != nil {
			return expr.NewRaw(raw.Value), nil
		}
		if sub := mappingValue(node, "spell"); sub != nil {
			var def Definition
			if err := sub.Decode(&def); err != nil {
				return nil, err
			}
			return def.Build(reg)
		}
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := resolveValue(item, reg)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.AliasNode:
		return resolveValue(node.Alias, reg)
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// decodeToggle accepts true/false or a list of attribute names, which
// implies true.
func decodeToggle(node *yaml.Node) (bool, []string, error) {
	switch node.Kind {
	case 0:
		return false, nil, nil
	case yaml.ScalarNode:
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return false, nil, err
		}
		return enabled, nil, nil
	case yaml.SequenceNode:
		var columns []string
		if err := node.Decode(&columns); err != nil {
			return false, nil, err
		}
		return true, columns, nil
	default:
		return false, nil, fmt.Errorf("expected a boolean or a list of attributes")
	}
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
