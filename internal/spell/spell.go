package spell

import (
	"fmt"
	"strings"

	"github.com/roach88/spellbook/internal/expr"
	"github.com/roach88/spellbook/internal/schema"
)

// Command is the statement a spell compiles to.
type Command string

const (
	Select     Command = "select"
	Insert     Command = "insert"
	BulkInsert Command = "bulkInsert"
	Update     Command = "update"
	Delete     Command = "delete"
	Upsert     Command = "upsert"
)

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY entry.
type Order struct {
	Expr      expr.Node
	Direction Direction
}

// Join is a LEFT JOIN of Model under Qualifier.
type Join struct {
	Qualifier string
	Model     *schema.Model
	On        expr.Node
	// HasMany marks a one-to-many association.
	HasMany bool
}

// Conflict selects the upsert behavior of an INSERT. Columns lists the
// attributes to update on conflict; empty means every inserted attribute.
type Conflict struct {
	Enabled bool
	Columns []string
}

// Returning selects the RETURNING clause. Columns empty means RETURNING *.
type Returning struct {
	Enabled bool
	Columns []string
}

// Row maps attribute names to values. A value is a plain Go value bound as
// a parameter, an *expr.Raw spliced verbatim, or any other expr.Node
// formatted in place.
type Row map[string]any

// Spell is the query descriptor.
type Spell struct {
	Command Command
	Model   *schema.Model
	// Table overrides the model table.
	Table string
	// From makes the spell select from a derived table.
	From *Spell

	Columns []expr.Node
	Where   []expr.Node
	Groups  []expr.Node
	Having  []expr.Node
	Orders  []Order
	Joins   []Join

	Skip     int
	RowCount int

	Sets []Row
	// Attributes whitelists the inserted attributes.
	Attributes []string

	Hints      []Hint
	IndexHints []IndexHint

	UpdateOnDuplicate Conflict
	UniqueKeys        []string
	Returning         Returning

	// SubqueryIndex numbers derived tables t0, t1, ...
	SubqueryIndex int
}

// New creates a spell for a command against a model.
func New(cmd Command, model *schema.Model) *Spell {
	return &Spell{Command: cmd, Model: model}
}

// IsSubquery marks a spell as embeddable into an expression.
func (s *Spell) IsSubquery() bool { return true }

// TableName returns the table the statement targets.
func (s *Spell) TableName() string {
	if s.Table != "" {
		return s.Table
	}
	return s.Model.Table
}

// Join returns the join registered under qualifier.
func (s *Spell) Join(qualifier string) (*Join, bool) {
	for i := range s.Joins {
		if s.Joins[i].Qualifier == qualifier {
			return &s.Joins[i], true
		}
	}
	return nil, false
}

// AddJoin registers a join. Qualifiers must be unique and must not shadow
// the base alias.
func (s *Spell) AddJoin(qualifier string, model *schema.Model, on string, values ...any) error {
	if qualifier == s.Model.Alias {
		return fmt.Errorf("join qualifier %q shadows the base alias", qualifier)
	}
	if _, ok := s.Join(qualifier); ok {
		return fmt.Errorf("duplicate join qualifier %q", qualifier)
	}
	cond, err := expr.Parse(on, values...)
	if err != nil {
		return fmt.Errorf("join %s: %w", qualifier, err)
	}
	s.Joins = append(s.Joins, Join{Qualifier: qualifier, Model: model, On: cond})
	return nil
}

// AddColumns parses a select list and appends it.
func (s *Spell) AddColumns(text string, values ...any) error {
	nodes, err := expr.ParseList(text, values...)
	if err != nil {
		return err
	}
	s.Columns = append(s.Columns, nodes...)
	return nil
}

// AddWhere parses a condition and appends it to the WHERE list.
func (s *Spell) AddWhere(text string, values ...any) error {
	cond, err := expr.Parse(text, values...)
	if err != nil {
		return err
	}
	s.Where = append(s.Where, cond)
	return nil
}

// AddHaving parses a condition and appends it to the HAVING list.
func (s *Spell) AddHaving(text string, values ...any) error {
	cond, err := expr.Parse(text, values...)
	if err != nil {
		return err
	}
	s.Having = append(s.Having, cond)
	return nil
}

// AddGroups parses a group list and appends it.
func (s *Spell) AddGroups(text string) error {
	nodes, err := expr.ParseList(text)
	if err != nil {
		return err
	}
	s.Groups = append(s.Groups, nodes...)
	return nil
}

// AddOrder parses an order expression, optionally followed by ASC or DESC.
func (s *Spell) AddOrder(text string, values ...any) error {
	order, err := ParseOrder(text, values...)
	if err != nil {
		return err
	}
	s.Orders = append(s.Orders, order)
	return nil
}

// ParseOrder parses "expr [ASC|DESC]".
func ParseOrder(text string, values ...any) (Order, error) {
	body, dir := strings.TrimSpace(text), Asc
	if i := strings.LastIndexAny(body, " \t\n"); i >= 0 {
		switch strings.ToUpper(body[i+1:]) {
		case "ASC":
			body = body[:i]
		case "DESC":
			body, dir = body[:i], Desc
		}
	}

	node, err := expr.Parse(body, values...)
	if err != nil {
		return Order{}, err
	}
	return Order{Expr: node, Direction: dir}, nil
}

// Clone returns a structural copy of the spell. Expression trees are copied
// with expr.Copy; models are shared.
func (s *Spell) Clone() *Spell {
	if s == nil {
		return nil
	}

	c := *s
	c.From = s.From.Clone()
	c.Columns = copyNodes(s.Columns)
	c.Where = copyNodes(s.Where)
	c.Groups = copyNodes(s.Groups)
	c.Having = copyNodes(s.Having)

	if s.Orders != nil {
		c.Orders = make([]Order, len(s.Orders))
		for i, o := range s.Orders {
			c.Orders[i] = Order{Expr: expr.Copy(o.Expr, nil), Direction: o.Direction}
		}
	}

	if s.Joins != nil {
		c.Joins = make([]Join, len(s.Joins))
		for i, j := range s.Joins {
			j.On = expr.Copy(j.On, nil)
			c.Joins[i] = j
		}
	}

	if s.Sets != nil {
		c.Sets = make([]Row, len(s.Sets))
		for i, row := range s.Sets {
			c.Sets[i] = row.clone()
		}
	}

	c.Attributes = copyStrings(s.Attributes)
	c.Hints = append([]Hint(nil), s.Hints...)
	if s.IndexHints != nil {
		c.IndexHints = make([]IndexHint, len(s.IndexHints))
		for i, h := range s.IndexHints {
			h.Indexes = copyStrings(h.Indexes)
			c.IndexHints[i] = h
		}
	}
	c.UpdateOnDuplicate.Columns = copyStrings(s.UpdateOnDuplicate.Columns)
	c.UniqueKeys = copyStrings(s.UniqueKeys)
	c.Returning.Columns = copyStrings(s.Returning.Columns)

	return &c
}

func (r Row) clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		if node, ok := v.(expr.Node); ok {
			v = expr.Copy(node, nil)
		}
		out[k] = v
	}
	return out
}

func copyNodes(nodes []expr.Node) []expr.Node {
	if nodes == nil {
		return nil
	}
	out := make([]expr.Node, len(nodes))
	for i, n := range nodes {
		out[i] = expr.Copy(n, nil)
	}
	return out
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
