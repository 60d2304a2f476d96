package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// CompileError represents a model definition error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadDir loads every model declared under model: in the CUE package at dir.
func LoadDir(dir string, mode LoadMode) (*Registry, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("models directory: %w", err)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("scanning %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, []error{fmt.Errorf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	return CompileModels(value, mode)
}

// LoadString compiles models from CUE source text.
func LoadString(src string) (*Registry, error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	reg, errs := CompileModels(value, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return reg, nil
}

// CompileModels compiles every field of the top-level model struct.
func CompileModels(v cue.Value, mode LoadMode) (*Registry, []error) {
	reg := NewRegistry()

	modelsVal := v.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return reg, []error{&CompileError{Field: "model", Message: "no models defined", Pos: v.Pos()}}
	}

	iter, err := modelsVal.Fields()
	if err != nil {
		return reg, []error{formatCUEError(err)}
	}

	var errs []error
	for iter.Next() {
		m, err := CompileModel(iter.Value())
		if err == nil {
			err = reg.Add(m)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("model.%s: %w", iter.Label(), err))
			if mode == LoadModeFailFast {
				return reg, errs
			}
		}
	}

	return reg, errs
}

// CompileModel parses a CUE value into a Model. The model name is the label
// of the value:
//
//	v := ctx.CompileString(`model: Post: { table: "posts", attributes: {...} }`)
//	m, err := CompileModel(v.LookupPath(cue.ParsePath("model.Post")))
func CompileModel(v cue.Value) (*Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var name string
	if labels := v.Path().Selectors(); len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}

	table, err := requiredString(v, "table")
	if err != nil {
		return nil, err
	}

	attrs, err := parseAttributes(v)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return nil, &CompileError{
			Field:   "attributes",
			Message: "at least one attribute is required",
			Pos:     v.Pos(),
		}
	}

	m := NewModel(name, table, attrs...)

	if alias, ok, err := optionalString(v, "alias"); err != nil {
		return nil, err
	} else if ok {
		m.Alias = alias
	}

	if key, ok, err := optionalString(v, "shardingKey"); err != nil {
		return nil, err
	} else if ok {
		if !m.HasAttribute(key) {
			return nil, &CompileError{
				Field:   "shardingKey",
				Message: fmt.Sprintf("unknown attribute %q", key),
				Pos:     v.LookupPath(cue.ParsePath("shardingKey")).Pos(),
			}
		}
		m.ShardingKey = key
	}

	if createdAt, ok, err := optionalString(v, "timestamps.createdAt"); err != nil {
		return nil, err
	} else if ok {
		if !m.HasAttribute(createdAt) {
			return nil, &CompileError{
				Field:   "timestamps.createdAt",
				Message: fmt.Sprintf("unknown attribute %q", createdAt),
				Pos:     v.LookupPath(cue.ParsePath("timestamps.createdAt")).Pos(),
			}
		}
		m.CreatedAt = createdAt
	}

	return m, nil
}

// parseAttributes reads attributes in declaration order.
func parseAttributes(v cue.Value) ([]*Attribute, error) {
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []*Attribute
	for iter.Next() {
		attrVal := iter.Value()
		attr := &Attribute{Name: iter.Label(), AllowNull: true}

		typeName, err := requiredString(attrVal, "type")
		if err != nil {
			return nil, err
		}
		attr.Type, err = ParseDataType(typeName)
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("attributes.%s.type", attr.Name),
				Message: err.Error(),
				Pos:     attrVal.LookupPath(cue.ParsePath("type")).Pos(),
			}
		}

		if column, ok, err := optionalString(attrVal, "column"); err != nil {
			return nil, err
		} else if ok {
			attr.Column = column
		}

		for field, target := range map[string]*bool{
			"primaryKey": &attr.PrimaryKey,
			"unique":     &attr.Unique,
			"allowNull":  &attr.AllowNull,
		} {
			fv := attrVal.LookupPath(cue.ParsePath(field))
			if !fv.Exists() {
				continue
			}
			b, err := fv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			*target = b
		}
		if attr.PrimaryKey {
			attr.AllowNull = false
		}

		attrs = append(attrs, attr)
	}

	return attrs, nil
}

func requiredString(v cue.Value, path string) (string, error) {
	s, ok, err := optionalString(v, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &CompileError{
			Field:   path,
			Message: path + " is required",
			Pos:     v.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, path string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
