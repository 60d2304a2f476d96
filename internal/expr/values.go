package expr

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// bindValue converts a placeholder value into a node.
//
//   - a Node is used as-is (e.g. a Raw fragment)
//   - a Query becomes a Subquery
//   - a slice, array or set-like map becomes one list Literal
//   - anything else becomes a scalar Literal
func bindValue(value any) Node {
	switch v := value.(type) {
	case Node:
		return v
	case Query:
		return &Subquery{Query: v}
	case nil, []byte, string, bool, time.Time, decimal.Decimal:
		return &Literal{Value: v}
	case []any:
		return &Literal{Value: append([]any{}, v...)}
	}

	if list, ok := listValues(value); ok {
		return &Literal{Value: list}
	}

	return &Literal{Value: value}
}

// listValues flattens slices, arrays and sets into an ordered list. Sets
// (map[K]struct{} or map[K]bool) have no order of their own, so their keys
// are sorted to keep the output deterministic.
func listValues(value any) ([]any, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return list, true
	case reflect.Map:
		elem := rv.Type().Elem()
		isBool := elem.Kind() == reflect.Bool
		if !isBool && !(elem.Kind() == reflect.Struct && elem.NumField() == 0) {
			return nil, false
		}
		list := make([]any, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if isBool && !iter.Value().Bool() {
				continue
			}
			list = append(list, iter.Key().Interface())
		}
		sort.Slice(list, func(i, j int) bool { return lessValue(list[i], list[j]) })
		return list, true
	default:
		return nil, false
	}
}

func lessValue(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case ra.CanInt() && rb.CanInt():
		return ra.Int() < rb.Int()
	case ra.CanUint() && rb.CanUint():
		return ra.Uint() < rb.Uint()
	case ra.CanFloat() && rb.CanFloat():
		return ra.Float() < rb.Float()
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}
