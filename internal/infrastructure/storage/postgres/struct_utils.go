package postgres

import (
	"reflect"
	"sync"
)

// column is one db-tagged field, addressed by its index path so that
// embedded structs are read without recursion at runtime.
type column struct {
	name  string
	index []int
}

// plans caches the column list per struct type.
var plans sync.Map // reflect.Type -> []column

func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := plans.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collectColumns(t, nil)
	}
	plans.Store(t, cols)
	return cols
}

func collectColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			cols = append(cols, collectColumns(f.Type, path)...)
			continue
		}
		tag := f.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, column{name: tag, index: path})
	}
	return cols
}

// ExtractDBColumns lists the "db" tags of T in field order, embedded
// structs included. Called once per repository at construction.
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeOf((*T)(nil)).Elem())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap maps column name to field value, for squirrel SetMap.
// Returns nil if v is not a struct or pointer to one.
func StructToMap(v any) map[string]any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}

// RowValues returns the field values of v in the order of names.
// Unknown names yield nil. Used to build COPY rows.
func RowValues(v any, names []string) []any {
	m := StructToMap(v)
	row := make([]any, len(names))
	for i, name := range names {
		row[i] = m[name]
	}
	return row
}
