package querybuilder

import (
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx/reflectx"
)

// dbMapper resolves columns the same way sqlx does when scanning rows back into the models.
var dbMapper = reflectx.NewMapper("db")

// InsertModels starts a multi-row insert whose columns come from the `db` tags of T.
func InsertModels[T any](table string, models []T) (*InsertBuilder, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("insert into %q: no models", table)
	}

	b := InsertInto(table)
	for i := range models {
		fields, err := taggedFields(reflect.ValueOf(models[i]))
		if err != nil {
			return nil, fmt.Errorf("insert into %q: model %d: %w", table, i, err)
		}
		if i == 0 {
			b.Columns(fields.columns...)
		}
		b.Values(fields.values...)
	}
	return b, nil
}

// Columns lists the `db` tagged columns of model in field order, or nil when it has none.
func Columns(model any) []string {
	fields, err := taggedFields(reflect.ValueOf(model))
	if err != nil {
		return nil
	}
	return fields.columns
}

type fieldSet struct {
	columns []string
	values  []any
}

// taggedFields reads the top-level exported fields that carry an explicit db tag.
func taggedFields(v reflect.Value) (fieldSet, error) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return fieldSet{}, fmt.Errorf("nil model")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fieldSet{}, fmt.Errorf("model is %s, not a struct", v.Kind())
	}

	var out fieldSet
	for _, fi := range dbMapper.TypeMap(v.Type()).Index {
		if len(fi.Index) != 1 || fi.Field.Tag.Get("db") == "" {
			continue
		}
		out.columns = append(out.columns, fi.Name)
		out.values = append(out.values, reflectx.FieldByIndexesReadOnly(v, fi.Index).Interface())
	}
	if len(out.columns) == 0 {
		return fieldSet{}, fmt.Errorf("model %s has no db columns", v.Type())
	}
	return out, nil
}
