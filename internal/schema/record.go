package schema

import (
	"fmt"
	"reflect"
	"strings"

	"raincast/internal/types"
)

// recordFields maps a column name to its struct field index in
// types.FeatureRecord, keyed by the json tag.
var recordFields = indexRecordFields()

func indexRecordFields() map[string]int {
	t := reflect.TypeOf(types.FeatureRecord{})
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = i
	}
	return out
}

// Defaults returns a record populated with every field's default value.
func Defaults() types.FeatureRecord {
	var rec types.FeatureRecord
	for _, f := range fields {
		switch f.Kind {
		case KindChoice:
			mustSet(&rec, f.Name, f.DefaultChoice)
		case KindBinary:
			mustSet(&rec, f.Name, binaryValue(f.DefaultChoice))
		default:
			mustSet(&rec, f.Name, f.Default)
		}
	}
	return rec
}

// Value returns the stored value of a column: float64 for float fields, int
// for int and binary fields, string for choice fields.
func Value(rec types.FeatureRecord, name string) (any, bool) {
	idx, ok := recordFields[name]
	if !ok {
		return nil, false
	}
	return reflect.ValueOf(rec).Field(idx).Interface(), true
}

// Row returns the record as a column-name keyed map in the shape the model
// consumes: numeric and binary columns as float64, categorical columns as
// string. No scaling or encoding is applied.
func Row(rec types.FeatureRecord) map[string]any {
	row := make(map[string]any, len(fields))
	for _, f := range fields {
		v, _ := Value(rec, f.Name)
		switch x := v.(type) {
		case int:
			row[f.Name] = float64(x)
		default:
			row[f.Name] = x
		}
	}
	return row
}

// set assigns a parsed value to the named column. Numeric values are
// converted to the field's storage type.
func set(rec *types.FeatureRecord, name string, v any) error {
	idx, ok := recordFields[name]
	if !ok {
		return fmt.Errorf("schema: unknown column %q", name)
	}
	field := reflect.ValueOf(rec).Elem().Field(idx)
	switch x := v.(type) {
	case float64:
		switch field.Kind() {
		case reflect.Float64:
			field.SetFloat(x)
		case reflect.Int:
			field.SetInt(int64(x))
		default:
			return fmt.Errorf("schema: column %q is not numeric", name)
		}
	case int:
		if field.Kind() != reflect.Int {
			return fmt.Errorf("schema: column %q is not an integer", name)
		}
		field.SetInt(int64(x))
	case string:
		if field.Kind() != reflect.String {
			return fmt.Errorf("schema: column %q is not categorical", name)
		}
		field.SetString(x)
	default:
		return fmt.Errorf("schema: unsupported value %T for column %q", v, name)
	}
	return nil
}

func mustSet(rec *types.FeatureRecord, name string, v any) {
	if err := set(rec, name, v); err != nil {
		panic(err)
	}
}

func binaryValue(choice string) int {
	if choice == BinaryYes {
		return 1
	}
	return 0
}
