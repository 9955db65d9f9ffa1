package component

import "reflect"

// deepClone copies maps and slices recursively so a shared default can never
// leak mutations between instances. Scalars, strings, funcs, and channels
// pass through; pointers and structs are returned as-is, since defaults are
// expected to be plain data.
func deepClone(v any) any {
	if v == nil {
		return nil
	}
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[k] = deepClone(val)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, val := range tv {
			out[i] = deepClone(val)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), reflect.ValueOf(deepClone(iter.Value().Interface())))
		}
		return out.Interface()
	case reflect.Slice:
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(reflect.ValueOf(deepClone(rv.Index(i).Interface())))
		}
		return out.Interface()
	default:
		return v
	}
}
