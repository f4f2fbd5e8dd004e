package toml

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var (
	ErrSyntax        = errors.New("toml syntax")
	ErrInvalidTarget = errors.New("target must be a non-nil pointer")
	ErrUnknownKey    = errors.New("unknown key")
)

var durationType = reflect.TypeOf(time.Duration(0))

// Unmarshal parses TOML data and stores the result in the value pointed to by v
// Keys without a matching field are ignored
func Unmarshal(data []byte, v any) error {
	return unmarshal(data, v, false)
}

// UnmarshalStrict is Unmarshal that also reports every key without a matching field
// The value is fully decoded; the returned error joins one ErrUnknownKey per stray key
func UnmarshalStrict(data []byte, v any) error {
	return unmarshal(data, v, true)
}

func unmarshal(data []byte, v any, strict bool) error {
	doc, err := parse(data)
	if err != nil {
		return err
	}
	d := &decoder{strict: strict}
	if err := d.decode(doc, v); err != nil {
		return err
	}
	return d.unknownErr()
}

// Decode maps a generic map[string]any to a struct/slice/etc using reflection
// It prioritizes `toml` tags and falls back to field names
func Decode(data any, v any) error {
	d := &decoder{}
	return d.decode(data, v)
}

type decoder struct {
	strict  bool
	unknown []string
}

func (d *decoder) decode(data any, v any) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return ErrInvalidTarget
	}
	return d.decodeValue(data, val.Elem(), "")
}

func (d *decoder) unknownErr() error {
	if len(d.unknown) == 0 {
		return nil
	}
	errs := make([]error, len(d.unknown))
	for i, k := range d.unknown {
		errs[i] = fmt.Errorf("%s: %w", k, ErrUnknownKey)
	}
	return errors.Join(errs...)
}

func (d *decoder) decodeValue(data any, val reflect.Value, path string) error {
	if data == nil {
		return nil
	}

	if val.Type() == durationType {
		return decodeDuration(data, val)
	}

	switch val.Kind() {
	case reflect.Ptr:
		elemType := val.Type().Elem()
		newVal := reflect.New(elemType)
		if err := d.decodeValue(data, newVal.Elem(), path); err != nil {
			return err
		}
		val.Set(newVal)

	case reflect.Struct:
		dataMap, ok := data.(map[string]any)
		if !ok {
			return fmt.Errorf("expected map for struct, got %T", data)
		}
		return d.decodeStruct(dataMap, val, path)

	case reflect.Slice:
		// Arrays arrive as []any, arrays of tables as []map[string]any
		dataSlice, ok := data.([]any)
		if !ok {
			if mapSlice, ok := data.([]map[string]any); ok {
				dataSlice = make([]any, len(mapSlice))
				for i, m := range mapSlice {
					dataSlice[i] = m
				}
			} else {
				return fmt.Errorf("expected slice, got %T", data)
			}
		}

		newSlice := reflect.MakeSlice(val.Type(), len(dataSlice), len(dataSlice))
		for i := 0; i < len(dataSlice); i++ {
			if err := d.decodeValue(dataSlice[i], newSlice.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		val.Set(newSlice)

	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("only map[string]T is supported")
		}

		dataMap, ok := data.(map[string]any)
		if !ok {
			return fmt.Errorf("expected map, got %T", data)
		}

		newMap := reflect.MakeMap(val.Type())
		elemType := val.Type().Elem()

		for k, vData := range dataMap {
			newVal := reflect.New(elemType).Elem()
			if err := d.decodeValue(vData, newVal, joinPath(path, k)); err != nil {
				return fmt.Errorf("map key %s: %w", k, err)
			}
			newMap.SetMapIndex(reflect.ValueOf(k).Convert(val.Type().Key()), newVal)
		}
		val.Set(newMap)

	case reflect.Interface:
		val.Set(reflect.ValueOf(data))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := toFloat(data)
		if !ok {
			return fmt.Errorf("cannot convert %T to int", data)
		}
		val.SetInt(int64(f))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok := toFloat(data)
		if !ok || f < 0 {
			return fmt.Errorf("cannot convert %v to uint", data)
		}
		val.SetUint(uint64(f))

	case reflect.Float32, reflect.Float64:
		f, ok := toFloat(data)
		if !ok {
			return fmt.Errorf("cannot convert %T to float", data)
		}
		val.SetFloat(f)

	case reflect.String:
		s, ok := data.(string)
		if !ok {
			return fmt.Errorf("cannot convert %T to string", data)
		}
		val.SetString(s)

	case reflect.Bool:
		b, ok := data.(bool)
		if !ok {
			return fmt.Errorf("cannot convert %T to bool", data)
		}
		val.SetBool(b)
	}

	return nil
}

func (d *decoder) decodeStruct(data map[string]any, val reflect.Value, path string) error {
	typ := val.Type()
	var seen map[string]struct{}
	if d.strict {
		seen = make(map[string]struct{}, len(data))
	}

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		key := fieldType.Name
		if tag := fieldType.Tag.Get("toml"); tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			key = parts[0]
		}

		// Case sensitive lookup
		vData, ok := data[key]
		if !ok {
			continue
		}
		if seen != nil {
			seen[key] = struct{}{}
		}
		if err := d.decodeValue(vData, field, joinPath(path, key)); err != nil {
			return fmt.Errorf("%s.%s: %w", typ.Name(), fieldType.Name, err)
		}
	}

	if seen != nil {
		for k := range data {
			if _, ok := seen[k]; !ok {
				d.unknown = append(d.unknown, joinPath(path, k))
			}
		}
	}
	return nil
}

// decodeDuration accepts Go duration strings ("250ms") or a number of seconds
func decodeDuration(data any, val reflect.Value) error {
	if s, ok := data.(string); ok {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("duration %q: %w", s, err)
		}
		val.SetInt(int64(dur))
		return nil
	}
	if f, ok := toFloat(data); ok {
		val.SetInt(int64(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("cannot convert %T to duration", data)
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func toFloat(v any) (float64, bool) {
	switch i := v.(type) {
	case int:
		return float64(i), true
	case int8:
		return float64(i), true
	case int16:
		return float64(i), true
	case int32:
		return float64(i), true
	case int64:
		return float64(i), true
	case uint:
		return float64(i), true
	case uint8:
		return float64(i), true
	case uint16:
		return float64(i), true
	case uint32:
		return float64(i), true
	case uint64:
		return float64(i), true
	case float64:
		return i, true
	}
	return 0, false
}
