package storage

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetDefaults 按 def tag 给零值字段赋默认值，嵌套结构体递归处理
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer, got %T", object)
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}

		switch {
		case fv.Kind() == reflect.Struct:
			if err := setDefaults(fv); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		case fv.Kind() == reflect.Ptr && !fv.IsNil() && fv.Elem().Kind() == reflect.Struct:
			if err := setDefaults(fv.Elem()); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}

		def, ok := field.Tag.Lookup("def")
		if !ok || !fv.IsZero() {
			continue
		}
		if fv.Kind() == reflect.Ptr {
			fv.Set(reflect.New(fv.Type().Elem()))
			fv = fv.Elem()
		}
		if err := setDefaultValue(fv, def); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func setDefaultValue(rv reflect.Value, def string) error {
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(def)
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return fmt.Errorf("invalid bool %q", def)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			d, err := time.ParseDuration(def)
			if err != nil {
				return fmt.Errorf("invalid duration %q", def)
			}
			rv.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(def, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int %q", def)
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(def, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint %q", def)
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(def, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float %q", def)
		}
		rv.SetFloat(f)
	case reflect.Slice:
		parts := strings.Split(def, ",")
		out := reflect.MakeSlice(rv.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setDefaultValue(out.Index(i), strings.TrimSpace(part)); err != nil {
				return err
			}
		}
		rv.Set(out)
	default:
		return fmt.Errorf("unsupported default for type %v", rv.Type())
	}
	return nil
}
