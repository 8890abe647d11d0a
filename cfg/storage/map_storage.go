package storage

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// MapStorage 基于 map 和 slice 的存储实现，decoder 解析出的数据都包装成它
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

// Data 获取存储的原始数据
func (ms *MapStorage) Data() any {
	return ms.data
}

func (ms *MapStorage) Sub(key string) Storage {
	if key == "" {
		return ms
	}

	current := ms.data
	for _, k := range parseKey(key) {
		current = valueByKey(current, k)
		if current == nil {
			break
		}
	}
	return NewMapStorage(current)
}

// ConvertTo 先按 def tag 填充默认值，再用配置数据覆盖
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if err := SetDefaults(object); err != nil {
		return err
	}
	return convertValue(ms.data, rv.Elem())
}

// parseKey 把 "a.b[0].c" 拆成 ["a", "b", "0", "c"]
func parseKey(key string) []string {
	var keys []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			keys = append(keys, current.String())
			current.Reset()
		}
	}

	inBracket := false
	for _, c := range key {
		switch {
		case c == '.' && !inBracket:
			flush()
		case c == '[':
			flush()
			inBracket = true
		case c == ']' && inBracket:
			flush()
			inBracket = false
		default:
			current.WriteRune(c)
		}
	}
	flush()
	return keys
}

func valueByKey(data any, key string) any {
	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if fmt.Sprint(k.Interface()) == key {
				return rv.MapIndex(k).Interface()
			}
		}
	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= rv.Len() {
			return nil
		}
		return rv.Index(index).Interface()
	}
	return nil
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

func convertValue(src any, dst reflect.Value) error {
	sv := reflect.ValueOf(src)
	if !sv.IsValid() {
		return nil
	}
	for sv.Kind() == reflect.Ptr || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	switch dst.Type() {
	case durationType:
		return convertDuration(sv, dst)
	case timeType:
		return convertTime(sv, dst)
	}

	switch dst.Kind() {
	case reflect.Interface:
		if dst.Type().NumMethod() != 0 {
			break
		}
		// 未知结构的子配置保留为 MapStorage，交给 ref 按构造函数参数类型再转换
		if sv.Kind() == reflect.Map {
			dst.Set(reflect.ValueOf(NewMapStorage(sv.Interface())))
		} else {
			dst.Set(sv)
		}
		return nil
	case reflect.Map:
		return convertMap(sv, dst)
	case reflect.Slice:
		return convertSlice(sv, dst)
	case reflect.Struct:
		return convertStruct(sv, dst)
	case reflect.String:
		if sv.Kind() != reflect.String {
			dst.SetString(fmt.Sprint(sv.Interface()))
			return nil
		}
	case reflect.Bool:
		if sv.Kind() == reflect.String {
			b, err := strconv.ParseBool(sv.String())
			if err != nil {
				return fmt.Errorf("cannot convert %q to bool: %w", sv.String(), err)
			}
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if sv.Kind() == reflect.String {
			i, err := strconv.ParseInt(sv.String(), 0, dst.Type().Bits())
			if err != nil {
				return fmt.Errorf("cannot convert %q to int: %w", sv.String(), err)
			}
			dst.SetInt(i)
			return nil
		}
	}

	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if sv.Type().ConvertibleTo(dst.Type()) && isNumber(sv.Kind()) == isNumber(dst.Kind()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// convertDuration 字符串按 time.ParseDuration 解析，整数视为纳秒，浮点数视为秒
func convertDuration(sv, dst reflect.Value) error {
	switch sv.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return fmt.Errorf("failed to parse duration %q: %w", sv.String(), err)
		}
		dst.SetInt(int64(d))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(sv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetInt(int64(sv.Uint()))
	case reflect.Float32, reflect.Float64:
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
	default:
		return fmt.Errorf("cannot convert %v to time.Duration", sv.Type())
	}
	return nil
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func convertTime(sv, dst reflect.Value) error {
	if sv.Type() == timeType {
		dst.Set(sv)
		return nil
	}
	switch sv.Kind() {
	case reflect.String:
		for _, format := range timeFormats {
			if t, err := time.Parse(format, sv.String()); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return fmt.Errorf("failed to parse time %q", sv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Unix(sv.Int(), 0)))
		return nil
	}
	return fmt.Errorf("cannot convert %v to time.Time", sv.Type())
}

func convertMap(sv, dst reflect.Value) error {
	if sv.Kind() != reflect.Map {
		return fmt.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	keyType := dst.Type().Key()
	for _, k := range sv.MapKeys() {
		v := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(sv.MapIndex(k).Interface(), v); err != nil {
			return fmt.Errorf("key %v: %w", k.Interface(), err)
		}
		key := reflect.New(keyType).Elem()
		if err := convertValue(k.Interface(), key); err != nil {
			return fmt.Errorf("key %v: %w", k.Interface(), err)
		}
		dst.SetMapIndex(key, v)
	}
	return nil
}

func convertSlice(sv, dst reflect.Value) error {
	if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
		return fmt.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
	}

	n := sv.Len()
	out := reflect.MakeSlice(dst.Type(), n, n)
	for i := 0; i < n; i++ {
		if err := convertValue(sv.Index(i).Interface(), out.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func convertStruct(sv, dst reflect.Value) error {
	if sv.Kind() != reflect.Map {
		return fmt.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
	}

	values := make(map[string]reflect.Value, sv.Len())
	for _, k := range sv.MapKeys() {
		values[strings.ToLower(fmt.Sprint(k.Interface()))] = sv.MapIndex(k)
	}

	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !dst.Field(i).CanSet() {
			continue
		}
		name := FieldName(field)
		if name == "-" {
			continue
		}
		v, ok := values[strings.ToLower(name)]
		if !ok {
			continue
		}
		if err := convertValue(v.Interface(), dst.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

// FieldName 字段在配置中的名字，优先 cfg tag，其次 json/yaml tag，最后是字段名
func FieldName(field reflect.StructField) string {
	for _, tagName := range []string{"cfg", "json", "yaml"} {
		if tag := field.Tag.Get(tagName); tag != "" {
			if name := strings.Split(tag, ",")[0]; name != "" {
				return name
			}
		}
	}
	return field.Name
}
