package rdb

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ModelBuilder 从带 tag 的结构体构建 ModelDefinition
type ModelBuilder struct{}

func NewModelBuilder() *ModelBuilder {
	return &ModelBuilder{}
}

// tabler 结构体实现该接口时使用其返回值作为表名
type tabler interface {
	Table() string
}

// FromStruct 从结构体构建模型定义，模型名为结构体类型名
// 支持的 tag 格式：
//   - `rdb:"column_name,type=string,size=255,scale=2,required,id,generated,index,unique,default=x"`
//   - `index=name` / `unique=name` 声明多列索引，列按字段顺序排列
//   - `rdb:"-"` 忽略字段
func (b *ModelBuilder) FromStruct(v any) (*ModelDefinition, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %T", v)
	}

	rt := rv.Type()
	model := &ModelDefinition{Name: rt.Name()}
	if t, ok := rv.Interface().(tabler); ok {
		model.Table = t.Table()
	}

	indexByName := map[string]int{}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("rdb")
		if tag == "-" {
			continue
		}

		prop, composites, err := b.parseFieldTag(field, tag)
		if err != nil {
			return nil, fmt.Errorf("failed to parse field %s: %w", field.Name, err)
		}
		model.Properties = append(model.Properties, prop)

		for _, composite := range composites {
			if pos, ok := indexByName[composite.Name]; ok {
				model.Indexes[pos].Columns = append(model.Indexes[pos].Columns, prop.ColumnName())
				continue
			}
			composite.Columns = []string{prop.ColumnName()}
			indexByName[composite.Name] = len(model.Indexes)
			model.Indexes = append(model.Indexes, composite)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

func (b *ModelBuilder) parseFieldTag(field reflect.StructField, tag string) (PropertyDefinition, []IndexDefinition, error) {
	prop := PropertyDefinition{
		Name:     field.Name,
		Type:     b.inferFieldType(field.Type),
		Nullable: true,
	}
	var composites []IndexDefinition

	parts := strings.Split(tag, ",")
	if parts[0] != "" && !strings.Contains(parts[0], "=") {
		prop.Column = strings.TrimSpace(parts[0])
	}
	if len(parts) > 0 && !strings.Contains(parts[0], "=") {
		parts = parts[1:]
	}

	var defaultValue *string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, "=")
		if hasValue {
			switch key {
			case "type":
				prop.Type = FieldType(value)
			case "size", "scale":
				n, err := strconv.Atoi(value)
				if err != nil {
					return prop, nil, fmt.Errorf("invalid %s %q", key, value)
				}
				if key == "size" {
					prop.Size = n
				} else {
					prop.Scale = n
				}
			case "default":
				defaultValue = &value
			case "index":
				composites = append(composites, IndexDefinition{Name: value})
			case "unique":
				composites = append(composites, IndexDefinition{Name: value, Type: IndexTypeUnique})
			default:
				return prop, nil, fmt.Errorf("unknown tag option %q", key)
			}
			continue
		}

		switch part {
		case "required", "not_null":
			prop.Nullable = false
		case "id", "primary", "pk":
			prop.ID = true
			prop.Nullable = false
		case "generated":
			prop.Generated = true
		case "index":
			prop.Index = &IndexSpec{}
		case "unique":
			prop.Index = &IndexSpec{Type: IndexTypeUnique}
		default:
			return prop, nil, fmt.Errorf("unknown tag option %q", part)
		}
	}

	// type 可能出现在 default 之后
	if defaultValue != nil {
		prop.Default = b.parseDefaultValue(*defaultValue, prop.Type)
	}
	return prop, composites, nil
}

var timeType = reflect.TypeOf(time.Time{})

func (b *ModelBuilder) inferFieldType(t reflect.Type) FieldType {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return FieldTypeDate
	}

	switch t.Kind() {
	case reflect.String:
		return FieldTypeString
	case reflect.Int64, reflect.Uint32, reflect.Uint64:
		return FieldTypeBigInt
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16:
		return FieldTypeInt
	case reflect.Float32, reflect.Float64:
		return FieldTypeFloat
	case reflect.Bool:
		return FieldTypeBool
	default:
		return FieldTypeJSON
	}
}

func (b *ModelBuilder) parseDefaultValue(value string, fieldType FieldType) any {
	switch fieldType {
	case FieldTypeString:
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			return value[1 : len(value)-1]
		}
		return value
	case FieldTypeInt, FieldTypeBigInt:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	case FieldTypeFloat, FieldTypeDecimal:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case FieldTypeBool:
		return value == "true" || value == "1"
	}
	return value
}
