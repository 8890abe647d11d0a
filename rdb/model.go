package rdb

import (
	"fmt"
	"strings"
)

// FieldType 属性的语义类型
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInt     FieldType = "int"
	FieldTypeBigInt  FieldType = "bigint"
	FieldTypeFloat   FieldType = "float"
	FieldTypeDecimal FieldType = "decimal"
	FieldTypeBool    FieldType = "bool"
	FieldTypeDate    FieldType = "date"
	FieldTypeJSON    FieldType = "json"
)

// IndexTypeUnique 唯一索引
const IndexTypeUnique = "UNIQUE"

// IndexSpec 属性上的单列索引，索引名等于列名
type IndexSpec struct {
	// Type 索引类型关键字，空表示普通索引
	Type string
}

// PropertyDefinition 模型属性
type PropertyDefinition struct {
	Name   string
	Column string // 为空时等于 Name
	Type   FieldType
	// Size 字符串长度或 decimal 精度
	Size int
	// Scale decimal 小数位数
	Scale     int
	Nullable  bool
	ID        bool
	Generated bool // 由数据库生成的标识列
	Default   any
	Index     *IndexSpec
}

// ColumnName 属性对应的列名
func (p *PropertyDefinition) ColumnName() string {
	if p.Column != "" {
		return p.Column
	}
	return p.Name
}

// IndexDefinition 模型上的命名多列索引
type IndexDefinition struct {
	Name    string
	Columns []string
	Type    string
}

// ModelDefinition 模型定义，属性有序
// 注册后只读
type ModelDefinition struct {
	Name       string
	Table      string // 为空时使用大写的 Name
	Properties []PropertyDefinition
	Indexes    []IndexDefinition
}

// TableName 表名
func (m *ModelDefinition) TableName() string {
	if m.Table != "" {
		return m.Table
	}
	return strings.ToUpper(m.Name)
}

// Property 按属性名查找
func (m *ModelDefinition) Property(name string) (*PropertyDefinition, bool) {
	for i := range m.Properties {
		if m.Properties[i].Name == name {
			return &m.Properties[i], true
		}
	}
	return nil, false
}

// PropertyByColumn 按列名查找
func (m *ModelDefinition) PropertyByColumn(column string) (*PropertyDefinition, bool) {
	for i := range m.Properties {
		if m.Properties[i].ColumnName() == column {
			return &m.Properties[i], true
		}
	}
	return nil, false
}

// IDProperty 标识属性，未定义时返回 nil
func (m *ModelDefinition) IDProperty() *PropertyDefinition {
	for i := range m.Properties {
		if m.Properties[i].ID {
			return &m.Properties[i]
		}
	}
	return nil
}

// IDColumn 标识列名
func (m *ModelDefinition) IDColumn() string {
	if p := m.IDProperty(); p != nil {
		return p.ColumnName()
	}
	return ""
}

// IsIDColumn 列是否是标识列
func (m *ModelDefinition) IsIDColumn(column string) bool {
	return column != "" && column == m.IDColumn()
}

// Index 按名字查找多列索引
func (m *ModelDefinition) Index(name string) (*IndexDefinition, bool) {
	for i := range m.Indexes {
		if m.Indexes[i].Name == name {
			return &m.Indexes[i], true
		}
	}
	return nil, false
}

// Validate 检查模型是否可用于生成 DDL
func (m *ModelDefinition) Validate() error {
	if m.Name == "" {
		return NewInvalidModelError(m.Name, "model name is required")
	}
	if len(m.Properties) == 0 {
		return NewInvalidModelError(m.Name, "at least one property is required")
	}

	ids := 0
	names := map[string]bool{}
	columns := map[string]bool{}
	for i := range m.Properties {
		p := &m.Properties[i]
		if p.Name == "" {
			return NewInvalidModelError(m.Name, fmt.Sprintf("property %d has no name", i))
		}
		if names[p.Name] {
			return NewInvalidModelError(m.Name, fmt.Sprintf("duplicate property %s", p.Name))
		}
		if columns[p.ColumnName()] {
			return NewInvalidModelError(m.Name, fmt.Sprintf("duplicate column %s", p.ColumnName()))
		}
		names[p.Name] = true
		columns[p.ColumnName()] = true
		if p.ID {
			ids++
		}
		if p.Generated && !p.ID {
			return NewInvalidModelError(m.Name, fmt.Sprintf("generated property %s must be the identifier", p.Name))
		}
	}
	if ids != 1 {
		return NewInvalidModelError(m.Name, fmt.Sprintf("exactly one identifier property is required, got %d", ids))
	}

	// 单列索引以列名命名，与多列索引共用同一个命名空间
	indexes := map[string]bool{}
	for i := range m.Properties {
		p := &m.Properties[i]
		if p.Index != nil && !p.ID {
			indexes[p.ColumnName()] = true
		}
	}
	for _, index := range m.Indexes {
		if index.Name == "" || len(index.Columns) == 0 {
			return NewInvalidModelError(m.Name, "composite index requires a name and columns")
		}
		if indexes[index.Name] {
			return NewInvalidModelError(m.Name, fmt.Sprintf("duplicate index name %s", index.Name))
		}
		indexes[index.Name] = true
		for _, column := range index.Columns {
			if !columns[column] {
				return NewInvalidModelError(m.Name, fmt.Sprintf("index %s references unknown column %s", index.Name, column))
			}
		}
	}
	return nil
}
