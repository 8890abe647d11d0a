package query

import (
	"sort"

	"github.com/pkg/errors"
)

// QueryType 查询类型
type QueryType string

const (
	QueryTypeBool     QueryType = "bool"
	QueryTypeTerm     QueryType = "term"
	QueryTypeTerms    QueryType = "terms"
	QueryTypeRange    QueryType = "range"
	QueryTypeExists   QueryType = "exists"
	QueryTypeWildcard QueryType = "wildcard"
	QueryTypePrefix   QueryType = "prefix"
)

// Column 字段解析结果，Name 为 SQL 中可直接使用的列名（已加引号）
// Bind 不为空时，参数在绑定前先经过它转换为列能接受的值
type Column struct {
	Name string
	Bind func(v any) (any, error)
}

func (c Column) bind(v any) (any, error) {
	if c.Bind == nil {
		return v, nil
	}
	return c.Bind(v)
}

// bindAll 依次转换多个参数
func (c Column) bindAll(values []any) ([]any, error) {
	args := make([]any, 0, len(values))
	for _, v := range values {
		bound, err := c.bind(v)
		if err != nil {
			return nil, errors.WithMessagef(err, "bind value of %s failed", c.Name)
		}
		args = append(args, bound)
	}
	return args, nil
}

// FieldResolver 把查询里的字段名解析为列，未知字段返回错误
type FieldResolver func(field string) (Column, error)

// Query 查询节点接口，渲染为 WHERE 子句片段和位置参数
type Query interface {
	Type() QueryType
	ToSQL(resolve FieldResolver) (string, []any, error)
}

// Where 把 {字段: 值} 转成多个 TermQuery 的 AND 组合，字段按名字排序保证输出稳定
// 值为 nil 时渲染为 IS NULL
func Where(conditions map[string]any) Query {
	if len(conditions) == 0 {
		return nil
	}

	fields := make([]string, 0, len(conditions))
	for field := range conditions {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	must := make([]Query, 0, len(fields))
	for _, field := range fields {
		must = append(must, &TermQuery{Field: field, Value: conditions[field]})
	}
	if len(must) == 1 {
		return must[0]
	}
	return &BoolQuery{Must: must}
}

// ToWhereClause 渲染完整的 WHERE 子句，q 为空时返回空字符串
func ToWhereClause(q Query, resolve FieldResolver) (string, []any, error) {
	if q == nil {
		return "", nil, nil
	}
	sql, args, err := q.ToSQL(resolve)
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + sql, args, nil
}
