package query

import (
	"strings"
)

// RangeQuery 范围查询，所有边界为空时匹配全部
type RangeQuery struct {
	Field string `json:"field"`
	Gt    any    `json:"gt,omitempty"`
	Gte   any    `json:"gte,omitempty"`
	Lt    any    `json:"lt,omitempty"`
	Lte   any    `json:"lte,omitempty"`
}

func (q *RangeQuery) Type() QueryType {
	return QueryTypeRange
}

func (q *RangeQuery) ToSQL(resolve FieldResolver) (string, []any, error) {
	column, err := resolve(q.Field)
	if err != nil {
		return "", nil, err
	}

	var conditions []string
	var values []any
	for _, bound := range []struct {
		op    string
		value any
	}{
		{">", q.Gt},
		{">=", q.Gte},
		{"<", q.Lt},
		{"<=", q.Lte},
	} {
		if bound.value == nil {
			continue
		}
		conditions = append(conditions, column.Name+" "+bound.op+" ?")
		values = append(values, bound.value)
	}

	if len(conditions) == 0 {
		return "1=1", nil, nil
	}
	args, err := column.bindAll(values)
	if err != nil {
		return "", nil, err
	}
	return strings.Join(conditions, " AND "), args, nil
}
