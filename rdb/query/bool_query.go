package query

import (
	"fmt"
	"strings"
)

// BoolQuery 布尔查询
type BoolQuery struct {
	Must           []Query `json:"must,omitempty"`
	Should         []Query `json:"should,omitempty"`
	MustNot        []Query `json:"must_not,omitempty"`
	Filter         []Query `json:"filter,omitempty"`
	MinShouldMatch *int    `json:"minimum_should_match,omitempty"`
}

func (q *BoolQuery) Type() QueryType {
	return QueryTypeBool
}

func (q *BoolQuery) ToSQL(resolve FieldResolver) (string, []any, error) {
	var conditions []string
	var args []any

	render := func(queries []Query, wrap string) ([]string, error) {
		parts := make([]string, 0, len(queries))
		for _, query := range queries {
			sql, queryArgs, err := query.ToSQL(resolve)
			if err != nil {
				return nil, err
			}
			parts = append(parts, fmt.Sprintf(wrap, sql))
			args = append(args, queryArgs...)
		}
		return parts, nil
	}

	for _, group := range [][]Query{q.Must, q.Filter} {
		if len(group) == 0 {
			continue
		}
		parts, err := render(group, "%s")
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, "("+strings.Join(parts, " AND ")+")")
	}

	if len(q.Should) > 0 {
		// MinShouldMatch 不为 1 时按命中条件数计数
		if q.MinShouldMatch != nil && *q.MinShouldMatch != 1 {
			parts, err := render(q.Should, "CASE WHEN (%s) THEN 1 ELSE 0 END")
			if err != nil {
				return "", nil, err
			}
			conditions = append(conditions, fmt.Sprintf("(%s) >= %d", strings.Join(parts, " + "), *q.MinShouldMatch))
		} else {
			parts, err := render(q.Should, "%s")
			if err != nil {
				return "", nil, err
			}
			conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
		}
	}

	if len(q.MustNot) > 0 {
		parts, err := render(q.MustNot, "NOT (%s)")
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, "("+strings.Join(parts, " AND ")+")")
	}

	if len(conditions) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(conditions, " AND "), args, nil
}
