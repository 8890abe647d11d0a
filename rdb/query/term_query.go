package query

import (
	"strings"

	"github.com/pkg/errors"
)

// TermQuery 精确匹配查询
type TermQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *TermQuery) Type() QueryType {
	return QueryTypeTerm
}

func (q *TermQuery) ToSQL(resolve FieldResolver) (string, []any, error) {
	column, err := resolve(q.Field)
	if err != nil {
		return "", nil, err
	}
	if q.Value == nil {
		return column.Name + " IS NULL", nil, nil
	}
	args, err := column.bindAll([]any{q.Value})
	if err != nil {
		return "", nil, err
	}
	return column.Name + " = ?", args, nil
}

// TermsQuery 多值匹配，渲染为 IN
type TermsQuery struct {
	Field  string `json:"field"`
	Values []any  `json:"values"`
}

func (q *TermsQuery) Type() QueryType {
	return QueryTypeTerms
}

func (q *TermsQuery) ToSQL(resolve FieldResolver) (string, []any, error) {
	if len(q.Values) == 0 {
		return "", nil, errors.Errorf("terms query on %s requires at least one value", q.Field)
	}
	column, err := resolve(q.Field)
	if err != nil {
		return "", nil, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(q.Values)), ", ")
	args, err := column.bindAll(q.Values)
	if err != nil {
		return "", nil, err
	}
	return column.Name + " IN (" + placeholders + ")", args, nil
}
