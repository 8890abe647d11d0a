package query

// ExistsQuery 字段非空查询
type ExistsQuery struct {
	Field string `json:"field"`
}

func (q *ExistsQuery) Type() QueryType {
	return QueryTypeExists
}

func (q *ExistsQuery) ToSQL(resolve FieldResolver) (string, []any, error) {
	column, err := resolve(q.Field)
	if err != nil {
		return "", nil, err
	}
	return column.Name + " IS NOT NULL", nil, nil
}
