package query

import (
	"strings"
)

// WildcardQuery 通配符查询，* 匹配任意数量字符，? 匹配单个字符
type WildcardQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *WildcardQuery) Type() QueryType {
	return QueryTypeWildcard
}

func (q *WildcardQuery) ToSQL(resolve FieldResolver) (string, []any, error) {
	column, err := resolve(q.Field)
	if err != nil {
		return "", nil, err
	}

	var pattern strings.Builder
	for _, c := range q.Value {
		switch c {
		case '*':
			pattern.WriteByte('%')
		case '?':
			pattern.WriteByte('_')
		default:
			pattern.WriteString(escapeLike(string(c)))
		}
	}
	return column.Name + ` LIKE ? ESCAPE '\'`, []any{pattern.String()}, nil
}
