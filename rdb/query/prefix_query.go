package query

import "strings"

// PrefixQuery 前缀查询
type PrefixQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *PrefixQuery) Type() QueryType {
	return QueryTypePrefix
}

func (q *PrefixQuery) ToSQL(resolve FieldResolver) (string, []any, error) {
	column, err := resolve(q.Field)
	if err != nil {
		return "", nil, err
	}
	return column.Name + ` LIKE ? ESCAPE '\'`, []any{escapeLike(q.Value) + "%"}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike 转义 LIKE 模式中的通配符
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
