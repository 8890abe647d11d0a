package db2z

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/db2z/rdb"
	"github.com/hatlonely/db2z/rdb/query"
)

const (
	defaultVarcharSize      = 512
	defaultDecimalPrecision = 31
	defaultDecimalScale     = 2
)

// QuoteIdentifier 用双引号包裹标识符，内部的双引号加倍
// 所有进入 SQL 文本的表名、列名、索引名都经过这里
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Builder 渲染 DB2 z/OS 方言的 DDL 和 DML，不做任何 I/O
type Builder struct {
	schema string
}

func NewBuilder(schema string) *Builder {
	return &Builder{schema: schema}
}

func (b *Builder) Schema() string {
	return b.schema
}

// qualify 带 schema 的对象名，schema 为空时不加前缀
func (b *Builder) qualify(name string) string {
	if b.schema == "" {
		return QuoteIdentifier(name)
	}
	return QuoteIdentifier(b.schema) + "." + QuoteIdentifier(name)
}

// TableName 带 schema 的表名
func (b *Builder) TableName(m *rdb.ModelDefinition) string {
	return b.qualify(m.TableName())
}

// ColumnType 属性对应的 DB2 列类型
func (b *Builder) ColumnType(p *rdb.PropertyDefinition) string {
	switch p.Type {
	case rdb.FieldTypeInt:
		return "INTEGER"
	case rdb.FieldTypeBigInt:
		return "BIGINT"
	case rdb.FieldTypeFloat:
		return "DOUBLE"
	case rdb.FieldTypeDecimal:
		precision, scale := p.Size, p.Scale
		if precision <= 0 {
			precision, scale = defaultDecimalPrecision, defaultDecimalScale
		}
		return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
	case rdb.FieldTypeBool:
		return "SMALLINT"
	case rdb.FieldTypeDate:
		return "TIMESTAMP"
	case rdb.FieldTypeJSON:
		return "CLOB"
	default:
		size := p.Size
		if size <= 0 {
			size = defaultVarcharSize
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	}
}

// ColumnDefinition 列定义，不含主键约束
func (b *Builder) ColumnDefinition(p *rdb.PropertyDefinition) string {
	var sb strings.Builder
	sb.WriteString(QuoteIdentifier(p.ColumnName()))
	sb.WriteString(" ")
	sb.WriteString(b.ColumnType(p))
	if p.ID || !p.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if p.ID && p.Generated && (p.Type == rdb.FieldTypeInt || p.Type == rdb.FieldTypeBigInt) {
		sb.WriteString(" GENERATED BY DEFAULT AS IDENTITY (START WITH 1, INCREMENT BY 1)")
	} else if p.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(Literal(p.Default))
	}
	return sb.String()
}

// Literal 把默认值渲染为 SQL 字面量，字符串中的单引号加倍
func Literal(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return "'" + x.Format("2006-01-02 15:04:05.000000") + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return Literal(fmt.Sprintf("%v", v))
	}
}

// CreateTable 建表语句，标识列作为主键
func (b *Builder) CreateTable(m *rdb.ModelDefinition) string {
	defs := make([]string, 0, len(m.Properties)+1)
	for i := range m.Properties {
		defs = append(defs, b.ColumnDefinition(&m.Properties[i]))
	}
	if id := m.IDColumn(); id != "" {
		defs = append(defs, "PRIMARY KEY ("+QuoteIdentifier(id)+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s) CCSID UNICODE", b.TableName(m), strings.Join(defs, ", "))
}

// CreateIndex 单列索引，indexType 为 UNIQUE 等可选关键字
func (b *Builder) CreateIndex(m *rdb.ModelDefinition, name, column, indexType string) string {
	return b.CreateCompositeIndex(m, name, []string{column}, indexType)
}

// CreateCompositeIndex 多列索引，列名逐个加引号后用逗号连接
func (b *Builder) CreateCompositeIndex(m *rdb.ModelDefinition, name string, columns []string, indexType string) string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = QuoteIdentifier(column)
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if t := strings.TrimSpace(indexType); t != "" {
		sb.WriteString(strings.ToUpper(t))
		sb.WriteString(" ")
	}
	fmt.Fprintf(&sb, "INDEX %s ON %s (%s)", b.qualify(name), b.TableName(m), strings.Join(quoted, ","))
	return sb.String()
}

// Indexes 模型上所有索引的建索引语句，先单列索引后多列索引
// 标识列由主键约束覆盖，不单独建索引
func (b *Builder) Indexes(m *rdb.ModelDefinition) []string {
	var stmts []string
	for i := range m.Properties {
		p := &m.Properties[i]
		if p.Index == nil || p.ID {
			continue
		}
		stmts = append(stmts, b.CreateIndex(m, p.ColumnName(), p.ColumnName(), p.Index.Type))
	}
	for _, index := range m.Indexes {
		stmts = append(stmts, b.CreateCompositeIndex(m, index.Name, index.Columns, index.Type))
	}
	return stmts
}

// AlterTable 多个子句用单个空格连接到同一条 ALTER TABLE 中
func (b *Builder) AlterTable(m *rdb.ModelDefinition, clauses []string) string {
	return fmt.Sprintf("ALTER TABLE %s %s", b.TableName(m), strings.Join(clauses, " "))
}

func (b *Builder) DropTable(m *rdb.ModelDefinition) string {
	return "DROP TABLE " + b.TableName(m)
}

// DropIndex 删除普通索引需要独立语句
func (b *Builder) DropIndex(name string) string {
	return "DROP INDEX " + b.qualify(name)
}

// resolver where 条件中的字段名可以是属性名或列名，参数与写入时一样经过 bindValue
func (b *Builder) resolver(m *rdb.ModelDefinition, op string) query.FieldResolver {
	return func(field string) (query.Column, error) {
		p, ok := m.Property(field)
		if !ok {
			p, ok = m.PropertyByColumn(field)
		}
		if !ok {
			return query.Column{}, rdb.NewValidationError(op, m.Name, fmt.Sprintf("unknown property %s", field))
		}
		return query.Column{
			Name: QuoteIdentifier(p.ColumnName()),
			Bind: func(v any) (any, error) { return bindValue(p, v) },
		}, nil
	}
}

// lookup 按属性名取值，其次按列名
func lookup(p *rdb.PropertyDefinition, data map[string]any) (any, bool) {
	if v, ok := data[p.Name]; ok {
		return v, true
	}
	if p.Column != "" {
		if v, ok := data[p.Column]; ok {
			return v, true
		}
	}
	return nil, false
}

// isZero nil 和类型零值都视为没有值
func isZero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return true
	}
	return rv.IsZero()
}

// IDValue 数据中的标识值，没有或为零值时返回 false
func IDValue(m *rdb.ModelDefinition, data map[string]any) (any, bool) {
	p := m.IDProperty()
	if p == nil {
		return nil, false
	}
	v, ok := lookup(p, data)
	if !ok || isZero(v) {
		return nil, false
	}
	return v, true
}

// bindValue 把值转换为列能接受的参数：bool 写入 SMALLINT，json 属性序列化为字符串
func bindValue(p *rdb.PropertyDefinition, v any) (any, error) {
	switch p.Type {
	case rdb.FieldTypeBool:
		if b, ok := v.(bool); ok {
			if b {
				return int16(1), nil
			}
			return int16(0), nil
		}
	case rdb.FieldTypeJSON:
		switch v.(type) {
		case nil, string, []byte:
			return v, nil
		}
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(buf), nil
	}
	return v, nil
}

// Insert 插入语句，不属于模型的 key 被忽略，零值标识不写入
func (b *Builder) Insert(m *rdb.ModelDefinition, data map[string]any) (string, []any, error) {
	var columns, marks []string
	var args []any
	for i := range m.Properties {
		p := &m.Properties[i]
		v, ok := lookup(p, data)
		if !ok || (p.ID && isZero(v)) {
			continue
		}
		bound, err := bindValue(p, v)
		if err != nil {
			return "", nil, err
		}
		columns = append(columns, QuoteIdentifier(p.ColumnName()))
		marks = append(marks, "?")
		args = append(args, bound)
	}

	if len(columns) == 0 {
		id := m.IDColumn()
		if id == "" {
			return "", nil, rdb.NewValidationError("Insert", m.Name, "no insertable properties")
		}
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (DEFAULT)", b.TableName(m), QuoteIdentifier(id)), nil, nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", b.TableName(m), strings.Join(columns, ", "), strings.Join(marks, ", ")), args, nil
}

// InsertReturning 插入并在同一条语句中返回生成的标识
func (b *Builder) InsertReturning(m *rdb.ModelDefinition, data map[string]any) (string, []any, error) {
	sql, args, err := b.Insert(m, data)
	if err != nil {
		return "", nil, err
	}
	return b.selectFrom(m, "FINAL", sql), args, nil
}

// Update 更新语句，标识列不会出现在 SET 中
func (b *Builder) Update(m *rdb.ModelDefinition, where query.Query, data map[string]any) (string, []any, error) {
	var sets []string
	var args []any
	for i := range m.Properties {
		p := &m.Properties[i]
		if p.ID {
			continue
		}
		if v, ok := lookup(p, data); ok {
			bound, err := bindValue(p, v)
			if err != nil {
				return "", nil, err
			}
			sets = append(sets, QuoteIdentifier(p.ColumnName())+" = ?")
			args = append(args, bound)
		}
	}
	if len(sets) == 0 {
		return "", nil, rdb.NewValidationError("Update", m.Name, "no updatable properties")
	}

	clause, whereArgs, err := query.ToWhereClause(where, b.resolver(m, "Update"))
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("UPDATE %s SET %s%s", b.TableName(m), strings.Join(sets, ", "), clause), append(args, whereArgs...), nil
}

// UpdateReturning 更新并返回被更新行的标识
func (b *Builder) UpdateReturning(m *rdb.ModelDefinition, where query.Query, data map[string]any) (string, []any, error) {
	sql, args, err := b.Update(m, where, data)
	if err != nil {
		return "", nil, err
	}
	return b.selectFrom(m, "FINAL", sql), args, nil
}

func (b *Builder) Delete(m *rdb.ModelDefinition, where query.Query) (string, []any, error) {
	clause, args, err := query.ToWhereClause(where, b.resolver(m, "Delete"))
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + b.TableName(m) + clause, args, nil
}

// DeleteReturning 删除并从 OLD TABLE 返回被删除行的标识
func (b *Builder) DeleteReturning(m *rdb.ModelDefinition, where query.Query) (string, []any, error) {
	sql, args, err := b.Delete(m, where)
	if err != nil {
		return "", nil, err
	}
	return b.selectFrom(m, "OLD", sql), args, nil
}

// Replace 不支持
func (b *Builder) Replace(m *rdb.ModelDefinition, where query.Query, data map[string]any) (string, []any, error) {
	return "", nil, rdb.NewUnsupportedError("Replace")
}

func (b *Builder) selectFrom(m *rdb.ModelDefinition, table string, stmt string) string {
	return fmt.Sprintf("SELECT %s FROM %s TABLE (%s)", QuoteIdentifier(m.IDColumn()), table, stmt)
}
