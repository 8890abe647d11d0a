package db2z

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hatlonely/db2z/log/logger"
	"github.com/hatlonely/db2z/rdb/driver"
)

const (
	columnCatalogSQL = `SELECT NAME, COLTYPE AS DATATYPE, COLNO, LENGTH AS DATALENGTH, NULLS FROM SYSIBM.SYSCOLUMNS WHERE TBNAME = ? AND TBCREATOR = ? ORDER BY COLNO`
	indexCatalogSQL  = `SELECT NAME AS INDNAME, UNIQUERULE, COLNAMES FROM SYSIBM.SYSINDEXES WHERE TBNAME = ? AND CREATOR = ?`
)

// UniqueRule 索引的唯一性规则
type UniqueRule string

const (
	UniqueRuleNone    UniqueRule = "NONE"
	UniqueRuleUnique  UniqueRule = "UNIQUE"
	UniqueRulePrimary UniqueRule = "PRIMARY"
)

// ParseUniqueRule 目录中的 P 为主键，U 为唯一索引，其余为普通索引
func ParseUniqueRule(rule string) UniqueRule {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
	case "P":
		return UniqueRulePrimary
	case "U":
		return UniqueRuleUnique
	default:
		return UniqueRuleNone
	}
}

// ActualColumn 目录中的列
type ActualColumn struct {
	Name     string
	DataType string
	Position int
	Length   int
	Nullable bool
}

// ActualIndex 目录中的索引，Columns 按索引中的位置排列
type ActualIndex struct {
	Name       string
	UniqueRule UniqueRule
	Columns    []string
}

// TableStatus 一张表在目录中的列和索引
type TableStatus struct {
	Columns []ActualColumn
	Indexes []ActualIndex
}

// Exists 目录中没有任何列说明表不存在
func (s *TableStatus) Exists() bool {
	return len(s.Columns) > 0
}

var columnNameSeparator = regexp.MustCompile(`\+\s*`)

// ParseColumnNames 解析 "+A+B" 形式的列名列表，丢弃第一个空段
func ParseColumnNames(colnames string) []string {
	parts := columnNameSeparator.Split(strings.TrimSpace(colnames), -1)
	if len(parts) <= 1 {
		return []string{}
	}
	columns := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if part = strings.TrimSpace(part); part != "" {
			columns = append(columns, part)
		}
	}
	return columns
}

// Introspector 查询系统目录得到表的实际结构
type Introspector struct {
	executor driver.Executor
	schema   string
	logger   logger.Logger
}

func NewIntrospector(executor driver.Executor, schema string, l logger.Logger) *Introspector {
	return &Introspector{executor: executor, schema: schema, logger: l}
}

// Introspect 先查列再查索引，列查询失败时不查索引
func (i *Introspector) Introspect(ctx context.Context, table string) (*TableStatus, error) {
	columns, err := i.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	indexes, err := i.Indexes(ctx, table)
	if err != nil {
		i.logger.ErrorContext(ctx, "index catalog query failed", "table", table, "schema", i.schema, "error", err.Error())
		return nil, err
	}
	return &TableStatus{Columns: columns, Indexes: indexes}, nil
}

// Columns 按列序号排列的列
func (i *Introspector) Columns(ctx context.Context, table string) ([]ActualColumn, error) {
	i.logger.DebugContext(ctx, "execute", "table", table, "sql", columnCatalogSQL)
	rows, err := i.executor.Execute(ctx, columnCatalogSQL, []any{table, i.schema}, nil)
	if err != nil {
		return nil, err
	}

	columns := make([]ActualColumn, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, ActualColumn{
			Name:     stringValue(row, "NAME"),
			DataType: stringValue(row, "DATATYPE"),
			Position: intValue(row, "COLNO"),
			Length:   intValue(row, "DATALENGTH"),
			Nullable: isYes(stringValue(row, "NULLS")),
		})
	}
	return columns, nil
}

func (i *Introspector) Indexes(ctx context.Context, table string) ([]ActualIndex, error) {
	i.logger.DebugContext(ctx, "execute", "table", table, "sql", indexCatalogSQL)
	rows, err := i.executor.Execute(ctx, indexCatalogSQL, []any{table, i.schema}, nil)
	if err != nil {
		return nil, err
	}

	indexes := make([]ActualIndex, 0, len(rows))
	for _, row := range rows {
		indexes = append(indexes, ActualIndex{
			Name:       stringValue(row, "INDNAME"),
			UniqueRule: ParseUniqueRule(stringValue(row, "UNIQUERULE")),
			Columns:    ParseColumnNames(stringValue(row, "COLNAMES")),
		})
	}
	return indexes, nil
}

func isYes(s string) bool {
	s = strings.ToUpper(s)
	return s == "Y" || s == "YES"
}

// stringValue 目录中的 CHAR 列带尾部空格
func stringValue(row driver.Row, column string) string {
	v, ok := row.Get(column)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", x))
	}
}

func intValue(row driver.Row, column string) int {
	v, ok := row.Get(column)
	if !ok || v == nil {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		n, _ := strconv.Atoi(stringValue(row, column))
		return n
	}
}
