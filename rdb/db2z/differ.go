package db2z

import (
	"github.com/hatlonely/db2z/rdb"
)

// OperationKind DDL 操作类型
type OperationKind string

const (
	OperationAddColumn      OperationKind = "ADD_COLUMN"
	OperationDropColumn     OperationKind = "DROP_COLUMN"
	OperationChangeColumn   OperationKind = "CHANGE_COLUMN"
	OperationAddIndex       OperationKind = "ADD_INDEX"
	OperationDropIndex      OperationKind = "DROP_INDEX"
	OperationDropPrimaryKey OperationKind = "DROP_PRIMARY_KEY"
)

// Operation 一个 DDL 操作
// 列操作和 DROP PRIMARY KEY / DROP UNIQUE 的 Clause 是 ALTER TABLE 子句，
// 其余操作的 Clause 是完整语句，此时 Standalone 为 true
type Operation struct {
	Kind       OperationKind
	Target     string
	Clause     string
	Standalone bool
}

func (op Operation) isColumnOperation() bool {
	return op.Kind == OperationAddColumn || op.Kind == OperationDropColumn || op.Kind == OperationChangeColumn
}

// Plan 一个模型的增量 DDL
type Plan struct {
	Model string
	// Table 带 schema 的表名
	Table string
	// TableExists 为 false 时表还不存在，应用计划会直接建表
	TableExists bool
	Operations  []Operation

	builder *Builder
	model   *rdb.ModelDefinition
}

func (p *Plan) alterTable(clauses []string) string {
	return p.builder.AlterTable(p.model, clauses)
}

// Empty 没有需要执行的操作
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0
}

// Statements 按顺序排列的语句：合并后的 ALTER TABLE，删除索引，创建索引
// 只对 Diff 返回的计划有效
func (p *Plan) Statements() []string {
	var clauses, removals, creations []string
	for _, op := range p.Operations {
		stmt := op.Clause
		if !op.Standalone {
			stmt = p.alterTable([]string{op.Clause})
		}
		switch {
		case op.isColumnOperation():
			clauses = append(clauses, op.Clause)
		case op.Kind == OperationAddIndex:
			creations = append(creations, stmt)
		default:
			removals = append(removals, stmt)
		}
	}

	var stmts []string
	if len(clauses) > 0 {
		stmts = append(stmts, p.alterTable(clauses))
	}
	stmts = append(stmts, removals...)
	return append(stmts, creations...)
}

// Diff 比较模型和目录中的实际结构，得到让表与模型一致的操作
// 只比较可空性，列类型变化不会被检测
// 标识列及其索引不会成为任何操作的目标
func Diff(schema string, m *rdb.ModelDefinition, columns []ActualColumn, indexes []ActualIndex) *Plan {
	b := NewBuilder(schema)
	plan := &Plan{
		Model:       m.Name,
		Table:       b.TableName(m),
		TableExists: len(columns) > 0,
		builder:     b,
		model:       m,
	}

	plan.Operations = append(plan.Operations, diffColumns(b, m, columns)...)
	plan.Operations = append(plan.Operations, diffIndexes(b, m, indexes)...)
	return plan
}

func diffColumns(b *Builder, m *rdb.ModelDefinition, columns []ActualColumn) []Operation {
	actual := make(map[string]*ActualColumn, len(columns))
	for i := range columns {
		actual[columns[i].Name] = &columns[i]
	}

	var ops []Operation
	for i := range m.Properties {
		p := &m.Properties[i]
		if p.ID {
			continue
		}
		column := p.ColumnName()
		found, ok := actual[column]
		if !ok {
			ops = append(ops, Operation{
				Kind:   OperationAddColumn,
				Target: column,
				Clause: "ADD COLUMN " + b.ColumnDefinition(p),
			})
			continue
		}
		if found.Nullable == p.Nullable {
			continue
		}
		clause := "ALTER COLUMN " + QuoteIdentifier(column) + " SET NOT NULL"
		if p.Nullable {
			clause = "ALTER COLUMN " + QuoteIdentifier(column) + " DROP NOT NULL"
		}
		ops = append(ops, Operation{Kind: OperationChangeColumn, Target: column, Clause: clause})
	}

	for _, column := range columns {
		if m.IsIDColumn(column.Name) {
			continue
		}
		if _, ok := m.PropertyByColumn(column.Name); ok {
			continue
		}
		ops = append(ops, Operation{
			Kind:   OperationDropColumn,
			Target: column.Name,
			Clause: "DROP COLUMN " + QuoteIdentifier(column.Name),
		})
	}
	return ops
}

// protectsIdentifier 主键索引和只包含标识列的索引
func protectsIdentifier(m *rdb.ModelDefinition, index *ActualIndex) bool {
	if index.Name == "PRIMARY" || m.IsIDColumn(index.Name) {
		return true
	}
	if len(index.Columns) == 1 && m.IsIDColumn(index.Columns[0]) {
		return true
	}
	if index.UniqueRule == UniqueRulePrimary {
		for _, column := range index.Columns {
			if m.IsIDColumn(column) {
				return true
			}
		}
	}
	return false
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func removeIndex(b *Builder, index *ActualIndex) Operation {
	switch index.UniqueRule {
	case UniqueRulePrimary:
		return Operation{Kind: OperationDropPrimaryKey, Target: index.Name, Clause: "DROP PRIMARY KEY"}
	case UniqueRuleUnique:
		return Operation{Kind: OperationDropIndex, Target: index.Name, Clause: "DROP UNIQUE " + QuoteIdentifier(index.Name)}
	default:
		return Operation{Kind: OperationDropIndex, Target: index.Name, Clause: b.DropIndex(index.Name), Standalone: true}
	}
}

func diffIndexes(b *Builder, m *rdb.ModelDefinition, indexes []ActualIndex) []Operation {
	actual := make(map[string]*ActualIndex, len(indexes))
	for i := range indexes {
		actual[indexes[i].Name] = &indexes[i]
	}

	var ops []Operation
	for i := range indexes {
		index := &indexes[i]
		if protectsIdentifier(m, index) {
			continue
		}

		if declared, ok := m.Index(index.Name); ok {
			if !sameColumns(declared.Columns, index.Columns) {
				ops = append(ops, removeIndex(b, index))
				delete(actual, index.Name)
			}
			continue
		}

		// 同名属性声明了索引时保留；属性没有声明索引时无法判断该索引是否仍需要，同样保持原样
		if _, ok := m.PropertyByColumn(index.Name); ok {
			continue
		}

		ops = append(ops, removeIndex(b, index))
		delete(actual, index.Name)
	}

	for i := range m.Properties {
		p := &m.Properties[i]
		if p.ID || p.Index == nil {
			continue
		}
		if _, ok := actual[p.ColumnName()]; ok {
			continue
		}
		ops = append(ops, Operation{
			Kind:       OperationAddIndex,
			Target:     p.ColumnName(),
			Clause:     b.CreateIndex(m, p.ColumnName(), p.ColumnName(), p.Index.Type),
			Standalone: true,
		})
	}

	for _, index := range m.Indexes {
		if _, ok := actual[index.Name]; ok {
			continue
		}
		ops = append(ops, Operation{
			Kind:       OperationAddIndex,
			Target:     index.Name,
			Clause:     b.CreateCompositeIndex(m, index.Name, index.Columns, index.Type),
			Standalone: true,
		})
	}
	return ops
}
