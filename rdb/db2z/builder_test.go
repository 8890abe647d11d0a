package db2z

import (
	"testing"

	"github.com/hatlonely/db2z/rdb"
	"github.com/hatlonely/db2z/rdb/query"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestQuoteIdentifier(t *testing.T) {
	Convey("标识符加引号", t, func() {
		So(QuoteIdentifier("name"), ShouldEqual, `"name"`)
		So(QuoteIdentifier(`a"b`), ShouldEqual, `"a""b"`)
		So(QuoteIdentifier(`x"; DROP TABLE t; --`), ShouldEqual, `"x""; DROP TABLE t; --"`)
	})
}

func TestBuilderDDL(t *testing.T) {
	Convey("DDL 渲染", t, func() {
		b := NewBuilder("S")
		m := widgetModel()

		Convey("建表", func() {
			So(b.CreateTable(m), ShouldEqual,
				`CREATE TABLE "S"."WIDGET" (`+
					`"id" INTEGER NOT NULL GENERATED BY DEFAULT AS IDENTITY (START WITH 1, INCREMENT BY 1), `+
					`"name" VARCHAR(64) NOT NULL, `+
					`"price" DECIMAL(10,2), `+
					`PRIMARY KEY ("id")) CCSID UNICODE`)
		})

		Convey("没有 schema 时不加前缀", func() {
			So(NewBuilder("").DropTable(m), ShouldEqual, `DROP TABLE "WIDGET"`)
		})

		Convey("列类型", func() {
			cases := []struct {
				prop rdb.PropertyDefinition
				want string
			}{
				{rdb.PropertyDefinition{Type: rdb.FieldTypeString}, "VARCHAR(512)"},
				{rdb.PropertyDefinition{Type: rdb.FieldTypeInt}, "INTEGER"},
				{rdb.PropertyDefinition{Type: rdb.FieldTypeBigInt}, "BIGINT"},
				{rdb.PropertyDefinition{Type: rdb.FieldTypeFloat}, "DOUBLE"},
				{rdb.PropertyDefinition{Type: rdb.FieldTypeDecimal}, "DECIMAL(31,2)"},
				{rdb.PropertyDefinition{Type: rdb.FieldTypeBool}, "SMALLINT"},
				{rdb.PropertyDefinition{Type: rdb.FieldTypeDate}, "TIMESTAMP"},
				{rdb.PropertyDefinition{Type: rdb.FieldTypeJSON}, "CLOB"},
			}
			for _, c := range cases {
				So(b.ColumnType(&c.prop), ShouldEqual, c.want)
			}
		})

		Convey("默认值中的单引号加倍", func() {
			p := &rdb.PropertyDefinition{Name: "note", Type: rdb.FieldTypeString, Size: 10, Default: "it's"}
			So(b.ColumnDefinition(p), ShouldEqual, `"note" VARCHAR(10) NOT NULL DEFAULT 'it''s'`)

			p = &rdb.PropertyDefinition{Name: "active", Type: rdb.FieldTypeBool, Nullable: true, Default: true}
			So(b.ColumnDefinition(p), ShouldEqual, `"active" SMALLINT DEFAULT 1`)
		})

		Convey("单列索引支持类型关键字", func() {
			So(b.CreateIndex(m, "name", "name", rdb.IndexTypeUnique), ShouldEqual, `CREATE UNIQUE INDEX "S"."name" ON "S"."WIDGET" ("name")`)
			So(b.CreateIndex(m, "name", "name", ""), ShouldEqual, `CREATE INDEX "S"."name" ON "S"."WIDGET" ("name")`)
		})

		Convey("多列索引的列逐个加引号", func() {
			So(b.CreateCompositeIndex(m, "ix_name_price", []string{"name", "price"}, ""), ShouldEqual,
				`CREATE INDEX "S"."ix_name_price" ON "S"."WIDGET" ("name","price")`)
		})

		Convey("ALTER TABLE 子句用空格连接", func() {
			So(b.AlterTable(m, []string{`ADD COLUMN "a" INTEGER`, `DROP COLUMN "b"`}), ShouldEqual,
				`ALTER TABLE "S"."WIDGET" ADD COLUMN "a" INTEGER DROP COLUMN "b"`)
		})

		Convey("模型上的所有索引", func() {
			m.Properties[1].Index = &rdb.IndexSpec{Type: rdb.IndexTypeUnique}
			m.Indexes = []rdb.IndexDefinition{{Name: "ix_np", Columns: []string{"name", "price"}}}
			So(b.Indexes(m), ShouldResemble, []string{
				`CREATE UNIQUE INDEX "S"."name" ON "S"."WIDGET" ("name")`,
				`CREATE INDEX "S"."ix_np" ON "S"."WIDGET" ("name","price")`,
			})
		})
	})
}

func TestBuilderDML(t *testing.T) {
	Convey("DML 渲染", t, func() {
		b := NewBuilder("S")
		m := widgetModel()

		Convey("插入并从 FINAL TABLE 返回标识，忽略未知字段", func() {
			sql, args, err := b.InsertReturning(m, map[string]any{"name": "a", "price": 1.5, "extra": 1})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `SELECT "id" FROM FINAL TABLE (INSERT INTO "S"."WIDGET" ("name", "price") VALUES (?, ?))`)
			So(args, ShouldResemble, []any{"a", 1.5})
		})

		Convey("带标识的普通插入", func() {
			sql, args, err := b.Insert(m, map[string]any{"id": 7, "name": "a"})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `INSERT INTO "S"."WIDGET" ("id", "name") VALUES (?, ?)`)
			So(args, ShouldResemble, []any{7, "a"})
		})

		Convey("没有任何值时插入默认值", func() {
			sql, args, err := b.Insert(m, map[string]any{"id": nil})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `INSERT INTO "S"."WIDGET" ("id") VALUES (DEFAULT)`)
			So(args, ShouldBeEmpty)
		})

		Convey("更新并返回被更新行的标识", func() {
			sql, args, err := b.UpdateReturning(m, query.Where(map[string]any{"name": "a"}), map[string]any{"price": 2, "id": 9})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `SELECT "id" FROM FINAL TABLE (UPDATE "S"."WIDGET" SET "price" = ? WHERE "name" = ?)`)
			So(args, ShouldResemble, []any{2, "a"})
		})

		Convey("没有可更新的属性", func() {
			_, _, err := b.UpdateReturning(m, nil, map[string]any{"id": 1, "unknown": 2})
			So(errors.Is(err, rdb.ErrValidation), ShouldBeTrue)
		})

		Convey("条件中的未知字段", func() {
			_, _, err := b.DeleteReturning(m, query.Where(map[string]any{"missing": 1}))
			So(errors.Is(err, rdb.ErrValidation), ShouldBeTrue)
		})

		Convey("删除并从 OLD TABLE 返回标识", func() {
			sql, args, err := b.DeleteReturning(m, &query.RangeQuery{Field: "price", Gt: 10})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `SELECT "id" FROM OLD TABLE (DELETE FROM "S"."WIDGET" WHERE "price" > ?)`)
			So(args, ShouldResemble, []any{10})

			sql, args, err = b.DeleteReturning(m, nil)
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `SELECT "id" FROM OLD TABLE (DELETE FROM "S"."WIDGET")`)
			So(args, ShouldBeEmpty)
		})

		Convey("bool 和 json 属性的参数转换", func() {
			m.Properties = append(m.Properties,
				rdb.PropertyDefinition{Name: "active", Type: rdb.FieldTypeBool, Nullable: true},
				rdb.PropertyDefinition{Name: "meta", Type: rdb.FieldTypeJSON, Nullable: true},
			)
			sql, args, err := b.Insert(m, map[string]any{"id": 1, "active": true, "meta": map[string]any{"k": "v"}})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `INSERT INTO "S"."WIDGET" ("id", "active", "meta") VALUES (?, ?, ?)`)
			So(args, ShouldResemble, []any{1, int16(1), `{"k":"v"}`})

			_, args, err = b.Update(m, nil, map[string]any{"active": false, "meta": `{"raw":true}`})
			So(err, ShouldBeNil)
			So(args, ShouldResemble, []any{int16(0), `{"raw":true}`})

			_, _, err = b.Insert(m, map[string]any{"meta": make(chan int)})
			So(err, ShouldNotBeNil)
		})

		Convey("where 条件中的 bool 和 json 参数与写入时一致", func() {
			m.Properties = append(m.Properties,
				rdb.PropertyDefinition{Name: "active", Type: rdb.FieldTypeBool, Nullable: true},
				rdb.PropertyDefinition{Name: "meta", Type: rdb.FieldTypeJSON, Nullable: true},
			)
			where := query.Where(map[string]any{"active": true, "meta": map[string]any{"a": 1}})
			sql, args, err := b.Update(m, where, map[string]any{"active": false})
			So(err, ShouldBeNil)
			So(sql, ShouldEqual, `UPDATE "S"."WIDGET" SET "active" = ? WHERE ("active" = ? AND "meta" = ?)`)
			So(args, ShouldResemble, []any{int16(0), int16(1), `{"a":1}`})

			_, args, err = b.Delete(m, &query.TermsQuery{Field: "active", Values: []any{true, false}})
			So(err, ShouldBeNil)
			So(args, ShouldResemble, []any{int16(1), int16(0)})

			_, _, err = b.Delete(m, &query.TermQuery{Field: "meta", Value: make(chan int)})
			So(err, ShouldNotBeNil)
		})

		Convey("Replace 不支持", func() {
			_, _, err := b.Replace(m, nil, map[string]any{"name": "a"})
			So(errors.Is(err, rdb.ErrUnsupportedOperation), ShouldBeTrue)
		})
	})
}

func TestIDValue(t *testing.T) {
	Convey("标识值", t, func() {
		m := widgetModel()
		v, ok := IDValue(m, map[string]any{"id": 3})
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, 3)

		_, ok = IDValue(m, map[string]any{"id": 0})
		So(ok, ShouldBeFalse)
		_, ok = IDValue(m, map[string]any{"name": "a"})
		So(ok, ShouldBeFalse)
	})
}
