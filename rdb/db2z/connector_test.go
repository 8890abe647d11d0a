package db2z

import (
	"context"
	"testing"
	"time"

	"github.com/hatlonely/db2z/rdb"
	"github.com/hatlonely/db2z/rdb/driver"
	"github.com/hatlonely/db2z/ref"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type Order struct {
	ID        int64     `rdb:"id,id,generated"`
	Customer  string    `rdb:"customer,size=64,required,index=ix_customer_created"`
	Amount    float64   `rdb:"amount,type=decimal,size=12,scale=2"`
	Code      string    `rdb:"code,size=16,unique"`
	CreatedAt time.Time `rdb:"created_at,index=ix_customer_created"`
}

func (Order) Table() string {
	return "ORDERS"
}

func sqliteDriverOptions() *ref.TypeOptions {
	return &ref.TypeOptions{
		Namespace: "github.com/hatlonely/db2z/rdb/driver",
		Type:      "SQLDriver",
		Options: &driver.SQLDriverOptions{
			DriverName:   "sqlite3",
			DSN:          ":memory:",
			MaxOpenConns: 1,
		},
	}
}

func TestConnectorRegister(t *testing.T) {
	Convey("从结构体注册模型", t, func() {
		d := newFakeDriver()
		c := newTestConnector(d, nil)

		name, err := c.Register(&Order{})
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "Order")
		So(c.Models(), ShouldResemble, []string{"Order"})

		So(c.CreateTable(context.Background(), "Order"), ShouldBeNil)
		So(d.statements(), ShouldResemble, []string{
			`CREATE TABLE "S"."ORDERS" (` +
				`"id" BIGINT NOT NULL GENERATED BY DEFAULT AS IDENTITY (START WITH 1, INCREMENT BY 1), ` +
				`"customer" VARCHAR(64) NOT NULL, ` +
				`"amount" DECIMAL(12,2), ` +
				`"code" VARCHAR(16), ` +
				`"created_at" TIMESTAMP, ` +
				`PRIMARY KEY ("id")) CCSID UNICODE`,
			`CREATE UNIQUE INDEX "S"."code" ON "S"."ORDERS" ("code")`,
			`CREATE INDEX "S"."ix_customer_created" ON "S"."ORDERS" ("customer","created_at")`,
		})

		Convey("无效的模型", func() {
			err := c.Define(&rdb.ModelDefinition{Name: "NoID", Properties: []rdb.PropertyDefinition{{Name: "a"}}})
			So(errors.Is(err, rdb.ErrInvalidModel), ShouldBeTrue)
		})
	})
}

func TestNewConnectorWithOptions(t *testing.T) {
	Convey("根据配置创建连接器", t, func() {
		ctx := context.Background()

		Convey("通过注册表创建 SQLite 驱动执行普通 DML", func() {
			c, err := NewConnectorWithOptions(&Options{Driver: sqliteDriverOptions()})
			So(err, ShouldBeNil)
			defer c.Close()
			So(c.Schema(), ShouldEqual, "")
			_, ok := c.Driver().(*driver.SQLDriver)
			So(ok, ShouldBeTrue)

			So(c.Define(widgetModel()), ShouldBeNil)
			_, err = c.Driver().Execute(ctx, `CREATE TABLE "WIDGET" ("id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL, "price" REAL)`, nil, &driver.ExecuteOptions{NoResultSet: true})
			So(err, ShouldBeNil)

			id, err := c.Create(ctx, "Widget", map[string]any{"id": 3, "name": "bolt", "price": 1.25})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 3)

			rows, err := c.Driver().Execute(ctx, `SELECT "name" FROM "WIDGET" WHERE "id" = ?`, []any{3}, nil)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0]["name"], ShouldEqual, "bolt")

			So(c.DropTable(ctx, "Widget"), ShouldBeNil)
		})

		Convey("开启指标时包装为可观测驱动", func() {
			c, err := NewConnectorWithOptions(&Options{Driver: sqliteDriverOptions(), EnableMetrics: true, Schema: "app"})
			So(err, ShouldBeNil)
			defer c.Close()
			_, ok := c.Driver().(*driver.ObservableDriver)
			So(ok, ShouldBeTrue)
			So(c.Schema(), ShouldEqual, "APP")
		})

		Convey("通过注册表创建连接器", func() {
			obj, err := ref.New("github.com/hatlonely/db2z/rdb/db2z", "Connector", &Options{Driver: sqliteDriverOptions()})
			So(err, ShouldBeNil)
			c, ok := obj.(*Connector)
			So(ok, ShouldBeTrue)
			So(c.Close(), ShouldBeNil)
		})

		Convey("驱动配置错误", func() {
			_, err := NewConnectorWithOptions(&Options{Driver: &ref.TypeOptions{Namespace: "x", Type: "Missing"}})
			So(err, ShouldNotBeNil)
		})

		Convey("空配置", func() {
			_, err := NewConnectorWithOptions(nil)
			So(err, ShouldNotBeNil)
			_, err = NewConnector(nil, nil)
			So(err, ShouldNotBeNil)
		})
	})
}
