package driver

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestObservableDriver(t *testing.T) {
	Convey("可观测驱动", t, func() {
		db, mock, err := sqlmock.New()
		So(err, ShouldBeNil)

		obs, err := NewObservableDriver(NewSQLDriver(db), &ObservableDriverOptions{
			Name:          "test_observable_driver",
			EnableMetrics: true,
			EnableLogging: true,
			EnableTracing: true,
		})
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("记录成功和失败的次数", func() {
			mock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec(`DROP TABLE`).WillReturnError(errors.New("SQL0204N"))

			_, err := obs.Execute(ctx, `CREATE TABLE "S"."T" ("ID" INTEGER)`, nil, &ExecuteOptions{NoResultSet: true})
			So(err, ShouldBeNil)
			_, err = obs.Execute(ctx, `DROP TABLE "S"."T"`, nil, &ExecuteOptions{NoResultSet: true})
			So(err, ShouldNotBeNil)

			So(testutil.ToFloat64(obs.metrics.operationCounter.WithLabelValues("Execute", "success")), ShouldBeGreaterThanOrEqualTo, 1)
			So(testutil.ToFloat64(obs.metrics.operationCounter.WithLabelValues("Execute", "error")), ShouldBeGreaterThanOrEqualTo, 1)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("连接也被包装", func() {
			mock.ExpectBegin()
			mock.ExpectCommit()

			conn, err := obs.Open(ctx, "")
			So(err, ShouldBeNil)
			So(conn.BeginTransaction(ctx), ShouldBeNil)
			So(conn.CommitTransaction(ctx), ShouldBeNil)
			So(conn.Close(), ShouldBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("Unwrap 返回底层驱动", func() {
			_, ok := obs.Unwrap().(*SQLDriver)
			So(ok, ShouldBeTrue)
		})

		mock.ExpectClose()
		So(obs.Close(), ShouldBeNil)
	})
}

func TestNewObservableMetricsReuse(t *testing.T) {
	Convey("重复注册同名指标时复用已有收集器", t, func() {
		registry := prometheus.NewRegistry()
		m1, err := NewObservableMetrics("reuse_driver", registry)
		So(err, ShouldBeNil)
		m2, err := NewObservableMetrics("reuse_driver", registry)
		So(err, ShouldBeNil)
		So(m2.operationCounter, ShouldPointTo, m1.operationCounter)
	})
}

func TestStatementKind(t *testing.T) {
	Convey("语句类型", t, func() {
		So(statementKind("  select 1"), ShouldEqual, "SELECT")
		So(statementKind(""), ShouldEqual, "")
	})
}
