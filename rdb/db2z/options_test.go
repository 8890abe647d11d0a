package db2z

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOptionsConnectionString(t *testing.T) {
	Convey("连接串", t, func() {
		Convey("由各字段拼接", func() {
			o := &Options{Database: "LOC1", Hostname: "zos.example.com", Username: "user1", Password: "pw", Port: 446, Protocol: "TCPIP"}
			So(o.ConnectionString(), ShouldEqual, "DRIVER={DB2};DATABASE=LOC1;HOSTNAME=zos.example.com;UID=user1;PWD=pw;PORT=446;PROTOCOL=TCPIP")
		})

		Convey("DSN 优先", func() {
			o := &Options{DSN: "DATABASE=LOC1;UID=user1", Database: "ignored"}
			So(o.ConnectionString(), ShouldEqual, "DATABASE=LOC1;UID=user1")
		})
	})
}

func TestOptionsDefaultSchema(t *testing.T) {
	Convey("默认 schema", t, func() {
		So((&Options{Username: "user1"}).DefaultSchema(), ShouldEqual, "user1")
		So((&Options{Username: "user1", Schema: "app"}).DefaultSchema(), ShouldEqual, "APP")
		So((&Options{DSN: "DATABASE=LOC1;UID=user1;PWD=x"}).DefaultSchema(), ShouldEqual, "user1")
		So((&Options{DSN: "DATABASE=LOC1;UID=user1;CurrentSchema=APP1;", Schema: "other"}).DefaultSchema(), ShouldEqual, "APP1")
	})
}

func TestParseDSN(t *testing.T) {
	Convey("解析 DSN", t, func() {
		attrs := ParseDSN("DATABASE=LOC1; uid = user1 ;PWD=a=b;junk")
		So(attrs, ShouldResemble, map[string]string{"DATABASE": "LOC1", "UID": "user1", "PWD": "a=b"})
	})
}

func TestLoadOptions(t *testing.T) {
	Convey("从配置文件加载", t, func() {
		dir := t.TempDir()

		Convey("yaml 子配置并填充默认值", func() {
			path := filepath.Join(dir, "app.yaml")
			So(os.WriteFile(path, []byte(`
db2z:
  hostname: zos.example.com
  port: 446
  username: user1
  password: pw
  schema: app
  strictIsolation: true
  connectionTimeout: 30s
`), 0644), ShouldBeNil)

			o, err := LoadOptions(path, "db2z")
			So(err, ShouldBeNil)
			So(o.Hostname, ShouldEqual, "zos.example.com")
			So(o.Port, ShouldEqual, 446)
			So(o.StrictIsolation, ShouldBeTrue)
			So(o.ConnectionTimeout, ShouldEqual, 30*time.Second)
			So(o.Database, ShouldEqual, "testdb")
			So(o.Protocol, ShouldEqual, "TCPIP")
			So(o.DriverName, ShouldEqual, "go_ibm_db")
			So(o.Concurrency, ShouldEqual, 4)
			So(o.DefaultSchema(), ShouldEqual, "APP")
		})

		Convey("toml", func() {
			path := filepath.Join(dir, "app.toml")
			So(os.WriteFile(path, []byte("dsn = \"DATABASE=LOC1;UID=user1\"\nconcurrency = 2\n"), 0644), ShouldBeNil)

			o, err := LoadOptions(path, "")
			So(err, ShouldBeNil)
			So(o.Concurrency, ShouldEqual, 2)
			So(o.ConnectionString(), ShouldEqual, "DATABASE=LOC1;UID=user1")
		})

		Convey("校验失败", func() {
			path := filepath.Join(dir, "bad.json")
			So(os.WriteFile(path, []byte(`{"minPoolSize": -1}`), 0644), ShouldBeNil)
			_, err := LoadOptions(path, "")
			So(err, ShouldNotBeNil)
		})

		Convey("文件不存在", func() {
			_, err := LoadOptions(filepath.Join(dir, "missing.yaml"), "")
			So(err, ShouldNotBeNil)
		})
	})
}
