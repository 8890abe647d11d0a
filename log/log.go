package log

import (
	"github.com/hatlonely/db2z/log/logger"
	"github.com/hatlonely/db2z/log/writer"
	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
)

var defaultLogger logger.Logger

func init() {
	ref.MustRegisterT[*logger.SLog](logger.NewSLogWithOptions)

	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = l
}

// Default 默认日志器，text 格式输出到 stdout
func Default() logger.Logger {
	return defaultLogger
}

// Discard 丢弃所有输出的日志器
func Discard() logger.Logger {
	l, _ := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level: "error",
		Output: &ref.TypeOptions{
			Namespace: "github.com/hatlonely/db2z/log/writer",
			Type:      "ConsoleWriter",
			Options:   &writer.ConsoleWriterOptions{Target: "discard"},
		},
	})
	return l
}

// NewLoggerWithOptions 根据配置创建日志器，options 为空时返回默认日志器
// Type 为空时按 SLog 处理
func NewLoggerWithOptions(options *ref.TypeOptions) (logger.Logger, error) {
	if options == nil || (options.Type == "" && options.Options == nil) {
		return Default(), nil
	}

	namespace, typ := options.Namespace, options.Type
	if typ == "" {
		namespace, typ = "github.com/hatlonely/db2z/log/logger", "SLog"
	}

	obj, err := ref.New(namespace, typ, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}

	l, ok := obj.(logger.Logger)
	if !ok {
		return nil, errors.Errorf("%s.%s does not implement logger.Logger", namespace, typ)
	}
	return l, nil
}
