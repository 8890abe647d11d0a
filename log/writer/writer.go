package writer

import (
	"io"

	"github.com/hatlonely/db2z/ref"
)

func init() {
	ref.MustRegisterT[*ConsoleWriter](NewConsoleWriterWithOptions)
	ref.MustRegisterT[*FileWriter](NewFileWriterWithOptions)
	ref.MustRegisterT[*MultiWriter](NewMultiWriterWithOptions)
}

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// NewWriterWithOptions 通过 ref 构造输出器
func NewWriterWithOptions(options *ref.TypeOptions) (Writer, error) {
	obj, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, err
	}
	w, ok := obj.(Writer)
	if !ok {
		return nil, &notWriterError{typ: options.Type}
	}
	return w, nil
}

type notWriterError struct {
	typ string
}

func (e *notWriterError) Error() string {
	return e.typ + " does not implement Writer interface"
}
