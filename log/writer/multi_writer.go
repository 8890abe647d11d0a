package writer

import (
	"errors"
	"fmt"

	"github.com/hatlonely/db2z/ref"
)

// MultiWriterOptions 多输出配置
type MultiWriterOptions struct {
	Writers []ref.TypeOptions `cfg:"writers" validate:"min=1"`
}

// MultiWriter 把同一条日志写到多个输出器
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriterWithOptions(options *MultiWriterOptions) (*MultiWriter, error) {
	if options == nil || len(options.Writers) == 0 {
		return nil, fmt.Errorf("at least one writer is required")
	}

	writers := make([]Writer, 0, len(options.Writers))
	for i := range options.Writers {
		w, err := NewWriterWithOptions(&options.Writers[i])
		if err != nil {
			for _, created := range writers {
				_ = created.Close()
			}
			return nil, fmt.Errorf("failed to create writer %d: %w", i, err)
		}
		writers = append(writers, w)
	}

	return &MultiWriter{writers: writers}, nil
}

// NewMultiWriter 组合已有的输出器
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(p []byte) (int, error) {
	for i, w := range m.writers {
		if _, err := w.Write(p); err != nil {
			return 0, fmt.Errorf("writer %d failed: %w", i, err)
		}
	}
	return len(p), nil
}

// Close 关闭所有输出器，返回合并后的错误
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
