package provider

import (
	"os"

	"github.com/pkg/errors"
)

type FileProviderOptions struct {
	FilePath string `cfg:"filePath" validate:"required"`
}

// FileProvider 从本地文件读取配置
type FileProvider struct {
	filePath string
}

func NewFileProviderWithOptions(options *FileProviderOptions) (*FileProvider, error) {
	if options == nil || options.FilePath == "" {
		return nil, errors.New("filePath is required")
	}
	return &FileProvider{filePath: options.FilePath}, nil
}

func (p *FileProvider) Load() ([]byte, error) {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", p.filePath)
	}
	return data, nil
}
