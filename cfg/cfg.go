package cfg

import (
	"github.com/hatlonely/db2z/cfg/decoder"
	"github.com/hatlonely/db2z/cfg/provider"
	"github.com/hatlonely/db2z/cfg/storage"
	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
)

// Options 配置初始化选项
// Path 不为空时从文件加载，按扩展名选择解码器；否则使用 Provider 和 Decoder
type Options struct {
	Path     string           `cfg:"path"`
	Provider *ref.TypeOptions `cfg:"provider"`
	Decoder  *ref.TypeOptions `cfg:"decoder"`
}

// Config 只读配置，加载后不再变化
type Config struct {
	storage storage.Storage
}

func NewConfigWithOptions(options *Options) (*Config, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}

	var (
		prov provider.Provider
		dec  decoder.Decoder
		err  error
	)
	if options.Path != "" {
		if prov, err = provider.NewFileProviderWithOptions(&provider.FileProviderOptions{FilePath: options.Path}); err != nil {
			return nil, errors.WithMessage(err, "provider.NewFileProviderWithOptions failed")
		}
		if dec, err = decoder.NewDecoderByExtension(options.Path); err != nil {
			return nil, errors.WithMessage(err, "decoder.NewDecoderByExtension failed")
		}
	} else {
		if options.Provider == nil || options.Decoder == nil {
			return nil, errors.New("either path or provider and decoder are required")
		}
		if prov, err = provider.NewProviderWithOptions(options.Provider); err != nil {
			return nil, errors.WithMessage(err, "provider.NewProviderWithOptions failed")
		}
		if dec, err = decoder.NewDecoderWithOptions(options.Decoder); err != nil {
			return nil, errors.WithMessage(err, "decoder.NewDecoderWithOptions failed")
		}
	}

	data, err := prov.Load()
	if err != nil {
		return nil, errors.WithMessage(err, "provider.Load failed")
	}
	s, err := dec.Decode(data)
	if err != nil {
		return nil, errors.WithMessage(err, "decoder.Decode failed")
	}

	return &Config{storage: storage.NewValidateStorage(s)}, nil
}

// NewConfig 从文件创建配置
func NewConfig(path string) (*Config, error) {
	return NewConfigWithOptions(&Options{Path: path})
}

// Sub 获取子配置，key 支持 "a.b[0].c"
func (c *Config) Sub(key string) *Config {
	return &Config{storage: c.storage.Sub(key)}
}

// ConvertTo 填充默认值、绑定配置并校验
func (c *Config) ConvertTo(object any) error {
	return c.storage.ConvertTo(object)
}
