package decoder

import (
	"path/filepath"
	"strings"

	"github.com/hatlonely/db2z/cfg/storage"
	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*JsonDecoder](NewJsonDecoder)
	ref.MustRegisterT[*YamlDecoder](NewYamlDecoder)
	ref.MustRegisterT[*TomlDecoder](NewTomlDecoder)
	ref.MustRegisterT[*IniDecoder](NewIniDecoder)
}

// Decoder 把原始配置数据解码为 Storage
type Decoder interface {
	Decode(data []byte) (storage.Storage, error)
}

func NewDecoderWithOptions(options *ref.TypeOptions) (Decoder, error) {
	obj, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	d, ok := obj.(Decoder)
	if !ok {
		return nil, errors.Errorf("%s is not a Decoder", options.Type)
	}
	return d, nil
}

// NewDecoderByExtension 根据文件扩展名选择解码器
func NewDecoderByExtension(path string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJsonDecoder(), nil
	case ".yaml", ".yml":
		return NewYamlDecoder(), nil
	case ".toml":
		return NewTomlDecoder(), nil
	case ".ini":
		return NewIniDecoder(), nil
	}
	return nil, errors.Errorf("unsupported config file extension %q", filepath.Ext(path))
}
