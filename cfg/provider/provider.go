package provider

import (
	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*FileProvider](NewFileProviderWithOptions)
}

// Provider 配置数据提供者，只负责读取原始数据
type Provider interface {
	Load() ([]byte, error)
}

func NewProviderWithOptions(options *ref.TypeOptions) (Provider, error) {
	obj, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	p, ok := obj.(Provider)
	if !ok {
		return nil, errors.Errorf("%s is not a Provider", options.Type)
	}
	return p, nil
}
