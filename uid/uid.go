package uid

import (
	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*UUIDGenerator](NewUUIDGeneratorWithOptions)
}

// Generator 生成字符串标识，用于事务句柄等
type Generator interface {
	Generate() string
}

// NewGeneratorWithOptions 根据配置创建生成器，options 为空时返回带连字符的 v7 UUID 生成器
func NewGeneratorWithOptions(options *ref.TypeOptions) (Generator, error) {
	if options == nil {
		return NewUUIDGeneratorWithOptions(&UUIDGeneratorOptions{Version: "v7", WithHyphens: true})
	}
	obj, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	g, ok := obj.(Generator)
	if !ok {
		return nil, errors.Errorf("%s is not a Generator", options.Type)
	}
	return g, nil
}
