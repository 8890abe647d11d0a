package decoder

import (
	"github.com/hatlonely/db2z/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type YamlDecoder struct{}

func NewYamlDecoder() *YamlDecoder {
	return &YamlDecoder{}
}

func (d *YamlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML")
	}
	return storage.NewMapStorage(result), nil
}
