package decoder

import (
	"github.com/BurntSushi/toml"
	"github.com/hatlonely/db2z/cfg/storage"
	"github.com/pkg/errors"
)

type TomlDecoder struct{}

func NewTomlDecoder() *TomlDecoder {
	return &TomlDecoder{}
}

func (d *TomlDecoder) Decode(data []byte) (storage.Storage, error) {
	var result map[string]any
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode TOML")
	}
	return storage.NewMapStorage(result), nil
}
