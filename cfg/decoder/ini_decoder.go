package decoder

import (
	"strconv"

	"github.com/hatlonely/db2z/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// IniDecoder section 映射为一层嵌套，值尝试解析为 bool/int/float
type IniDecoder struct{}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{}
}

func (d *IniDecoder) Decode(data []byte) (storage.Storage, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode INI")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		values := result
		if section.Name() != ini.DefaultSection {
			values = map[string]any{}
			result[section.Name()] = values
		}
		for _, key := range section.Keys() {
			values[key.Name()] = parseIniValue(key.String())
		}
	}
	return storage.NewMapStorage(result), nil
}

func parseIniValue(value string) any {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
