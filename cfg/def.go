package cfg

import "github.com/hatlonely/db2z/cfg/storage"

// SetDefaults 按 def tag 填充零值字段，用于不经过配置文件直接构造的 options
func SetDefaults(object any) error {
	return storage.SetDefaults(object)
}
