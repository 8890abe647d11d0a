package rdb

import (
	"sync"
)

// Registry 模型注册表，按注册顺序保存模型名
type Registry struct {
	mu     sync.RWMutex
	models map[string]*ModelDefinition
	names  []string
}

func NewRegistry() *Registry {
	return &Registry{models: map[string]*ModelDefinition{}}
}

// Define 校验并注册模型，同名模型会被替换
func (r *Registry) Define(model *ModelDefinition) error {
	if model == nil {
		return NewInvalidModelError("", "model is nil")
	}
	if err := model.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[model.Name]; !ok {
		r.names = append(r.names, model.Name)
	}
	r.models[model.Name] = model
	return nil
}

// Get 查找模型，不存在时返回 ErrModelNotFound
func (r *Registry) Get(name string) (*ModelDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	model, ok := r.models[name]
	if !ok {
		return nil, NewModelNotFoundError("Lookup", name)
	}
	return model, nil
}

// Names 已注册的模型名，按注册顺序
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}
