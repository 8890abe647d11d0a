package ref

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeOptions 描述一个可通过注册表构造的组件
// Namespace 一般是包路径，Type 是类型名，Options 会原样传给构造函数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

// Convertable 配置数据的统一转换接口
// 构造函数的参数为具体结构体时，实现了该接口的 options 会先被转换成目标类型
type Convertable interface {
	ConvertTo(object any) error
}

type constructor struct {
	fn           any
	value        reflect.Value
	hasOptions   bool
	returnsError bool
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func newConstructor(fn any) (*constructor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	t := v.Type()
	if t.NumIn() > 1 {
		return nil, fmt.Errorf("constructor must have 0 or 1 input parameters, got %d", t.NumIn())
	}
	if t.NumOut() != 1 && t.NumOut() != 2 {
		return nil, fmt.Errorf("constructor must have 1 or 2 return values, got %d", t.NumOut())
	}
	if t.NumOut() == 2 && !t.Out(1).Implements(errorType) {
		return nil, fmt.Errorf("second return value must be error type")
	}

	return &constructor{
		fn:           fn,
		value:        v,
		hasOptions:   t.NumIn() == 1,
		returnsError: t.NumOut() == 2,
	}, nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.hasOptions {
		if options == nil {
			return nil, fmt.Errorf("constructor requires options but got nil")
		}
		arg, err := c.convertOptions(options)
		if err != nil {
			return nil, err
		}
		args = append(args, reflect.ValueOf(arg))
	}

	results := c.value.Call(args)
	if c.returnsError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// convertOptions 把 Convertable 的 options 转成构造函数期望的参数类型
func (c *constructor) convertOptions(options any) (any, error) {
	convertable, ok := options.(Convertable)
	if !ok {
		return options, nil
	}

	paramType := c.value.Type().In(0)
	if paramType.Kind() == reflect.Ptr {
		target := reflect.New(paramType.Elem())
		if err := convertable.ConvertTo(target.Interface()); err != nil {
			return nil, fmt.Errorf("failed to convert options to %v: %w", paramType, err)
		}
		return target.Interface(), nil
	}

	target := reflect.New(paramType)
	if err := convertable.ConvertTo(target.Interface()); err != nil {
		return nil, fmt.Errorf("failed to convert options to %v: %w", paramType, err)
	}
	return target.Elem().Interface(), nil
}

var constructors sync.Map

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，同一个 key 重复注册相同函数是幂等的
func Register(namespace string, typ string, fn any) error {
	k := key(namespace, typ)
	if existing, ok := constructors.Load(k); ok {
		if reflect.ValueOf(existing.(*constructor).fn).Pointer() == reflect.ValueOf(fn).Pointer() {
			return nil
		}
		return fmt.Errorf("constructor for %s already registered with different function", k)
	}

	c, err := newConstructor(fn)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", k, err)
	}
	constructors.Store(k, c)
	return nil
}

// RegisterT 以类型 T 的包路径和类型名作为 key 注册构造函数
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// New 根据 namespace 和 type 构造对象
func New(namespace string, typ string, options any) (any, error) {
	value, ok := constructors.Load(key(namespace, typ))
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s", key(namespace, typ))
	}
	return value.(*constructor).call(options)
}

// NewT 构造类型 T 的对象
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return zero, err
	}

	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}

	result, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("created object %T is not of type %T", obj, zero)
	}
	return result, nil
}

func typeKey[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", fmt.Errorf("cannot determine package path or type name for type %v", t)
	}
	return t.PkgPath(), t.Name(), nil
}
