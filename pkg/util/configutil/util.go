package configutil

import "strings"

// SetDefault is an interface to abstract setting Viper defaults.
// (e.g. Allows adding a key prefix to every call to SetDefault when used with Prefixed.)
type SetDefault interface {
	SetDefault(key string, value any)
}

// SetDefaultFunc implements SetDefault.
type SetDefaultFunc func(key string, value any)

// SetDefault calls f. A nil f does nothing.
func (f SetDefaultFunc) SetDefault(key string, value any) {
	if f == nil {
		return
	}
	f(key, value)
}

// Prefixed returns a SetDefault that prepends prefix and a dot to every key.
func Prefixed(prefix string, i SetDefault) SetDefault {
	prefix = strings.TrimSuffix(prefix, ".")
	return SetDefaultFunc(func(key string, value any) {
		i.SetDefault(prefix+"."+key, value)
	})
}
