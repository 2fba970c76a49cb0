package unittest

import (
	"reflect"
)

// Test if a value is nil, also when held by an interface.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Slice, reflect.Chan, reflect.Func, reflect.Ptr, reflect.Map, reflect.Interface:
		return value.IsNil()
	default:
		return false
	}
}
