package unittest

import (
	"reflect"
)

// Test if a method value takes only its receiver and returns nothing.
func funcTakesSelfReturns0(fun reflect.Value) bool {
	funT := fun.Type()
	return funT.NumIn() == 1 && funT.NumOut() == 0
}
