// Package nilcheck tells apart genuinely usable interface values from typed
// nils, which compare unequal to nil but still explode on use.
package nilcheck

import "reflect"

// Interface reports whether value holds nothing usable: a nil interface, or
// a non-nil interface wrapping a nil pointer, map, slice, channel, or func.
func Interface(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
