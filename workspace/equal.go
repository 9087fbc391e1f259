package workspace

import (
	"reflect"

	"ideation-workspace/core"
)

// itemsEqual is a deep comparison used to decide whether a gesture changed anything.
func itemsEqual(a, b []core.Item) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
