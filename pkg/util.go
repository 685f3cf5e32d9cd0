package pkg

import (
	"unsafe"
)

// BytesToString reinterprets buf as a string without copying. The
// caller must not mutate buf afterwards.
func BytesToString(buf []byte) string {
	return unsafe.String(unsafe.SliceData(buf), len(buf))
}
