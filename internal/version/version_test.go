package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, c, d := Info()
	s := String()
	assert.Contains(t, s, v)
	assert.Contains(t, s, "commit: "+c)
	assert.Contains(t, s, "built: "+d)
	assert.Contains(t, s, runtime.Version())
}
