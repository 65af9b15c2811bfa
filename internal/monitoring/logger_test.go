package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	var got []string
	orig := Logf
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() {
		Logf = orig
		SetDebug(false)
	})
	return &got
}

func TestSetLoggerNilMutes(t *testing.T) {
	orig := Logf
	t.Cleanup(func() { Logf = orig })

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("dropped %d", 1) })
}

func TestDebugfGatedBySetDebug(t *testing.T) {
	got := capture(t)

	Debugf("hidden %d", 1)
	assert.Empty(t, *got)

	SetDebug(true)
	Debugf("shown %d", 2)
	assert.Equal(t, []string{"[debug] shown 2"}, *got)
}
