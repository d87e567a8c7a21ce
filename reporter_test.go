package gqlcompose_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/gqlcompose"
)

func TestRecorder(t *testing.T) {
	rec := &gqlcompose.Recorder{}
	rec.Warn("w1")
	rec.Error("e1")
	assert.Equal(t, []string{"w1"}, rec.Warnings())
	assert.Equal(t, []string{"e1"}, rec.Errors())
	assert.Empty(t, rec.Panics())

	assert.PanicsWithValue(t, &gqlcompose.FatalError{Message: "p1"}, func() { rec.Panic("p1") })
	assert.Equal(t, []string{"p1"}, rec.Panics())
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := gqlcompose.NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)))
	r.Warn("careful")
	r.Error("broken")
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "component=gqlcompose")
	assert.Panics(t, func() { r.Panic("fatal") })
	assert.Contains(t, buf.String(), "fatal=true")
}

func TestRecover(t *testing.T) {
	build := func(r gqlcompose.Reporter) (err error) {
		defer gqlcompose.Recover(&err)
		r.Panic("interface Foo is not a node")
		return nil
	}
	err := build(&gqlcompose.Recorder{})
	require.Error(t, err)
	var fe *gqlcompose.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "interface Foo is not a node", fe.Message)

	assert.PanicsWithValue(t, "other", func() {
		var err error
		defer gqlcompose.Recover(&err)
		panic("other")
	})
}
