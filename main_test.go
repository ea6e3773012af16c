package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UnitVectorY-Labs/buildbadges/internal/relocator"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	res := relocator.Result{Bucket: "b", Source: "badges/success.svg", Dest: "builds/arcs/branches/master.svg"}
	require.NoError(t, writeResult(&buf, res))
	assert.Contains(t, buf.String(), `"dest": "builds/arcs/branches/master.svg"`)

	err := writeResult(brokenWriter{}, res)
	assert.ErrorContains(t, err, "stdout closed")
}

func TestStringList(t *testing.T) {
	var l stringList
	require.NoError(t, l.Set("a.txt"))
	require.NoError(t, l.Set("b.txt"))
	assert.Equal(t, stringList{"a.txt", "b.txt"}, l)
	assert.Equal(t, "a.txt,b.txt", l.String())
}
