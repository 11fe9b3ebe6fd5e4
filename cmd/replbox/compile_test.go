package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPresets(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"es2015"}, splitPresets("es2015"))
	assert.Equal(t, []string{"es2015", "minify"}, splitPresets("es2015, minify"))
	assert.Equal(t, []string{"es2016"}, splitPresets(",es2016,"))
	assert.Nil(t, splitPresets(""))
}
