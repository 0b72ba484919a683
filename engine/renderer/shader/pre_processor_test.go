package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStruct = "struct Params {\n    Scale: f32,\n};"

func newTestPreProcessor() PreProcessor {
	return NewPreProcessor(
		WithInclude("params", testStruct, "Params"),
		WithSubstitution("COLOR_FORMAT", "rgba8unorm"),
	)
}

func TestProcessInjectsIncludeOnce(t *testing.T) {
	src := "//@oxy:include params\n// @oxy:include params\nfn f() {}"
	out, err := newTestPreProcessor().Process(src, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct Params"))
	assert.Contains(t, out, "fn f() {}")
}

func TestProcessUnknownInclude(t *testing.T) {
	_, err := newTestPreProcessor().Process("//@oxy:include camera", nil)
	assert.ErrorContains(t, err, `unknown @oxy:include argument "camera"`)
}

func TestProcessConditionals(t *testing.T) {
	src := strings.Join([]string{
		"a",
		"//@oxy:ifdef BITMASK",
		"b",
		"//@oxy:else",
		"c",
		"//@oxy:endif",
		"//@oxy:ifndef BITMASK",
		"d",
		"//@oxy:endif",
	}, "\n")

	pp := newTestPreProcessor()

	out, err := pp.Process(src, []string{"BITMASK"})
	require.NoError(t, err)
	assert.Equal(t, "a\nb", out)

	out, err = pp.Process(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "a\nc\nd", out)
}

func TestProcessNestedConditionals(t *testing.T) {
	src := strings.Join([]string{
		"//@oxy:ifdef OUTER",
		"//@oxy:ifdef INNER",
		"both",
		"//@oxy:else",
		"outer",
		"//@oxy:endif",
		"//@oxy:else",
		"//@oxy:ifdef INNER",
		"inner",
		"//@oxy:endif",
		"//@oxy:endif",
	}, "\n")

	pp := newTestPreProcessor()
	cases := []struct {
		defines []string
		want    string
	}{
		{[]string{"OUTER", "INNER"}, "both"},
		{[]string{"OUTER"}, "outer"},
		{[]string{"INNER"}, "inner"},
		{nil, ""},
	}
	for _, c := range cases {
		out, err := pp.Process(src, c.defines)
		require.NoError(t, err)
		assert.Equal(t, c.want, out, "defines %v", c.defines)
	}
}

func TestProcessIncludeInsideInactiveBlockIsSkipped(t *testing.T) {
	src := "//@oxy:ifdef MISSING\n//@oxy:include unknown\n//@oxy:endif\nx"
	out, err := newTestPreProcessor().Process(src, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestProcessUnbalancedBlocks(t *testing.T) {
	pp := newTestPreProcessor()

	_, err := pp.Process("//@oxy:ifdef A\nx", nil)
	assert.ErrorContains(t, err, "never closed")

	_, err = pp.Process("//@oxy:endif", nil)
	assert.ErrorContains(t, err, "without a matching ifdef")

	_, err = pp.Process("//@oxy:else", nil)
	assert.ErrorContains(t, err, "without a matching ifdef")

	_, err = pp.Process("//@oxy:ifdef A\n//@oxy:else\n//@oxy:else\n//@oxy:endif", nil)
	assert.ErrorContains(t, err, "duplicate @oxy:else")
}

func TestProcessSubstitutions(t *testing.T) {
	out, err := newTestPreProcessor().Process("var t: texture_storage_2d<${COLOR_FORMAT}, write>;", nil)
	require.NoError(t, err)
	assert.Equal(t, "var t: texture_storage_2d<rgba8unorm, write>;", out)
}

func TestParseAnnotationErrors(t *testing.T) {
	for _, line := range []string{
		"//@oxy:",
		"//@oxy:include",
		"//@oxy:include a b",
		"//@oxy:ifdef 1BAD",
		"//@oxy:else extra",
		"//@oxy:group 0 0 storage_uniform camera camera",
	} {
		_, err := parseAnnotation(line, 1)
		assert.Error(t, err, line)
	}

	a, err := parseAnnotation("let x = 1; // not an annotation", 1)
	assert.NoError(t, err)
	assert.Nil(t, a)
}
