package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc   string
		params []string
		ret    string
	}{
		{"()V", nil, "V"},
		{"(I)V", []string{"I"}, "V"},
		{"(I[Ljava/lang/String;J)Ljava/util/List;", []string{"I", "[Ljava/lang/String;", "J"}, "Ljava/util/List;"},
		{"([[D)[I", []string{"[[D"}, "[I"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			params, ret, err := ParseMethod(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.params, params)
			assert.Equal(t, tt.ret, ret)
		})
	}
}

func TestParseMethodInvalid(t *testing.T) {
	t.Parallel()

	for _, desc := range []string{"", "I", "(I", "(Q)V", "(Ljava/lang/String)V", "()", "()VV", "(L;)V", "()[V"} {
		t.Run(desc, func(t *testing.T) {
			t.Parallel()
			_, _, err := ParseMethod(desc)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateField(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateField("I"))
	assert.NoError(t, ValidateField("[Ljava/lang/Object;"))
	assert.ErrorIs(t, ValidateField("V"), ErrInvalid)
	assert.ErrorIs(t, ValidateField("II"), ErrInvalid)
	assert.ErrorIs(t, ValidateField(""), ErrInvalid)
}

func TestJava(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"I":                  "int",
		"Z":                  "boolean",
		"V":                  "void",
		"Ljava/lang/String;": "java.lang.String",
		"[[J":                "long[][]",
		"[Lcom/acme/A$B;":    "com.acme.A$B[]",
	}
	for in, want := range tests {
		assert.Equal(t, want, Java(in), in)
	}
	assert.Equal(t, "m(int, java.lang.String[])", JavaMethod("m", []string{"I", "[Ljava/lang/String;"}))
	assert.Equal(t, "run()", JavaMethod("run", nil))
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	d, ok := Primitive("long")
	require.True(t, ok)
	assert.Equal(t, "J", d)
	_, ok = Primitive("String")
	assert.False(t, ok)

	assert.Equal(t, "Ljava/lang/String;", Object("java/lang/String"))
	assert.Equal(t, "[[I", Array("I", 2))
	assert.Equal(t, "I", Array("I", 0))
}
