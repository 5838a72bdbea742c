package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	obj := Object{
		"zeta":  Int(1),
		"alpha": String("a"),
		"mid":   Bool(true),
	}

	data, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","mid":true,"zeta":1}`, string(data))
}

func TestMarshal_Nested(t *testing.T) {
	obj := Object{
		"location": Object{"city": String("Berlin"), "confidence": Int(90)},
		"flags":    Strings([]string{"b", "a"}),
	}

	data, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"flags":["b","a"],"location":{"city":"Berlin","confidence":90}}`, string(data),
		"arrays keep their order, objects are sorted")
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	data, err := Marshal(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshal_EscapesControlCharacters(t *testing.T) {
	data, err := Marshal(String("a\"b\\c\n\x01"))
	require.NoError(t, err)
	assert.Equal(t, `"a\"b\\c\n\u0001"`, string(data))
}

func TestMarshal_LineSeparatorsNotEscaped(t *testing.T) {
	data, err := Marshal(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))
}

func TestMarshal_NFCNormalization(t *testing.T) {
	decomposed := String("Cafe\u0301")
	composed := String("Caf\u00e9")

	assert.Equal(t, MustMarshal(composed), MustMarshal(decomposed))
}

func TestMarshal_RejectsNil(t *testing.T) {
	_, err := Marshal(Object{"missing": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogate 0xD83D, which sorts before U+FB01 (0xFB01)
	// in UTF-16 but after it in UTF-8.
	obj := Object{"\uFB01": Int(1), "\U0001F600": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFB01"}, obj.SortedKeys())
}

func TestSetOptional(t *testing.T) {
	city := "Berlin"
	yes := true
	obj := Object{}
	obj.SetOptional("city", &city)
	obj.SetOptional("region", nil)
	obj.SetOptionalBool("has_vehicle", &yes)
	obj.SetOptionalBool("other", nil)

	assert.Equal(t, `{"city":"Berlin","has_vehicle":true}`, string(MustMarshal(obj)))
}
