package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	type testCase struct {
		name     string
		expected Key
	}
	testCases := []testCase{
		{name: "Meta", expected: Meta},
		{name: "meta", expected: Meta},
		{name: "CMD", expected: Meta},
		{name: "ctrl", expected: Control},
		{name: "Option", expected: Alt},
		{name: "SHIFT", expected: Shift},
		{name: "Return", expected: Return},
		{name: "enter", expected: Return},
		{name: "Tab", expected: Tab},
		{name: "Space", expected: Space},
		{name: " ", expected: Space},
		{name: "Backspace", expected: Backspace},
		{name: "ForwardDelete", expected: Delete},
		{name: "Esc", expected: Escape},
		{name: "ArrowUp", expected: Up},
		{name: "left", expected: Left},
		{name: "F1", expected: Key{Name: "F1", Usage: UsageF1}},
		{name: "f12", expected: Key{Name: "F12", Usage: UsageF1 + 11}},
		{name: "C", expected: Key{Name: "C", Usage: UsageA + 2}},
		{name: "c", expected: Key{Name: "C", Usage: UsageA + 2}},
		{name: "0", expected: Key{Name: "0", Usage: Usage0}},
		{name: "1", expected: Key{Name: "1", Usage: Usage1}},
		{name: "/", expected: Key{Name: "/", Usage: UsageSlash}},
		{name: "!", expected: Key{Name: "!", Usage: Usage1, Shift: true}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := Resolve(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, key)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	for _, name := range []string{"Xyz123", "", "  ", " tab", "F13", "é", "\t", "Hyper", "\u212a", "\u0130"} {
		_, err := Resolve(name)
		var unknown *UnknownKeyError
		require.ErrorAs(t, err, &unknown, "name %q", name)
		assert.Equal(t, name, unknown.Name)
	}
}

func TestModifiers(t *testing.T) {
	for _, mod := range Modifiers {
		assert.True(t, mod.IsModifier(), mod.Name)
	}
	assert.False(t, Tab.IsModifier())
	assert.Equal(t, uint8(0x01), Control.ModifierBit())
	assert.Equal(t, uint8(0x02), Shift.ModifierBit())
	assert.Equal(t, uint8(0x04), Alt.ModifierBit())
	assert.Equal(t, uint8(0x08), Meta.ModifierBit())
	assert.Equal(t, uint8(0), Tab.ModifierBit())
}

func TestCharKeyCase(t *testing.T) {
	lower, err := CharKey('h')
	require.NoError(t, err)
	upper, err := CharKey('H')
	require.NoError(t, err)
	assert.Equal(t, lower.Usage, upper.Usage)
	assert.False(t, lower.Shift)
	assert.True(t, upper.Shift)

	_, err = CharKey('\n')
	assert.Error(t, err)
}

func TestVocabulary(t *testing.T) {
	names := Vocabulary()
	assert.Contains(t, names, "meta")
	assert.Contains(t, names, "f12")
	assert.NotContains(t, names, " ")
	assert.IsIncreasing(t, names)
}
