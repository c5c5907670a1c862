package keyboard

import (
	"fmt"
	"sort"
	"strings"
)

// HID Keyboard/Keypad page (0x07) usages.
const (
	UsageA            uint8 = 0x04
	Usage1            uint8 = 0x1e
	Usage0            uint8 = 0x27
	UsageReturn       uint8 = 0x28
	UsageEscape       uint8 = 0x29
	UsageBackspace    uint8 = 0x2a
	UsageTab          uint8 = 0x2b
	UsageSpace        uint8 = 0x2c
	UsageMinus        uint8 = 0x2d
	UsageEqual        uint8 = 0x2e
	UsageLeftBracket  uint8 = 0x2f
	UsageRightBracket uint8 = 0x30
	UsageBackslash    uint8 = 0x31
	UsageSemicolon    uint8 = 0x33
	UsageQuote        uint8 = 0x34
	UsageGrave        uint8 = 0x35
	UsageComma        uint8 = 0x36
	UsagePeriod       uint8 = 0x37
	UsageSlash        uint8 = 0x38
	UsageF1           uint8 = 0x3a
	UsageDelete       uint8 = 0x4c
	UsageRightArrow   uint8 = 0x4f
	UsageLeftArrow    uint8 = 0x50
	UsageDownArrow    uint8 = 0x51
	UsageUpArrow      uint8 = 0x52
	UsageLeftControl  uint8 = 0xe0
	UsageLeftShift    uint8 = 0xe1
	UsageLeftAlt      uint8 = 0xe2
	UsageLeftGUI      uint8 = 0xe3
	UsageRightGUI     uint8 = 0xe7
)

// Key is a resolved symbolic key.
type Key struct {
	Name  string
	Usage uint8
	// Shift is set for characters that are produced by the usage combined with Shift (US layout).
	Shift bool
}

func (k Key) String() string {
	return k.Name
}

func (k Key) IsModifier() bool {
	return k.Usage >= UsageLeftControl && k.Usage <= UsageRightGUI
}

// ModifierBit returns the bit of the key in the boot keyboard modifier byte.
func (k Key) ModifierBit() uint8 {
	if !k.IsModifier() {
		return 0
	}
	return 1 << (k.Usage - UsageLeftControl)
}

var (
	Meta    = Key{Name: "Meta", Usage: UsageLeftGUI}
	Control = Key{Name: "Control", Usage: UsageLeftControl}
	Alt     = Key{Name: "Alt", Usage: UsageLeftAlt}
	Shift   = Key{Name: "Shift", Usage: UsageLeftShift}

	Return    = Key{Name: "Return", Usage: UsageReturn}
	Tab       = Key{Name: "Tab", Usage: UsageTab}
	Space     = Key{Name: "Space", Usage: UsageSpace}
	Backspace = Key{Name: "Backspace", Usage: UsageBackspace}
	Delete    = Key{Name: "Delete", Usage: UsageDelete}
	Escape    = Key{Name: "Escape", Usage: UsageEscape}
	Up        = Key{Name: "Up", Usage: UsageUpArrow}
	Down      = Key{Name: "Down", Usage: UsageDownArrow}
	Left      = Key{Name: "Left", Usage: UsageLeftArrow}
	Right     = Key{Name: "Right", Usage: UsageRightArrow}
)

// Modifiers lists every modifier the synthesizer manages, in release order.
var Modifiers = []Key{Meta, Control, Alt, Shift}

var namedKeys = map[string]Key{
	"meta":    Meta,
	"cmd":     Meta,
	"command": Meta,
	"super":   Meta,
	"control": Control,
	"ctrl":    Control,
	"alt":     Alt,
	"option":  Alt,
	"shift":   Shift,

	"return":        Return,
	"enter":         Return,
	"tab":           Tab,
	"space":         Space,
	" ":             Space,
	"backspace":     Backspace,
	"delete":        Delete,
	"forwarddelete": Delete,
	"escape":        Escape,
	"esc":           Escape,

	"up":         Up,
	"arrowup":    Up,
	"down":       Down,
	"arrowdown":  Down,
	"left":       Left,
	"arrowleft":  Left,
	"right":      Right,
	"arrowright": Right,
}

func init() {
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("F%d", i+1)
		namedKeys[strings.ToLower(name)] = Key{Name: name, Usage: UsageF1 + uint8(i)}
	}
}

var charUsages = map[rune]uint8{
	'-':  UsageMinus,
	'=':  UsageEqual,
	'[':  UsageLeftBracket,
	']':  UsageRightBracket,
	'\\': UsageBackslash,
	';':  UsageSemicolon,
	'\'': UsageQuote,
	',':  UsageComma,
	'.':  UsagePeriod,
	'/':  UsageSlash,
	'`':  UsageGrave,
	' ':  UsageSpace,
}

var charUsagesShifted = map[rune]uint8{
	'_': UsageMinus,
	'+': UsageEqual,
	'{': UsageLeftBracket,
	'}': UsageRightBracket,
	'|': UsageBackslash,
	':': UsageSemicolon,
	'"': UsageQuote,
	'<': UsageComma,
	'>': UsagePeriod,
	'?': UsageSlash,
	'~': UsageGrave,

	'!': Usage1,
	'@': Usage1 + 1,
	'#': Usage1 + 2,
	'$': Usage1 + 3,
	'%': Usage1 + 4,
	'^': Usage1 + 5,
	'&': Usage1 + 6,
	'*': Usage1 + 7,
	'(': Usage1 + 8,
	')': Usage0,
}

// CharKey maps a printable ASCII character to its key on a US layout.
// Upper case letters and shifted punctuation report Shift.
func CharKey(r rune) (Key, error) {
	if r < ' ' || r > '~' {
		return Key{}, fmt.Errorf("not a printable ASCII character: %q", r)
	}
	name := string(r)
	if usage, ok := charUsages[r]; ok {
		return Key{Name: name, Usage: usage}, nil
	}
	if usage, ok := charUsagesShifted[r]; ok {
		return Key{Name: name, Usage: usage, Shift: true}, nil
	}
	switch {
	case r >= 'a' && r <= 'z':
		return Key{Name: strings.ToUpper(name), Usage: UsageA + uint8(r-'a')}, nil
	case r >= 'A' && r <= 'Z':
		return Key{Name: name, Usage: UsageA + uint8(r-'A'), Shift: true}, nil
	case r >= '1' && r <= '9':
		return Key{Name: name, Usage: Usage1 + uint8(r-'1')}, nil
	case r == '0':
		return Key{Name: name, Usage: Usage0}, nil
	}
	return Key{}, fmt.Errorf("unsupported character: %q", r)
}

// Resolve maps a case-insensitive symbolic key name to a Key.
// Single characters resolve case-insensitively too, so "C" and "c" are the same key.
func Resolve(name string) (Key, error) {
	lower := strings.ToLower(name)
	if key, ok := namedKeys[lower]; ok {
		return key, nil
	}
	// Checked on the original name: some non-ASCII letters lower to ASCII.
	if len(name) == 1 && len(lower) == 1 {
		if key, err := CharKey(rune(lower[0])); err == nil {
			return key, nil
		}
	}
	return Key{}, &UnknownKeyError{Name: name}
}

// Vocabulary returns every accepted key name except single characters.
func Vocabulary() []string {
	names := make([]string, 0, len(namedKeys))
	for name := range namedKeys {
		if name == " " {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
