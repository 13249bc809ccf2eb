// Package keypad turns on-screen keypad presses into a search query.
package keypad

import (
	"strings"
	"unicode"

	"flowork/terminal/internal/hangul"
)

type Mode string

const (
	ModeNum Mode = "num"
	ModeKor Mode = "kor"
	ModeEng Mode = "eng"
)

// Special keys.
const (
	KeyBackspace = "backspace"
	KeySpace     = " "
	KeyShift     = "shift"
	KeyModeNum   = "mode-num"
	KeyModeKor   = "mode-kor"
	KeyModeEng   = "mode-eng"
)

var korShift = map[rune]rune{
	'ㅂ': 'ㅃ',
	'ㅈ': 'ㅉ',
	'ㄷ': 'ㄸ',
	'ㄱ': 'ㄲ',
	'ㅅ': 'ㅆ',
	'ㅐ': 'ㅒ',
	'ㅔ': 'ㅖ',
}

func ParseMode(value string) (Mode, bool) {
	switch Mode(value) {
	case ModeNum, ModeKor, ModeEng:
		return Mode(value), true
	}
	return "", false
}

type Keypad struct {
	mode  Mode
	shift bool
	text  string
}

func New(mode Mode) *Keypad {
	if _, ok := ParseMode(string(mode)); !ok {
		mode = ModeNum
	}
	return &Keypad{mode: mode}
}

func (k *Keypad) Mode() Mode { return k.mode }

func (k *Keypad) Shift() bool { return k.shift }

func (k *Keypad) Text() string { return k.text }

// Press applies one key and reports whether the query text changed.
func (k *Keypad) Press(key string) bool {
	switch key {
	case "":
		return false
	case KeyBackspace:
		return k.Backspace()
	case KeySpace:
		k.text += " "
		return true
	case KeyShift, "shift-kor", "shift-eng":
		k.ToggleShift()
		return false
	case KeyModeNum:
		k.SetMode(ModeNum)
		return false
	case KeyModeKor:
		k.SetMode(ModeKor)
		return false
	case KeyModeEng:
		k.SetMode(ModeEng)
		return false
	}
	k.text = hangul.Assemble(k.text + k.Label(key))
	return true
}

// Label is what a key types under the current shift state.
func (k *Keypad) Label(key string) string {
	if !k.shift {
		return key
	}
	switch k.mode {
	case ModeKor:
		return strings.Map(func(r rune) rune {
			if shifted, ok := korShift[r]; ok {
				return shifted
			}
			return r
		}, key)
	case ModeEng:
		return strings.Map(unicode.ToUpper, key)
	}
	return key
}

// Backspace removes one jamo in Korean mode and one character otherwise.
func (k *Keypad) Backspace() bool {
	if k.text == "" {
		return false
	}
	if k.mode == ModeKor {
		k.text = hangul.Backspace(k.text)
	} else {
		k.text = hangul.Truncate(k.text)
	}
	return true
}

func (k *Keypad) ToggleShift() {
	if k.mode == ModeNum {
		return
	}
	k.shift = !k.shift
}

func (k *Keypad) SetMode(mode Mode) {
	if _, ok := ParseMode(string(mode)); !ok || mode == k.mode {
		return
	}
	k.mode = mode
	k.shift = false
}

// SetText replaces the query with typed text, composing any loose jamo.
func (k *Keypad) SetText(text string) {
	k.text = hangul.Assemble(text)
}

func (k *Keypad) Clear() bool {
	changed := k.text != ""
	k.text = ""
	return changed
}

var layouts = map[Mode][][]string{
	ModeNum: {
		{"1", "2", "3"},
		{"4", "5", "6"},
		{"7", "8", "9"},
		{KeyModeKor, "0", KeyBackspace},
	},
	ModeKor: {
		{"ㅂ", "ㅈ", "ㄷ", "ㄱ", "ㅅ", "ㅛ", "ㅕ", "ㅑ", "ㅐ", "ㅔ"},
		{"ㅁ", "ㄴ", "ㅇ", "ㄹ", "ㅎ", "ㅗ", "ㅓ", "ㅏ", "ㅣ"},
		{"shift-kor", "ㅋ", "ㅌ", "ㅊ", "ㅍ", "ㅠ", "ㅜ", "ㅡ", KeyBackspace},
		{KeyModeNum, KeyModeEng, KeySpace},
	},
	ModeEng: {
		{"q", "w", "e", "r", "t", "y", "u", "i", "o", "p"},
		{"a", "s", "d", "f", "g", "h", "j", "k", "l"},
		{"shift-eng", "z", "x", "c", "v", "b", "n", "m", KeyBackspace},
		{KeyModeNum, KeyModeKor, KeySpace},
	},
}

var keyLabels = map[string]string{
	KeyBackspace: "⌫",
	KeySpace:     "space",
	KeyModeNum:   "123",
	KeyModeKor:   "한",
	KeyModeEng:   "ABC",
	"shift-kor":  "⇧",
	"shift-eng":  "⇧",
}

type Key struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Rows is the key layout of the current mode with shift applied: a shifted
// key both shows and types its shifted character.
func (k *Keypad) Rows() [][]Key {
	src := layouts[k.mode]
	out := make([][]Key, 0, len(src))
	for _, row := range src {
		keys := make([]Key, 0, len(row))
		for _, value := range row {
			if label, ok := keyLabels[value]; ok {
				keys = append(keys, Key{Value: value, Label: label})
				continue
			}
			shifted := k.Label(value)
			keys = append(keys, Key{Value: value, Label: shifted})
		}
		out = append(out, keys)
	}
	return out
}
