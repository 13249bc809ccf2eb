// Package hangul composes compatibility jamo keystrokes into Hangul syllables
// and takes them apart again one jamo at a time.
package hangul

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	syllableBase = 0xAC00
	syllableLast = 0xD7A3

	leadBase  = 0x1100
	vowelBase = 0x1161
	tailBase  = 0x11A7

	vowelCount = 21
	tailCount  = 28
)

var initials = []rune("ㄱㄲㄴㄷㄸㄹㅁㅂㅃㅅㅆㅇㅈㅉㅊㅋㅌㅍㅎ")

var medials = []rune("ㅏㅐㅑㅒㅓㅔㅕㅖㅗㅘㅙㅚㅛㅜㅝㅞㅟㅠㅡㅢㅣ")

// finals[0] is the empty final.
var finals = append([]rune{0}, []rune("ㄱㄲㄳㄴㄵㄶㄷㄹㄺㄻㄼㄽㄾㄿㅀㅁㅂㅄㅅㅆㅇㅈㅊㅋㅌㅍㅎ")...)

var compoundVowels = map[[2]rune]rune{
	{'ㅗ', 'ㅏ'}: 'ㅘ',
	{'ㅗ', 'ㅐ'}: 'ㅙ',
	{'ㅗ', 'ㅣ'}: 'ㅚ',
	{'ㅜ', 'ㅓ'}: 'ㅝ',
	{'ㅜ', 'ㅔ'}: 'ㅞ',
	{'ㅜ', 'ㅣ'}: 'ㅟ',
	{'ㅡ', 'ㅣ'}: 'ㅢ',
}

var compoundFinals = map[[2]rune]rune{
	{'ㄱ', 'ㅅ'}: 'ㄳ',
	{'ㄴ', 'ㅈ'}: 'ㄵ',
	{'ㄴ', 'ㅎ'}: 'ㄶ',
	{'ㄹ', 'ㄱ'}: 'ㄺ',
	{'ㄹ', 'ㅁ'}: 'ㄻ',
	{'ㄹ', 'ㅂ'}: 'ㄼ',
	{'ㄹ', 'ㅅ'}: 'ㄽ',
	{'ㄹ', 'ㅌ'}: 'ㄾ',
	{'ㄹ', 'ㅍ'}: 'ㄿ',
	{'ㄹ', 'ㅎ'}: 'ㅀ',
	{'ㅂ', 'ㅅ'}: 'ㅄ',
}

var (
	initialIndex = indexOf(initials)
	medialIndex  = indexOf(medials)
	finalIndex   = indexOf(finals[1:], 1)
	splitVowel   = invert(compoundVowels)
	splitFinal   = invert(compoundFinals)
)

func indexOf(runes []rune, offset ...int) map[rune]int {
	base := 0
	if len(offset) > 0 {
		base = offset[0]
	}
	out := make(map[rune]int, len(runes))
	for i, r := range runes {
		out[r] = i + base
	}
	return out
}

func invert(m map[[2]rune]rune) map[rune][2]rune {
	out := make(map[rune][2]rune, len(m))
	for pair, r := range m {
		out[r] = pair
	}
	return out
}

func IsConsonant(r rune) bool {
	if _, ok := initialIndex[r]; ok {
		return true
	}
	_, ok := finalIndex[r]
	return ok
}

func IsVowel(r rune) bool {
	_, ok := medialIndex[r]
	return ok
}

func IsSyllable(r rune) bool {
	return r >= syllableBase && r <= syllableLast
}

// Disassemble breaks every syllable and compound jamo in s into single
// compatibility jamo. Other runes pass through.
func Disassemble(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, disassembleRune(r)...)
	}
	return out
}

func disassembleRune(r rune) []rune {
	if IsSyllable(r) {
		return splitSyllable(r)
	}
	if pair, ok := splitVowel[r]; ok {
		return pair[:]
	}
	if pair, ok := splitFinal[r]; ok {
		return pair[:]
	}
	return []rune{r}
}

// splitSyllable uses canonical decomposition to get the conjoining jamo and
// maps them back onto the compatibility block.
func splitSyllable(r rune) []rune {
	parts := []rune(norm.NFD.String(string(r)))
	out := make([]rune, 0, 5)
	for _, p := range parts {
		switch {
		case p >= leadBase && p < leadBase+rune(len(initials)):
			out = append(out, initials[p-leadBase])
		case p >= vowelBase && p < vowelBase+vowelCount:
			v := medials[p-vowelBase]
			if pair, ok := splitVowel[v]; ok {
				out = append(out, pair[0], pair[1])
			} else {
				out = append(out, v)
			}
		case p > tailBase && p < tailBase+tailCount:
			f := finals[p-tailBase]
			if pair, ok := splitFinal[f]; ok {
				out = append(out, pair[0], pair[1])
			} else {
				out = append(out, f)
			}
		default:
			out = append(out, p)
		}
	}
	return out
}

// Assemble composes s after disassembling it, so already-composed text and
// trailing keystrokes can be mixed: Assemble("한" + "ㄱ" + "ㅡ" + "ㄹ") is "한글".
func Assemble(s string) string {
	var c composer
	for _, r := range Disassemble(s) {
		c.push(r)
	}
	c.flush()
	return c.out.String()
}

type composer struct {
	out  strings.Builder
	lead rune
	vow  []rune
	tail []rune
}

func (c *composer) empty() bool {
	return c.lead == 0 && len(c.vow) == 0
}

func (c *composer) push(r rune) {
	switch {
	case IsConsonant(r):
		c.pushConsonant(r)
	case IsVowel(r):
		c.pushVowel(r)
	default:
		c.flush()
		c.out.WriteRune(r)
	}
}

func (c *composer) pushConsonant(r rune) {
	switch {
	case c.empty():
		c.lead = r
	case c.lead != 0 && len(c.vow) > 0 && len(c.tail) == 0:
		if _, ok := finalIndex[r]; ok {
			c.tail = []rune{r}
			return
		}
		c.flush()
		c.lead = r
	case c.lead != 0 && len(c.vow) > 0 && len(c.tail) == 1:
		if _, ok := compoundFinals[[2]rune{c.tail[0], r}]; ok {
			c.tail = append(c.tail, r)
			return
		}
		c.flush()
		c.lead = r
	default:
		c.flush()
		c.lead = r
	}
}

func (c *composer) pushVowel(r rune) {
	switch {
	case c.empty():
		c.vow = []rune{r}
	case len(c.vow) == 0:
		c.vow = []rune{r}
	case len(c.tail) > 0:
		moved := c.tail[len(c.tail)-1]
		c.tail = c.tail[:len(c.tail)-1]
		c.flush()
		c.lead = moved
		c.vow = []rune{r}
	case len(c.vow) == 1:
		if _, ok := compoundVowels[[2]rune{c.vow[0], r}]; ok {
			c.vow = append(c.vow, r)
			return
		}
		c.flush()
		c.vow = []rune{r}
	default:
		c.flush()
		c.vow = []rune{r}
	}
}

func (c *composer) flush() {
	defer func() {
		c.lead = 0
		c.vow = nil
		c.tail = nil
	}()

	vowel := combine(c.vow, compoundVowels)
	switch {
	case c.lead != 0 && vowel != 0:
		tail := combine(c.tail, compoundFinals)
		c.out.WriteRune(compose(c.lead, vowel, tail))
	case c.lead != 0:
		c.out.WriteRune(c.lead)
	case vowel != 0:
		c.out.WriteRune(vowel)
	}
}

func combine(parts []rune, table map[[2]rune]rune) rune {
	switch len(parts) {
	case 0:
		return 0
	case 1:
		return parts[0]
	default:
		return table[[2]rune{parts[0], parts[1]}]
	}
}

func compose(lead, vowel, tail rune) rune {
	l := initialIndex[lead]
	v := medialIndex[vowel]
	t := 0
	if tail != 0 {
		t = finalIndex[tail]
	}
	return rune(syllableBase + (l*vowelCount+v)*tailCount + t)
}

// Backspace removes one jamo from the end of s. A composed syllable loses
// its last jamo ("값" becomes "갑", "과" becomes "고", "가" becomes "ㄱ");
// anything else loses its last rune.
func Backspace(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	last := runes[len(runes)-1]
	prefix := string(runes[:len(runes)-1])

	parts := disassembleRune(last)
	if len(parts) <= 1 {
		return prefix
	}
	return prefix + Assemble(string(parts[:len(parts)-1]))
}

// Truncate drops the last rune without any jamo awareness.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(runes[:len(runes)-1])
}
