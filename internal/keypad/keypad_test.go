package keypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(k *Keypad, keys ...string) {
	for _, key := range keys {
		k.Press(key)
	}
}

func TestKoreanKeysCompose(t *testing.T) {
	k := New(ModeKor)
	press(k, "ㄴ", "ㅏ", "ㅇ", "ㅣ", "ㅋ", "ㅣ")
	assert.Equal(t, "나이키", k.Text())
}

func TestKoreanShiftMap(t *testing.T) {
	k := New(ModeKor)
	k.Press(KeyShift)
	assert.True(t, k.Shift())
	assert.Equal(t, "ㅃ", k.Label("ㅂ"))
	assert.Equal(t, "ㅖ", k.Label("ㅔ"))
	assert.Equal(t, "ㅁ", k.Label("ㅁ"))

	press(k, "ㄱ", "ㅗ")
	assert.Equal(t, "꼬", k.Text())
	assert.True(t, k.Shift(), "shift stays on until toggled")

	k.Press(KeyShift)
	press(k, "ㄱ")
	assert.Equal(t, "꼭", k.Text())
}

func TestEnglishShiftUppercases(t *testing.T) {
	k := New(ModeEng)
	press(k, "n", KeyShift, "b")
	assert.Equal(t, "nB", k.Text())
}

func TestModeChangeResetsShift(t *testing.T) {
	k := New(ModeKor)
	k.Press(KeyShift)
	k.Press(KeyModeEng)
	assert.Equal(t, ModeEng, k.Mode())
	assert.False(t, k.Shift())

	k.Press(KeyModeNum)
	k.Press(KeyShift)
	assert.False(t, k.Shift())
}

func TestBackspaceByMode(t *testing.T) {
	k := New(ModeKor)
	press(k, "ㄷ", "ㅏ", "ㄹ", "ㄱ")
	assert.Equal(t, "닭", k.Text())
	assert.True(t, k.Press(KeyBackspace))
	assert.Equal(t, "달", k.Text())

	k.SetMode(ModeNum)
	assert.True(t, k.Press(KeyBackspace))
	assert.Equal(t, "", k.Text())
	assert.False(t, k.Press(KeyBackspace))
}

func TestSpaceAndNumbers(t *testing.T) {
	k := New(ModeNum)
	press(k, "1", "2", KeySpace, "3")
	assert.Equal(t, "12 3", k.Text())
	assert.True(t, k.Clear())
	assert.False(t, k.Clear())
}

func TestSetTextComposes(t *testing.T) {
	k := New("bogus")
	assert.Equal(t, ModeNum, k.Mode())
	k.SetText("ㅎㅏㄴ")
	assert.Equal(t, "한", k.Text())
}

func TestRowsFollowShift(t *testing.T) {
	k := New(ModeKor)
	rows := k.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, Key{Value: "ㅂ", Label: "ㅂ"}, rows[0][0])
	assert.Equal(t, Key{Value: KeyBackspace, Label: "⌫"}, rows[2][len(rows[2])-1])

	k.ToggleShift()
	rows = k.Rows()
	assert.Equal(t, Key{Value: "ㅂ", Label: "ㅃ"}, rows[0][0])
	assert.True(t, k.Press(rows[0][0].Value))
	assert.Equal(t, "ㅃ", k.Text())

	num := New(ModeNum).Rows()
	assert.Equal(t, "1", num[0][0].Label)
}
