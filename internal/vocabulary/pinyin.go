package vocabulary

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-pinyin"
)

var toneDigits = regexp.MustCompile(`[0-9]`)

// Pinyin returns tone-marked pinyin for the han characters in s, syllables
// separated by spaces. Other characters are skipped.
func Pinyin(s string) string {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone
	syllables := make([]string, 0, len(s))
	for _, candidates := range pinyin.Pinyin(s, args) {
		if len(candidates) > 0 {
			syllables = append(syllables, candidates[0])
		}
	}
	return strings.Join(syllables, " ")
}

// CleanPinyin removes tone digits and collapses whitespace.
func CleanPinyin(p string) string {
	return strings.Join(strings.Fields(toneDigits.ReplaceAllString(p, "")), " ")
}
