package chapters

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`第([零一二三四五六七八九十百千万\d]+)章`),
	regexp.MustCompile(`第([零一二三四五六七八九十百千万\d]+)話`),
	regexp.MustCompile(`第([零一二三四五六七八九十百千万\d]+)回`),
	regexp.MustCompile(`第([零一二三四五六七八九十百千万\d]+)集`),
	regexp.MustCompile(`(?i)Chapter\s*(\d+)`),
	regexp.MustCompile(`(?i)Ch\.\s*(\d+)`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`(\d+)`),
}

var digitsRe = regexp.MustCompile(`\d+`)

// ExtractNumber pulls the chapter ordinal out of a listing title. Source
// sites mix CJK numbering (第五百零九話) with western forms (Chapter 12,
// Ch. 3, #7). Returns 0 when no number can be found; callers treat such
// entries as non-chapters.
func ExtractNumber(title string) int {
	for _, re := range numberPatterns {
		if m := re.FindStringSubmatch(title); m != nil {
			if n := parseMixedNumeral(m[1]); n > 0 {
				return n
			}
		}
	}

	if m := digitsRe.FindString(title); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}

	return 0
}

var cjkDigits = map[rune]int{
	'零': 0, '一': 1, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var cjkUnits = map[rune]int{
	'十': 10, '百': 100, '千': 1000, '万': 10000,
}

// parseMixedNumeral converts a CJK numeral string, possibly mixed with
// Arabic digits, to an integer. 零 acts as a placeholder: 五百零九 is 509.
func parseMixedNumeral(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	result := 0
	temp := 0

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			temp = temp*10 + int(r-'0')
		case cjkUnits[r] != 0:
			unit := cjkUnits[r]
			if temp == 0 {
				temp = 1
			}
			result += temp * unit
			temp = 0
		case r == '零':
			// placeholder, nothing to accumulate
		default:
			if d, ok := cjkDigits[r]; ok {
				temp = temp*10 + d
			}
		}
	}

	result += temp
	if result > 0 {
		return result
	}

	digits := digitsRe.FindString(s)
	if digits == "" {
		return 0
	}
	n, _ := strconv.Atoi(digits)
	return n
}

// FormatTitle renders the canonical chapter name used for Drive folders and
// notifications, dropping the source site's original wording.
func FormatTitle(number int) string {
	return "Chapter " + strconv.Itoa(number)
}

// IsChapterTitle reports whether a listing entry looks like a chapter at
// all. Entries without any digit are navigation noise.
func IsChapterTitle(title string) bool {
	if strings.TrimSpace(title) == "" {
		return false
	}
	return ExtractNumber(title) > 0
}
