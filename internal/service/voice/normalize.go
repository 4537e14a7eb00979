package voice

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

// Normalize приводит распознанный текст к виду, с которым работает грамматика:
// NFKC (полноширинные цифры и лигатуры), casefold, схлопнутые пробелы,
// без завершающей пунктуации, числительные от one до twenty заменены цифрами.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = cases.Fold().String(s)
	fields := strings.Fields(s)
	for i, w := range fields {
		w = strings.Trim(w, ".,!?;:\"'")
		if n, ok := numberWords[w]; ok {
			w = strconv.Itoa(n)
		}
		fields[i] = w
	}
	return strings.Join(strings.Fields(strings.Join(fields, " ")), " ")
}
