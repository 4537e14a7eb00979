package voice

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"HandsFreeReader/internal/service/navigation"
)

// Kind вид распознанной команды.
type Kind string

const (
	KindSilence     Kind = "silence"
	KindQuit        Kind = "quit"
	KindHelp        Kind = "help"
	KindStatus      Kind = "status"
	KindZoomStep    Kind = "zoom_step"
	KindZoomSet     Kind = "zoom_set"
	KindZoomReset   Kind = "zoom_reset"
	KindZoomInvalid Kind = "zoom_invalid" // число вне 25..500
	KindZoomUnknown Kind = "zoom_unknown"
	KindRepeat      Kind = "repeat"
	KindNavigate    Kind = "navigate"
	KindRejected    Kind = "rejected" // навигационная фраза без нужного числа
	KindUnknown     Kind = "unknown"
)

// Nav способ вычисления целевой страницы.
type Nav string

const (
	NavNext     Nav = "next"
	NavPrevious Nav = "previous"
	NavFirst    Nav = "first"
	NavLast     Nav = "last"
	NavMiddle   Nav = "middle"
	NavForward  Nav = "forward" // N страниц вперёд
	NavBack     Nav = "back"    // N страниц назад
	NavPage     Nav = "page"    // N: номер страницы с единицы
)

// Command результат разбора одной реплики. Разбор не зависит от состояния документа.
type Command struct {
	Kind Kind
	Text string

	Nav Nav
	N   int // номер страницы или число страниц для Nav, процент для KindZoomSet

	ZoomSign   int    // +1 / -1 для KindZoomStep
	Suggestion string // ближайшая известная команда для KindUnknown
}

var (
	quitPhrases   = []string{"quit", "exit", "stop listening", "stop voice"}
	statusPhrases = []string{"status", "where am i", "which page"}
	resetPhrases  = []string{"back to normal", "normal zoom", "reset zoom", "hundred percent"}

	nextPhrases     = []string{"next page", "next", "forward"}
	previousPhrases = []string{"previous page", "previous", "prev", "back", "back page"}
	firstPhrases    = []string{"first page", "go to start", "beginning", "home page", "first"}
	lastPhrases     = []string{"last page", "go to end", "final page", "end page", "last"}
	middlePhrases   = []string{"middle", "center", "halfway"}

	reZoom100  = regexp.MustCompile(`\bzoom\s+100\b`)
	reZoomN    = regexp.MustCompile(`\bzoom\s+(\d+)%?`)
	reJump     = regexp.MustCompile(`\bjump\s+(forward|ahead|back|backward)\s+(\d+)\b`)
	rePageN    = regexp.MustCompile(`\bpage\s+(\d+)\b`)
	reTrailing = regexp.MustCompile(`\b(\d+)$`)
	reDigits   = regexp.MustCompile(`^\d+$`)
)

// KnownCommands используются для подсказки при нераспознанной реплике и в справке.
var KnownCommands = []string{
	"next page", "previous page", "first page", "last page", "page 5",
	"jump forward 3 pages", "jump back 2 pages", "middle",
	"zoom in", "zoom out", "zoom 150", "reset zoom",
	"status", "repeat", "help", "quit",
}

// Parse разбирает нормализованную реплику. Правила проверяются строго по порядку,
// первое совпавшее побеждает. canRepeat сообщает, есть ли сохранённая цель для "repeat".
func Parse(text string, canRepeat bool) Command {
	t := strings.TrimSpace(text)
	c := Command{Text: t}
	if t == "" {
		c.Kind = KindSilence
		return c
	}

	switch {
	case t == "stop" || containsAny(t, quitPhrases):
		c.Kind = KindQuit
	case hasPhrase(t, "help"):
		c.Kind = KindHelp
	case containsAny(t, statusPhrases):
		c.Kind = KindStatus
	case strings.Contains(t, "zoom"):
		parseZoom(t, &c)
	case hasPhrase(t, "repeat") && canRepeat:
		c.Kind = KindRepeat
	default:
		parseNav(t, &c)
	}
	return c
}

func parseZoom(t string, c *Command) {
	switch {
	case hasPhrase(t, "zoom in"):
		c.Kind, c.ZoomSign = KindZoomStep, +1
	case hasPhrase(t, "zoom out"):
		c.Kind, c.ZoomSign = KindZoomStep, -1
	case containsAny(t, resetPhrases) || reZoom100.MatchString(t):
		c.Kind = KindZoomReset
	default:
		m := reZoomN.FindStringSubmatch(t)
		if m == nil {
			c.Kind = KindZoomUnknown
			return
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < navigation.MinZoom || n > navigation.MaxZoom {
			c.Kind = KindZoomInvalid
			return
		}
		c.Kind, c.N = KindZoomSet, n
	}
}

func parseNav(t string, c *Command) {
	c.Kind = KindNavigate
	// "jump" разбирается раньше фраз next/back: "jump back 2 pages" не должно стать "back",
	// а "jump forward pages" без числа отклоняется так же, как "jump ahead pages"
	if hasPhrase(t, "jump") {
		m := reJump.FindStringSubmatch(t)
		if m == nil {
			c.Kind = KindRejected
			return
		}
		c.N = parseCount(m[2])
		c.Nav = NavForward
		if m[1] == "back" || m[1] == "backward" {
			c.Nav = NavBack
		}
		return
	}
	switch {
	case containsAny(t, nextPhrases):
		c.Nav = NavNext
		return
	case containsAny(t, previousPhrases):
		c.Nav = NavPrevious
		return
	case containsAny(t, firstPhrases):
		c.Nav = NavFirst
		return
	case containsAny(t, lastPhrases):
		c.Nav = NavLast
		return
	}
	if containsAny(t, middlePhrases) {
		c.Nav = NavMiddle
		return
	}
	if m := rePageN.FindStringSubmatch(t); m != nil {
		c.Nav = NavPage
		c.N = parseCount(m[1])
		return
	}
	if m := reTrailing.FindStringSubmatch(t); m != nil && (reDigits.MatchString(t) || hasPhrase(t, "page") || hasPhrase(t, "go to")) {
		c.Nav = NavPage
		c.N = parseCount(m[1])
		return
	}
	if hasPhrase(t, "page") {
		c.Kind = KindRejected
		return
	}
	c.Kind = KindUnknown
	c.Suggestion = suggest(t)
}

// parseCount число из реплики. Слишком длинное число насыщается до math.MaxInt,
// дальше его ограничивают края документа.
func parseCount(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}
	return n
}

// Resolve вычисляет целевую страницу (с нуля) для навигационной команды.
// ok=false, если номер страницы вне документа.
func (c Command) Resolve(current, total int) (int, bool) {
	switch c.Nav {
	case NavNext:
		return navigation.Next(current, total), true
	case NavPrevious:
		return navigation.Previous(current, total), true
	case NavFirst:
		return navigation.First(current, total), true
	case NavLast:
		return navigation.Last(current, total), true
	case NavMiddle:
		return max(0, total/2), true
	case NavForward:
		return navigation.Offset(c.N)(current, total), true
	case NavBack:
		return navigation.Offset(-c.N)(current, total), true
	case NavPage:
		p := c.N - 1
		return p, p >= 0 && p < total
	}
	return current, false
}

// suggest ближайшая известная команда по расстоянию Левенштейна, если она достаточно близка
// и не совпадает с самой репликой.
func suggest(t string) string {
	best, bestDist := "", -1
	for _, k := range KnownCommands {
		d := levenshtein.ComputeDistance(t, k)
		if bestDist < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	if bestDist == 0 || bestDist > max(2, len(best)/3) {
		return ""
	}
	return best
}

func containsAny(t string, phrases []string) bool {
	for _, p := range phrases {
		if hasPhrase(t, p) {
			return true
		}
	}
	return false
}

// hasPhrase совпадение по границам слов: "next" не находится в "nextdoor".
func hasPhrase(t, phrase string) bool {
	return strings.Contains(" "+t+" ", " "+phrase+" ")
}

