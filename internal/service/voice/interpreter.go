package voice

import (
	"fmt"
	"strings"

	"HandsFreeReader/internal/service/navigation"
)

// Navigator операции состояния, которые нужны голосовым командам.
type Navigator interface {
	Snapshot() navigation.Snapshot
	Move(resolve func(current, total int) int) navigation.Move
	StepZoom(delta int) int
	RequestZoom(target int) int
	ResetZoom() int
}

// Outcome что сделала реплика. Reply: короткий ответ пользователю (лог и озвучка).
type Outcome struct {
	Command Command
	Page    int // текущая страница с единицы после применения
	Total   int
	Zoom    int
	Changed bool // состояние документа изменилось
	Reply   string
}

// Interpreter применяет реплики к состоянию. Хранит последнюю цель для "repeat"
// и текст последней команды, поэтому создаётся на каждый запуск голосового
// контроллера. Не потокобезопасен.
type Interpreter struct {
	nav      Navigator
	zoomStep int

	lastTarget int
	hasLast    bool
	lastText   string
}

func NewInterpreter(nav Navigator, zoomStep int) *Interpreter {
	if zoomStep <= 0 {
		zoomStep = 25
	}
	return &Interpreter{nav: nav, zoomStep: zoomStep}
}

// LastTarget последняя успешно применённая цель навигации (с нуля).
func (in *Interpreter) LastTarget() (int, bool) { return in.lastTarget, in.hasLast }

// LastCommand нормализованный текст последней непустой реплики, включая нераспознанные.
func (in *Interpreter) LastCommand() string { return in.lastText }

// Apply нормализует, разбирает и применяет одну реплику.
func (in *Interpreter) Apply(text string) Outcome {
	cmd := Parse(Normalize(text), in.hasLast)
	out := Outcome{Command: cmd}
	if cmd.Kind != KindSilence {
		in.lastText = cmd.Text
	}

	switch cmd.Kind {
	case KindSilence:
	case KindQuit:
		out.Reply = "Voice control stopped."
	case KindHelp:
		out.Reply = HelpText()
	case KindStatus:
		s := in.nav.Snapshot()
		out.Reply = fmt.Sprintf("You are on page %d of %d, zoom %d%%.", s.Page+1, s.Total, s.Zoom)
	case KindZoomStep:
		in.zoom(&out, func() int { return in.nav.StepZoom(cmd.ZoomSign * in.zoomStep) })
	case KindZoomSet:
		in.zoom(&out, func() int { return in.nav.RequestZoom(cmd.N) })
	case KindZoomReset:
		in.zoom(&out, in.nav.ResetZoom)
	case KindZoomInvalid:
		out.Reply = fmt.Sprintf("Zoom must be between %d%% and %d%%.", navigation.MinZoom, navigation.MaxZoom)
	case KindZoomUnknown:
		out.Reply = "Unknown zoom command. Try zoom in, zoom out or zoom 150."
	case KindRepeat:
		target := in.lastTarget
		in.navigate(&out, func(int, int) (int, bool) { return target, true })
	case KindNavigate:
		in.navigate(&out, cmd.Resolve)
	case KindRejected:
		out.Reply = "Could not find a page number in the command."
	case KindUnknown:
		out.Reply = "Unknown command. Say help for options."
		if cmd.Suggestion != "" {
			out.Reply = fmt.Sprintf("Unknown command. Did you mean %q?", cmd.Suggestion)
		}
	}

	if out.Total == 0 {
		s := in.nav.Snapshot()
		out.Page, out.Total = s.Page+1, s.Total
		if out.Zoom == 0 {
			out.Zoom = s.Zoom
		}
	}
	return out
}

func (in *Interpreter) zoom(out *Outcome, apply func() int) {
	before := in.nav.Snapshot().Zoom
	out.Zoom = apply()
	out.Changed = out.Zoom != before
	out.Reply = fmt.Sprintf("Zoom %d%%.", out.Zoom)
}

// navigate разрешает цель и фиксирует её одной операцией состояния.
// Цель, равная текущей странице, не ошибка, а пустой ход.
func (in *Interpreter) navigate(out *Outcome, resolve func(current, total int) (int, bool)) {
	inRange := true
	m := in.nav.Move(func(current, total int) int {
		t, ok := resolve(current, total)
		if !ok {
			inRange = false
			return -1
		}
		return t
	})
	s := in.nav.Snapshot()
	out.Page, out.Total, out.Zoom = s.Page+1, s.Total, s.Zoom

	switch {
	case !inRange || !m.OK:
		if s.Total == 0 {
			out.Reply = "No document is loaded."
			return
		}
		out.Reply = fmt.Sprintf("Page number out of range, the document has %d pages.", s.Total)
	case !m.Changed:
		out.Reply = fmt.Sprintf("Already on page %d.", m.From+1)
	default:
		in.lastTarget, in.hasLast = m.To, true
		out.Changed = true
		out.Reply = fmt.Sprintf("Page %d of %d.", m.To+1, s.Total)
	}
}

// HelpText список поддерживаемых фраз.
func HelpText() string {
	return "Say: " + strings.Join(KnownCommands, ", ") + "."
}
