//go:build windows

package handy

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
)

const (
	modControl = 0x0002
	vkReturn   = 0x0D
)

// user32 функции, которых нет в lxn/win.
var (
	user32                    = syscall.NewLazyDLL("user32.dll")
	procAddClipboardListener  = user32.NewProc("AddClipboardFormatListener")
	procRemoveClipboardListen = user32.NewProc("RemoveClipboardFormatListener")
	procRegisterHotKey        = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey      = user32.NewProc("UnregisterHotKey")
)

// Оконная процедура одна на процесс: класс окна регистрируется один раз,
// а каждый запуск распознавателя получает своё окно. Сообщения находят
// свой hiddenWindow по hwnd.
var (
	wndProc     = sync.OnceValue(func() uintptr { return syscall.NewCallback(dispatch) })
	windowsMu   sync.Mutex
	openWindows = map[win.HWND]*hiddenWindow{}
)

// hiddenWindow скрытое окно одного запуска: подписано на буфер обмена и держит Ctrl+Enter.
type hiddenWindow struct {
	cfg       Config
	hwnd      win.HWND
	clipOut   chan<- Event
	hotkeyOut chan<- Event
}

func newWinListener(cfg Config) (winListener, error) {
	if err := procAddClipboardListener.Find(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &hiddenWindow{cfg: cfg}, nil
}

func (w *hiddenWindow) run(ctx context.Context, clipOut chan<- Event, hotkeyOut chan<- Event) error {
	// окно и его очередь сообщений принадлежат одному системному потоку
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w.clipOut, w.hotkeyOut = clipOut, hotkeyOut
	if err := w.create(); err != nil {
		return err
	}
	defer w.destroy()

	// WM_CLOSE по отмене ctx: DefWindowProc уничтожит окно, WM_DESTROY завершит цикл
	stop := context.AfterFunc(ctx, func() { win.PostMessage(w.hwnd, win.WM_CLOSE, 0, 0) })
	defer stop()

	msg := new(win.MSG)
	for {
		switch win.GetMessage(msg, 0, 0, 0) {
		case 0:
			return nil
		case -1:
			return errors.New("handy: GetMessage failed")
		}
		win.TranslateMessage(msg)
		win.DispatchMessage(msg)
	}
}

func (w *hiddenWindow) create() error {
	className := syscall.StringToUTF16Ptr(w.cfg.WindowClass)
	instance := win.GetModuleHandle(nil)

	var wc win.WNDCLASSEX
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	wc.LpfnWndProc = wndProc()
	wc.HInstance = instance
	wc.LpszClassName = className
	// 0: класс уже зарегистрирован прошлым запуском с той же процедурой
	_ = win.RegisterClassEx(&wc)

	w.hwnd = win.CreateWindowEx(0, className, className, 0, 0, 0, 0, 0, 0, 0, instance, nil)
	if w.hwnd == 0 {
		return fmt.Errorf("handy: CreateWindowEx %q failed", w.cfg.WindowClass)
	}
	windowsMu.Lock()
	openWindows[w.hwnd] = w
	windowsMu.Unlock()

	if !callBool(procAddClipboardListener, uintptr(w.hwnd)) {
		w.destroy()
		return errors.New("handy: AddClipboardFormatListener failed")
	}
	if !callBool(procRegisterHotKey, uintptr(w.hwnd), uintptr(w.cfg.HotkeyID), modControl, vkReturn) {
		w.destroy()
		return fmt.Errorf("handy: Ctrl+Enter is taken by another application (hotkey id %d)", w.cfg.HotkeyID)
	}
	return nil
}

// destroy безопасно вызывать повторно.
func (w *hiddenWindow) destroy() {
	if w.hwnd == 0 {
		return
	}
	callBool(procUnregisterHotKey, uintptr(w.hwnd), uintptr(w.cfg.HotkeyID))
	callBool(procRemoveClipboardListen, uintptr(w.hwnd))
	windowsMu.Lock()
	delete(openWindows, w.hwnd)
	windowsMu.Unlock()
	win.DestroyWindow(w.hwnd)
	w.hwnd = 0
}

func (w *hiddenWindow) handle(msg uint32) bool {
	switch msg {
	case win.WM_HOTKEY:
		offer(w.hotkeyOut, Event{Type: EventCtrlEnter, At: time.Now()})
	case win.WM_CLIPBOARDUPDATE:
		if txt, ok := readClipboardText(); ok {
			offer(w.clipOut, Event{Type: EventClipboardChanged, Text: txt, At: time.Now()})
		}
	case win.WM_DESTROY:
		win.PostQuitMessage(0)
	default:
		return false
	}
	return true
}

func dispatch(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	windowsMu.Lock()
	w := openWindows[hwnd]
	windowsMu.Unlock()
	if w != nil && w.handle(msg) {
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// offer не блокирует оконную процедуру: при занятом координаторе событие теряется.
func offer(ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}

func callBool(p *syscall.LazyProc, args ...uintptr) bool {
	if p.Find() != nil {
		return false
	}
	r, _, _ := p.Call(args...)
	return r != 0
}

// readClipboardText текст CF_UNICODETEXT; ok=false, если в буфере не текст.
func readClipboardText() (string, bool) {
	if !win.IsClipboardFormatAvailable(win.CF_UNICODETEXT) || !win.OpenClipboard(0) {
		return "", false
	}
	defer win.CloseClipboard()
	h := win.HGLOBAL(win.GetClipboardData(win.CF_UNICODETEXT))
	if h == 0 {
		return "", false
	}
	p := win.GlobalLock(h)
	if p == nil {
		return "", false
	}
	defer win.GlobalUnlock(h)
	// нуль-терминированная UTF-16 строка, не длиннее 1М символов
	u16 := unsafe.Slice((*uint16)(p), 1<<20)
	n := 0
	for n < len(u16) && u16[n] != 0 {
		n++
	}
	return syscall.UTF16ToString(u16[:n]), true
}
