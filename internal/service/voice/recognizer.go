package voice

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// Recognizer источник реплик. Listen блокируется до одной реплики;
// пустая строка: тишина или неразборчивая речь, это не ошибка.
type Recognizer interface {
	Open(ctx context.Context) error
	Listen(ctx context.Context) (string, error)
	Close() error
}

var (
	_ Recognizer = (*LineReader)(nil)
	_ Recognizer = (*Queue)(nil)
)

// Короткие команды клавиатурного режима.
var lineAliases = map[string]string{
	"n": "next",
	"p": "previous",
	"f": "first",
	"l": "last",
	"h": "help",
	"q": "quit",
}

// LineReader читает команды построчно (stdin). Чтение идёт в одной долгоживущей
// горутине: блокирующий Read нельзя прервать, поэтому между запусками она не пересоздаётся.
type LineReader struct {
	r     io.Reader
	once  sync.Once
	lines chan string
	err   error // ошибка чтения, выставляется до закрытия lines
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r, lines: make(chan string)}
}

func (l *LineReader) Open(_ context.Context) error {
	l.once.Do(func() { go l.read() })
	return nil
}

func (l *LineReader) read() {
	sc := bufio.NewScanner(l.r)
	for sc.Scan() {
		l.lines <- sc.Text()
	}
	l.err = sc.Err()
	close(l.lines)
}

// Listen возвращает io.EOF, когда ввод закончился.
func (l *LineReader) Listen(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", context.Cause(ctx)
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", l.err
			}
			return "", io.EOF
		}
		line = strings.TrimSpace(line)
		if alias, ok := lineAliases[strings.ToLower(line)]; ok {
			return alias, nil
		}
		return line, nil
	}
}

func (l *LineReader) Close() error { return nil }

// Queue ограниченная очередь реплик, которые приходят извне (HTTP, расшифровки Whisper).
// При переполнении вытесняется самая старая.
type Queue struct {
	cap     int
	timeout time.Duration

	mu      sync.Mutex
	items   []string
	dropped uint64
	notify  chan struct{}
}

// NewQueue timeout: сколько Listen ждёт реплику, прежде чем вернуть тишину.
func NewQueue(capacity int, timeout time.Duration) *Queue {
	if capacity <= 0 {
		capacity = 10
	}
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Queue{cap: capacity, timeout: timeout, items: make([]string, 0, capacity), notify: make(chan struct{}, 1)}
}

// Push добавляет реплику; пустые игнорируются.
func (q *Queue) Push(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	q.mu.Lock()
	if len(q.items) == q.cap {
		copy(q.items, q.items[1:])
		q.items = q.items[:q.cap-1]
		q.dropped++
	}
	q.items = append(q.items, text)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Open выбрасывает реплики, накопленные до запуска: они адресовались прошлому сеансу.
func (q *Queue) Open(_ context.Context) error {
	q.mu.Lock()
	q.items = q.items[:0]
	q.mu.Unlock()
	select {
	case <-q.notify:
	default:
	}
	return nil
}

func (q *Queue) Listen(ctx context.Context) (string, error) {
	timer := time.NewTimer(q.timeout)
	defer timer.Stop()
	for {
		if text, ok := q.pop(); ok {
			return text, nil
		}
		select {
		case <-ctx.Done():
			return "", context.Cause(ctx)
		case <-timer.C:
			return "", nil
		case <-q.notify:
		}
	}
}

func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	text := q.items[0]
	q.items = q.items[1:]
	return text, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue) Close() error { return nil }
