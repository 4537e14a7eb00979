package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HandsFreeReader/internal/config"
	"HandsFreeReader/internal/service/gaze"
	"HandsFreeReader/internal/service/hand"
	"HandsFreeReader/internal/service/landmark"
	"HandsFreeReader/internal/service/navigation"
)

// Прогоняет записанные кадры (JSONL) через классификатор взгляда или жестов и
// печатает зафиксированные действия. Время кадров виртуальное: i-й кадр идёт
// через i/fps от начала, поэтому запись без пауз даёт те же действия, что и вживую.
func main() {
	file := flag.String("file", "", "JSONL запись кадров (обязательно)")
	mode := flag.String("mode", "hand", "классификатор: gaze|hand")
	pages := flag.Int("pages", 10, "число страниц документа")
	fps := flag.Int("fps", 30, "частота кадров записи для виртуальных часов")
	realtime := flag.Bool("realtime", false, "выдерживать паузы между кадрами")
	verbose := flag.Bool("v", false, "печатать сырые решения по каждому кадру")
	flag.Parse()

	if *file == "" || *fps <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := navigation.New(nil)
	state.SetDocument(*pages)

	pace := 0
	if *realtime {
		pace = *fps
	}
	src := landmark.NewReplay(*file, pace)
	if err := src.Open(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer src.Close()

	cfg := config.Defaults()
	start := time.Now()
	var step func(f landmark.Frame, at time.Time)
	switch *mode {
	case "gaze":
		cls := gaze.New(cfg.Gaze)
		step = func(f landmark.Frame, at time.Time) {
			r := cls.Process(f, at, state)
			if *verbose {
				fmt.Printf("%8s raw=%-6s stable=%s\n", clock(start, at), r.Raw, r.Stable)
			}
			if r.Fire != "" {
				fmt.Printf("%8s gaze %-6s page %d -> %d\n", clock(start, at), r.Fire, r.Move.From+1, state.Page()+1)
			}
		}
	case "hand":
		cls := hand.New(cfg.Hand)
		step = func(f landmark.Frame, at time.Time) {
			r := cls.Process(f, at, state)
			if *verbose || r.ModeChanged {
				fmt.Printf("%8s mode=%s thumb_index=%.1f index_middle=%.1f\n", clock(start, at), r.Mode, r.ThumbIndex, r.IndexMiddle)
			}
			switch r.Action {
			case hand.ActionNone:
			case hand.ActionNextPage, hand.ActionPrevPage:
				fmt.Printf("%8s hand %-10s page %d -> %d\n", clock(start, at), r.Action, r.Move.From+1, state.Page()+1)
			default:
				fmt.Printf("%8s hand %-10s zoom %d%%\n", clock(start, at), r.Action, r.Zoom)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "неизвестный классификатор %q\n", *mode)
		os.Exit(2)
	}

	interval := time.Second / time.Duration(*fps)
	n := 0
	for ctx.Err() == nil {
		f, ok, err := src.Next(ctx)
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !ok {
			continue
		}
		step(f, start.Add(time.Duration(n)*interval))
		n++
	}
	snap := state.Snapshot()
	fmt.Printf("frames=%d page=%d/%d zoom=%d%%\n", n, snap.Page+1, snap.Total, snap.Zoom)
}

func clock(start, at time.Time) string {
	return at.Sub(start).Truncate(time.Millisecond).String()
}
