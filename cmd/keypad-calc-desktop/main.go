// Command keypad-calc-desktop is a desktop window with the calculator keypad.
package main

import (
	"flag"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/unit"

	"github.com/lemonberrylabs/keypad-calc/pkg/config"
)

var (
	designWidth  = unit.Dp(300)
	designHeight = unit.Dp(460)
)

func main() {
	configPath := flag.String("config", os.Getenv("KEYPAD_CALC_CONFIG"), "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	go func() {
		w := new(app.Window)
		w.Option(
			app.Title("Keypad Calc"),
			app.Size(designWidth, designHeight),
			app.MinSize(designWidth, designHeight),
		)
		if err := loop(w, newUI(cfg.Editor(), cfg.Formatter())); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

// loop is the main loop of the app.
func loop(w *app.Window, ui *calcUI) error {
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			paint.Fill(gtx.Ops, backgroundColor)
			ui.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}
