package main

import (
	"image"
	"image/color"
	"io"
	"strings"

	"gioui.org/font/gofont"
	"gioui.org/io/clipboard"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/lemonberrylabs/keypad-calc/cmd/keypad-calc-desktop/internal/keys"
	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
)

var (
	digitColor       = color.NRGBA{R: 51, G: 51, B: 51, A: 255}
	functionColor    = color.NRGBA{R: 165, G: 165, B: 165, A: 255}
	operatorColor    = color.NRGBA{R: 255, G: 159, B: 10, A: 255}
	backgroundColor  = color.NRGBA{A: 255}
	resultColor      = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	errorColor       = color.NRGBA{R: 255, G: 107, B: 107, A: 255}
	bufferColor      = color.NRGBA{R: 139, G: 148, B: 158, A: 255}
	resultBackground = color.NRGBA{R: 20, G: 20, B: 20, A: 255}

	controlInset = unit.Dp(6)
	cornerRadius = unit.Dp(28)
)

// calcUI is the user interface of the calculator. All edits go through
// editor.Apply; the UI only keeps the resulting state.
type calcUI struct {
	editor    editor.Editor
	formatter editor.Formatter
	state     editor.State

	theme   *material.Theme
	buttons [5][4]*button
}

// button is a clickable keypad button.
type button struct {
	label   string
	event   editor.Event
	color   color.NRGBA
	textCol color.NRGBA
	clicker widget.Clickable
}

func newUI(ed editor.Editor, f editor.Formatter) *calcUI {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))

	ui := &calcUI{editor: ed, formatter: f, theme: th}
	for r, row := range editor.Keypad {
		for c, label := range row {
			ev, err := editor.ParseKey(label)
			if err != nil {
				continue
			}
			b := &button{label: label, event: ev, color: digitColor, textCol: resultColor}
			switch ev.Kind {
			case editor.EventOperator, editor.EventEquals:
				b.color = operatorColor
			case editor.EventDigit, editor.EventDecimalPoint:
			default:
				b.color, b.textCol = functionColor, backgroundColor
			}
			ui.buttons[r][c] = b
		}
	}
	return ui
}

func (ui *calcUI) apply(ev editor.Event) {
	ui.state = ui.editor.Apply(ui.state, ev)
}

func (ui *calcUI) display() string {
	return ui.formatter.Display(ui.state)
}

// Layout draws the UI.
func (ui *calcUI) Layout(gtx layout.Context) layout.Dimensions {
	ui.layoutInput(gtx)

	inset := layout.UniformInset(controlInset)
	return inset.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical, Spacing: layout.SpaceStart}.Layout(gtx,
			layout.Flexed(25, func(gtx layout.Context) layout.Dimensions {
				return inset.Layout(gtx, ui.layoutResult)
			}),
			layout.Flexed(75, func(gtx layout.Context) layout.Dimensions {
				return inset.Layout(gtx, ui.layoutButtons)
			}),
		)
	})
}

func (ui *calcUI) layoutResult(gtx layout.Context) layout.Dimensions {
	rect := image.Rectangle{Max: gtx.Constraints.Max}
	paint.FillShape(gtx.Ops, resultBackground, clip.UniformRRect(rect, gtx.Dp(controlInset)).Op(gtx.Ops))

	inset := layout.UniformInset(controlInset)
	return inset.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Flexed(25, func(gtx layout.Context) layout.Dimensions {
				l := material.Label(ui.theme, textSize(gtx, 1.2), ui.state.Buffer.String())
				l.Color = bufferColor
				l.Alignment = text.End
				l.MaxLines = 1
				return shrinkToFit(gtx, l.Layout)
			}),
			layout.Flexed(75, func(gtx layout.Context) layout.Dimensions {
				l := material.Label(ui.theme, textSize(gtx, 1.1), ui.display())
				l.Color = resultColor
				if ui.state.Failed() {
					l.Color = errorColor
				}
				l.Alignment = text.End
				l.MaxLines = 1
				return shrinkToFit(gtx, l.Layout)
			}),
		)
	})
}

func (ui *calcUI) layoutButtons(gtx layout.Context) layout.Dimensions {
	g := grid{
		rows:    len(ui.buttons),
		cols:    len(ui.buttons[0]),
		spacing: controlInset,
	}
	return g.layout(gtx, func(row, col int, gtx layout.Context) layout.Dimensions {
		if b := ui.buttons[row][col]; b != nil {
			return ui.layoutButton(gtx, b)
		}
		return layout.Dimensions{}
	})
}

func (ui *calcUI) layoutButton(gtx layout.Context, b *button) layout.Dimensions {
	for b.clicker.Clicked(gtx) {
		ui.apply(b.event)
	}

	style := material.Button(ui.theme, &b.clicker, b.label)
	style.Background = b.color
	style.Color = b.textCol
	style.Inset = layout.Inset{}
	style.TextSize = textSize(gtx, 2.2)
	style.CornerRadius = cornerRadius
	return style.Layout(gtx)
}

// layoutInput handles keyboard input for the whole window.
func (ui *calcUI) layoutInput(gtx layout.Context) {
	event.Op(gtx.Ops, ui)
	for {
		ev, ok := gtx.Event(keys.Filters()...)
		if !ok {
			break
		}
		ke, ok := ev.(key.Event)
		if !ok || ke.State != key.Press {
			continue
		}
		if keys.IsCopy(ke) {
			gtx.Execute(clipboard.WriteCmd{
				Type: "application/text",
				Data: io.NopCloser(strings.NewReader(ui.display())),
			})
			continue
		}
		if calcEv, ok := keys.Event(ke); ok {
			ui.apply(calcEv)
		}
	}
}

// textSize scales text to the available height.
func textSize(gtx layout.Context, divisor float32) unit.Sp {
	px := float32(gtx.Constraints.Max.Y) / divisor
	return unit.Sp(px / gtx.Metric.PxPerSp)
}
