// Package tui is the terminal front end: a 5x4 tile grid driven from the
// keyboard, with cues played through the local speaker.
package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"mine-game-backend/internal/game"
)

const (
	columns   = 5
	rows      = game.TotalTiles / columns
	gridLeft  = 2
	gridTop   = 3
	cellWidth = 4
)

// Muter is the feedback side the terminal controls directly.
type Muter interface {
	ToggleMute() bool
	IsMuted() bool
}

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleHidden  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleSafe    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleMine    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHelp    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDialog  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)
)

type App struct {
	screen  tcell.Screen
	session *game.Session
	muter   Muter
	cursor  int
}

func New(screen tcell.Screen, session *game.Session, muter Muter) *App {
	return &App{
		screen:  screen,
		session: session,
		muter:   muter,
	}
}

// Run draws and handles input until the player quits or the screen is
// finalized.
func (a *App) Run() {
	a.draw()
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		if !a.handleEvent(ev) {
			return
		}
		a.draw()
	}
}

func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

// handleKey applies one key press and reports whether to keep running.
func (a *App) handleKey(key tcell.Key, r rune) bool {
	if key == tcell.KeyEscape || key == tcell.KeyCtrlC || (key == tcell.KeyRune && r == 'q') {
		return false
	}

	if a.session.DialogVisible() {
		if key == tcell.KeyRune && r == 'n' {
			a.session.Reset()
		} else {
			a.session.DismissDialog()
		}
		return true
	}

	switch key {
	case tcell.KeyLeft:
		a.move(-1, 0)
	case tcell.KeyRight:
		a.move(1, 0)
	case tcell.KeyUp:
		a.move(0, -1)
	case tcell.KeyDown:
		a.move(0, 1)
	case tcell.KeyEnter:
		a.reveal()
	case tcell.KeyRune:
		switch r {
		case 'h':
			a.move(-1, 0)
		case 'l':
			a.move(1, 0)
		case 'k':
			a.move(0, -1)
		case 'j':
			a.move(0, 1)
		case ' ':
			a.reveal()
		case '1', '2', '3':
			// MineCounts holds exactly the three choices
			_ = a.session.SetMineCount(game.MineCounts[r-'1'])
		case 'n':
			a.session.Reset()
		case 'm':
			a.muter.ToggleMute()
		}
	}
	return true
}

func (a *App) move(dx, dy int) {
	x := a.cursor%columns + dx
	y := a.cursor/columns + dy
	if x < 0 || x >= columns || y < 0 || y >= rows {
		return
	}
	a.cursor = y*columns + x
}

func (a *App) reveal() {
	// cursor is always on the board
	_, _ = a.session.Reveal(a.cursor)
}

func (a *App) draw() {
	a.screen.Clear()

	title := fmt.Sprintf("Mine Game  |  mines: %d", a.session.MineCount())
	if a.muter.IsMuted() {
		title += "  |  muted"
	}
	a.text(gridLeft, 1, styleTitle, title)

	board := a.session.Board()
	for i, tile := range board {
		x := gridLeft + (i%columns)*cellWidth
		y := gridTop + (i/columns)*2
		glyph, style := tileGlyph(tile)
		if i == a.cursor && !a.session.GameOver() {
			style = style.Reverse(true)
		}
		a.text(x, y, style, "["+string(glyph)+"]")
	}

	statusY := gridTop + rows*2
	if a.session.GameOver() {
		a.text(gridLeft, statusY, styleMine, "Round over")
	} else {
		a.text(gridLeft, statusY, styleDefault, fmt.Sprintf("%d safe tiles left", a.session.SafeRemaining()))
	}
	a.text(gridLeft, statusY+1, styleHelp, "arrows/hjkl move  space reveal  1/2/3 mines  n new  m mute  q quit")

	if a.session.DialogVisible() {
		a.drawDialog()
	}

	a.screen.Show()
}

func tileGlyph(tile game.TileState) (rune, tcell.Style) {
	switch tile {
	case game.TileRevealedSafe:
		return 'o', styleSafe
	case game.TileRevealedMine:
		return '*', styleMine
	default:
		return ' ', styleHidden
	}
}

var dialogLines = []string{
	"",
	"  Game Over!",
	"  You hit a mine. Better luck next time!",
	"",
	"  n: play again   any key: close",
	"",
}

func (a *App) drawDialog() {
	width := 0
	for _, line := range dialogLines {
		width = max(width, len(line)+2)
	}
	x0 := gridLeft + 2
	y0 := gridTop + 1
	for dy, line := range dialogLines {
		for dx := 0; dx < width; dx++ {
			a.screen.SetContent(x0+dx, y0+dy, ' ', nil, styleDialog)
		}
		a.text(x0, y0+dy, styleDialog, line)
	}
}

func (a *App) text(x, y int, style tcell.Style, s string) {
	for i, r := range []rune(s) {
		a.screen.SetContent(x+i, y, r, nil, style)
	}
}
