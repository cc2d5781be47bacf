package main

import (
	"log"
	"os"

	"github.com/tdewolff/argp"
)

var (
	Error   *log.Logger
	Warning *log.Logger
)

func main() {
	Error = log.New(os.Stderr, "ERROR: ", 0)
	Warning = log.New(os.Stderr, "WARNING: ", 0)

	cmd := argp.New("Perforate TrueType fonts to use less ink - Taco de Wolff")
	cmd.AddCmd(&Perforate{
		Percent:       20.0,
		PointSize:     1,
		Mode:          "point",
		Render:        "original",
		Suffix:        " Eco",
		ShapeType:     "circle",
		ShapeSize:     "fixed",
		LineStyle:     "straight",
		LinePlacement: "parallel",
	}, "perforate", "Perforate the glyphs of a font")
	cmd.AddCmd(&Subset{}, "subset", "Subset fonts")
	cmd.AddCmd(&Info{}, "info", "Get font info")
	cmd.AddCmd(&Draw{Size: 48.0, Columns: 64}, "draw", "Draw glyphs in terminal or output to image")
	cmd.Parse()
}
