package main

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/fonteco"
	"github.com/tdewolff/prompt"
)

var extMimetype = map[string]string{
	".ttf":   "font/truetype",
	".woff2": "font/woff2",
}

func printASCII(img image.Image) {
	palette := []byte("$@B%8&WM#*oahkbdpqwmZO0QLCJUYXzcvunxrjft/\\|()1{}[]?-_+~<>i!lI;:,\"^`'. ")

	size := img.Bounds().Max
	for j := 0; j < size.Y; j++ {
		for i := 0; i < size.X; i++ {
			r, g, b, _ := img.At(i, j).RGBA()
			y, _, _ := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			idx := int(float64(y)/255.0*float64(len(palette)-1) + 0.5)
			fmt.Print(string(palette[idx]))
		}
		fmt.Print("\n")
	}
}

func formatBytes(size uint64) string {
	if size < 10 {
		return fmt.Sprintf("%d B", size)
	}

	units := []string{"B", "kB", "MB", "GB", "TB", "PB", "EB"}
	scale := int(math.Floor((math.Log10(float64(size)) + math.Log10(2.0)) / 3.0))
	value := float64(size) / math.Pow10(scale*3.0)
	format := "%.0f %s"
	if value < 10.0 {
		format = "%.1f %s"
	}
	return fmt.Sprintf(format, value, units[scale])
}

func readFont(filename string) (*fonteco.SFNT, []byte, error) {
	var err error
	var r *os.File
	if filename == "-" {
		r = os.Stdin
	} else if r, err = os.Open(filename); err != nil {
		return nil, nil, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		r.Close()
		return nil, nil, err
	} else if err := r.Close(); err != nil {
		return nil, nil, err
	}

	sfnt, err := fonteco.ParseSFNT(b)
	if err != nil {
		return nil, nil, err
	}
	return sfnt, b, nil
}

func writeFont(filename string, force bool, sfnt *fonteco.SFNT) (int, error) {
	var b []byte
	var err error
	mimetype := extMimetype[strings.ToLower(filepath.Ext(filename))]
	switch mimetype {
	case "font/woff2":
		if b, err = sfnt.WriteWOFF2(); err != nil {
			return 0, err
		}
	default:
		b = sfnt.Write()
	}

	var w io.WriteCloser
	if filename == "-" {
		w = os.Stdout
	} else {
		if _, err := os.Stat(filename); err == nil {
			if !force && !prompt.YesNo(fmt.Sprintf("%s already exists, overwrite?", filename), false) {
				return 0, fmt.Errorf("file already exists")
			}
		}
		if w, err = os.Create(filename); err != nil {
			return 0, err
		}
	}

	if _, err := w.Write(b); err != nil {
		w.Close()
		return 0, err
	} else if err := w.Close(); err != nil {
		return 0, err
	}
	return len(b), nil
}
