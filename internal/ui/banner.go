package ui

import (
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/utils"
)

const bannerText = `
     ██╗ ██████╗ ██████╗ ██╗     ██╗   ██╗██╗   ██╗
     ██║██╔═══██╗██╔══██╗██║     ██║   ██║██║   ██║
     ██║██║   ██║██████╔╝██║     ██║   ██║██║   ██║
██   ██║██║   ██║██╔══██╗██║     ██║   ██║██║   ██║
╚█████╔╝╚██████╔╝██████╔╝███████╗╚██████╔╝╚██████╔╝
 ╚════╝  ╚═════╝ ╚═════╝ ╚══════╝ ╚═════╝  ╚═════╝
 find work, find talent
`

// ColorizeText fades text between two random colors
func ColorizeText(text string) string {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))

	startColor := pterm.NewRGB(uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)))
	firstPoint := pterm.NewRGB(uint8(random.Intn(256)), uint8(random.Intn(256)), uint8(random.Intn(256)))

	chars := strings.Split(text, "")
	half := len(chars) / 2
	if half == 0 {
		half = 1
	}

	var b strings.Builder
	for i, c := range chars {
		b.WriteString(startColor.Fade(0, float32(len(chars)), float32(i%half), firstPoint).Sprint(c))
	}
	return b.String()
}

// PrintBanner writes the application banner unless silenced
func PrintBanner(w io.Writer, silence bool) {
	if !silence {
		fmt.Fprintln(w, ColorizeText(bannerText))
	}
}

// ColorizeSalary colors a salary by its lakhs-per-annum value
func ColorizeSalary(salary models.Salary) string {
	lakhs, ok := salary.Lakhs()
	if !ok {
		return pterm.Gray("Not disclosed")
	}

	return colorLike(salary, utils.FormatLakhs(lakhs))
}
