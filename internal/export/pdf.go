/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"gostoryboard/internal/storyboard"
)

// PDFOptions controls the timeline report.
type PDFOptions struct {
	Title string
	// MaxCommands caps the rows listed per object; the remainder is summarized. 0 means 50.
	MaxCommands int
}

// Column widths in mm for: type, easing, start, end, start value, end value.
var pdfColumns = []float64{14, 30, 24, 24, 44, 44}

// WriteTimelinePDF writes a report with one section per non-empty layer and
// one table per object listing its commands.
func WriteTimelinePDF(outPath string, sb *storyboard.Storyboard, opt PDFOptions) error {
	if sb == nil {
		return storyboard.ErrNoStoryboard
	}
	maxRows := opt.MaxCommands
	if maxRows <= 0 {
		maxRows = 50
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(opt.Title, true)
	pdf.SetAuthor("gostoryboard", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, opt.Title, "", 1, "L", false, 0, "")
	st := sb.Stats()
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d objects (%d animations), %d commands, %s to %s ms",
		st.Objects, st.Animations, st.Commands, num(st.StartTime), num(st.EndTime)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, l := range storyboard.Layers() {
		objs := sb.Layer(l)
		if len(objs) == 0 {
			continue
		}
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetFillColor(220, 220, 235)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s (%d)", l, len(objs)), "", 1, "L", true, 0, "")
		for i, o := range objs {
			writeObject(pdf, i, o, maxRows)
		}
		pdf.Ln(3)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeObject(pdf *gofpdf.Fpdf, idx int, o storyboard.Object, maxRows int) {
	pdf.SetFont("Helvetica", "B", 9)
	head := fmt.Sprintf("#%d %s %q origin=%s at (%s, %s)", idx+1, o.Type, o.Path, o.Origin, num(float64(o.Position.X)), num(float64(o.Position.Y)))
	if o.Frames != nil {
		head += fmt.Sprintf(" frames=%s delay=%s loops=%t", num(float64(o.Frames.Count)), num(float64(o.Frames.Delay)), o.Frames.Loops)
	}
	pdf.CellFormat(0, 6, pdf.UnicodeTranslatorFromDescriptor("")(head), "", 1, "L", false, 0, "")

	if len(o.Commands) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "", 8)
	for i, h := range []string{"Type", "Easing", "Start", "End", "From", "To"} {
		pdf.CellFormat(pdfColumns[i], 5, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	for i, c := range o.Commands {
		if i == maxRows {
			pdf.CellFormat(0, 5, fmt.Sprintf("... %d more", len(o.Commands)-maxRows), "", 1, "L", false, 0, "")
			break
		}
		cells := []string{string(c.Type), c.Easing.String(), num(c.StartTime), num(c.EndTime), valueText(c.StartValue), valueText(c.EndValue)}
		for j, s := range cells {
			pdf.CellFormat(pdfColumns[j], 4.5, s, "", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

func num(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func valueText(v storyboard.Value) string {
	switch x := v.(type) {
	case storyboard.Scalar:
		return num(float64(x))
	case storyboard.Coord:
		return num(float64(x.X)) + ", " + num(float64(x.Y))
	case storyboard.Color:
		return num(float64(x.R)) + ", " + num(float64(x.G)) + ", " + num(float64(x.B))
	case storyboard.Parameter:
		return string(x)
	default:
		return ""
	}
}
