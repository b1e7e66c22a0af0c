// Package ocr wraps the text-extraction engines: PDF text layers and image OCR.
package ocr

import "math"

// BBox is a pixel rectangle, top-left (x0,y0) to bottom-right (x1,y1).
type BBox struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Unit is one recognized word or line.
type Unit struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..100
	BBox       BBox    `json:"bbox"`
}

// Recognition is the output of an image OCR engine.
type Recognition struct {
	Text       string
	Confidence float64 // mean word confidence, 0..100
	Words      []Unit
	Lines      []Unit
	Method     string
	Language   string
	Warnings   []string
}

// PDFDocument is the output of a PDF text engine.
type PDFDocument struct {
	Text     string
	Pages    int
	Info     map[string]string
	Method   string
	Warnings []string
}

// Round2 rounds a confidence to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func union(a, b BBox) BBox {
	return BBox{
		X0: min(a.X0, b.X0),
		Y0: min(a.Y0, b.Y0),
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
	}
}

// MeanConfidence averages unit confidences.
func MeanConfidence(units []Unit) float64 {
	if len(units) == 0 {
		return 0
	}
	var sum float64
	for _, u := range units {
		sum += u.Confidence
	}
	return sum / float64(len(units))
}
