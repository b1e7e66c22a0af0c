package ocr

import (
	"strconv"
	"strings"
)

// tesseract TSV levels
const (
	tsvLevelLine = 4
	tsvLevelWord = 5
)

type lineKey struct{ page, block, par, line int }

// ParseTSV turns `tesseract ... tsv` output into words, lines and plain text.
// Columns: level page_num block_num par_num line_num word_num left top width height conf text
func ParseTSV(out string) (text string, words, lines []Unit) {
	type lineAcc struct {
		key   lineKey
		box   BBox
		words []Unit
	}
	var order []*lineAcc
	byKey := make(map[lineKey]*lineAcc)

	get := func(k lineKey) *lineAcc {
		if acc, ok := byKey[k]; ok {
			return acc
		}
		acc := &lineAcc{key: k}
		byKey[k] = acc
		order = append(order, acc)
		return acc
	}

	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		n := make([]int, 10)
		ok := true
		for j := 0; j < 10; j++ {
			v, err := strconv.Atoi(cols[j])
			if err != nil {
				ok = false
				break
			}
			n[j] = v
		}
		if !ok {
			continue
		}
		level := n[0]
		key := lineKey{page: n[1], block: n[2], par: n[3], line: n[4]}
		box := BBox{X0: n[6], Y0: n[7], X1: n[6] + n[8], Y1: n[7] + n[9]}

		switch level {
		case tsvLevelLine:
			get(key).box = box
		case tsvLevelWord:
			txt := strings.TrimSpace(strings.Join(cols[11:], "\t"))
			if txt == "" {
				continue
			}
			conf, err := strconv.ParseFloat(cols[10], 64)
			if err != nil || conf < 0 {
				conf = 0
			}
			w := Unit{Text: txt, Confidence: Round2(conf), BBox: box}
			words = append(words, w)
			acc := get(key)
			acc.words = append(acc.words, w)
			if acc.box == (BBox{}) {
				acc.box = box
			} else {
				acc.box = union(acc.box, box)
			}
		}
	}

	var b strings.Builder
	var prev *lineAcc
	for _, acc := range order {
		if len(acc.words) == 0 {
			continue
		}
		parts := make([]string, len(acc.words))
		for i, w := range acc.words {
			parts[i] = w.Text
		}
		lt := strings.Join(parts, " ")
		lines = append(lines, Unit{Text: lt, Confidence: Round2(MeanConfidence(acc.words)), BBox: acc.box})

		if prev != nil {
			if prev.key.page != acc.key.page || prev.key.block != acc.key.block || prev.key.par != acc.key.par {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(lt)
		prev = acc
	}
	return b.String(), words, lines
}
