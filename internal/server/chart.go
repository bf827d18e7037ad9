package server

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"cycleview/internal/analyzer"
)

const (
	chartWidth   = 800
	chartHeight  = 400
	chartPadding = 40
)

// temperatureChart renders a temperature distribution as an SVG bar chart
// of minutes per range.
func temperatureChart(title string, bins []analyzer.TemperatureBin) []byte {
	var buf bytes.Buffer
	svgHeader(&buf, title)

	if len(bins) == 0 {
		buf.WriteString(fmt.Sprintf("<text x=\"%d\" y=\"%d\" text-anchor=\"middle\" fill=\"#94a3b8\">No Data</text>\n",
			chartWidth/2, chartHeight/2))
		buf.WriteString("</svg>")
		return buf.Bytes()
	}

	maxMinutes := 0.0
	for _, b := range bins {
		maxMinutes = math.Max(maxMinutes, b.Minutes)
	}
	if maxMinutes == 0 {
		maxMinutes = 1
	}

	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)
	slot := plotW / float64(len(bins))
	barW := slot * 0.8

	// Bars
	buf.WriteString("<g fill=\"#3b82f6\">\n")
	for i, b := range bins {
		h := b.Minutes / maxMinutes * plotH
		x := float64(chartPadding) + float64(i)*slot + (slot-barW)/2
		y := float64(chartHeight-chartPadding) - h
		buf.WriteString(fmt.Sprintf("<rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" rx=\"4\"><title>%s: %g min</title></rect>\n",
			x, y, barW, h, html.EscapeString(b.Range), b.Minutes))
	}
	buf.WriteString("</g>\n")

	// Range labels
	buf.WriteString("<g font-size=\"12\" text-anchor=\"middle\" fill=\"#475569\">\n")
	for i, b := range bins {
		x := float64(chartPadding) + float64(i)*slot + slot/2
		buf.WriteString(fmt.Sprintf("<text x=\"%.1f\" y=\"%d\">%s</text>\n", x, chartHeight-chartPadding+16, html.EscapeString(b.Range)))
	}
	buf.WriteString("</g>\n")

	buf.WriteString(fmt.Sprintf("<text x=\"12\" y=\"%d\" font-size=\"12\" fill=\"#475569\" transform=\"rotate(-90 12 %d)\">Minutes</text>\n",
		chartHeight/2, chartHeight/2))
	buf.WriteString("</svg>")
	return buf.Bytes()
}

// sohChart renders the SOH trend of a filtered list as an SVG polyline.
// Cycles without an SOH value break the line.
func sohChart(title string, points []analyzer.TrendPoint) []byte {
	var buf bytes.Buffer
	svgHeader(&buf, title)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if p.SOH != nil {
			lo = math.Min(lo, *p.SOH)
			hi = math.Max(hi, *p.SOH)
		}
	}
	if math.IsInf(lo, 1) {
		buf.WriteString(fmt.Sprintf("<text x=\"%d\" y=\"%d\" text-anchor=\"middle\" fill=\"#94a3b8\">No Data</text>\n",
			chartWidth/2, chartHeight/2))
		buf.WriteString("</svg>")
		return buf.Bytes()
	}
	lo, hi = math.Floor(lo-1), math.Ceil(hi+1)

	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)
	step := 0.0
	if len(points) > 1 {
		step = plotW / float64(len(points)-1)
	}
	toY := func(v float64) float64 {
		return float64(chartHeight-chartPadding) - (v-lo)/(hi-lo)*plotH
	}

	// Horizontal grid lines at the bounds
	buf.WriteString("<g stroke=\"#ddd\" stroke-width=\"1\" font-size=\"12\" fill=\"#475569\">\n")
	for _, v := range []float64{lo, (lo + hi) / 2, hi} {
		y := toY(v)
		buf.WriteString(fmt.Sprintf("<line x1=\"%d\" y1=\"%.1f\" x2=\"%d\" y2=\"%.1f\"/>\n", chartPadding, y, chartWidth-chartPadding, y))
		buf.WriteString(fmt.Sprintf("<text x=\"4\" y=\"%.1f\" stroke=\"none\">%.1f</text>\n", y+4, v))
	}
	buf.WriteString("</g>\n")

	var segment []string
	flush := func() {
		if len(segment) > 1 {
			buf.WriteString("<polyline fill=\"none\" stroke=\"#10b981\" stroke-width=\"2\" points=\"")
			for i, pt := range segment {
				if i > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(pt)
			}
			buf.WriteString("\"/>\n")
		}
		segment = segment[:0]
	}

	buf.WriteString("<g fill=\"#10b981\">\n")
	for i, p := range points {
		if p.SOH == nil {
			flush()
			continue
		}
		x := float64(chartPadding) + float64(i)*step
		y := toY(*p.SOH)
		segment = append(segment, fmt.Sprintf("%.1f,%.1f", x, y))
		buf.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"3\"><title>#%d: %.2f%%</title></circle>\n", x, y, p.Cycle, *p.SOH))
	}
	buf.WriteString("</g>\n")
	flush()

	buf.WriteString("</svg>")
	return buf.Bytes()
}

func svgHeader(buf *bytes.Buffer, title string) {
	buf.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\">\n", chartWidth, chartHeight))
	buf.WriteString(fmt.Sprintf("<rect width=\"%d\" height=\"%d\" fill=\"white\"/>\n", chartWidth, chartHeight))
	buf.WriteString(fmt.Sprintf("<text x=\"%d\" y=\"24\" font-size=\"16\" font-weight=\"bold\" fill=\"#0f172a\">%s</text>\n",
		chartPadding, html.EscapeString(title)))
}
