package web

import (
	"fmt"
	"math"
	"strconv"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"github.com/JonMunkholm/nexus/internal/analyst"
)

// palette colors bars and pie slices in order.
var palette = []string{
	"#3e7bfa", "#f29d38", "#3ebd93", "#d64545", "#8a5cd6", "#e8c547", "#45a3c2", "#9aa5b1",
}

const (
	chartWidth  = 520
	labelWidth  = 150
	rowHeight   = 22
	pieRadius   = 90
	heatCell    = 44
	heatLabelsW = 120
)

// chartNode renders c as inline SVG, or nothing when c has no drawable shape.
func chartNode(c *analyst.Chart) gomponents.Node {
	if c == nil || len(c.Series) == 0 {
		return nil
	}
	var body gomponents.Node
	switch c.Kind {
	case analyst.ChartBar:
		body = barChart(c)
	case analyst.ChartPie:
		body = pieChart(c)
	case analyst.ChartHeatmap:
		body = heatmapChart(c)
	}
	if body == nil {
		return nil
	}
	return html.Figure(html.Class("chart"),
		body,
		gomponents.If(c.Title != "", html.FigCaption(html.Class("muted"), gomponents.Text(c.Title))),
	)
}

func svg(width, height int, children ...gomponents.Node) gomponents.Node {
	return gomponents.El("svg",
		gomponents.Attr("xmlns", "http://www.w3.org/2000/svg"),
		gomponents.Attr("viewBox", fmt.Sprintf("0 0 %d %d", width, height)),
		gomponents.Attr("width", strconv.Itoa(width)),
		gomponents.Attr("role", "img"),
		gomponents.Group(children),
	)
}

func svgText(x, y float64, anchor, text string) gomponents.Node {
	return gomponents.El("text",
		attrF("x", x), attrF("y", y),
		gomponents.Attr("text-anchor", anchor),
		gomponents.Attr("font-size", "12"),
		gomponents.Text(text),
	)
}

func rect(x, y, w, h float64, fill string, title string) gomponents.Node {
	return gomponents.El("rect",
		attrF("x", x), attrF("y", y), attrF("width", w), attrF("height", h),
		gomponents.Attr("fill", fill),
		gomponents.El("title", gomponents.Text(title)),
	)
}

func attrF(name string, v float64) gomponents.Node {
	return gomponents.Attr(name, strconv.FormatFloat(v, 'f', 2, 64))
}

// barChart draws horizontal bars from a zero baseline, so negative values
// extend left of it.
func barChart(c *analyst.Chart) gomponents.Node {
	values := c.Series[0].Values
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	plot := float64(chartWidth - labelWidth - 70)
	zero := labelWidth + (0-lo)/span*plot
	height := len(values)*rowHeight + 8

	nodes := make([]gomponents.Node, 0, 3*len(values)+1)
	for i, v := range values {
		y := float64(i*rowHeight + 4)
		w := math.Abs(v) / span * plot
		x := zero
		if v < 0 {
			x = zero - w
		}
		label := c.Labels[i]
		nodes = append(nodes,
			svgText(labelWidth-6, y+14, "end", truncate(label, 22)),
			rect(x, y+2, math.Max(w, 1), rowHeight-6, palette[0], label+": "+formatNumber(v)),
			svgText(math.Max(x+w, zero)+4, y+14, "start", formatNumber(v)),
		)
	}
	nodes = append(nodes, gomponents.El("line",
		attrF("x1", zero), attrF("x2", zero), attrF("y1", 0), attrF("y2", float64(height)),
		gomponents.Attr("stroke", "#9aa5b1"),
	))
	return svg(chartWidth, height, nodes...)
}

// pieChart draws slices clockwise from twelve o'clock with a legend.
func pieChart(c *analyst.Chart) gomponents.Node {
	values := c.Series[0].Values
	var total float64
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		return nil
	}

	cx, cy, r := float64(pieRadius+10), float64(pieRadius+10), float64(pieRadius)
	height := max(2*pieRadius+20, len(values)*rowHeight+10)
	nodes := make([]gomponents.Node, 0, 3*len(values))

	angle := -math.Pi / 2
	for i, v := range values {
		color := palette[i%len(palette)]
		share := v / total
		title := fmt.Sprintf("%s: %s (%.1f%%)", c.Labels[i], formatNumber(v), share*100)

		if share >= 0.9999 {
			nodes = append(nodes, gomponents.El("circle",
				attrF("cx", cx), attrF("cy", cy), attrF("r", r),
				gomponents.Attr("fill", color),
				gomponents.El("title", gomponents.Text(title)),
			))
		} else if share > 0 {
			end := angle + share*2*math.Pi
			large := 0
			if share > 0.5 {
				large = 1
			}
			d := fmt.Sprintf("M %.2f %.2f L %.2f %.2f A %.2f %.2f 0 %d 1 %.2f %.2f Z",
				cx, cy,
				cx+r*math.Cos(angle), cy+r*math.Sin(angle),
				r, r, large,
				cx+r*math.Cos(end), cy+r*math.Sin(end),
			)
			nodes = append(nodes, gomponents.El("path",
				gomponents.Attr("d", d),
				gomponents.Attr("fill", color),
				gomponents.El("title", gomponents.Text(title)),
			))
			angle = end
		}

		ly := float64(i*rowHeight + 10)
		lx := float64(2*pieRadius + 40)
		nodes = append(nodes,
			rect(lx, ly, 12, 12, color, title),
			svgText(lx+18, ly+11, "start", fmt.Sprintf("%s (%.1f%%)", truncate(c.Labels[i], 28), share*100)),
		)
	}
	return svg(chartWidth, height, nodes...)
}

// heatmapChart draws a square grid colored from blue (-1) through white to
// red (+1). Undefined cells are grey.
func heatmapChart(c *analyst.Chart) gomponents.Node {
	n := len(c.Labels)
	top := 24.0
	width := heatLabelsW + n*heatCell + 10
	height := int(top) + len(c.Series)*heatCell + 10
	nodes := make([]gomponents.Node, 0, n+len(c.Series)*(n+1))

	for j, label := range c.Labels {
		x := float64(heatLabelsW + j*heatCell + heatCell/2)
		nodes = append(nodes, svgText(x, top-8, "middle", truncate(label, 6)))
	}
	for i, s := range c.Series {
		y := top + float64(i*heatCell)
		nodes = append(nodes, svgText(heatLabelsW-6, y+heatCell/2+4, "end", truncate(s.Name, 16)))
		for j := range c.Labels {
			x := float64(heatLabelsW + j*heatCell)
			if j >= len(s.Values) || !s.Defined(j) {
				nodes = append(nodes,
					rect(x, y, heatCell-2, heatCell-2, "#e4e7eb", s.Name+" / "+c.Labels[j]+": n/a"),
					svgText(x+heatCell/2, y+heatCell/2+4, "middle", "n/a"),
				)
				continue
			}
			v := s.Values[j]
			nodes = append(nodes,
				rect(x, y, heatCell-2, heatCell-2, heatColor(v), s.Name+" / "+c.Labels[j]+": "+formatNumber(v)),
				svgText(x+heatCell/2, y+heatCell/2+4, "middle", strconv.FormatFloat(v, 'f', 2, 64)),
			)
		}
	}
	return svg(width, height, nodes...)
}

// heatColor maps v in [-1, 1] to a blue-white-red scale.
func heatColor(v float64) string {
	v = math.Max(-1, math.Min(1, v))
	light := 100 - math.Abs(v)*45
	hue := 0
	if v < 0 {
		hue = 220
	}
	return fmt.Sprintf("hsl(%d, 70%%, %.0f%%)", hue, light)
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
