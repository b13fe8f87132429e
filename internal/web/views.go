package web

import (
	"net/http"
	"strconv"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/session"
)

const stylesheet = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
main{max-width:1100px;margin:0 auto;padding:24px}
header p{margin-top:0;color:#616e7c}
section{background:#fff;border:1px solid #e4e7eb;border-radius:8px;padding:16px;margin-bottom:16px}
table{border-collapse:collapse;width:100%;font-size:13px}
th,td{border-bottom:1px solid #e4e7eb;padding:4px 8px;text-align:left;white-space:nowrap}
.scroll{overflow-x:auto}
.alert{border-left:4px solid #d64545;background:#ffeeee;padding:12px;margin-bottom:16px}
.muted{color:#616e7c}
.metrics{display:flex;gap:24px;flex-wrap:wrap}
.metric strong{display:block;font-size:20px}
.msg{padding:8px 12px;border-radius:6px;margin:6px 0}
.msg.user{background:#e6f0ff}
.msg.assistant{background:#f0f4f8}
.msg.failed{background:#ffeeee}
.examples form{display:inline}
.examples button{margin:2px;font-size:12px}
pre{background:#f0f4f8;padding:8px;overflow-x:auto}
.chart{margin:8px 0}
.chart svg{max-width:100%;height:auto;font-family:inherit}
`

// dashboardView is everything the dashboard renders.
type dashboardView struct {
	Snapshot       session.Snapshot
	Summary        *ingest.Summary
	Alert          *ingest.UserMessage
	AnalystEnabled bool
	Examples       []string
	MaxUploadMB    int64
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func page(title string, body ...gomponents.Node) gomponents.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(gomponents.Text(title+" | NEXUS")),
				html.StyleEl(gomponents.Raw(stylesheet)),
			),
			html.Body(
				html.Main(
					html.Header(
						html.H1(gomponents.Text("NEXUS")),
						html.P(gomponents.Text("Fiscal and financial data analysis")),
					),
					gomponents.Group(body),
				),
			),
		),
	)
}

func errorPage(msg ingest.UserMessage) gomponents.Node {
	return page("Error",
		errorAlert(msg),
		html.P(html.A(html.Href("/"), gomponents.Text("Back to dashboard"))),
	)
}

func errorAlert(msg ingest.UserMessage) gomponents.Node {
	return html.Div(
		html.Class("alert"),
		gomponents.Attr("role", "alert"),
		html.Strong(gomponents.Text(msg.Message)),
		gomponents.If(msg.Action != "", html.P(gomponents.Text(msg.Action))),
		html.P(html.Class("muted"), gomponents.Text("Code: "+msg.Code)),
	)
}

func dashboardPage(v dashboardView) gomponents.Node {
	var body []gomponents.Node
	if v.Alert != nil {
		body = append(body, errorAlert(*v.Alert))
	}
	body = append(body, uploadSection(v))
	if v.Summary != nil {
		body = append(body,
			tableSection(v.Snapshot, *v.Summary),
			chatSection(v),
		)
	}
	return page("Dashboard", body...)
}

func uploadSection(v dashboardView) gomponents.Node {
	return html.Section(
		html.H2(gomponents.Text("Upload")),
		html.P(html.Class("muted"), gomponents.Text(
			"A .zip with CSV files, a .csv, or an .xlsx workbook. Up to "+strconv.FormatInt(v.MaxUploadMB, 10)+" MB.")),
		html.Form(
			html.Method("post"),
			html.Action("/upload"),
			html.EncType("multipart/form-data"),
			html.Input(html.Type("file"), html.Name("files"), html.Multiple(), html.Required(),
				html.Accept(".zip,.csv,.xlsx,.xlsm,.pdf")),
			html.Button(html.Type("submit"), gomponents.Text("Load")),
		),
	)
}

func tableSection(snap session.Snapshot, sum ingest.Summary) gomponents.Node {
	return html.Section(
		html.H2(gomponents.Text(sum.Name)),
		html.P(html.Class("muted"), gomponents.Textf("%d rows, %d columns", sum.Rows, len(sum.Columns))),
		entrySelector(snap),
		metricsBlock(sum.Metrics),
		rolesBlock(sum.Roles),
		html.H3(gomponents.Text("Preview")),
		previewTable(sum),
		html.H3(gomponents.Text("Columns")),
		columnsTable(sum.Columns),
		html.P(
			html.A(html.Href("/api/export.csv"), gomponents.Text("Download CSV")),
			gomponents.Text(" · "),
			html.A(html.Href("/api/export.parquet"), gomponents.Text("Download Parquet")),
		),
		html.Form(
			html.Method("post"),
			html.Action("/clear"),
			html.Button(html.Type("submit"), gomponents.Text("Clear")),
		),
	)
}

// entrySelector lets the user switch between the CSV files of an archive.
func entrySelector(snap session.Snapshot) gomponents.Node {
	if len(snap.Candidates) < 2 {
		return nil
	}
	opts := make([]gomponents.Node, 0, len(snap.Candidates))
	for _, c := range snap.Candidates {
		opts = append(opts, html.Option(html.Value(c), gomponents.If(c == snap.Name, html.Selected()), gomponents.Text(c)))
	}
	return html.Form(
		html.Method("post"),
		html.Action("/select"),
		html.Label(html.For("entry"), gomponents.Text("CSV file in "+snap.Source+": ")),
		html.Select(html.ID("entry"), html.Name("entry"), gomponents.Group(opts)),
		html.Button(html.Type("submit"), gomponents.Text("Open")),
	)
}

func metricsBlock(m ingest.KeyMetrics) gomponents.Node {
	items := []gomponents.Node{metric("Records", strconv.Itoa(m.Records))}
	if m.TotalAmount != nil {
		items = append(items, metric("Total", formatAmount(*m.TotalAmount)))
	}
	if m.AverageTicket != nil {
		items = append(items, metric("Average ticket", formatAmount(*m.AverageTicket)))
	}
	if m.TopCustomer != "" {
		label := m.TopCustomer
		if m.TopCustomerAmount != nil {
			label += " (" + formatAmount(*m.TopCustomerAmount) + ")"
		}
		items = append(items, metric("Top customer", label))
	}
	return html.Div(html.Class("metrics"), gomponents.Group(items))
}

func metric(label, value string) gomponents.Node {
	return html.Div(html.Class("metric"),
		html.Strong(gomponents.Text(value)),
		html.Span(html.Class("muted"), gomponents.Text(label)),
	)
}

func rolesBlock(roles map[ingest.Role]string) gomponents.Node {
	if len(roles) == 0 {
		return html.P(html.Class("muted"), gomponents.Text("No business columns recognized."))
	}
	items := make([]gomponents.Node, 0, len(roles))
	for _, role := range ingest.Roles(roles).Sorted() {
		items = append(items, html.Li(html.Strong(gomponents.Text(string(role)+": ")), gomponents.Text(roles[role])))
	}
	return html.Div(
		html.H3(gomponents.Text("Recognized columns")),
		html.Ul(gomponents.Group(items)),
	)
}

func previewTable(sum ingest.Summary) gomponents.Node {
	head := make([]gomponents.Node, 0, len(sum.Columns))
	for _, c := range sum.Columns {
		head = append(head, html.Th(gomponents.Text(c.Name)))
	}
	rows := make([]gomponents.Node, 0, len(sum.Preview))
	for _, row := range sum.Preview {
		cells := make([]gomponents.Node, 0, len(row))
		for _, cell := range row {
			cells = append(cells, html.Td(gomponents.Text(cell)))
		}
		rows = append(rows, html.Tr(gomponents.Group(cells)))
	}
	return html.Div(html.Class("scroll"),
		html.Table(
			html.THead(html.Tr(gomponents.Group(head))),
			html.TBody(gomponents.Group(rows)),
		),
	)
}

func columnsTable(cols []ingest.ColumnSummary) gomponents.Node {
	rows := make([]gomponents.Node, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, html.Tr(
			html.Td(gomponents.Text(c.Name)),
			html.Td(gomponents.Text(string(c.Type))),
			html.Td(gomponents.Text(strconv.Itoa(c.NonNull))),
			html.Td(gomponents.Text(strconv.Itoa(c.Missing))),
			html.Td(gomponents.Text(strconv.Itoa(c.Distinct))),
			html.Td(gomponents.Text(optAmount(c.Sum))),
			html.Td(gomponents.Text(optAmount(c.Mean))),
		))
	}
	return html.Div(html.Class("scroll"),
		html.Table(
			html.THead(html.Tr(
				html.Th(gomponents.Text("Column")),
				html.Th(gomponents.Text("Type")),
				html.Th(gomponents.Text("Values")),
				html.Th(gomponents.Text("Missing")),
				html.Th(gomponents.Text("Distinct")),
				html.Th(gomponents.Text("Sum")),
				html.Th(gomponents.Text("Mean")),
			)),
			html.TBody(gomponents.Group(rows)),
		),
	)
}

func chatSection(v dashboardView) gomponents.Node {
	if !v.AnalystEnabled {
		return html.Section(
			html.H2(gomponents.Text("Questions")),
			html.P(html.Class("muted"), gomponents.Text("Question answering is not configured on this server.")),
		)
	}

	msgs := make([]gomponents.Node, 0, len(v.Snapshot.Messages))
	for _, m := range v.Snapshot.Messages {
		msgs = append(msgs, messageNode(m))
	}

	examples := make([]gomponents.Node, 0, len(v.Examples))
	for _, q := range v.Examples {
		examples = append(examples, html.Form(
			html.Method("post"),
			html.Action("/ask"),
			html.Input(html.Type("hidden"), html.Name("question"), html.Value(q)),
			html.Button(html.Type("submit"), gomponents.Text(q)),
		))
	}

	return html.Section(
		html.H2(gomponents.Text("Questions")),
		html.Div(gomponents.Group(msgs)),
		html.Form(
			html.Method("post"),
			html.Action("/ask"),
			html.Input(html.Type("text"), html.Name("question"), html.Required(),
				html.Placeholder("Ask something about the data")),
			html.Button(html.Type("submit"), gomponents.Text("Ask")),
		),
		html.Div(html.Class("examples"),
			html.P(html.Class("muted"), gomponents.Text("Examples:")),
			gomponents.Group(examples),
		),
	)
}

func messageNode(m session.Message) gomponents.Node {
	class := "msg " + string(m.Speaker)
	if m.Failed {
		class += " failed"
	}
	return html.Div(html.Class(class),
		html.P(gomponents.Text(m.Text)),
		gomponents.If(m.SQL != "", html.Pre(html.Code(gomponents.Text(m.SQL)))),
		chartNode(m.Chart),
	)
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func optAmount(f *float64) string {
	if f == nil {
		return ""
	}
	return formatAmount(*f)
}
