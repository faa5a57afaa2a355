package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"financeflow/internal/analytics"
	"financeflow/internal/core"
)

// BillDigest lists the bills that need attention on a given day.
type BillDigest struct {
	Generated time.Time
	Currency  string
	Upcoming  []analytics.BillView
	Overdue   []analytics.BillView
}

func (d BillDigest) Empty() bool {
	return len(d.Upcoming) == 0 && len(d.Overdue) == 0
}

func (d BillDigest) Subject() string {
	switch {
	case len(d.Overdue) > 0:
		return fmt.Sprintf("%d overdue bill(s), %d due soon", len(d.Overdue), len(d.Upcoming))
	default:
		return fmt.Sprintf("%d bill(s) due this week", len(d.Upcoming))
	}
}

func (d BillDigest) currency() string {
	if d.Currency == "" {
		return core.DefaultCurrency
	}
	return d.Currency
}

// Text renders the plain text body.
func (d BillDigest) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bills as of %s\n", d.Generated.Format("Jan 2, 2006"))
	section := func(title string, bills []analytics.BillView) {
		if len(bills) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, v := range bills {
			fmt.Fprintf(&b, "- %s: %s (%s, %s)\n",
				v.Name, core.FormatAmount(v.Amount, d.currency()), v.DueDate.Format(core.DateLayout), v.State.Label)
		}
	}
	section("Overdue", d.Overdue)
	section("Upcoming", d.Upcoming)
	return b.String()
}

var digestHTML = template.Must(template.New("digest").Funcs(template.FuncMap{
	"money": core.FormatAmount,
}).Parse(`<h2>Bills as of {{.Generated.Format "Jan 2, 2006"}}</h2>
{{- $cur := .Currency}}
{{- if .Overdue}}
<h3>Overdue</h3>
<table>{{range .Overdue}}
<tr><td>{{.Name}}</td><td>{{money .Amount $cur}}</td><td>{{.DueDate.String}}</td><td>{{.State.Label}}</td></tr>{{end}}
</table>{{end}}
{{- if .Upcoming}}
<h3>Upcoming</h3>
<table>{{range .Upcoming}}
<tr><td>{{.Name}}</td><td>{{money .Amount $cur}}</td><td>{{.DueDate.String}}</td><td>{{.State.Label}}</td></tr>{{end}}
</table>{{end}}
`))

// HTML renders the HTML body.
func (d BillDigest) HTML() (string, error) {
	data := d
	data.Currency = d.currency()
	var buf bytes.Buffer
	if err := digestHTML.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// Message builds the email for to.
func (d BillDigest) Message(to ...string) (Message, error) {
	html, err := d.HTML()
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: d.Subject(), Text: d.Text(), HTML: html}, nil
}
