package invoice

import (
	"html/template"
	"io"

	"github.com/counterbill/counterbill/internal/billing"
	"github.com/counterbill/counterbill/internal/money"
)

const invoicePage = `<html>
<head><meta charset="utf-8"><title>Invoice {{.Number}}</title></head>
<body>
<h2>Invoice #{{.Number}}</h2>
<p>Date: {{.Date}}</p>
<p>Customer: {{.Customer}}</p>
<table border="1" cellspacing="0" cellpadding="6" width="80%">
  <thead>
    <tr><th>Code</th><th>Item</th><th>Price</th><th>Qty</th><th>Line Total</th></tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr><td>{{.Code}}</td><td>{{.Name}}</td><td align="right">{{.Price}}</td><td align="center">{{.Qty}}</td><td align="right">{{.Total}}</td></tr>
{{- end}}
  </tbody>
</table>
<p>Subtotal: <b>{{.Subtotal}}</b></p>
<p>GST ({{.Rate}}%): <b>{{.TaxTotal}}</b> (CGST {{.CGST}} + SGST {{.SGST}})</p>
<h3>Grand Total: {{.Grand}}</h3>
<hr>
<p>Thank you for your business!</p>
</body>
</html>
`

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoicePage))

type pageRow struct {
	Code  string
	Name  string
	Price string
	Qty   int
	Total string
}

type pageData struct {
	Number   int
	Date     string
	Customer string
	Rows     []pageRow
	Subtotal string
	Rate     string
	TaxTotal string
	CGST     string
	SGST     string
	Grand    string
}

func render(w io.Writer, inv Invoice) error {
	customer := inv.CustomerName
	if customer == "" {
		customer = "-"
	}
	rows := make([]pageRow, 0, len(inv.Items))
	for _, item := range inv.Items {
		rows = append(rows, pageRow{
			Code:  item.Code,
			Name:  item.Name,
			Price: money.Format(item.UnitPrice),
			Qty:   item.Qty,
			Total: money.Format(item.LineTotal),
		})
	}
	t := inv.Totals
	return invoiceTmpl.Execute(w, pageData{
		Number:   inv.Number,
		Date:     inv.Date,
		Customer: customer,
		Rows:     rows,
		Subtotal: money.Format(t.Subtotal),
		Rate:     billing.FormatRate(t.RatePercent),
		TaxTotal: money.Format(t.TaxTotal),
		CGST:     money.Format(t.CGST),
		SGST:     money.Format(t.SGST),
		Grand:    money.Format(t.GrandTotal),
	})
}
