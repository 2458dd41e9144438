package session

import (
	"github.com/counterbill/counterbill/internal/billing"
	"github.com/counterbill/counterbill/internal/money"
)

// ProductView is a display-ready catalog entry.
type ProductView struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
}

// LineView is a display-ready cart line.
type LineView struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Qty       int    `json:"qty"`
	LineTotal string `json:"lineTotal"`
}

// TotalsView carries formatted totals for rendering.
type TotalsView struct {
	Subtotal    string `json:"subtotal"`
	RatePercent string `json:"ratePercent"`
	TaxTotal    string `json:"taxTotal"`
	CGST        string `json:"cgst"`
	SGST        string `json:"sgst"`
	GrandTotal  string `json:"grandTotal"`
}

// State is the snapshot returned by every session command. The presentation
// layer renders it as-is; all amounts arrive formatted.
type State struct {
	SessionID      string        `json:"sessionId"`
	CatalogPath    string        `json:"catalogPath"`
	CatalogMissing bool          `json:"catalogMissing"`
	Products       []ProductView `json:"products"`
	Lines          []LineView    `json:"lines"`
	CustomerName   string        `json:"customerName"`
	RateInput      string        `json:"rateInput"`
	RateFellBack   bool          `json:"rateFellBack,omitempty"`
	Totals         TotalsView    `json:"totals"`
	ConfirmToken   string        `json:"confirmToken"`
}

// snapshot builds the current State. Callers hold the session lock.
func (s *Session) snapshot() State {
	lines := s.cart.Lines()
	totals := billing.Compute(lines, s.resolveRate())

	products := s.catalog.Products.Sorted()
	pv := make([]ProductView, 0, len(products))
	for _, p := range products {
		pv = append(pv, ProductView{Code: p.Code, Name: p.Name, UnitPrice: money.Format(p.UnitPrice)})
	}
	lv := make([]LineView, 0, len(lines))
	for _, l := range lines {
		lv = append(lv, LineView{
			Code:      l.Code,
			Name:      l.Name,
			UnitPrice: money.Format(l.UnitPrice),
			Qty:       l.Qty,
			LineTotal: money.Format(l.LineTotal),
		})
	}
	return State{
		SessionID:      s.id,
		CatalogPath:    s.catalog.Source,
		CatalogMissing: s.catalog.Missing,
		Products:       pv,
		Lines:          lv,
		CustomerName:   s.customer,
		RateInput:      s.rateInput,
		Totals: TotalsView{
			Subtotal:    money.Format(totals.Subtotal),
			RatePercent: billing.FormatRate(totals.RatePercent),
			TaxTotal:    money.Format(totals.TaxTotal),
			CGST:        money.Format(totals.CGST),
			SGST:        money.Format(totals.SGST),
			GrandTotal:  money.Format(totals.GrandTotal),
		},
		ConfirmToken: s.confirmToken,
	}
}
