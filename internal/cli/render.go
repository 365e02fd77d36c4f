package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/billing"
	"github.com/tablepos/api/internal/kitchen"
	"github.com/tablepos/api/internal/posclient"
)

// renderer turns markdown into terminal output.
type renderer func(markdown string) (string, error)

func newRenderer(plain bool) renderer {
	if plain {
		return func(md string) (string, error) { return md, nil }
	}
	return glamourRenderer(glamour.WithAutoStyle())
}

func glamourRenderer(style glamour.TermRendererOption) renderer {
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return func(md string) (string, error) { return md, nil }
	}
	return r.Render
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// cell escapes pipes so free text cannot break a markdown table.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func tableName(tables []posclient.DiningTable, id uuid.UUID) string {
	for _, t := range tables {
		if t.ID == id {
			return t.Name
		}
	}
	return shortID(id)
}

func tablesMarkdown(tables []posclient.DiningTable) string {
	var b strings.Builder
	b.WriteString("## Tables\n\n")
	if len(tables) == 0 {
		b.WriteString("No tables.\n")
		return b.String()
	}
	b.WriteString("| Table | Location | Seats | Status | Order | ID |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, t := range tables {
		location, order := "", ""
		if t.Location != nil {
			location = *t.Location
		}
		if t.CurrentOrderID != nil {
			order = shortID(*t.CurrentOrderID)
		}
		status := t.Status
		if !t.IsActive {
			status = "INACTIVE"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s |\n",
			cell(t.Name), cell(location), t.Seats, status, order, t.ID)
	}
	return b.String()
}

type menuRow struct {
	product posclient.Product
	units   []posclient.Unit
}

func menuMarkdown(rows []menuRow) string {
	var b strings.Builder
	b.WriteString("## Menu\n\n")
	b.WriteString("| Product | Station | Unit | Price | Unit ID |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range rows {
		station := ""
		if r.product.Station != nil {
			station = *r.product.Station
		}
		for _, u := range r.units {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(r.product.Name), station, cell(u.Name), money(u.Price), u.ID)
		}
	}
	return b.String()
}

func orderMarkdown(table *posclient.DiningTable, tables []posclient.DiningTable, order *posclient.Order) string {
	var b strings.Builder
	if table == nil {
		return "No table selected. Use `posctl select <table>`.\n"
	}
	if order == nil {
		fmt.Fprintf(&b, "## Table %s\n\nNo open order. Add an item to open one.\n", cell(table.Name))
		return b.String()
	}

	names := make([]string, len(order.TableIDs))
	for i, id := range order.TableIDs {
		names[i] = tableName(tables, id)
	}
	fmt.Fprintf(&b, "## Table %s: order %s (%s)\n\n", cell(strings.Join(names, " + ")), shortID(order.ID), order.Status)

	if len(order.Details) == 0 {
		b.WriteString("No items.\n")
	} else {
		b.WriteString("| Line | Item | Qty | Price | Total | Status | Note |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, d := range order.Details {
			note := ""
			if d.Note != nil {
				note = *d.Note
			}
			fmt.Fprintf(&b, "| %s | %s (%s) | %d | %s | %s | %s | %s |\n",
				shortID(d.ID), cell(d.ProductName), cell(d.UnitName), d.Quantity,
				money(d.UnitPrice), money(d.LineTotal()), d.Status, cell(note))
		}
	}
	fmt.Fprintf(&b, "\n**Total: %s**\n", money(order.TotalPrice))
	return b.String()
}

func receiptMarkdown(inv *posclient.Invoice, s billing.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Receipt %s\n\n", shortID(inv.ID))
	b.WriteString("| | Amount |\n|---|---|\n")
	fmt.Fprintf(&b, "| Subtotal | %s |\n", money(s.Subtotal))
	fmt.Fprintf(&b, "| Tax | %s |\n", money(s.Tax))
	fmt.Fprintf(&b, "| Discount | %s |\n", money(s.Discount))
	fmt.Fprintf(&b, "| **Total** | **%s** |\n", money(s.Total))
	fmt.Fprintf(&b, "| Paid (%s) | %s |\n", inv.PaymentMethod, money(s.Tendered))
	fmt.Fprintf(&b, "| **Change** | **%s** |\n", money(s.Change))
	return b.String()
}

func kitchenMarkdown(stations []kitchen.Station) string {
	var b strings.Builder
	b.WriteString("## Kitchen queue\n\n")
	if len(stations) == 0 {
		b.WriteString("Nothing pending.\n")
		return b.String()
	}
	for _, s := range stations {
		fmt.Fprintf(&b, "### %s\n\n", s.Name)
		b.WriteString("| Line | Item | Qty | Note | Since |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, d := range s.Lines {
			note := ""
			if d.Note != nil {
				note = *d.Note
			}
			fmt.Fprintf(&b, "| %s | %s (%s) | %d | %s | %s |\n",
				shortID(d.ID), cell(d.ProductName), cell(d.UnitName), d.Quantity, cell(note),
				d.CreatedAt.Local().Format("15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
