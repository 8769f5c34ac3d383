// Package view renders the visual HTML rendition of tickets, used for on-screen
// previews and for the PDF fallback when a printer has no raw channel.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
	"github.com/odyssey-erp/odyssey-pos/web"
)

// Engine renders HTML ticket templates.
type Engine struct {
	templates *template.Template
}

type saleData struct {
	Title string
	ticket.SaleTicket
	SavingsAmount float64
}

type movementData struct {
	Title string
	ticket.MovementTicket
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"money":    ticket.FormatMoney,
		"quantity": ticket.FormatQuantity,
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04:05")
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/tickets/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// RenderSaleHTML renders a sale ticket as a standalone HTML document.
func (e *Engine) RenderSaleHTML(t ticket.SaleTicket) (string, error) {
	data := saleData{Title: "Ticket " + t.Folio, SaleTicket: t}
	if t.Savings != nil {
		data.SavingsAmount = *t.Savings
	}
	return e.execute("sale", data)
}

// RenderMovementHTML renders a cash movement ticket as a standalone HTML document.
func (e *Engine) RenderMovementHTML(m ticket.MovementTicket) (string, error) {
	return e.execute("movement", movementData{Title: "Movimiento de caja", MovementTicket: m})
}

func (e *Engine) execute(name string, data any) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s ticket: %w", name, err)
	}
	return buf.String(), nil
}
