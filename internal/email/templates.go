package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type newLeadEmailData struct {
	baseEmailData
	JobType    string
	LeadTier   string
	LeadPrice  string
	QuoteRange string
}

type purchaseReceiptEmailData struct {
	baseEmailData
	PurchaseID string
	LeadID     string
	PricePaid  string
}

type overCapAlertEmailData struct {
	baseEmailData
	PurchaseID        string
	LeadID            string
	VendorID          string
	CheckoutSessionID string
	PricePaid         string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
