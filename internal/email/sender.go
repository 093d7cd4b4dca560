// Package email renders and delivers marketplace notification emails.
package email

import (
	"context"

	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewLead describes a freshly submitted lead for its matched vendor.
type NewLead struct {
	LeadID    uuid.UUID
	JobType   string
	LeadTier  string
	LeadPrice decimal.Decimal
	QuoteLow  decimal.Decimal
	QuoteHigh decimal.Decimal
}

// PurchaseReceipt confirms a completed purchase to the buying vendor.
type PurchaseReceipt struct {
	PurchaseID uuid.UUID
	LeadID     uuid.UUID
	PricePaid  decimal.Decimal
}

// OverCapAlert tells operations that a paid checkout could not be allocated.
type OverCapAlert struct {
	PurchaseID        uuid.UUID
	LeadID            uuid.UUID
	VendorID          uuid.UUID
	CheckoutSessionID string
	PricePaid         decimal.Decimal
}

type Sender interface {
	SendNewLeadEmail(ctx context.Context, toEmail string, lead NewLead) error
	SendPurchaseReceiptEmail(ctx context.Context, toEmail string, receipt PurchaseReceipt) error
	SendOverCapAlertEmail(ctx context.Context, toEmail string, alert OverCapAlert) error
}

// NewSender returns an SMTP sender when SMTP is configured and a logging
// sender otherwise.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.IsEmailEnabled() {
		log.Info("smtp not configured, notification emails will only be logged")
		return LogSender{log: log}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

// LogSender records what would have been sent.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log *logger.Logger) LogSender {
	return LogSender{log: log}
}

func (s LogSender) SendNewLeadEmail(ctx context.Context, toEmail string, lead NewLead) error {
	s.log.WithContext(ctx).Info("email skipped", "template", "new_lead", "to", toEmail, "leadId", lead.LeadID)
	return nil
}

func (s LogSender) SendPurchaseReceiptEmail(ctx context.Context, toEmail string, receipt PurchaseReceipt) error {
	s.log.WithContext(ctx).Info("email skipped", "template", "purchase_receipt", "to", toEmail, "purchaseId", receipt.PurchaseID)
	return nil
}

func (s LogSender) SendOverCapAlertEmail(ctx context.Context, toEmail string, alert OverCapAlert) error {
	s.log.WithContext(ctx).Info("email skipped", "template", "over_cap_alert", "to", toEmail, "purchaseId", alert.PurchaseID)
	return nil
}
