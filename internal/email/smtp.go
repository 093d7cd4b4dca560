package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers rendered templates over SMTP via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) buildMessage(toEmail, subject, htmlContent string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)
	return msg, nil
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg, err := s.buildMessage(toEmail, subject, htmlContent)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendNewLeadEmail(ctx context.Context, toEmail string, lead NewLead) error {
	content, err := renderEmailTemplate("new_lead.html", newLeadEmailData{
		baseEmailData: baseEmailData{
			Title:   "New lead available",
			Heading: "A new lead matches your services",
		},
		JobType:    lead.JobType,
		LeadTier:   lead.LeadTier,
		LeadPrice:  formatUSD(lead.LeadPrice),
		QuoteRange: formatUSD(lead.QuoteLow) + " - " + formatUSD(lead.QuoteHigh),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectNewLeadFmt, lead.JobType), content)
}

func (s *SMTPSender) SendPurchaseReceiptEmail(ctx context.Context, toEmail string, receipt PurchaseReceipt) error {
	content, err := renderEmailTemplate("purchase_receipt.html", purchaseReceiptEmailData{
		baseEmailData: baseEmailData{
			Title:   "Purchase confirmed",
			Heading: "Your lead purchase is confirmed",
		},
		PurchaseID: receipt.PurchaseID.String(),
		LeadID:     receipt.LeadID.String(),
		PricePaid:  formatUSD(receipt.PricePaid),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectPurchaseReceiptFmt, formatUSD(receipt.PricePaid)), content)
}

func (s *SMTPSender) SendOverCapAlertEmail(ctx context.Context, toEmail string, alert OverCapAlert) error {
	content, err := renderEmailTemplate("over_cap_alert.html", overCapAlertEmailData{
		baseEmailData: baseEmailData{
			Title:   "Refund required",
			Heading: "Paid checkout exceeded lead capacity",
		},
		PurchaseID:        alert.PurchaseID.String(),
		LeadID:            alert.LeadID.String(),
		VendorID:          alert.VendorID.String(),
		CheckoutSessionID: alert.CheckoutSessionID,
		PricePaid:         formatUSD(alert.PricePaid),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectOverCapAlertFmt, alert.LeadID), content)
}
