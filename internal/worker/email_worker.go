package worker

// email_worker.go
// Processes invoice email jobs from QueueEmail: renders the invoice PDF and
// mails it through the SMTP relay, behind a circuit breaker.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"invoicing/internal/infra"
	"invoicing/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const emailMaxAttempts = 3

// InvoiceEmailPayload is the job envelope sent to QueueEmail.
type InvoiceEmailPayload struct {
	InvoiceID string `json:"invoice_id"`
	To        string `json:"to"`
	Message   string `json:"message,omitempty"`
}

// InvoiceLoader is the read side the worker needs from the invoice store.
type InvoiceLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
}

// Sender delivers an email with one attachment. *infra.Mailer implements it.
type Sender interface {
	SendInvoice(to, subject, body, pdfPath string) error
}

// EmailWorker processes invoice email jobs.
type EmailWorker struct {
	invoices   InvoiceLoader
	sender     Sender
	breaker    *infra.Breaker
	letterhead infra.Letterhead
	pdfDir     string
}

func NewEmailWorker(invoices InvoiceLoader, sender Sender, breaker *infra.Breaker, letterhead infra.Letterhead, pdfDir string) *EmailWorker {
	return &EmailWorker{
		invoices:   invoices,
		sender:     sender,
		breaker:    breaker,
		letterhead: letterhead,
		pdfDir:     pdfDir,
	}
}

// Process handles a single invoice email job:
//  1. Load the invoice with its items
//  2. Render the PDF into the storage directory
//  3. Send it, retrying with backoff (3 attempts)
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.To == "" {
		return fmt.Errorf("email_worker: empty recipient")
	}
	id, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("email_worker: invalid invoice_id %q", payload.InvoiceID)
	}

	inv, err := w.invoices.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("email_worker: load invoice: %w", err)
	}

	pdfPath, err := infra.WriteInvoicePDF(inv, w.letterhead, w.pdfDir)
	if err != nil {
		return err
	}

	subject, body := w.compose(inv, payload.Message)
	err = withRetry(ctx, emailMaxAttempts, func(attempt int) error {
		err := w.breaker.Do(func() error {
			return w.sender.SendInvoice(payload.To, subject, body, pdfPath)
		})
		if err != nil {
			log.Warn().Err(err).
				Int("attempt", attempt+1).
				Str("invoice_id", payload.InvoiceID).
				Msg("email_worker: send failed")
		}
		return err
	})
	if err != nil {
		return err
	}

	log.Info().Str("invoice_id", payload.InvoiceID).Str("number", inv.Number).
		Str("to", payload.To).Msg("email_worker: invoice sent")
	return nil
}

func (w *EmailWorker) compose(inv *model.Invoice, message string) (string, string) {
	from := w.letterhead.Name
	if inv.CompanyName != nil && *inv.CompanyName != "" {
		from = *inv.CompanyName
	}
	subject := fmt.Sprintf("Invoice %s from %s", inv.Number, from)

	var b strings.Builder
	if message != "" {
		b.WriteString(message)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Please find attached invoice %s dated %s.\n", inv.Number, inv.Date)
	fmt.Fprintf(&b, "Amount: %s\n", inv.GrandTotal.StringFixed(2))
	if inv.DueDate != nil && *inv.DueDate != "" {
		fmt.Fprintf(&b, "Due date: %s\n", *inv.DueDate)
	}
	return subject, b.String()
}
