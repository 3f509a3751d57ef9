package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"allotment-service/configs"
	"allotment-service/internal/billing"
	"allotment-service/internal/models"
)

// Mailer delivers composed messages; *gomail.Dialer satisfies it
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// ReminderResult counts the outcome of one reminder sweep
type ReminderResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReminderSvc is an implementation of the service.ReminderService interface
type ReminderSvc struct {
	allotments AllotmentService
	mailer     Mailer
	logger     *logrus.Logger
	email      configs.EmailConfig
}

// NewReminderService creates a new ReminderSvc. Without a config the SMTP
// settings and sender address are empty.
func NewReminderService(deps Dependencies, allotments AllotmentService) *ReminderSvc {
	var email configs.EmailConfig
	if deps.Config != nil {
		email = deps.Config.Email
	}

	mailer := deps.Mailer
	if mailer == nil {
		mailer = gomail.NewDialer(email.SMTPHost, email.SMTPPort, email.SMTPUser, email.SMTPPassword)
	}

	return &ReminderSvc{
		allotments: allotments,
		mailer:     mailer,
		logger:     deps.Logger,
		email:      email,
	}
}

// SendDueReminders mails every allottee whose next installment is overdue or coming up.
// Properties without an email are skipped; a failed send is logged and the sweep goes on.
func (s *ReminderSvc) SendDueReminders(ctx context.Context, asOf time.Time) (ReminderResult, error) {
	var result ReminderResult
	asOf = models.CalendarDate(asOf)

	s.logger.Infof("Sending dues reminders as of %s", asOf.Format(models.DateLayout))

	notices, err := s.allotments.Delinquencies(ctx, asOf)
	if err != nil {
		return result, fmt.Errorf("failed to get delinquencies: %w", err)
	}

	for _, notice := range notices {
		if notice.Property.AllotteeEmail == "" {
			result.Skipped++
			continue
		}

		subject, body := composeReminder(notice, asOf)
		if err := s.sendEmail(notice.Property.AllotteeEmail, subject, body); err != nil {
			s.logger.Warnf("Failed to send reminder for property %s: %v", notice.Property.ID, err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.logger.Infof("Dues reminders: %d sent, %d skipped, %d failed", result.Sent, result.Skipped, result.Failed)

	return result, nil
}

// composeReminder renders the subject and HTML body of a dues reminder
func composeReminder(notice *DelinquencyNotice, asOf time.Time) (string, string) {
	due := notice.Due
	property := notice.Property

	var subject, statusText string
	if due.IsOverdue() {
		subject = fmt.Sprintf("OVERDUE Installment Reminder: %s, installment %d", property.SchemeName, due.SequenceNumber)
		statusText = fmt.Sprintf(`
		<p style="color: red; font-weight: bold;">
			This installment is OVERDUE by %d days. A late fee of %s INR has accrued so far.
		</p>
		`, due.DaysDelinquent, billing.Round2(due.AccruedLateFee).StringFixed(2))
	} else {
		subject = fmt.Sprintf("Upcoming Installment Reminder: %s, installment %d", property.SchemeName, due.SequenceNumber)
		daysUntil := int(due.DueDate.Sub(asOf).Hours() / 24)
		statusText = fmt.Sprintf(`
		<p>
			This installment is due in %d days. Paying after the due date attracts a daily late fee.
		</p>
		`, daysUntil)
	}

	var chargesText string
	if len(notice.ServiceChargeDueYears) > 0 {
		chargesText = fmt.Sprintf(`
		<p>Service charges are also outstanding for %d financial year(s), totalling %s INR including late fees.</p>
		`, len(notice.ServiceChargeDueYears), billing.Round2(notice.ServiceChargeDue).StringFixed(2))
	}
	if n := len(notice.ServiceChargeUnsupportedYears); n > 0 {
		chargesText += fmt.Sprintf(`
		<p>%d of those year(s) are past the late fee schedule and are not included in the total. Please contact the accounts office to settle them.</p>
		`, n)
	}

	total := due.Amount.Add(due.AccruedLateFee)

	body := fmt.Sprintf(`
	<h2>Installment Reminder</h2>
	<p>Dear %s,</p>

	%s

	<table style="border-collapse: collapse; width: 100%%;">
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Scheme:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Floor Category:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Installment:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%d of %d</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Due Date:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Installment Amount:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s INR</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Late Fee:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s INR</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Total Amount Due:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%s INR</td>
		</tr>
		<tr>
			<td style="padding: 8px; border: 1px solid #ddd;"><strong>Unpaid Installments:</strong></td>
			<td style="padding: 8px; border: 1px solid #ddd;">%d</td>
		</tr>
	</table>

	%s

	<p>
	Best regards,<br>
	Allotment Accounts Office
	</p>
	`,
		property.AllotteeName,
		statusText,
		property.SchemeName,
		property.FloorCategory,
		due.SequenceNumber, property.NumberOfInstallments,
		due.DueDate.Format(models.DateLayout),
		billing.Round2(due.Amount).StringFixed(2),
		billing.Round2(due.AccruedLateFee).StringFixed(2),
		billing.Round2(total).StringFixed(2),
		notice.UnpaidInstallments,
		chargesText,
	)

	return subject, body
}

// sendEmail sends an email through the configured mailer
func (s *ReminderSvc) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.email.SenderEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
