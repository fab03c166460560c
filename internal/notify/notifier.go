// Package notify delivers issue-threshold alerts. When an account's
// grand total crosses the configured threshold, the owner gets an
// email via SES and optionally an SMS via SNS. Alerts fire on the
// upward crossing only, so a dashboard refresh while the account is
// already above threshold stays quiet.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"sellerqi-insights/internal/common/config"
	stderrors "sellerqi-insights/internal/common/errors"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/issues/aggregate"
)

// EmailSender is the SES surface the notifier needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is the SNS surface the notifier needs.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Contact is where one account's alerts go.
type Contact struct {
	Email string
	Phone string
}

// Notifier evaluates issue counts against the alert threshold.
type Notifier struct {
	cfg    config.AlertsConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger

	mu    sync.Mutex
	above map[string]bool
}

// NewNotifier builds a Notifier. Either sender may be nil when its
// channel is disabled in config.
func NewNotifier(cfg config.AlertsConfig, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
		above:  make(map[string]bool),
	}
}

// crossedUpward records the account's position relative to the
// threshold and reports whether this observation is an upward crossing.
func (n *Notifier) crossedUpward(account string, total int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	wasAbove := n.above[account]
	isAbove := total >= n.cfg.IssueThreshold
	n.above[account] = isAbove
	return isAbove && !wasAbove
}

// Evaluate checks the account's counts and sends alerts on an upward
// threshold crossing. It returns true when an alert was dispatched.
func (n *Notifier) Evaluate(ctx context.Context, account string, counts aggregate.CategoryCounts, contact Contact) (bool, error) {
	if n.cfg.IssueThreshold <= 0 {
		return false, nil
	}

	total := counts.GrandTotal()
	if !n.crossedUpward(account, total) {
		return false, nil
	}

	n.logger.Info("issue threshold crossed", map[string]interface{}{
		"account":   account,
		"total":     total,
		"threshold": n.cfg.IssueThreshold,
	})

	var failures []string
	if n.cfg.Email.Enabled && n.email != nil && contact.Email != "" {
		if err := n.sendEmail(ctx, account, total, counts, contact.Email); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if n.cfg.SMS.Enabled && n.sms != nil && contact.Phone != "" {
		if err := n.sendSMS(ctx, account, total, contact.Phone); err != nil {
			failures = append(failures, err.Error())
		}
	}

	if len(failures) > 0 {
		return true, stderrors.NewNotificationFailedError("alerts", fmt.Errorf("%s", strings.Join(failures, "; ")))
	}
	return true, nil
}

func (n *Notifier) sendEmail(ctx context.Context, account string, total int, counts aggregate.CategoryCounts, to string) error {
	subject := fmt.Sprintf("SellerQI alert: %d open issues on account %s", total, account)
	body := fmt.Sprintf(
		"Your account crossed the issue threshold.\n\n"+
			"Ranking: %d\nConversion: %d\nInventory: %d\nAccount: %d\n\nTotal: %d\n",
		counts.Ranking, counts.Conversion, counts.Inventory, counts.Account, total)

	input := &ses.SendEmailInput{
		Source: awssdk.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	}

	if _, err := n.email.SendEmail(ctx, input); err != nil {
		n.logger.Error("alert email failed", map[string]interface{}{
			"account": account,
			"error":   err.Error(),
		})
		return stderrors.NewNotificationFailedError("email", err)
	}
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, account string, total int, phone string) error {
	message := fmt.Sprintf("SellerQI: account %s has %d open issues (threshold %d).", account, total, n.cfg.IssueThreshold)

	input := &sns.PublishInput{
		PhoneNumber: awssdk.String(phone),
		Message:     awssdk.String(message),
	}

	if _, err := n.sms.Publish(ctx, input); err != nil {
		n.logger.Error("alert sms failed", map[string]interface{}{
			"account": account,
			"error":   err.Error(),
		})
		return stderrors.NewNotificationFailedError("sms", err)
	}
	return nil
}
