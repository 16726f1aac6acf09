// Package notify delivers after-the-fact notifications about moderation
// decisions. Delivery failures are logged and never propagate: a decision
// stands whether or not the shop hears about it.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type Sender interface {
	ProductApproved(ctx context.Context, shopEmail, shopName, productName string) error
	ProductRejected(ctx context.Context, shopEmail, shopName, productName, reason string) error
}

// LogSender only records notifications; used in development and tests.
type LogSender struct {
	Log *zap.Logger
}

func (s *LogSender) ProductApproved(_ context.Context, shopEmail, shopName, productName string) error {
	s.Log.Info("notify: product approved",
		zap.String("shop_email", shopEmail),
		zap.String("shop", shopName),
		zap.String("product", productName),
	)
	return nil
}

func (s *LogSender) ProductRejected(_ context.Context, shopEmail, shopName, productName, reason string) error {
	s.Log.Info("notify: product rejected",
		zap.String("shop_email", shopEmail),
		zap.String("shop", shopName),
		zap.String("product", productName),
		zap.String("reason", reason),
	)
	return nil
}

// SMTPSender sends plain-text mail through a configured relay.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (s *SMTPSender) ProductApproved(_ context.Context, shopEmail, shopName, productName string) error {
	subject := "Your product has been approved"
	body := fmt.Sprintf("Hello %s,\n\nYour product %q passed moderation and can now be rented for display.\n", shopName, productName)
	return s.send(shopEmail, subject, body)
}

func (s *SMTPSender) ProductRejected(_ context.Context, shopEmail, shopName, productName, reason string) error {
	subject := "Your product has been rejected"
	body := fmt.Sprintf("Hello %s,\n\nYour product %q was rejected by moderation.\nReason: %s\n", shopName, productName, reason)
	return s.send(shopEmail, subject, body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.From, to, subject, body))
	auth := smtp.PlainAuth("", s.User, s.Password, s.Host)
	return smtp.SendMail(addr, auth, s.From, []string{to}, msg)
}
