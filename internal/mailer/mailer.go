package mailer

import (
	"context"
	"fmt"

	"blog_auth/internal/models"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	from string
	send func(msg *gomail.Message) error
}

func New(host string, port int, username, password, from string) *Mailer {
	dialer := gomail.NewDialer(host, port, username, password)

	return &Mailer{
		from: from,
		send: func(msg *gomail.Message) error {
			return dialer.DialAndSend(msg)
		},
	}
}

// * NewWithSender отправляет письма через произвольный gomail.Sender
func NewWithSender(from string, s gomail.Sender) *Mailer {
	return &Mailer{
		from: from,
		send: func(msg *gomail.Message) error {
			return gomail.Send(s, msg)
		},
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", body)

	return m.send(msg)
}

// * Notify отправляет уведомление по событию аккаунта; неизвестные события пропускаются
func (m *Mailer) Notify(_ context.Context, event models.AccountEvent) error {
	const op = "mailer.Notify"

	var subject, body string

	switch event.Type {
	case models.EventUserRegistered:
		subject = "Добро пожаловать в блог"
		body = fmt.Sprintf("Здравствуйте%s! Ваш аккаунт %s успешно зарегистрирован.", greetingName(event.Name), event.Email)
	case models.EventUserDeleted:
		subject = "Аккаунт удален"
		body = fmt.Sprintf("Здравствуйте%s! Ваш аккаунт %s был удален администратором.", greetingName(event.Name), event.Email)
	default:
		return nil
	}

	if event.Email == "" {
		return fmt.Errorf("%s: event %s without email", op, event.Type)
	}

	if err := m.Send(event.Email, subject, body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func greetingName(name string) string {
	if name == "" {
		return ""
	}

	return ", " + name
}
