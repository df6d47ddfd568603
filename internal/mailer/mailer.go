// Пакет mailer — best-effort отправка почтовых уведомлений по SMTP.
// Отсутствие SMTP-хоста в конфигурации отключает отправку:
// уведомления остаются только в базе.
package mailer

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/contractflow/internal/config"
)

// emailRe — минимальная проверка адреса получателя.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Mailer отправляет почтовые уведомления о событиях workflow.
type Mailer struct {
	host     string
	port     int
	sender   string
	username string
	password string
	startTLS bool
	timeout  time.Duration
	logger   *slog.Logger
}

// New создаёт Mailer из конфигурации.
func New(cfg *config.Config, logger *slog.Logger) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		sender:   cfg.SMTPSender,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		startTLS: cfg.SMTPStartTLS,
		timeout:  cfg.SMTPTimeout,
		logger:   logger.With("component", "mailer"),
	}
}

// Enabled сообщает, настроена ли отправка почты.
func (m *Mailer) Enabled() bool {
	return m.host != ""
}

// SendEvent отправляет письмо о событии workflow.
// Возвращает ошибку отправки; вызывающая сторона решает,
// фиксировать её в аудите или прерывать операцию.
func (m *Mailer) SendEvent(recipient, event string, payload map[string]any) error {
	if !m.Enabled() {
		return fmt.Errorf("отправка почты не настроена")
	}
	if !emailRe.MatchString(recipient) {
		return fmt.Errorf("некорректный адрес получателя: %q", recipient)
	}

	msg := m.buildMessage(recipient, event, payload)
	if err := m.send(recipient, msg); err != nil {
		return fmt.Errorf("ошибка отправки письма %q получателю %s: %w", event, recipient, err)
	}

	m.logger.Debug("Письмо отправлено", "event", event, "recipient", recipient)
	return nil
}

// buildMessage формирует текст письма: тема — имя события,
// тело — отсортированные пары payload.
func (m *Mailer) buildMessage(recipient, event string, payload map[string]any) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.sender)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: [Contract Review] %s\r\n", event)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\r\n", k, payload[k])
	}
	return []byte(b.String())
}

// send выполняет SMTP-сессию с таймаутом на соединение и дедлайном
// на всю сессию, чтобы зависший сервер не блокировал вызывающего.
func (m *Mailer) send(recipient string, msg []byte) error {
	addr := net.JoinHostPort(m.host, fmt.Sprintf("%d", m.port))

	conn, err := net.DialTimeout("tcp", addr, m.timeout)
	if err != nil {
		return fmt.Errorf("ошибка соединения с %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(m.timeout)); err != nil {
		return fmt.Errorf("ошибка установки дедлайна: %w", err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("ошибка создания SMTP-клиента: %w", err)
	}
	defer client.Close()

	if m.startTLS {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("ошибка STARTTLS: %w", err)
		}
	}

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("ошибка аутентификации SMTP: %w", err)
		}
	}

	if err := client.Mail(m.sender); err != nil {
		return fmt.Errorf("ошибка MAIL FROM: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("ошибка RCPT TO: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("ошибка DATA: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("ошибка записи письма: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("ошибка завершения письма: %w", err)
	}

	return client.Quit()
}
