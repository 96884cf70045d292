// client.go
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"mime"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	jwemail "github.com/jordan-wright/email"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"YieldCurvePCA/src/config"
	"YieldCurvePCA/src/storage"
)

const (
	MaxFetchMessages   = 100            // cap per fetch, keeps memory bounded
	FetchBufferSize    = 10             // fetch channel buffer
	RecentMailDuration = 72 * time.Hour // how far back a delivery counts as new
)

// MailService is the surface the scheduler drives. Kept an interface so the
// cron loop can be exercised against a fake inbox in tests.
type MailService interface {
	Connect() error
	Disconnect()
	FetchUnreadEmails() ([]*Email, error)
}

// Email is one fetched message, subject and attachment names decoded.
type Email struct {
	UID         uint32
	Date        time.Time
	From        string
	Subject     string
	Attachments []*Attachment
}

// Attachment is a raw attachment body.
type Attachment struct {
	Filename string
	Content  []byte
}

// Client is the IMAP implementation of MailService.
type Client struct {
	server    string
	username  string
	password  string
	client    *client.Client
	mu        sync.Mutex
	connected bool
}

func NewClient(server, username, password string) *Client {
	return &Client{
		server:   server,
		username: username,
		password: password,
	}
}

// Connect dials TLS and logs in, reusing a live connection when possible.
func (s *Client) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		s.client.Logout()
		s.client = nil
		s.connected = false
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.server, err)
	}
	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("login %s: %w", s.username, err)
	}

	s.client = c
	s.connected = true
	return nil
}

func (s *Client) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// FetchUnreadEmails returns unseen messages from the recent window, newest
// deliveries included, attachments fully read.
func (s *Client) FetchUnreadEmails() ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("not connected to the mail server")
	}

	if _, err := s.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)

	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxFetchMessages {
		ids = ids[:MaxFetchMessages]
	}

	return s.fetchMessages(ids)
}

func (s *Client) fetchMessages(ids []uint32) ([]*Email, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		e, err := parseEmail(msg, section)
		if err != nil {
			log.Printf("parse message %d: %v", msg.Uid, err)
			continue
		}
		emails = append(emails, e)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch bodies: %w", err)
	}
	return emails, nil
}

func parseEmail(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("message body is empty")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("create mail reader: %w", err)
	}

	header := mr.Header
	date, _ := header.Date() // a bad Date header does not block the rest

	e := &Email{
		UID:     msg.Uid,
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip unparseable parts
		}
		if h, ok := p.Header.(*mail.AttachmentHeader); ok {
			if err := readAttachment(h, p.Body, e); err != nil {
				log.Printf("attachment on message %d: %v", msg.Uid, err)
			}
		}
	}
	return e, nil
}

func readAttachment(h *mail.AttachmentHeader, body io.Reader, e *Email) error {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		return fmt.Errorf("attachment without a usable filename")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("read attachment body: %w", err)
	}

	e.Attachments = append(e.Attachments, &Attachment{
		Filename: decodeHeader(filename),
		Content:  buf.Bytes(),
	})
	return nil
}

// decodeHeader handles =?charset?_?...?= encoded words, including the
// Japanese charsets Go's mime package does not know.
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}
	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-2022-jp":
		return transform.NewReader(input, japanese.ISO2022JP.NewDecoder()), nil
	case "shift_jis", "shift-jis", "sjis", "cp932", "windows-31j":
		return transform.NewReader(input, japanese.ShiftJIS.NewDecoder()), nil
	case "euc-jp":
		return transform.NewReader(input, japanese.EUCJP.NewDecoder()), nil
	default:
		return input, nil
	}
}

// CheckInbox runs one inbox pass: connect, fetch unseen, hand matching
// deliveries to the handler, and return the paths of tables it saved.
func CheckInbox(svc MailService, handler *AttachmentHandler, logger *storage.Logger) ([]string, error) {
	logger.Info("checking inbox for yield table deliveries...")

	if err := svc.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer svc.Disconnect()

	emails, err := svc.FetchUnreadEmails()
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if len(emails) == 0 {
		logger.Info("no new mail")
		return nil, nil
	}

	var saved []string
	for _, e := range emails {
		paths, err := handler.Handle(e, logger)
		if err != nil {
			logger.Error(fmt.Sprintf("handle mail UID %d: %v", e.UID, err))
			continue
		}
		saved = append(saved, paths...)
	}
	return saved, nil
}

// SendReport mails the rendered chart and results workbook.
func SendReport(c *config.Config, subject, body string, attachments []string) error {
	e := jwemail.NewEmail()
	e.From = fmt.Sprintf("JGB PCA <%s>", c.Report.Username)
	e.To = c.Report.Recipients
	e.Subject = subject
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("attach %s: %w", path, err)
		}
	}

	smtpAddr := c.Report.Server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465"
	}
	host := strings.Split(smtpAddr, ":")[0]

	err := e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", c.Report.Username, c.Report.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("send via %s: %w", smtpAddr, err)
	}
	return nil
}
