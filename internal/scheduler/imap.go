package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	imap "github.com/BrianLeishman/go-imap"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
)

// IMAPMailbox reads one folder over IMAP, opening a connection per fetch.
type IMAPMailbox struct {
	host     string
	port     int
	username string
	password string
	folder   string
}

func NewIMAPMailbox(cfg config.MailboxConfig) *IMAPMailbox {
	folder := cfg.GetIMAPFolder()
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPMailbox{
		host:     cfg.GetIMAPHost(),
		port:     cfg.GetIMAPPort(),
		username: cfg.GetIMAPUsername(),
		password: cfg.GetIMAPPassword(),
		folder:   folder,
	}
}

func (m *IMAPMailbox) Folder() string { return m.folder }

func (m *IMAPMailbox) FetchAfter(ctx context.Context, afterUID, limit int) ([]FetchedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := imap.New(m.username, m.password, m.host, m.port)
	if err != nil {
		return nil, fmt.Errorf("imap connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SelectFolder(m.folder); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", m.folder, err)
	}

	// "n:*" always matches the newest message, so filter again below.
	uids, err := conn.GetUIDs(fmt.Sprintf("UID %d:*", afterUID+1))
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids = newerThan(uids, afterUID, limit)
	if len(uids) == 0 {
		return nil, nil
	}

	emails, err := conn.GetEmails(uids...)
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	out := make([]FetchedMessage, 0, len(emails))
	for uid, e := range emails {
		body := e.Text
		if strings.TrimSpace(body) == "" {
			body = e.HTML
		}
		out = append(out, FetchedMessage{
			UID: uid,
			Payload: IntakeMessagePayload{
				From:       firstAddress(e.From),
				Subject:    e.Subject,
				Body:       body,
				ReceivedAt: e.Received,
			},
		})
	}
	return out, nil
}

func newerThan(uids []int, after, limit int) []int {
	out := make([]int, 0, len(uids))
	for _, uid := range uids {
		if uid > after {
			out = append(out, uid)
		}
	}
	sort.Ints(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func firstAddress(addrs map[string]string) string {
	keys := make([]string, 0, len(addrs))
	for addr := range addrs {
		keys = append(keys, addr)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
