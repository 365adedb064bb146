// Package bullet implements the text-in, text-out bullet operations used by
// every front end: writing, listing and deleting a user's unsent bullets,
// registering display names, and maintaining the digest recipient list.
//
// Expected user mistakes come back as explanatory text with a nil error.
// A non-nil error is always a system fault the caller should log.
package bullet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"

	"bulletbot/internal/logging"
	"bulletbot/internal/store"
)

const (
	NoUnsentText   = "No unsent bullets."
	DeleteHint     = "Please specify indices of bullets from .list. e.g. [1, 3]"
	EmptyNoteText  = "Nothing to write."
	RegisterHint   = "Please specify a name, e.g. .register Jane Doe"
	RecipientsHint = "Please specify recipient addresses, e.g. a@example.com, b@example.com"
	NoRecipients   = "No recipients."
	BadAddressText = "Not an email address: "
)

type Service struct {
	Store *store.Store
	Log   logging.Logger
}

func NewService(st *store.Store, log logging.Logger) *Service {
	return &Service{Store: st, Log: log}
}

// RegisterDisplayName stores name (trimmed) as nick's display name.
func (s *Service) RegisterDisplayName(ctx context.Context, nick, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if err := s.Store.UpsertUser(ctx, nick); err != nil {
			return "", err
		}
		return RegisterHint, nil
	}
	if err := s.Store.SetRealname(ctx, nick, name); err != nil {
		return "", err
	}

	resp := fmt.Sprintf("Registered nick %s as %s", nick, name)
	s.Log.Info(ctx, "registered nick", "nick", nick, "realname", name)
	return resp, nil
}

// CreateNote writes text verbatim as a new unsent bullet for nick.
func (s *Service) CreateNote(ctx context.Context, nick, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return EmptyNoteText, nil
	}
	n, err := s.Store.CreateNote(ctx, nick, text)
	if err != nil {
		return "", err
	}

	resp := "Wrote bullet: " + n.Body
	s.Log.Info(ctx, "wrote bullet", "nick", nick, "id", n.ID)
	return resp, nil
}

// ListNotes renders nick's unsent bullets as "{index}. {body}" lines.
func (s *Service) ListNotes(ctx context.Context, nick string) (string, error) {
	notes, err := s.Store.UnsentFor(ctx, nick)
	if err != nil {
		return "", err
	}
	resp := renderList(notes)
	s.Log.Info(ctx, "listed bullets", "nick", nick, "count", len(notes))
	return resp, nil
}

func renderList(notes []store.Note) string {
	if len(notes) == 0 {
		return NoUnsentText
	}
	lines := make([]string, 0, len(notes))
	for i, n := range notes {
		lines = append(lines, fmt.Sprintf("%d. %s", i, n.Body))
	}
	return strings.Join(lines, "\n")
}

// DeleteNotes deletes the bullets at the display positions listed in text,
// as numbered by ListNotes. Positions are resolved against one locked
// snapshot and deleted in the same transaction, so either every requested
// bullet is deleted or none is.
func (s *Service) DeleteNotes(ctx context.Context, nick, text string) (string, error) {
	indices, err := ParseIndices(text)
	if err != nil {
		s.Log.Info(ctx, "rejected delete", "nick", nick, "text", text)
		return DeleteHint, nil
	}

	var resolved []Resolved
	err = s.Store.Transaction(ctx, func(tx *store.Store) error {
		snapshot, err := tx.UnsentForUpdate(ctx, nick)
		if err != nil {
			return err
		}
		resolved, err = Resolve(snapshot, indices)
		if err != nil {
			return err
		}

		ids := IDs(resolved)
		s.Log.Debug(ctx, "deleting bullets", "nick", nick, "ids", ids)
		n, err := tx.DeleteByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return fmt.Errorf("%w: deleted %d of %d for %q", ErrDeleteMismatch, n, len(ids), nick)
		}
		return nil
	})

	var ie *IndexError
	if errors.As(err, &ie) {
		resp := fmt.Sprintf("Bullet %s not found.", indexLabel(text, ie))
		s.Log.Info(ctx, "delete index not found", "nick", nick, "index", ie.Index)
		return resp, nil
	}
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(resolved))
	for _, r := range resolved {
		lines = append(lines, fmt.Sprintf("Deleted bullet %d: '%s'", r.Index, r.Note.Body))
	}
	s.Log.Info(ctx, "deleted bullets", "nick", nick, "count", len(resolved))
	return strings.Join(lines, "\n"), nil
}

// indexLabel names the missing position the way the user should see it.
// Clamped out-of-range integers are echoed as typed.
func indexLabel(text string, ie *IndexError) string {
	if ie.Index == math.MaxInt || ie.Index == math.MinInt {
		if tokens := Tokenize(text); ie.Pos < len(tokens) {
			return tokens[ie.Pos]
		}
	}
	return strconv.Itoa(ie.Index)
}

type address struct {
	Email     string
	Addressee bool
}

// parseAddresses tokenizes text into addresses. A leading "!" marks a
// primary addressee when allowPrimary is set. bad is the first token that
// is not a bare email address.
func parseAddresses(text string, allowPrimary bool) (addrs []address, bad string) {
	for _, t := range Tokenize(text) {
		a := address{Email: t}
		if allowPrimary && strings.HasPrefix(t, "!") {
			a = address{Email: strings.TrimPrefix(t, "!"), Addressee: true}
		}
		parsed, err := mail.ParseAddress(a.Email)
		if err != nil || parsed.Address != a.Email {
			return nil, t
		}
		addrs = append(addrs, a)
	}
	return addrs, ""
}

func emails(as []address) string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Email)
	}
	return strings.Join(out, ", ")
}

// AddRecipients adds every address in text to the digest distribution list.
// Prefix an address with "!" to mark it as a primary addressee.
func (s *Service) AddRecipients(ctx context.Context, text string) (string, error) {
	addrs, bad := parseAddresses(text, true)
	if bad != "" {
		return BadAddressText + bad, nil
	}
	if len(addrs) == 0 {
		return RecipientsHint, nil
	}

	err := s.Store.Transaction(ctx, func(tx *store.Store) error {
		for _, a := range addrs {
			if err := tx.UpsertRecipient(ctx, a.Email, a.Addressee); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	resp := "Created recipient addresses " + emails(addrs)
	s.Log.Info(ctx, "created recipients", "count", len(addrs))
	return resp, nil
}

// RemoveRecipients deletes every address in text from the distribution
// list. Unknown addresses are ignored.
func (s *Service) RemoveRecipients(ctx context.Context, text string) (string, error) {
	addrs, bad := parseAddresses(text, false)
	if bad != "" {
		return BadAddressText + bad, nil
	}
	if len(addrs) == 0 {
		return RecipientsHint, nil
	}

	err := s.Store.Transaction(ctx, func(tx *store.Store) error {
		for _, a := range addrs {
			if _, err := tx.DeleteRecipient(ctx, a.Email); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	resp := "Deleted recipient addresses " + emails(addrs)
	s.Log.Info(ctx, "deleted recipients", "count", len(addrs))
	return resp, nil
}

// ListRecipients renders the distribution list, one address per line,
// primary addressees marked with "*".
func (s *Service) ListRecipients(ctx context.Context) (string, error) {
	rs, err := s.Store.Recipients(ctx)
	if err != nil {
		return "", err
	}
	if len(rs) == 0 {
		return NoRecipients, nil
	}
	lines := make([]string, 0, len(rs))
	for _, r := range rs {
		line := r.Email
		if r.IsAddressee {
			line += " *"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
