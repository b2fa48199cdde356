package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SectionKind is the closed set of section types a passfile may contain.
type SectionKind interface {
	PwdSection | TxtSection
	SectionID() string
	String() string
}

// PwdItem is one secret of a password section together with the places it
// is used for (logins, e-mails, hints).
type PwdItem struct {
	Value string   `cbor:"value" json:"value"`
	Usage []string `cbor:"usage,omitempty" json:"usage,omitempty"`
}

// PwdSection groups the credentials for one site or service.
type PwdSection struct {
	ID         string    `cbor:"id" json:"id"`
	Name       string    `cbor:"name" json:"name"`
	WebsiteURL string    `cbor:"url,omitempty" json:"url,omitempty"`
	Items      []PwdItem `cbor:"items,omitempty" json:"items,omitempty"`
}

func NewPwdSection(name, url string, items ...PwdItem) PwdSection {
	return PwdSection{ID: uuid.NewString(), Name: name, WebsiteURL: url, Items: items}
}

func (s PwdSection) SectionID() string { return s.ID }

func (s PwdSection) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", s.Name)
	if s.WebsiteURL != "" {
		fmt.Fprintf(&b, " %s", s.WebsiteURL)
	}
	b.WriteByte('\n')
	for _, it := range s.Items {
		fmt.Fprintf(&b, "  %s", it.Value)
		if len(it.Usage) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(it.Usage, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TxtSection is a free-text note.
type TxtSection struct {
	ID      string `cbor:"id" json:"id"`
	Name    string `cbor:"name" json:"name"`
	Content string `cbor:"content" json:"content"`
}

func NewTxtSection(name, content string) TxtSection {
	return TxtSection{ID: uuid.NewString(), Name: name, Content: content}
}

func (s TxtSection) SectionID() string { return s.ID }

func (s TxtSection) String() string {
	return fmt.Sprintf("[%s]\n%s\n", s.Name, s.Content)
}

// CloneSections deep-copies a section slice so that edits to the copy never
// reach the original through shared backing arrays.
func CloneSections[S SectionKind](in []S) []S {
	if in == nil {
		return nil
	}
	switch v := any(in).(type) {
	case []PwdSection:
		out := make([]PwdSection, len(v))
		for i, s := range v {
			out[i] = s
			if s.Items != nil {
				out[i].Items = make([]PwdItem, len(s.Items))
				for j, it := range s.Items {
					out[i].Items[j] = PwdItem{Value: it.Value, Usage: append([]string(nil), it.Usage...)}
				}
			}
		}
		return any(out).([]S)
	default:
		out := make([]S, len(in))
		copy(out, in)
		return out
	}
}

// ParsePwdItem parses "value" or "value=usage1,usage2" into a PwdItem.
func ParsePwdItem(s string) (PwdItem, error) {
	value, usage, found := strings.Cut(s, "=")
	if value == "" {
		return PwdItem{}, ErrIncorrectItem
	}
	item := PwdItem{Value: value}
	if found {
		for _, u := range strings.Split(usage, ",") {
			if u = strings.TrimSpace(u); u != "" {
				item.Usage = append(item.Usage, u)
			}
		}
	}
	return item, nil
}
