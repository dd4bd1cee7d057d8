package domain

import (
	"strings"
	"unicode/utf8"
)

const MaxNameLen = 36

type Role string

const (
	Participant Role = "participant"
	Observer    Role = "observer"
)

func (r Role) Valid() bool { return r == Participant || r == Observer }

// ParseRole maps an empty string to Participant.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return Participant, nil
	}
	r := Role(strings.ToLower(s))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Player is one member of a room. Observers are visible but never vote.
type Player struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name"`
	Vote Card          `json:"vote"`
	Role Role          `json:"role"`
}

func (p Player) HasVoted() bool { return p.Vote != NoVote }

// NormalizeName trims the display name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

// NormalizeTopic trims the round label; blank means no topic.
func NormalizeTopic(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxTopicLen {
		text = string([]rune(text)[:MaxTopicLen])
	}
	return text
}
