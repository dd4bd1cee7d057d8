package domain

import (
	"slices"
	"time"
)

type (
	RoomID        string
	ParticipantID string
	// LinkID identifies one live client connection.
	LinkID string
)

const (
	MaxPlayers   = 20
	HistoryLimit = 10
	MaxTopicLen  = 256

	DefaultPreset = "fibonacci"
)

// Room is the authoritative snapshot of one voting session.
// It is a value: every transition returns a new Room and leaves the
// receiver untouched, so a published snapshot is never mutated.
type Room struct {
	ID       RoomID         `json:"id"`
	Players  []Player       `json:"players"`
	Revealed bool           `json:"revealed"`
	Cards    []Card         `json:"cards"`
	Preset   string         `json:"preset"`
	History  []HistoryEntry `json:"history"`
	Topic    string         `json:"topic,omitempty"`

	links   map[LinkID]ParticipantID
	rateLog map[ParticipantID][]time.Time
}

func NewRoom(id RoomID) Room {
	cards, _ := PresetCards(DefaultPreset)
	return Room{
		ID:      id,
		Players: []Player{},
		Cards:   cards,
		Preset:  DefaultPreset,
		History: []HistoryEntry{},
		links:   make(map[LinkID]ParticipantID),
		rateLog: make(map[ParticipantID][]time.Time),
	}
}

// clone copies every slice and map that a transition may touch.
// History entries are immutable and shared.
func (r Room) clone() Room {
	out := r
	out.Players = slices.Clone(r.Players)
	if out.Players == nil {
		out.Players = []Player{}
	}
	out.Cards = slices.Clone(r.Cards)
	out.History = slices.Clone(r.History)
	if out.History == nil {
		out.History = []HistoryEntry{}
	}
	out.links = make(map[LinkID]ParticipantID, len(r.links))
	for k, v := range r.links {
		out.links[k] = v
	}
	out.rateLog = make(map[ParticipantID][]time.Time, len(r.rateLog))
	for k, v := range r.rateLog {
		out.rateLog[k] = v
	}
	return out
}

func (r Room) PlayerCount() int { return len(r.Players) }

func (r Room) IsEmpty() bool { return len(r.Players) == 0 }

// Player returns the member with the given identity.
func (r Room) Player(id ParticipantID) (Player, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.Players[i], true
	}
	return Player{}, false
}

func (r Room) indexOf(id ParticipantID) int {
	return slices.IndexFunc(r.Players, func(p Player) bool { return p.ID == id })
}

// LinkCount reports how many live connections are recorded for id.
func (r Room) LinkCount(id ParticipantID) int {
	n := 0
	for _, owner := range r.links {
		if owner == id {
			n++
		}
	}
	return n
}

// AddPlayer inserts a member with no vote. A member re-joining under the
// same identity keeps its vote and position; only name and role change.
func (r Room) AddPlayer(id ParticipantID, name string, role Role, link LinkID) (Room, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return r, err
	}
	if !role.Valid() {
		return r, ErrInvalidRole
	}

	i := r.indexOf(id)
	if i < 0 && len(r.Players) >= MaxPlayers {
		return r, ErrRoomFull
	}

	next := r.clone()
	if i < 0 {
		next.Players = append(next.Players, Player{ID: id, Name: name, Role: role})
	} else {
		p := next.Players[i]
		p.Name = name
		p.Role = role
		if role == Observer {
			p.Vote = NoVote
		}
		next.Players[i] = p
	}
	if link != "" {
		next.links[link] = id
	}
	return next, nil
}

// RemovePlayer deletes the member, its rate log and every link it owns.
// Unknown identities are a no-op.
func (r Room) RemovePlayer(id ParticipantID) Room {
	next := r.clone()
	if i := next.indexOf(id); i >= 0 {
		next.Players = slices.Delete(next.Players, i, i+1)
	}
	delete(next.rateLog, id)
	for link, owner := range next.links {
		if owner == id {
			delete(next.links, link)
		}
	}
	return next
}

func (r Room) ResolveLink(link LinkID) (ParticipantID, bool) {
	id, ok := r.links[link]
	return id, ok
}

// LinksOf lists the live connections recorded for id.
func (r Room) LinksOf(id ParticipantID) []LinkID {
	var out []LinkID
	for link, owner := range r.links {
		if owner == id {
			out = append(out, link)
		}
	}
	return out
}

// Links lists every recorded connection.
func (r Room) Links() []LinkID {
	out := make([]LinkID, 0, len(r.links))
	for link := range r.links {
		out = append(out, link)
	}
	return out
}

// DropLink forgets one connection. last is true when its owner has no
// other live connection left and should be treated as gone.
func (r Room) DropLink(link LinkID) (next Room, owner ParticipantID, last bool) {
	owner, ok := r.links[link]
	if !ok {
		return r, "", false
	}
	next = r.clone()
	delete(next.links, link)
	return next, owner, next.LinkCount(owner) == 0
}

// Vote records card for id. An empty card withdraws the vote.
func (r Room) Vote(id ParticipantID, card Card) (Room, error) {
	i := r.indexOf(id)
	if i < 0 {
		return r, ErrPlayerNotFound
	}
	if r.Players[i].Role == Observer {
		return r, ErrObserverVote
	}
	if card != NoVote && !slices.Contains(r.Cards, card) {
		return r, ErrInvalidCard
	}
	next := r.clone()
	next.Players[i].Vote = card
	return next, nil
}

func (r Room) Reveal() Room {
	if r.Revealed {
		return r
	}
	next := r.clone()
	next.Revealed = true
	return next
}

// Reset starts a new round. A revealed round is archived to History first.
func (r Room) Reset(now time.Time) Room {
	next := r.clone()
	if r.Revealed {
		stats, _ := r.Statistics()
		entry := HistoryEntry{
			At:     now,
			Topic:  r.Topic,
			Preset: r.Preset,
			Votes:  r.castVotes(),
			Stats:  stats,
		}
		next.History = append([]HistoryEntry{entry}, next.History...)
		if len(next.History) > HistoryLimit {
			next.History = next.History[:HistoryLimit]
		}
	}
	next.clearVotes()
	next.Revealed = false
	next.Topic = ""
	return next
}

func (r Room) SetTopic(text string) Room {
	next := r.clone()
	next.Topic = NormalizeTopic(text)
	return next
}

// SetCards switches the active preset and clears every vote.
func (r Room) SetCards(preset string) (Room, error) {
	cards, ok := PresetCards(preset)
	if !ok {
		return r, ErrInvalidPreset
	}
	next := r.clone()
	next.Cards = cards
	next.Preset = preset
	next.clearVotes()
	return next, nil
}

// AllVoted is false for a room without participants.
func (r Room) AllVoted() bool {
	seen := false
	for _, p := range r.Players {
		if p.Role != Participant {
			continue
		}
		if !p.HasVoted() {
			return false
		}
		seen = true
	}
	return seen
}

func (r *Room) clearVotes() {
	for i := range r.Players {
		r.Players[i].Vote = NoVote
	}
}

func (r Room) castVotes() []CastVote {
	out := make([]CastVote, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Role == Participant && p.HasVoted() {
			out = append(out, CastVote{Name: p.Name, Vote: p.Vote})
		}
	}
	return out
}
