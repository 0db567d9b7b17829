package session

import "encoding/json"

// Phase of a lobby's round sequence.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseVoting  Phase = "voting"
	PhaseResults Phase = "results"
)

// TotalRounds bounds the round counter; round 19 is the last playable round.
const TotalRounds = 20

// Player as it appears in the session record's players array. ID equals the
// display name; two players choosing the same name collide, which the wire
// contract allows.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	LastSeen int64  `json:"lastSeen"`
	IsHost   bool   `json:"isHost,omitempty"`
}

// Votes holds the two per-round counters. Reset on every phase entry into
// voting.
type Votes struct {
	A int `json:"A"`
	B int `json:"B"`
}

// Record is the shared session document, one per lobby code. Every field is
// writable by every client; the field names are the wire contract and must
// not change.
type Record struct {
	Players   []Player `json:"players"`
	HostID    string   `json:"hostId"`
	Phase     Phase    `json:"phase"`
	Round     int      `json:"round"`
	Questions []string `json:"questions"`
	Votes     Votes    `json:"votes"`
	PersonA   string   `json:"personA,omitempty"`
	PersonB   string   `json:"personB,omitempty"`
}

// Encode converts a record into the document map the store persists.
func Encode(r Record) map[string]any {
	if r.Players == nil {
		r.Players = []Player{}
	}
	if r.Questions == nil {
		r.Questions = []string{}
	}
	raw, _ := json.Marshal(r)
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	return doc
}

// EncodePlayers converts a player list into the value written under the
// "players" field by partial updates (join, heartbeat, eviction, leave).
func EncodePlayers(players []Player) []any {
	if players == nil {
		players = []Player{}
	}
	raw, _ := json.Marshal(players)
	var out []any
	_ = json.Unmarshal(raw, &out)
	return out
}

// Decode reads a record out of a document map. Missing fields take their
// zero-value defaults: no players is an empty list, no phase is waiting, no
// votes are zero counters. Unknown fields are ignored.
func Decode(doc map[string]any) Record {
	var r Record
	if doc != nil {
		raw, _ := json.Marshal(doc)
		_ = json.Unmarshal(raw, &r)
	}
	if r.Players == nil {
		r.Players = []Player{}
	}
	if r.Questions == nil {
		r.Questions = []string{}
	}
	if r.Phase == "" {
		r.Phase = PhaseWaiting
	}
	return r
}

// FindPlayer returns the index of the player with the given id, or -1.
func (r Record) FindPlayer(id string) int {
	for i, p := range r.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
