package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeUsesWireFieldNames(t *testing.T) {
	rec := Record{
		Players: []Player{
			{ID: "alice", Name: "alice", Image: "http://img/a.png", LastSeen: 1700000000000, IsHost: true},
		},
		HostID:    "alice",
		Phase:     PhaseVoting,
		Round:     3,
		Questions: []string{"q1", "q2"},
		Votes:     Votes{A: 2, B: 1},
		PersonA:   "alice",
		PersonB:   "bob",
	}

	doc := Encode(rec)

	for _, field := range []string{"players", "hostId", "phase", "round", "questions", "votes", "personA", "personB"} {
		require.Contains(t, doc, field)
	}

	players, ok := doc["players"].([]any)
	require.True(t, ok)
	require.Len(t, players, 1)
	p, ok := players[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice", p["id"])
	require.Equal(t, "alice", p["name"])
	require.Equal(t, float64(1700000000000), p["lastSeen"])
	require.Equal(t, true, p["isHost"])

	votes, ok := doc["votes"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(2), votes["A"])
	require.Equal(t, float64(1), votes["B"])
}

func TestDecodeRoundTrip(t *testing.T) {
	rec := Record{
		Players:   []Player{{ID: "bob", Name: "bob", Image: "x", LastSeen: 42}},
		HostID:    "bob",
		Phase:     PhaseResults,
		Round:     19,
		Questions: []string{"q"},
		Votes:     Votes{A: 5, B: 7},
		PersonA:   "bob",
		PersonB:   "bob",
	}
	require.Equal(t, rec, Decode(Encode(rec)))
}

func TestDecodeToleratesMissingFields(t *testing.T) {
	cases := []struct {
		name string
		doc  map[string]any
	}{
		{"nil document", nil},
		{"empty document", map[string]any{}},
		{"only players", map[string]any{"players": []any{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Decode(tc.doc)
			require.NotNil(t, rec.Players)
			require.Empty(t, rec.Players)
			require.Equal(t, PhaseWaiting, rec.Phase)
			require.Equal(t, 0, rec.Round)
			require.Equal(t, Votes{}, rec.Votes)
		})
	}
}

func TestFindPlayer(t *testing.T) {
	rec := Record{Players: []Player{{ID: "a"}, {ID: "b"}}}
	if got := rec.FindPlayer("b"); got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
	if got := rec.FindPlayer("missing"); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}
