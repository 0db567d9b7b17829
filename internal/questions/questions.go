// Package questions holds the static prompt bank. The bank is fixed; each
// session stores its own shuffled selection so every client shows the same
// question for a given round.
package questions

import "math/rand"

var Bank = []string{
	"Who is more likely to make the first move?",
	"Which one is the better kisser?",
	"Who is more adventurous in the bedroom?",
	"Which one is more likely to send a risky text?",
	"Who is more dominant?",
	"Which one has a wilder imagination?",
	"Who is more likely to get caught in the act?",
	"Which one is the bigger tease?",
	"Who is more likely to have a secret fantasy?",
	"Which one would last longer in a spicy challenge?",
	"Who is more likely to try something completely unexpected?",
	"Which one is more into roleplay?",
	"Who is more likely to initiate in an unexpected place?",
	"Which one is better at setting the mood?",
	"Who is more likely to take control?",
	"Which one enjoys being teased more?",
	"Who is more likely to suggest something new?",
	"Which one gets flustered more easily?",
	"Who is more likely to sneak away for a quick moment?",
	"Which one is more experimental?",
	"Who is more likely to have a hidden wild side?",
	"Which one enjoys the anticipation more?",
	"Who is more likely to make the first move in public?",
	"Which one enjoys being in charge?",
	"Who is more likely to lose control?",
	"Which one is more confident in their skills?",
	"Who is more likely to turn a normal situation into something spicy?",
	"Which one is harder to resist?",
	"Who is more likely to plan a surprise?",
	"Which one has a more mischievous side?",
	"Who is more likely to make the other blush?",
	"Which one has a more seductive voice?",
	"Who is more likely to leave a lasting impression?",
	"Which one is more spontaneous?",
	"Who is more likely to push the limits?",
	"Which one is more easily tempted?",
	"Who is more likely to turn up the heat with just a look?",
	"Which one enjoys a little bit of mystery more?",
	"Who is more likely to take things slow and build anticipation?",
	"Which one is more into late-night conversations that turn into something more?",
	"Who is more confident in making someone weak in the knees?",
	"Which one is more likely to leave a mark?",
	"Who is more into eye contact that says everything?",
	"Which one is better at keeping secrets?",
	"Who is more likely to whisper something dangerous in the ear?",
	"Which one is more irresistible after a few drinks?",
	"Who is more likely to have a secret trick up their sleeve?",
	"Which one enjoys a little challenge more?",
	"Who is more likely to say something shocking in the heat of the moment?",
	"Which one is more unforgettable?",
}

// Pick returns a shuffled selection of n questions from the bank, fewer if
// the bank is smaller.
func Pick(n int) []string {
	shuffled := Shuffle(Bank)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

// Shuffle returns a shuffled copy, leaving the input untouched.
func Shuffle(qs []string) []string {
	out := make([]string, len(qs))
	copy(out, qs)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
