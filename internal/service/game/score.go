package game

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	POINTS_UNIQUE = 10
	POINTS_SHARED = 5
)

type CategoryAnswer struct {
	PlayerID string `json:"player_id"`
	Answer   string `json:"answer"`
	IsValid  bool   `json:"is_valid"`
	IsUnique bool   `json:"is_unique"`
	Points   int    `json:"points"`
}

type CategoryResult struct {
	Category string           `json:"category"`
	Answers  []CategoryAnswer `json:"answers"`
}

type RoundResult struct {
	Round           int              `json:"round"`
	Letter          string           `json:"letter"`
	CategoryResults []CategoryResult `json:"category_results"`
	PlayerScores    map[string]int   `json:"player_scores"`
}

func (rr RoundResult) clone() RoundResult {
	out := rr
	out.CategoryResults = make([]CategoryResult, len(rr.CategoryResults))
	for i, cr := range rr.CategoryResults {
		out.CategoryResults[i] = CategoryResult{
			Category: cr.Category,
			Answers:  append([]CategoryAnswer(nil), cr.Answers...),
		}
	}
	out.PlayerScores = make(map[string]int, len(rr.PlayerScores))
	for k, v := range rr.PlayerScores {
		out.PlayerScores[k] = v
	}
	return out
}

// RoundInput is everything a Scorer may look at when a round is finalized.
type RoundInput struct {
	Round      int
	Letter     string
	Categories []string
	Players    []string
	Answers    map[string]PlayerAnswers
	// target player -> category -> voter -> isValid
	Votes map[string]map[string]map[string]bool
}

// Scorer judges one finished round. It must not retain the input.
type Scorer interface {
	Score(in RoundInput) RoundResult
}

// ClassicScorer: a non-blank answer starting with the round letter is valid
// unless a strict majority of its voters marked it invalid. Valid answers
// score POINTS_UNIQUE when nobody else gave the same word in that category,
// POINTS_SHARED otherwise.
type ClassicScorer struct{}

func (ClassicScorer) Score(in RoundInput) RoundResult {
	result := RoundResult{
		Round:           in.Round,
		Letter:          in.Letter,
		CategoryResults: make([]CategoryResult, 0, len(in.Categories)),
		PlayerScores:    make(map[string]int, len(in.Players)),
	}

	for _, id := range in.Players {
		result.PlayerScores[id] = 0
	}

	for _, category := range in.Categories {
		cr := CategoryResult{Category: category}
		seen := make(map[string]int)

		for _, id := range in.Players {
			pa, ok := in.Answers[id]
			if !ok {
				continue
			}

			answer := strings.TrimSpace(pa.Answers[category])
			ca := CategoryAnswer{
				PlayerID: id,
				Answer:   answer,
				IsValid:  startsWithLetter(answer, in.Letter) && !votedInvalid(in.Votes, id, category),
			}
			if ca.IsValid {
				seen[normalize(answer)]++
			}
			cr.Answers = append(cr.Answers, ca)
		}

		for i := range cr.Answers {
			ca := &cr.Answers[i]
			if !ca.IsValid {
				continue
			}
			ca.IsUnique = seen[normalize(ca.Answer)] == 1
			if ca.IsUnique {
				ca.Points = POINTS_UNIQUE
			} else {
				ca.Points = POINTS_SHARED
			}
			result.PlayerScores[ca.PlayerID] += ca.Points
		}

		result.CategoryResults = append(result.CategoryResults, cr)
	}

	return result
}

func startsWithLetter(answer, letter string) bool {
	if answer == "" || letter == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(answer)
	want, _ := utf8.DecodeRuneInString(letter)
	return unicode.ToUpper(first) == unicode.ToUpper(want)
}

func votedInvalid(votes map[string]map[string]map[string]bool, target, category string) bool {
	byVoter := votes[target][category]
	if len(byVoter) == 0 {
		return false
	}

	invalid := 0
	for _, valid := range byVoter {
		if !valid {
			invalid++
		}
	}

	return invalid*2 > len(byVoter)
}

func normalize(answer string) string {
	return strings.ToLower(strings.Join(strings.Fields(answer), " "))
}

// sortedPlayers gives scoring a stable player order.
func sortedPlayers(scores map[string]int, answers map[string]PlayerAnswers) []string {
	set := make(map[string]struct{}, len(scores)+len(answers))
	for id := range scores {
		set[id] = struct{}{}
	}
	for id := range answers {
		set[id] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)

	return out
}
