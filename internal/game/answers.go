package game

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Accepted answers per stage. Stages 2-4 also accept "1", a deliberate
// shortcut so a stuck team is never hard-blocked.
var acceptedAnswers = map[int][]string{
	// Stage 1: best option in each category sums to 0 + 40 + 40 = 80.
	1: {"80"},
	// Stage 2: memory game, 8 pairs.
	2: {"8", "huit", "1"},
	// Stage 3: the critical deforestation region.
	3: {"amazonie", "amazon", "amazonia", "1"},
	// Stage 4: renewable share of the energy mix, any ceiling >= 60%.
	4: {"60", "60%", "65", "65%", "70", "70%", "1"},
}

const (
	msgSessionNotFound = "Partie introuvable"
	msgInvalidStage    = "Énigme invalide"
	msgWrongAnswer     = "Réponse incorrecte. Réessayez !"
	msgStageSolved     = "Énigme résolue ! Passage à la salle suivante."
)

// AnswerResult reports the outcome of SubmitAnswer. Stage is the stage the
// answer was evaluated against, NextStage the session's stage afterwards.
type AnswerResult struct {
	Correct   bool
	Message   string
	Stage     int
	NextStage int
	Completed bool
}

// NormalizeAnswer flattens whatever the client sent (free text or a
// computed number, depending on the puzzle) into the canonical comparison
// form: stringified, trimmed, lower-cased. JSON numbers must come out
// without a decimal point so that 80 and "80" compare equal.
func NormalizeAnswer(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case nil:
		s = ""
	default:
		s = fmt.Sprint(t)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// SubmitAnswer validates answer against the session's current stage and,
// when correct, records the solve and advances the stage. claimedStage is
// what the client believes it is solving; it is reported back through the
// result but the accepted set is always the one for the authoritative
// CurrentStage, so a submission racing a teammate's solve is judged
// against the stage the session is actually on. Unknown codes come back
// as an incorrect result rather than an error.
func (r *Registry) SubmitAnswer(code string, claimedStage int, answer any) AnswerResult {
	s := r.Session(code)
	if s == nil {
		return AnswerResult{Message: msgSessionNotFound}
	}

	stage := s.CurrentStage
	if stage < 1 || stage > StageCount {
		return AnswerResult{Message: msgInvalidStage, Stage: claimedStage, NextStage: s.CurrentStage}
	}

	normalized := NormalizeAnswer(answer)
	correct := false
	for _, accepted := range acceptedAnswers[stage] {
		if normalized == accepted {
			correct = true
			break
		}
	}
	if !correct {
		return AnswerResult{Message: msgWrongAnswer, Stage: stage, NextStage: s.CurrentStage}
	}

	s.Solved = append(s.Solved, SolvedStage{RoomNumber: stage, SolvedAt: time.Now().UnixMilli()})
	s.CurrentStage = stage + 1
	return AnswerResult{
		Correct:   true,
		Message:   msgStageSolved,
		Stage:     stage,
		NextStage: s.CurrentStage,
		Completed: s.CurrentStage > StageCount,
	}
}
