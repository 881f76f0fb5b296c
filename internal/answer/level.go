// Package answer turns retrieved plan excerpts into grounded, cited answers.
package answer

import (
	"fmt"
	"strings"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

// Level controls how much insurance vocabulary an answer assumes.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Levels lists the valid levels in increasing order of expertise.
func Levels() []Level {
	return []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}
}

// ParseLevel validates s. Empty selects LevelIntermediate.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LevelIntermediate, nil
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return l, nil
	default:
		return "", planerrors.New(planerrors.ErrCodeInvalidLevel,
			fmt.Sprintf("invalid level %q", s), nil).
			WithSuggestion("Must be beginner, intermediate, or advanced")
	}
}

// Instructions returns the tone guidance given to the model.
func (l Level) Instructions() string {
	switch l {
	case LevelBeginner:
		return "Explain everything in plain language. Define all insurance terms (copay, deductible, coinsurance, out-of-pocket maximum) with simple examples. Use everyday language and avoid jargon."
	case LevelAdvanced:
		return "Be concise and assume familiarity with insurance terminology. Focus on specific details, edge cases, and caveats."
	default:
		return "Provide clear explanations with brief definitions of key terms. Be direct and informative."
	}
}
