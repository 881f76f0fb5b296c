package answer

import (
	"context"
	"regexp"
	"strings"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

// MaxSummaryChars bounds the document text sent for a summary.
const MaxSummaryChars = 15000

// PlanSummary holds the headline benefits pulled from a plan document.
// Fields the summary did not mention are listed in UnknownFields.
type PlanSummary struct {
	Deductible         string   `json:"deductible,omitempty"`
	OutOfPocketMax     string   `json:"outOfPocketMax,omitempty"`
	PrimaryCareCopay   string   `json:"primaryCareCopay,omitempty"`
	SpecialistCopay    string   `json:"specialistCopay,omitempty"`
	EmergencyRoomCopay string   `json:"emergencyRoomCopay,omitempty"`
	UrgentCareCopay    string   `json:"urgentCareCopay,omitempty"`
	PreventiveCare     string   `json:"preventiveCare,omitempty"`
	ReferralRequired   string   `json:"referralRequired,omitempty"`
	PriorAuthorization string   `json:"priorAuthorization,omitempty"`
	NetworkNotes       string   `json:"networkNotes,omitempty"`
	DrugTierOverview   string   `json:"drugTierOverview,omitempty"`
	UnknownFields      []string `json:"unknownFields"`
	FullText           string   `json:"fullText"`
}

type summaryField struct {
	name    string
	pattern *regexp.Regexp
	set     func(*PlanSummary, string)
}

var summaryFields = []summaryField{
	{"deductible", regexp.MustCompile(`(?i)deductible[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.Deductible = v }},
	{"outOfPocketMax", regexp.MustCompile(`(?i)out[-\s]of[-\s]pocket[-\s]max[imum]*[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.OutOfPocketMax = v }},
	{"primaryCareCopay", regexp.MustCompile(`(?i)primary[-\s]care[-\s]copay[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.PrimaryCareCopay = v }},
	{"specialistCopay", regexp.MustCompile(`(?i)specialist[-\s]copay[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.SpecialistCopay = v }},
	{"emergencyRoomCopay", regexp.MustCompile(`(?i)emergency[-\s]room[-\s]copay[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.EmergencyRoomCopay = v }},
	{"urgentCareCopay", regexp.MustCompile(`(?i)urgent[-\s]care[-\s]copay[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.UrgentCareCopay = v }},
	{"preventiveCare", regexp.MustCompile(`(?i)preventive[-\s]care[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.PreventiveCare = v }},
	{"referralRequired", regexp.MustCompile(`(?i)referral[-\s]required[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.ReferralRequired = v }},
	{"priorAuthorization", regexp.MustCompile(`(?i)prior[-\s]authorization[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.PriorAuthorization = v }},
	{"networkNotes", regexp.MustCompile(`(?i)network[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.NetworkNotes = v }},
	{"drugTierOverview", regexp.MustCompile(`(?i)drug[-\s]tier[:\s]+([^\n]+)`), func(s *PlanSummary, v string) { s.DrugTierOverview = v }},
}

// SummaryPrompt is the system prompt for plan summaries.
func SummaryPrompt(level Level) string {
	return `You are an expert insurance plan interpreter. Extract key information from an insurance plan document and present it in a structured summary.

` + level.Instructions() + `

Extract the following information if available:
- Deductible amount
- Out-of-pocket maximum
- Primary care copay
- Specialist copay
- Emergency room copay
- Urgent care copay
- Preventive care coverage details
- Referral requirements
- Prior authorization requirements
- Network information
- Prescription drug tier overview

For each field, if the information is found, provide a clear explanation appropriate for the user's level. If information is NOT found in the document, explicitly state "Not found in document" for that field.

Return your response as a structured summary. Be accurate and only include information that is clearly stated in the document.`
}

// Summarize asks the generator for a structured summary of documentText.
func (c *Composer) Summarize(ctx context.Context, documentText string, excerpts []Excerpt, level Level) (*PlanSummary, error) {
	runes := []rune(documentText)
	if len(runes) > MaxSummaryChars {
		runes = runes[:MaxSummaryChars]
	}

	text, err := c.gen.Generate(ctx, Prompt{
		Task:        TaskSummary,
		System:      SummaryPrompt(level),
		User:        "Here is the insurance plan document:\n\n" + string(runes),
		Excerpts:    excerpts,
		Temperature: c.temperature,
	})
	if err != nil {
		if _, ok := planerrors.As(err); ok {
			return nil, err
		}
		return nil, planerrors.New(planerrors.ErrCodeGenerationFailed, "generate summary", err)
	}
	return ParseSummary(text), nil
}

// ParseSummary pulls the known fields out of free-form summary text.
func ParseSummary(text string) *PlanSummary {
	s := &PlanSummary{UnknownFields: []string{}, FullText: text}
	for _, f := range summaryFields {
		if m := f.pattern.FindStringSubmatch(text); m != nil {
			f.set(s, strings.TrimSpace(m[1]))
			continue
		}
		s.UnknownFields = append(s.UnknownFields, f.name)
	}
	return s
}
