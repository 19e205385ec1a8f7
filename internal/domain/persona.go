package domain

import "strings"

// Persona is a synthetic customer profile used to exercise the collection agent.
type Persona struct {
	ID                 int64    `json:"id" yaml:"id,omitempty"`
	Name               string   `json:"name" yaml:"name"`
	Archetype          string   `json:"type" yaml:"type"`
	Background         string   `json:"background" yaml:"background"`
	FinancialSituation string   `json:"financial_situation" yaml:"financial_situation"`
	CommunicationStyle string   `json:"communication_style" yaml:"communication_style"`
	CooperationLevel   string   `json:"cooperation_level" yaml:"cooperation_level"`
	PersonalityTraits  []string `json:"personality_traits" yaml:"personality_traits"`
	ExampleUtterances  []string `json:"likely_responses" yaml:"likely_responses"`
	SpeechPatterns     []string `json:"speech_patterns,omitempty" yaml:"speech_patterns,omitempty"`
	Behaviors          []string `json:"human_behaviors,omitempty" yaml:"human_behaviors,omitempty"`
}

// PersonaPatch carries the fields of a partial persona update. Nil fields are left untouched.
type PersonaPatch struct {
	Name               *string   `json:"name"`
	Archetype          *string   `json:"type"`
	Background         *string   `json:"background"`
	FinancialSituation *string   `json:"financial_situation"`
	CommunicationStyle *string   `json:"communication_style"`
	CooperationLevel   *string   `json:"cooperation_level"`
	PersonalityTraits  *[]string `json:"personality_traits"`
	ExampleUtterances  *[]string `json:"likely_responses"`
	SpeechPatterns     *[]string `json:"speech_patterns"`
	Behaviors          *[]string `json:"human_behaviors"`
}

// Validate checks the fields every stored persona must carry.
func (p *Persona) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if strings.TrimSpace(p.Archetype) == "" {
		return &ValidationError{Field: "type", Reason: "is required"}
	}
	return nil
}

// Clone returns a deep copy so callers can hold a persona without sharing slices.
func (p Persona) Clone() Persona {
	p.PersonalityTraits = cloneStrings(p.PersonalityTraits)
	p.ExampleUtterances = cloneStrings(p.ExampleUtterances)
	p.SpeechPatterns = cloneStrings(p.SpeechPatterns)
	p.Behaviors = cloneStrings(p.Behaviors)
	return p
}

// Apply merges the non-nil fields of patch into p.
func (p *Persona) Apply(patch PersonaPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Archetype != nil {
		p.Archetype = *patch.Archetype
	}
	if patch.Background != nil {
		p.Background = *patch.Background
	}
	if patch.FinancialSituation != nil {
		p.FinancialSituation = *patch.FinancialSituation
	}
	if patch.CommunicationStyle != nil {
		p.CommunicationStyle = *patch.CommunicationStyle
	}
	if patch.CooperationLevel != nil {
		p.CooperationLevel = *patch.CooperationLevel
	}
	if patch.PersonalityTraits != nil {
		p.PersonalityTraits = cloneStrings(*patch.PersonalityTraits)
	}
	if patch.ExampleUtterances != nil {
		p.ExampleUtterances = cloneStrings(*patch.ExampleUtterances)
	}
	if patch.SpeechPatterns != nil {
		p.SpeechPatterns = cloneStrings(*patch.SpeechPatterns)
	}
	if patch.Behaviors != nil {
		p.Behaviors = cloneStrings(*patch.Behaviors)
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
