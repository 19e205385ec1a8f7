package domain

import (
	"errors"
	"testing"
)

func TestPersona_Validate(t *testing.T) {
	tests := []struct {
		name    string
		persona Persona
		field   string
	}{
		{name: "valid", persona: Persona{Name: "Maria", Archetype: "Cooperative"}},
		{name: "missing name", persona: Persona{Archetype: "Hostile"}, field: "name"},
		{name: "blank type", persona: Persona{Name: "David", Archetype: "  "}, field: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.persona.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestPersona_ApplyAndClone(t *testing.T) {
	p := Persona{Name: "Jennifer", Archetype: "Hostile", PersonalityTraits: []string{"defensive"}}
	clone := p.Clone()
	clone.PersonalityTraits[0] = "calm"
	if p.PersonalityTraits[0] != "defensive" {
		t.Error("Clone shares trait slice with original")
	}

	name := "Jen"
	traits := []string{"impatient", "sarcastic"}
	p.Apply(PersonaPatch{Name: &name, PersonalityTraits: &traits})

	if p.Name != "Jen" {
		t.Errorf("Name = %q, want Jen", p.Name)
	}
	if p.Archetype != "Hostile" {
		t.Errorf("Archetype changed to %q", p.Archetype)
	}
	if len(p.PersonalityTraits) != 2 {
		t.Errorf("PersonalityTraits = %v", p.PersonalityTraits)
	}
}

func TestNotFoundError_Is(t *testing.T) {
	err := error(&NotFoundError{Entity: "persona", ID: "7"})
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to match")
	}
	if err.Error() != "persona 7 not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}
