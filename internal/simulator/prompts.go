package simulator

import (
	"fmt"
	"strings"

	"github.com/emiliopalmerini/mcollect/internal/domain"
)

const (
	cannedOpening = "Hello, may I please speak with the account holder for credit card ending in 4729?"

	scriptedAgentFallback   = "I'd like to discuss your account with you."
	phoneAgentFallback      = "I understand your situation. Let's work together to resolve this payment."
	scriptedPersonaFallback = "I'm not sure I understand."
	phonePersonaFallback    = "I'm dealing with some financial difficulties right now."
)

func scriptedAgentPrompt(prompt string, persona domain.Persona, history domain.Transcript) string {
	return fmt.Sprintf(`%s

You are now in a phone conversation with %s, a %s customer.
Customer Background: %s
Customer Communication Style: %s

Conversation so far:
%s

Generate your next response as the debt collection agent. Keep it natural, conversational, and appropriate for a phone call. Be concise (1-2 sentences max).`,
		prompt,
		persona.Name,
		strings.ToLower(persona.Archetype),
		persona.Background,
		persona.CommunicationStyle,
		history.Render("You", persona.Name),
	)
}

func scriptedPersonaPrompt(persona domain.Persona, history domain.Transcript) string {
	return fmt.Sprintf(`You are %s, a %s customer being called by a debt collector.

Your Profile:
- Background: %s
- Financial Situation: %s
- Communication Style: %s
- Cooperation Level: %s
- Personality Traits: %s
- Typical Speech Patterns: %s

Conversation so far:
%s

Generate your next response as %s. Stay completely in character based on your personality profile. Keep your response natural and conversational (1-2 sentences max).`,
		persona.Name,
		strings.ToLower(persona.Archetype),
		persona.Background,
		persona.FinancialSituation,
		persona.CommunicationStyle,
		persona.CooperationLevel,
		joinOr(persona.PersonalityTraits, ", ", "N/A"),
		joinOr(persona.SpeechPatterns, " | ", "N/A"),
		history.Render("Debt Collector", "You"),
		persona.Name,
	)
}

func phoneAgentPrompt(prompt string, history domain.Transcript) string {
	if len(history) == 0 {
		return prompt + "\n\nThe call has just connected.\n\nIMPORTANT: This is a PHONE CALL. Open the call with just ONE SHORT sentence (5-15 words max). Sound natural and conversational like you're actually talking on the phone."
	}
	return fmt.Sprintf("%s\n\nConversation so far:\n%s\n\nIMPORTANT: This is a PHONE CALL. Respond with just ONE SHORT sentence (5-15 words max). Sound natural and conversational like you're actually talking on the phone. React to what they just said.",
		prompt,
		history.Render("BOT", "CUSTOMER"),
	)
}

func phonePersonaPrompt(persona domain.Persona, history domain.Transcript) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, answering a call like a real, busy human. This is NOT a roleplay - you ARE this person receiving an unexpected call.\n\n", persona.Name)
	sb.WriteString("Your situation:\n")
	fmt.Fprintf(&sb, "- Background: %s\n", persona.Background)
	fmt.Fprintf(&sb, "- Financial situation: %s\n", persona.FinancialSituation)
	fmt.Fprintf(&sb, "- Personality: %s\n\n", strings.Join(persona.PersonalityTraits, ", "))
	fmt.Fprintf(&sb, "How you communicate: %s\n", persona.CommunicationStyle)
	fmt.Fprintf(&sb, "Your general attitude: %s\n\n", persona.CooperationLevel)
	if len(persona.SpeechPatterns) > 0 {
		fmt.Fprintf(&sb, "Your typical speech patterns: %s\n\n", strings.Join(persona.SpeechPatterns, " / "))
	}
	if len(persona.Behaviors) > 0 {
		fmt.Fprintf(&sb, "Natural behaviors you exhibit: %s\n\n", strings.Join(persona.Behaviors, " / "))
	}
	fmt.Fprintf(&sb, "Current phone conversation:\n%s\n\n", history.Render("BOT", "CUSTOMER"))
	sb.WriteString(`CRITICAL INSTRUCTIONS - Answer like a REAL HUMAN:
- Use your specific speech patterns and natural phrases from above
- Show genuine human emotions, hesitation, confusion when appropriate
- Include realistic filler words: "um", "uh", "well", "I mean", "like", "you know"
- Be authentically distracted or interrupted by your real life situation
- React naturally to what was just said, don't sound scripted
- Keep responses brief and conversational (1-3 sentences typically)
- Show your specific human behaviors from your profile
- If stressed/overwhelmed/angry, let it come through naturally in your speech
- Ask for clarification when confused, set boundaries when needed
- Never mention being AI or playing a role - you ARE this real person

`)
	fmt.Fprintf(&sb, "Answer the phone as %s would right now:", persona.Name)
	sb.WriteString("\n\nCRITICAL: This is a PHONE CALL. Give a very short response (3-10 words max). Sound like you're actually talking on the phone - brief, natural, immediate reaction to what they just said.")
	return sb.String()
}

func joinOr(items []string, sep, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, sep)
}
