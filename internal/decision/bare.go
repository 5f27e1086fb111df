package decision

// barePersona is the neutral instruction substituted for a persona's base
// prompt in Bare mode: no character, voice, or mission bias, just a
// precise and evidence-driven operator.
const barePersona = "You are a precise, evidence-driven web operator. Do not invent information " +
	"that is not visible on the page. Prefer the most direct action that advances the objective, " +
	"and say so plainly in your thought."

// NewBareGenAIProvider creates a GenAIProvider configured with the neutral
// Bare-mode persona instead of a persona library entry.
func NewBareGenAIProvider(apiKey, model string) (*GenAIProvider, error) {
	return NewGenAIProvider(apiKey, model, barePersona)
}
