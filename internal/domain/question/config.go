package question

// Defaults used when the configuration leaves a knob unset.
const (
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.70
	DefaultFallbackAnswer      = "Lo siento, no encontré una respuesta relacionada con tu consulta."

	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Config holds runtime knobs for the question service.
type Config struct {
	TopK                int
	SimilarityThreshold float64
	FallbackAnswer      string
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if blank(c.FallbackAnswer) {
		c.FallbackAnswer = DefaultFallbackAnswer
	}
	return c
}
