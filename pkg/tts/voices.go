package tts

// Voice describes a voice available to a provider.
type Voice struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Labels      map[string]string `json:"labels,omitempty"`
	Provider    string            `json:"provider,omitempty"`
}

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"   // Neutral
	VoiceEcho    = "echo"    // Male
	VoiceFable   = "fable"   // British accent
	VoiceOnyx    = "onyx"    // Deep male
	VoiceNova    = "nova"    // Female, the default
	VoiceShimmer = "shimmer" // Soft female
)

var openAIVoices = []string{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}

// OpenAIVoices returns the built-in OpenAI voice names.
func OpenAIVoices() []string {
	out := make([]string, len(openAIVoices))
	copy(out, openAIVoices)
	return out
}

// ResolveOpenAIVoice returns name when it is a built-in OpenAI voice and
// nova otherwise.
func ResolveOpenAIVoice(name string) string {
	for _, v := range openAIVoices {
		if v == name {
			return v
		}
	}
	return VoiceNova
}

// ElevenLabsVoices maps friendly preset names to ElevenLabs voice IDs.
var ElevenLabsVoices = map[string]string{
	"rachel": "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"domi":   "AZnzlk1XvdvUeBnXmlld", // American female, strong
	"bella":  "EXAVITQu4vr4xnSDxMaL", // American female, soft
	"elli":   "MF3mGyEYCl7XYWbV9V6O", // American female, young
	"josh":   "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"adam":   "pNInz6obpgDQGcFmaJgB", // American male, deep
	"sam":    "yoZ06aMxZJJ28mfd3POQ", // American male, raspy
}

// ResolveElevenLabsVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveElevenLabsVoice(name string) string {
	if id, ok := ElevenLabsVoices[name]; ok {
		return id
	}
	return name
}
