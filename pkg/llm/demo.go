package llm

import "fmt"

// DemoResponse is the canned reply used when no provider is configured or
// the provider fails.
func DemoResponse(input string) string {
	w := words(input)
	switch {
	case hasAny(w, "hello", "hi"):
		return "Hello! I'm your virtual tutor. I'm currently running in demo mode. How can I help you learn today?"
	case hasAny(w, "math", "calculate"):
		return "I'd be happy to help you with math! In demo mode, I can explain concepts and provide examples. What specific math topic would you like to explore?"
	case w["science"]:
		return "Science is fascinating! I can help explain scientific concepts, theories, and discoveries. What area of science interests you?"
	case w["history"]:
		return "History is full of amazing stories and lessons! I can help you explore different historical periods and events. What would you like to learn about?"
	case w["help"]:
		return "I'm here to help you learn! I can assist with various subjects like math, science, history, language arts, and more. What would you like to study?"
	}
	return fmt.Sprintf("That's an interesting question about '%s'! I'm currently running in demo mode, but I'd be happy to help you learn about this topic. Could you tell me more about what specifically you'd like to know?", input)
}
