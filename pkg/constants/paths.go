package constants

// Shared route paths (health/ready are registered outside the /api/v1 group).
const (
	PathHealth = "/health"
	PathReady  = "/ready"
)

// Personas for system-authored turns. The seed persona writes turn 1 of every
// story; the twist persona writes injected twist turns.
const (
	SeedPersona  = "StoryBot"
	TwistPersona = "StoryTwister"
)
