package domain

import "strings"

// Voice is one of the prebuilt persona voices used for speech synthesis.
type Voice string

const (
	VoicePuck   Voice = "Puck"
	VoiceKore   Voice = "Kore"
	VoiceCharon Voice = "Charon"
	VoiceFenrir Voice = "Fenrir"
	VoiceZephyr Voice = "Zephyr"
)

// DefaultVoice is selected until the user picks another persona.
const DefaultVoice = VoicePuck

// VoiceOption describes a persona for the voice picker.
type VoiceOption struct {
	ID          Voice  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var voiceOptions = []VoiceOption{
	{ID: VoicePuck, Name: "Le Farfadet", Description: "Malicieux & aigu"},
	{ID: VoiceKore, Name: "L'Oracle", Description: "Doux & mystique"},
	{ID: VoiceCharon, Name: "Le Passeur", Description: "Sombre & profond"},
	{ID: VoiceFenrir, Name: "Le Loup", Description: "Rude & sauvage"},
	{ID: VoiceZephyr, Name: "Le Souffle", Description: "Léger & neutre"},
}

// Voices returns the persona list in display order.
func Voices() []VoiceOption {
	out := make([]VoiceOption, len(voiceOptions))
	copy(out, voiceOptions)
	return out
}

// ParseVoice resolves a persona identifier case-insensitively.
func ParseVoice(value string) (Voice, bool) {
	value = strings.TrimSpace(value)
	for _, option := range voiceOptions {
		if strings.EqualFold(string(option.ID), value) {
			return option.ID, true
		}
	}
	return "", false
}
