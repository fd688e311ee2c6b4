package usecase

import "fmt"

// DefaultCharacterDescription stands in when the story came without one.
const DefaultCharacterDescription = "A cute child character"

// BuildImagePrompt puts the character's visual identity first so every page
// draws the same hero, then the page's scene.
func BuildImagePrompt(characterDescription, scene string) string {
	if characterDescription == "" {
		characterDescription = DefaultCharacterDescription
	}
	return fmt.Sprintf("Character Reference: %s. \n\n Scene Action: %s", characterDescription, scene)
}
