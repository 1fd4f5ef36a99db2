package ai

import (
	"fmt"
	"regexp"
	"strings"
)

var numberedLine = regexp.MustCompile(`^\d+\.\s*`)

// StoryboardPrompt is the instruction sent upstream for one storyboard.
func StoryboardPrompt(story string, sceneCount int, style string) string {
	return fmt.Sprintf(`You are a professional video storyboard creator for AI video generation.

Story/Concept: %q
Style: %s
Number of scenes: %d

Create exactly %d scene descriptions. Each scene should be:
- 15-30 words describing what is VISIBLE
- Focus on: subjects, actions, environment, lighting, camera angles
- Maintain character/style consistency across scenes
- Suitable for AI video generation

Output format: Return ONLY the scene descriptions, one per line, numbered.
Example:
1. A young woman walks through a misty forest, sunlight filtering through ancient trees, cinematic wide shot
2. Close-up of her face showing wonder as she discovers a glowing crystal, soft ethereal lighting

Now create %d scenes:`, story, style, sceneCount, sceneCount, sceneCount)
}

// ParseNumberedLines keeps the lines that start with "N." after trimming,
// in order, with the numbering removed.
func ParseNumberedLines(text string) []string {
	var out []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !numberedLine.MatchString(line) {
			continue
		}

		out = append(out, numberedLine.ReplaceAllString(line, ""))
	}

	return out
}
