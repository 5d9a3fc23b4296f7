package pipeline

import "strings"

// sceneDelimiter is the marker the split stage instructs the model to place
// between scenes.
const sceneDelimiter = ":::"

// SplitScenes partitions a narrative into ordered scene texts on the scene
// delimiter, trimming each part and dropping empties. Text containing no
// delimiter comes back as a single scene.
func SplitScenes(raw string) []string {
	parts := strings.Split(raw, sceneDelimiter)
	scenes := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		scenes = append(scenes, part)
	}
	return scenes
}

// SplitFallback selects what happens when splitting yields zero scenes.
type SplitFallback int

const (
	// FallbackSingleScene uses the whole narrative as one scene.
	FallbackSingleScene SplitFallback = iota
	// FallbackFixedPages puts the whole narrative on page one and pads the
	// rest of the fixed page count with blank scenes.
	FallbackFixedPages
)

// ApplyFallback resolves an empty split result per the domain's policy and
// caps the scene count when maxPages is positive.
func ApplyFallback(scenes []string, fullStory string, policy SplitFallback, fixedPages, maxPages int) []string {
	if len(scenes) == 0 {
		switch policy {
		case FallbackFixedPages:
			scenes = make([]string, fixedPages)
			if fixedPages > 0 {
				scenes[0] = fullStory
			}
		default:
			scenes = []string{fullStory}
		}
	}
	if maxPages > 0 && len(scenes) > maxPages {
		scenes = scenes[:maxPages]
	}
	return scenes
}
