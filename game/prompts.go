package game

import (
	"math/rand/v2"
	"slices"
)

var Prompts = map[Difficulty][]string{
	DifficultyEasy: {
		"cat", "dog", "elephant", "giraffe", "lion", "monkey", "penguin", "rabbit", "turtle",
		"bed", "door", "fan", "apple", "banana", "cake", "cookie", "car", "boat", "bus",
	},
	DifficultyMedium: {
		"airplane", "helicopter", "rocket", "castle", "bridge", "lighthouse", "windmill",
		"doctor", "chef", "pilot", "dancer", "baseball", "basketball", "soccer", "tennis",
		"robot", "dragon", "wizard", "pirate", "ghost",
	},
	DifficultyHard: {
		"thunderstorm", "northern lights", "coral reef", "redwood forest", "hot air balloon",
		"vacuum cleaner", "musical conductor", "construction site", "garden party", "tug of war",
		"arm wrestling", "rock climbing", "thumb wrestling", "playing chess", "building sandcastle",
	},
}

// PromptPicker hands out random prompts without repeating one until every
// prompt of the difficulty has been used.
type PromptPicker struct {
	intn func(n int) int
	used []string
}

func NewPromptPicker(intn func(n int) int) *PromptPicker {
	if intn == nil {
		intn = rand.IntN
	}
	return &PromptPicker{intn: intn}
}

func (p *PromptPicker) Pick(d Difficulty) string {
	all := Prompts[d]
	if len(all) == 0 {
		all = Prompts[DifficultyEasy]
	}

	available := make([]string, 0, len(all))
	for _, prompt := range all {
		if !slices.Contains(p.used, prompt) {
			available = append(available, prompt)
		}
	}
	if len(available) == 0 {
		p.used = p.used[:0]
		available = all
	}

	prompt := available[p.intn(len(available))]
	p.used = append(p.used, prompt)
	return prompt
}
