// Package scene builds generation prompts and runs generation batches and
// video renders against the remote collaborators.
package scene

import (
	"fmt"
	"strings"
	"time"

	"github.com/dixieflatline76/ProductScene/pkg/record"
)

// Presets are the one-click background descriptions.
var Presets = []string{
	"Luxury Marble",
	"Wooden Desk",
	"Zen Garden",
	"Neon Cyberpunk",
	"Minimalist Studio",
}

// DefaultSuggestions are offered when the model cannot suggest scenes.
var DefaultSuggestions = []string{
	"Placed on a sunlit kitchen counter with soft morning light",
	"Floating above a calm ocean at golden hour",
	"Displayed on a concrete pedestal in a modern gallery",
	"Resting on moss in a misty forest clearing",
	"Set on a velvet cloth with dramatic spotlighting",
}

// DefaultVideoPrompt animates a product shot when no prompt is given.
const DefaultVideoPrompt = "A smooth, slow cinematic camera move around the product, keeping it in sharp focus with natural lighting and subtle reflections."

const sceneTemplate = `Task: Background Replacement and Scene Integration.
1. Identify the primary product or object in the provided image.
2. Extract and isolate this object perfectly, maintaining its original colors, textures, and details.
3. Generate a new background described as: "%s".
4. Seamlessly place the original object into this new background, ensuring realistic lighting, shadows, and perspective integration.
5. The final result should look like a professional studio product photograph.`

// PresetPrompt returns the description for a preset name, matched without
// regard to case.
func PresetPrompt(name string) (string, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p, strings.TrimSpace(name)) {
			return fmt.Sprintf("Placed on a %s background with professional studio lighting", strings.ToLower(p)), true
		}
	}
	return "", false
}

// BuildPrompt wraps a background description in the scene template and folds
// in the brand kit when it is enabled.
func BuildPrompt(description string, kit *record.BrandKit) string {
	prompt := fmt.Sprintf(sceneTemplate, strings.TrimSpace(description))
	brand := brandContext(kit)
	if brand == "" {
		return prompt
	}
	return fmt.Sprintf(
		"You are generating a branded image.\n"+
			"Follow the brand information below strictly.\n\n"+
			"Brand information:\n%s\n\n"+
			"Image request:\n%s",
		brand,
		prompt,
	)
}

func brandContext(kit *record.BrandKit) string {
	if kit == nil || !kit.Enabled {
		return ""
	}
	var lines []string
	if len(kit.Palette) > 0 {
		lines = append(lines, "- Color palette: "+strings.Join(kit.Palette, ", ")+". Use these colors in props, surfaces and lighting accents.")
	}
	if v := strings.TrimSpace(kit.Voice); v != "" {
		lines = append(lines, "- Brand voice: "+v+".")
	}
	if f := strings.TrimSpace(kit.FontStyle); f != "" {
		lines = append(lines, "- Typography style: "+f+". Apply it to any visible text.")
	}
	if kit.Logo != nil && !kit.Logo.IsZero() {
		lines = append(lines, "- The last attached image is the brand logo. Place it subtly in the scene without covering the product.")
	}
	return strings.Join(lines, "\n")
}

// BrandExtras returns the images attached after the source for a brand kit.
func BrandExtras(kit *record.BrandKit) []record.Image {
	if kit == nil || !kit.Enabled || kit.Logo == nil || kit.Logo.IsZero() {
		return nil
	}
	return []record.Image{*kit.Logo}
}

// variationSuffix keeps otherwise identical requests distinct.
func variationSuffix(index, total int, at time.Time) string {
	return fmt.Sprintf("\n\n(Variation %d of %d, request %d-%d.)", index+1, total, at.UnixMilli(), index)
}
