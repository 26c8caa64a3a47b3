package mockup

import "strings"

const (
	rolePreamble = "You are an expert 3D graphic designer and product photographer."
	stepIdentify = "1. Identify the core symbol/text of the provided logo."

	stepIsolate   = "2. IGNORE the original background of the input image. Isolate the logo design completely."
	stepIntegrate = "3. INTEGRATE the logo into the requested scene naturally. Match the perspective, lighting, shadows, and texture of the mockup surface (e.g., if it's a wall, show depth; if it's fabric, follow the folds)."

	stepFullComposition = "2. Use the entire image composition as a reference, but prioritize transforming the style to the requested mockup."

	closingOutput = "Output a high-resolution, photorealistic image."
)

// BuildInstructions composes the instruction document sent next to the logo.
// The style prompt is embedded verbatim; exactly one of the background
// isolation or full-composition clauses is present.
func BuildInstructions(stylePrompt string, removeBackground bool, negativePrompt string) string {
	var b strings.Builder
	b.Grow(len(stylePrompt) + len(negativePrompt) + 768)

	b.WriteString(rolePreamble + "\n")
	b.WriteString("YOUR TASK: " + stylePrompt + "\n\n")

	b.WriteString("Instructions for processing the input image:\n")
	b.WriteString(stepIdentify + "\n")
	if removeBackground {
		b.WriteString(stepIsolate + "\n")
		b.WriteString(stepIntegrate + "\n")
	} else {
		b.WriteString(stepFullComposition + "\n")
	}

	if negative := strings.TrimSpace(negativePrompt); negative != "" {
		b.WriteString("\nAVOID: " + negative + "\n")
	}

	b.WriteString("\n" + closingOutput)
	return b.String()
}
