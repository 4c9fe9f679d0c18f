package inference

import "strings"

const noTextInstruction = "Do not include any text, letters, numbers, captions or written words anywhere in the image."

// ImagePrompt appends the instruction that keeps illustrations free of embedded text.
func ImagePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if strings.HasSuffix(prompt, noTextInstruction) {
		return prompt
	}
	if prompt == "" {
		return noTextInstruction
	}
	if !strings.HasSuffix(prompt, ".") {
		prompt += "."
	}
	return prompt + " " + noTextInstruction
}
