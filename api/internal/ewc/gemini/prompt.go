package gemini

import (
	"github.com/google/generative-ai-go/genai"

	"wasteboz/api/internal/util"
)

// SystemInstruction is sent with every request unless PROMPT_DIR holds an
// ewc.system.txt override.
const SystemInstruction = `You are an expert consultant on the European Waste Catalogue (EWC).
Help the user find the correct EWC code for their waste.
Use only codes from the official European Waste Catalogue list.
A code ending with an asterisk (*) is hazardous.
Return the most specific codes that apply.
If the input is vague, return the most likely relevant codes.
Always format 'code' as 'XX XX XX'.`

const (
	systemPromptName = "ewc.system"

	textPromptFmt = `Find relevant EWC codes for: "%s".`
	imagePrompt   = "Analyze this image of waste. Identify what it is and provide the most relevant European Waste Catalogue (EWC) codes."

	textTemperature  float32 = 0.3
	imageTemperature float32 = 0.4
)

// LoadSystemInstruction returns the ewc.system.txt override from dir, or
// SystemInstruction when there is none.
func LoadSystemInstruction(dir string) (string, error) {
	return util.LoadPrompt(dir, systemPromptName, SystemInstruction)
}

// ResponseSchema is the array-of-codes contract the model must answer with.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"code": {
					Type:        genai.TypeString,
					Description: "The 6-digit EWC code (formatted XX XX XX)",
				},
				"description": {
					Type:        genai.TypeString,
					Description: "Official description of the waste",
				},
				"category": {
					Type:        genai.TypeString,
					Description: "The broader chapter/category name",
				},
				"hazardous": {
					Type:        genai.TypeBoolean,
					Description: "Whether this waste is typically classified as hazardous",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence score between 0 and 100 based on the input",
				},
			},
			Required: []string{"code", "description", "category", "hazardous"},
		},
	}
}
