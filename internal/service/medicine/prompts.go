package medicine

import "fmt"

const normalizationSystemPrompt = `You are a medicine name normalizer.

Analyze the user input and return ONLY valid JSON.

Input may contain:
- spelling mistakes
- dosage numbers (500, 650 mg)
- brand names
- extra words like tablet, capsule
- casing differences

Return JSON in this exact format:

{
  "canonicalName": "",
  "genericName": "",
  "confidence": "high | medium | low"
}

Rules:
- canonicalName must be the base medicine name (no dosage, no form)
- Use standard medical naming
- Do NOT include dosage numbers
- Do NOT explain anything outside JSON
- If not a medicine, use "unknown" and confidence "low"`

const recordSystemPrompt = `You are a medical information extractor.

Return ONLY valid JSON in the following structure:

{
  "medicineName": "",
  "genericName": "",
  "category": "",
  "uses": [],
  "symptoms": [],
  "howToUse": "",
  "warnings": [],
  "sideEffects": [],
  "alternatives": [
    { "name": "", "type": "generic" }
  ]
}

Rules:
- Simple, non-technical language
- No dosage numbers
- No medical advice
- If unknown, use "Information not available"
- JSON only, no markdown`

func normalizationPrompt(input string) string {
	return fmt.Sprintf("User input: %q", input)
}

func recordPrompt(name string) string {
	return "Medicine name: " + name
}
