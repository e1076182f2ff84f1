package llm

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-capture/internal/model"
)

// ImageInstruction accompanies every image sent for classification.
const ImageInstruction = "Analyze this image and extract the financial transaction it shows."

// TranscriptionInstruction asks a multimodal model for a verbatim transcript.
const TranscriptionInstruction = "Transcribe this recording verbatim. Respond with the transcript only."

// SystemPrompt describes the output contract and the category vocabularies.
func SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an assistant that extracts a single financial transaction from user input ")
	sb.WriteString("(free text, a transcribed voice note, or a photo of a receipt).\n\n")
	sb.WriteString("Respond with ONLY a valid JSON object. Do not include explanatory text or markdown. ")
	sb.WriteString("Start your response directly with { and end with }.\n\n")
	sb.WriteString("Format:\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "type": "income" or "expense",` + "\n")
	sb.WriteString(`  "amount": number (the numeric value only, always positive),` + "\n")
	sb.WriteString(`  "category": "an appropriate category",` + "\n")
	sb.WriteString(`  "description": "a clear description of the transaction",` + "\n")
	sb.WriteString(`  "confidence": number between 0 and 1` + "\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Preferred categories:\n")
	fmt.Fprintf(&sb, "- Expenses: %s\n", strings.Join(model.ExpenseCategories, ", "))
	fmt.Fprintf(&sb, "- Income: %s\n", strings.Join(model.IncomeCategories, ", "))
	return sb.String()
}

// DataURI encodes an image as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
