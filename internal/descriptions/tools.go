package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	FormFillDescription = `Fill the blank fields of a PDF form with a client's data and save the filled copy.

**When to use:** A client's application, registration or tax form needs to be completed from the details you already have.

**Why it's useful:** Finds the blanks on the form, writes each value at the right spot on page 1 and keeps Turkish letters intact. When the fields cannot be located it falls back to a fixed template, so a form is always produced.

**Examples:**
• Fill a membership form: "Fill uyelik-formu.pdf for ayse@example.com, Ayşe Yılmaz, Kadıköy İstanbul"
• Write to a chosen place: "Fill basvuru.pdf for the client and save it as out/ayse_basvuru.pdf"
• Force a layout: "Fill kisa-form.pdf with template default because detection keeps failing"

**Common workflows:**
1. Scanned paper form: scan_images_to_pdf → form_fill
2. Careful review: form_detect_fields → check the values → form_fill

**Best practices:** The original form is never modified. The report lists every field that was not written and why.`

	FormDetectFieldsDescription = `Locate the fields of a PDF or DOCX form and show the value each would receive.

**When to use:** Before filling, to see which fields were found, where they sit and what will be written into them.

**Why it's useful:** Runs the same detection and merge as form_fill but writes nothing, so mistakes can be caught early.

**Examples:**
• Preview a fill: "Which fields does vergi-formu.pdf have and what would ayse@example.com put in them?"
• Check a Word form: "Detect the fields in basvuru.docx"

**Common workflows:**
1. Review: form_detect_fields → adjust the profile → form_fill

**Best practices:** DOCX forms can be inspected but only PDF forms can be filled.`

	FormExtractTextDescription = `Extract the text of a PDF, DOCX or scanned page image with damaged Turkish characters repaired.

**When to use:** Need to read what a form says, or to check why detection misunderstands it.

**Why it's useful:** Joins letters that OCR split apart, restores mis-decoded characters and removes stray box glyphs. Scanned PDFs without a text layer and JPEG or PNG scans are transcribed by the vision provider (openai or gemini).

**Examples:**
• Read a form: "What does the text of basvuru.pdf say?"
• Read a photo: "Extract the text of scans/page1.jpg"

**Best practices:** The Source line tells whether the text came from the text layer or from OCR. Without a vision provider, scans return no text.`

	FormNormalizeTextDescription = `Repair Turkish text damaged by OCR or a wrong text encoding.

**When to use:** A piece of text shows "Ä±" instead of "ı", letters separated by spaces, or box characters.

**Examples:**
• Fix mojibake: "Normalize 'KadÄ±kÃ¶y'"
• Fix OCR spacing: "Normalize 'A d ı S o y a d ı'"`

	FormTemplatesDescription = `List the fallback templates, or show the fields and positions of one template.

**When to use:** Choosing a template for form_fill, or checking where a fallback would write values.

**Examples:**
• List: "Which fallback templates are there?"
• Inspect: "Show the fields of template default"`

	ScanImagesToPDFDescription = `Combine scanned page images into one PDF, one page per image, in the given order.

**When to use:** A paper form arrived as photos or scans and needs to become a PDF before it can be filled.

**Examples:**
• Merge pages: "Combine page1.jpg and page2.jpg into basvuru.pdf"

**Common workflows:**
1. scan_images_to_pdf → form_detect_fields → form_fill

**Best practices:** JPEG, PNG and TIFF are supported. The output is overwritten if it exists.`

	FormServerInfoDescription = `Get server information, the detection provider, the templates and usage guidance.

**When to use:** Starting a session, or finding out why every form falls back to a template.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"form_fill":           FormFillDescription,
	"form_detect_fields":  FormDetectFieldsDescription,
	"form_extract_text":   FormExtractTextDescription,
	"form_normalize_text": FormNormalizeTextDescription,
	"form_templates":      FormTemplatesDescription,
	"scan_images_to_pdf":  ScanImagesToPDFDescription,
	"form_server_info":    FormServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the described tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
