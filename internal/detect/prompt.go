package detect

import "fmt"

const fieldSchemaDescription = `Each element must be an object with exactly these keys:
  "name"   (string)  the label printed next to the blank, in the document's language
  "value"  (string)  text already written in the blank, or "" if it is empty
  "x"      (number)  left edge of the blank
  "y"      (number)  top edge of the blank, measured from the top of the page
  "width"  (number)  width of the blank
  "height" (number)  height of the blank
All numbers are non-negative.`

const answerRules = `Answer with ONLY the JSON array. Do not wrap it in code fences.
Do not add explanations, notes, comments or any text before or after the array.
If you find no fields, answer with [].`

// VisionInstruction is the prompt sent with a page image of the given size
func VisionInstruction(widthPx, heightPx int) string {
	return fmt.Sprintf(`You are given an image of the first page of a paper form.
The image is %d pixels wide and %d pixels high.
Find every blank the form expects a person to fill in (lines, boxes, empty table cells next to a label).
Return a JSON array describing them. Coordinates are in pixels of this image, with the origin at the top-left corner.

%s

%s`, widthPx, heightPx, fieldSchemaDescription, answerRules)
}

// TextInstruction is the prompt sent together with the extracted document text
func TextInstruction() string {
	return fmt.Sprintf(`You are given the text of the first page of a form, extracted from a PDF.
Find every blank the form expects a person to fill in.
Return a JSON array describing them. Coordinates are in PDF points on an A4 page (595 x 842),
with the origin at the top-left corner; estimate positions from the order of the lines.

%s

%s`, fieldSchemaDescription, answerRules)
}

// OCRInstruction is the prompt that asks a vision backend to transcribe a page
func OCRInstruction() string {
	return `You are given an image of a document page, usually a Turkish form.
Transcribe all of its text exactly as printed, keeping the reading order and line breaks.
Keep Turkish letters (ç, ğ, ı, İ, ö, ş, ü) as they appear. Leave blanks as they are; do not invent values.
Answer with ONLY the transcribed text. Do not add explanations, translations or code fences.`
}
