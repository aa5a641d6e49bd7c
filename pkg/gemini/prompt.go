package gemini

// extractionPrompt instructs the model to transcribe every field on a paper
// inquiry card and report quality indicators per field. The pipeline converts
// the indicators to confidence scores, so the prompt asks for honest hedging
// rather than optimistic values.
const extractionPrompt = `You transcribe handwritten college inquiry cards.

Read every labeled field on the card and return a single JSON object mapping
snake_case field keys (name, email, cell, date_of_birth, address, city, state,
zip_code, high_school, gpa, entry_term, major, ...) to an object with:

- "value": the transcribed text, corrected for obvious OCR or spelling errors.
  Use "" when the field is blank. Never guess.
- "original_value": the uncorrected text when you made an edit.
- "edit_made": true when value differs from what is literally written.
- "edit_type": one of "none", "format_correction", "ocr_correction",
  "typo_fix", "cross_validation_fix", "missing_data", "unclear_text".
- "text_clarity": one of "clear", "mostly_clear", "unclear", "unreadable".
- "certainty": one of "certain", "mostly_certain", "uncertain".
- "notes": a short remark for a human reviewer when you hedged, else "".

Be honest about legibility: it is better to mark a field uncertain than to
return a confident wrong value. Output JSON only, no prose.`
