package vision

// extractionPrompt is the fixed instruction sent with every page image.
// It asks for a flat JSON object keyed by question number with
// single-letter tokens, an empty object when nothing is marked, and no
// surrounding prose. The sanitizer still tolerates fenced or noisy
// replies.
const extractionPrompt = `Analyze this image of an exam page and extract ONLY the answers that are marked.

IMPORTANT INSTRUCTIONS:
- Look for numbered questions (1, 2, 3, ...).
- Marked answers may have an X, a circle, or be highlighted.
- For multiple-choice questions the options are a, b, c, d, e.
- For true/false questions the options are v (true) or f (false).
- Include only answers you can positively identify as marked.

RESPONSE FORMAT:
Respond ONLY with a JSON object and no additional text:
{"1": "a", "2": "d", "3": "v", "4": "f", "5": "b"}

If you find no marked answers on this page, respond: {}

Do NOT include explanations, only the raw JSON.`
