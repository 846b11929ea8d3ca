package openai

const taggingResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "tokens": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "token": {
            "type": "string"
          },
          "tag": {
            "type": "string",
            "enum": ["B-ENT", "I-ENT", "E-ENT", "O"]
          },
          "confidence": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          }
        },
        "required": ["token", "tag", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["tokens"],
  "additionalProperties": false
}`

const taggingPrompt = `Label every token of the given text with a named-entity tag and return the result as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

` + taggingResponseSchema + `

Rules:
- Tokens are whitespace-separated words of the input, in input order. Every input token must appear exactly once.
- Tag "B-ENT" opens a multi-token entity, "I-ENT" continues it, "E-ENT" closes it. A single-token entity is tagged "B-ENT".
- Tag "O" marks tokens outside any entity.
- Entities are proper names: people, organizations, places, products, document titles, and technical terms used as names.
- Confidence is your certainty in the label from 0.0 to 1.0.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "The Eiffel Tower is in Paris"
Output:
{
  "tokens": [
    {"token":"The","tag":"O","confidence":0.99},
    {"token":"Eiffel","tag":"B-ENT","confidence":0.97},
    {"token":"Tower","tag":"E-ENT","confidence":0.96},
    {"token":"is","tag":"O","confidence":0.99},
    {"token":"in","tag":"O","confidence":0.99},
    {"token":"Paris","tag":"B-ENT","confidence":0.98}
  ]
}`
