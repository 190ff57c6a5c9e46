// Package extract recovers a structured JSON record from free-form model output.
//
// Strategies run in a fixed order and the first candidate that decodes to a
// JSON object containing every required top-level key wins:
//
//  1. direct: the whole trimmed text
//  2. fenced: the body of each ``` block, with or without a language tag
//  3. balanced_braces: every balanced {...} substring, longest first
//
// When nothing matches, Extract returns *MalformedOutputError carrying a
// truncated snippet of the original text for diagnosis.
package extract
