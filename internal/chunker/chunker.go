// Package chunker splits transcript text into synthesis-sized segments.
//
// Splitting is a pure function of the input text and the length bound:
// sentences are packed greedily into chunks, and sentences that exceed
// the bound on their own are broken again at comma boundaries. A run of
// text with no sentence or comma boundary is passed through oversized
// rather than truncated; the synthesis provider decides whether to
// reject it.
package chunker

import "strings"

// DefaultMaxLen is the per-chunk character budget used when the caller
// does not supply one. It sits under the request size limit of the
// hosted synthesis providers.
const DefaultMaxLen = 1800

// Chunk splits text into ordered chunks no longer than maxLen, except
// for single clauses that cannot be split further. Empty or
// whitespace-only input yields no chunks.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var buf string

	flush := func() {
		if buf != "" {
			chunks = append(chunks, buf)
			buf = ""
		}
	}

	for _, sentence := range sentences {
		if len(sentence) > maxLen {
			// The sentence alone blows the budget. Emit whatever is
			// buffered, then pack its comma-delimited clauses; the
			// trailing partial seeds the next buffer.
			flush()
			chunks, buf = packClauses(chunks, sentence, maxLen)
			continue
		}
		if buf != "" && len(buf)+1+len(sentence) > maxLen {
			flush()
		}
		if buf == "" {
			buf = sentence
		} else {
			buf += " " + sentence
		}
	}
	flush()
	return chunks
}

// packClauses greedily packs the comma-delimited clauses of one
// oversized sentence. Full sub-buffers are appended to chunks; the
// leftover partial is returned as the new running buffer.
func packClauses(chunks []string, sentence string, maxLen int) ([]string, string) {
	var buf string
	for _, clause := range splitClauses(sentence) {
		if len(clause) > maxLen {
			// No comma boundary to split at: pass through oversized.
			if buf != "" {
				chunks = append(chunks, buf)
				buf = ""
			}
			chunks = append(chunks, clause)
			continue
		}
		if buf != "" && len(buf)+1+len(clause) > maxLen {
			chunks = append(chunks, buf)
			buf = ""
		}
		if buf == "" {
			buf = clause
		} else {
			buf += " " + clause
		}
	}
	return chunks, buf
}

// splitSentences breaks text at terminal punctuation, keeping the
// punctuation with the sentence it ends. Text with no terminal
// punctuation is returned as a single sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) {
			continue
		}
		// Absorb punctuation runs like "..." or "?!".
		end := i + 1
		for end < len(text) && isTerminal(text[end]) {
			end++
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// splitClauses breaks a sentence after each comma, keeping the comma
// with the preceding clause.
func splitClauses(sentence string) []string {
	var out []string
	start := 0
	for i := 0; i < len(sentence); i++ {
		if sentence[i] != ',' {
			continue
		}
		if c := strings.TrimSpace(sentence[start : i+1]); c != "" {
			out = append(out, c)
		}
		start = i + 1
	}
	if c := strings.TrimSpace(sentence[start:]); c != "" {
		out = append(out, c)
	}
	return out
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
