package text

import (
	"regexp"
	"strings"
)

var (
	fenceRe  = regexp.MustCompile("(?s)```([a-zA-Z0-9_]+)?[[:space:]]*\\n(.*?)\\n[[:space:]]*```")
	headerRe = regexp.MustCompile(`(?m)^#{1,6}\s`)
)

// Chunk splits content into pieces of at most maxChars characters so each
// piece fits an embedding request. Fenced code blocks are kept intact when
// they fit and split by line when they do not; prose is split on markdown
// headers, then paragraphs, then lines, then words.
func Chunk(content string, maxChars int) []string {
	if maxChars <= 0 || len(content) <= maxChars {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string

	lastIndex := 0
	for _, match := range fenceRe.FindAllStringSubmatchIndex(content, -1) {
		if match[0] > lastIndex {
			chunks = append(chunks, chunkProse(content[lastIndex:match[0]], maxChars)...)
		}

		lang := ""
		if match[2] != -1 {
			lang = content[match[2]:match[3]]
		}
		block := content[match[4]:match[5]]

		if len(block) > maxChars {
			chunks = append(chunks, chunkFenced(block, lang, maxChars)...)
		} else {
			chunks = append(chunks, "```"+lang+"\n"+block+"\n```")
		}

		lastIndex = match[1]
	}

	if lastIndex < len(content) {
		chunks = append(chunks, chunkProse(content[lastIndex:], maxChars)...)
	}

	return chunks
}

// chunkProse splits on headers first, then packs paragraphs, falling back to
// lines and finally single words for pathological input.
func chunkProse(content string, maxChars int) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var sections []string
	lastIdx := 0
	for _, loc := range headerRe.FindAllStringIndex(content, -1) {
		if loc[0] > lastIdx {
			sections = append(sections, content[lastIdx:loc[0]])
		}
		lastIdx = loc[0]
	}
	if lastIdx < len(content) {
		sections = append(sections, content[lastIdx:])
	}

	var chunks []string
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if len(section) <= maxChars {
			chunks = append(chunks, section)
			continue
		}
		chunks = append(chunks, packUnits(strings.Split(section, "\n\n"), "\n\n", maxChars, splitParagraph)...)
	}
	return chunks
}

// splitParagraph handles a single paragraph larger than maxChars.
func splitParagraph(para string, maxChars int) []string {
	return packUnits(strings.Split(para, "\n"), "\n", maxChars, func(line string, max int) []string {
		return packUnits(strings.Fields(line), " ", max, nil)
	})
}

// packUnits greedily joins units with sep up to maxChars per chunk. Units
// still too large are handed to split when provided, and emitted as-is
// otherwise.
func packUnits(units []string, sep string, maxChars int, split func(string, int) []string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}
		if len(unit) > maxChars {
			flush()
			if split != nil {
				chunks = append(chunks, split(unit, maxChars)...)
			} else {
				chunks = append(chunks, unit)
			}
			continue
		}
		if current.Len() > 0 && current.Len()+len(sep)+len(unit) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(unit)
	}
	flush()

	return chunks
}

// chunkFenced splits an oversized code block by line, re-fencing each piece
// so the language tag survives.
func chunkFenced(block, lang string, maxChars int) []string {
	pieces := packUnits(strings.Split(block, "\n"), "\n", maxChars, nil)
	chunks := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = "```" + lang + "\n" + piece + "\n```"
	}
	return chunks
}
