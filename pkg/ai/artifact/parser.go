// Package artifact finds structured payloads embedded in model output:
// fenced code blocks that become artifacts and fenced JSON documents.
package artifact

import (
	"regexp"
	"strings"
)

// Block is a single fenced code block.
type Block struct {
	Language string
	Filepath string
	Code     string
}

// Extracted is an artifact candidate. It carries no id so that extraction
// stays a pure function of the text.
type Extracted struct {
	Title    string
	Filepath string
	Code     string
	Language string
}

// Fence patterns:
// ```lang path/to/file.ext   - language plus filepath
// ```lang                    - language only
// ```                        - untagged
var (
	fencePattern    = regexp.MustCompile("(?s)```([\\w+#-]*)[ \\t]*([^\\s`]*)[^\\n]*\\n(.*?)```")
	filepathPattern = regexp.MustCompile(`^[\w./-]+$`)
	jsonFence       = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
)

// ParseFencedBlocks returns every fenced block in order of appearance.
// An info string is read as "lang [path]"; a second token that does not look
// like a path is ignored.
func ParseFencedBlocks(text string) []Block {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		path := m[2]
		if !filepathPattern.MatchString(path) {
			path = ""
		}
		blocks = append(blocks, Block{
			Language: strings.ToLower(m[1]),
			Filepath: path,
			Code:     strings.TrimSpace(m[3]),
		})
	}
	return blocks
}

// ExtractArtifacts applies the artifact policy:
//   - no fenced block: no artifacts (plain text answer)
//   - one or more blocks annotated with a filepath: each of them, in order
//   - otherwise: the first language-tagged block, titled artifact.<lang>
func ExtractArtifacts(text string) []Extracted {
	blocks := ParseFencedBlocks(text)

	var out []Extracted
	for _, b := range blocks {
		if b.Filepath == "" || b.Language == "" {
			continue
		}
		out = append(out, Extracted{Title: b.Filepath, Filepath: b.Filepath, Code: b.Code, Language: b.Language})
	}
	if len(out) > 0 {
		return out
	}

	for _, b := range blocks {
		if b.Language == "" {
			continue
		}
		name := "artifact." + b.Language
		return []Extracted{{Title: name, Filepath: name, Code: b.Code, Language: b.Language}}
	}
	return nil
}

// ExtractJSON returns the body of the first ```json fence, or the trimmed
// text when there is none.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := jsonFence.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}
