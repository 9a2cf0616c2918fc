package classify

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Class labels an episode's naming scheme.
type Class string

const (
	// ClassNumbered covers manually named episodes ("1", "23") and every
	// identifier that does not parse as a recording timestamp.
	ClassNumbered Class = "numbered"
	// ClassAutorecorded covers episodes auto-named with a YYYYMMDDHHMMSS
	// recording timestamp.
	ClassAutorecorded Class = "autorecorded"
)

// Corpus names an output partition of the dataset.
type Corpus string

const (
	CorpusAll          Corpus = "all"
	CorpusNumbered     Corpus = "numbered"
	CorpusAutorecorded Corpus = "autorecorded"
)

// AllCorpora lists every corpus a run may write, in creation order.
var AllCorpora = []Corpus{CorpusAll, CorpusNumbered, CorpusAutorecorded}

const timestampLayout = "20060102150405"

// Classify labels an episode identifier. A 14-digit string that parses as a
// valid wall-clock timestamp is autorecorded; everything else, including
// short numeric identifiers and unrecognized patterns, falls back to
// numbered rather than being dropped.
func Classify(id string) Class {
	if _, ok := RecordedAt(id); ok {
		return ClassAutorecorded
	}
	return ClassNumbered
}

// RecordedAt extracts the recording time embedded in an autorecorded
// identifier. ok is false when the identifier does not carry one.
func RecordedAt(id string) (time.Time, bool) {
	if len(id) != len(timestampLayout) || !digitsOnly(id) {
		return time.Time{}, false
	}
	ts, err := time.Parse(timestampLayout, id)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Corpora returns every corpus an episode of the given class belongs to:
// the all-episodes corpus plus the class corpus.
func Corpora(class Class) []Corpus {
	switch class {
	case ClassAutorecorded:
		return []Corpus{CorpusAll, CorpusAutorecorded}
	default:
		return []Corpus{CorpusAll, CorpusNumbered}
	}
}

// Instruction derives the language instruction for an episode. Numbered
// episodes use the bare identifier; autorecorded episodes get a generated
// sentence embedding the task label and recording time.
func Instruction(class Class, id string, taskName string) string {
	if class != ClassAutorecorded {
		return id
	}
	ts, ok := RecordedAt(id)
	if !ok {
		return id
	}
	when := ts.Format("2006-01-02 15:04:05")
	label := humanizeTask(taskName, id)
	if label == "" {
		return fmt.Sprintf("Automatically recorded task at %s", when)
	}
	return fmt.Sprintf("Automatically recorded task %s at %s", label, when)
}

// humanizeTask turns a task name into a presentable label. Names that merely
// repeat the identifier carry no information and collapse to empty.
func humanizeTask(taskName, id string) string {
	if taskName == "" || taskName == id {
		return ""
	}
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range taskName {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	label := strings.TrimSpace(cleaned.String())
	if label == "" {
		return ""
	}
	return cases.Title(language.Und).String(label)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
