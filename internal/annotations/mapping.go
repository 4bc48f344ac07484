package annotations

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/kobosync/internal/kobo"
	"github.com/mrlokans/kobosync/internal/prosa"
)

const (
	pathPrefix = "span#"

	typeNote      = "note"
	typeHighlight = "highlight"
)

// FromBackend converts a backend annotation to the device view. The
// backend stores an inclusive end offset; devices use an exclusive one.
func FromBackend(a prosa.Annotation, now time.Time) Annotation {
	kind := typeHighlight
	if a.Note != nil {
		kind = typeNote
	}

	return Annotation{
		ClientLastModifiedUTC: kobo.FormatTime(now),
		ID:                    a.AnnotationID,
		Location: Location{Span: Span{
			ChapterFilename: a.Source,
			EndChar:         a.EndChar + 1,
			EndPath:         tagToPath(a.EndTag),
			StartChar:       a.StartChar,
			StartPath:       tagToPath(a.StartTag),
		}},
		NoteText: a.Note,
		Type:     kind,
	}
}

// ToBackend converts a device annotation to a backend creation request.
func ToBackend(a Annotation) (prosa.NewAnnotation, error) {
	span := a.Location.Span

	startTag, err := pathToTag(span.StartPath)
	if err != nil {
		return prosa.NewAnnotation{}, err
	}
	endTag, err := pathToTag(span.EndPath)
	if err != nil {
		return prosa.NewAnnotation{}, err
	}

	return prosa.NewAnnotation{
		Source:    span.ChapterFilename,
		StartTag:  startTag,
		EndTag:    endTag,
		StartChar: span.StartChar,
		EndChar:   span.EndChar - 1,
		Note:      a.NoteText,
	}, nil
}

func tagToPath(tag string) string {
	return pathPrefix + strings.ReplaceAll(tag, ".", `\.`)
}

func pathToTag(path string) (string, error) {
	tag, found := strings.CutPrefix(path, pathPrefix)
	if !found {
		return "", fmt.Errorf("%w: span path %q lacks %q prefix", prosa.ErrBadRequest, path, pathPrefix)
	}
	return strings.ReplaceAll(tag, `\.`, "."), nil
}
