package cli

import (
	"context"
	"fmt"

	"github.com/at-ishikawa/genius/internal/story"
)

// StoryCLI writes a story together with the guardian, one part per round
type StoryCLI struct {
	*InteractiveCLI
	session *story.Session
	images  *ImageWriter
}

func NewStoryCLI(session *story.Session, images *ImageWriter) *StoryCLI {
	return &StoryCLI{
		InteractiveCLI: newStdCLI(),
		session:        session,
		images:         images,
	}
}

func (r *StoryCLI) Session(ctx context.Context) error {
	input, err := r.readLine("מה קורה עכשיו? (Enter להמשך, quit ליציאה): ")
	if err != nil {
		return err
	}
	if isQuit(input) {
		fmt.Fprintf(r.stdoutWriter, "The story was saved with %d parts.\n", len(r.session.Story().Parts))
		return errEnd
	}

	part, err := r.session.Advance(ctx, input)
	if err != nil {
		if reportErr := r.report(err); reportErr != nil {
			return reportErr
		}
		if part.Text == "" {
			return nil
		}
	}

	fmt.Fprintln(r.stdoutWriter)
	_, _ = r.italic.Fprintln(r.stdoutWriter, part.Text)
	if part.Image != "" {
		name := fmt.Sprintf("%s-%02d", r.session.ID(), len(r.session.Story().Parts))
		path, err := r.images.Write(name, part.Image)
		if err != nil {
			_, _ = r.failure.Fprintf(r.stdoutWriter, "could not save the illustration: %v\n", err)
		} else if path != "" {
			fmt.Fprintf(r.stdoutWriter, "[illustration: %s]\n", path)
		}
	}
	fmt.Fprintln(r.stdoutWriter)
	return nil
}
