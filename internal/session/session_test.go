package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/profile"
)

type fakeSaver struct {
	drafts  []content.Draft
	ctxErrs []error
	err     error
}

func (s *fakeSaver) Save(ctx context.Context, draft content.Draft) (string, error) {
	s.drafts = append(s.drafts, draft)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if draft.ID == "" {
		draft.ID = "generated"
	}
	return draft.ID, s.err
}

type fakeReferences struct {
	image *inference.Image
}

func (r fakeReferences) Load(context.Context, *profile.ChildProfile) *inference.Image {
	return r.image
}

func TestNew(t *testing.T) {
	child := &profile.ChildProfile{ID: "child-1", OwnerID: "user-1", Name: "נועה", Age: 7}

	_, err := New("user-1", nil, &Services{})
	assert.ErrorIs(t, err, ErrNoActiveProfile)

	_, err = New("", child, &Services{})
	assert.ErrorIs(t, err, ErrNoActiveProfile)

	got, err := New("user-1", child, &Services{})
	require.NoError(t, err)
	assert.Equal(t, "נועה", got.Child().Name)
	assert.Equal(t, 7, got.Child().Age)
	assert.Nil(t, got.ReferenceImage(context.Background()))
}

func TestContext_Persist(t *testing.T) {
	child := &profile.ChildProfile{ID: "child-1", OwnerID: "user-1"}

	tests := []struct {
		name   string
		err    error
		wantID string
	}{
		{name: "saved", wantID: "story-1"},
		{name: "remote failure still returns the id", err: fmt.Errorf("%w: timeout", content.ErrPersistence), wantID: "story-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &fakeSaver{err: tt.err}
			app, err := New("user-1", child, &Services{
				Content:    saver,
				References: fakeReferences{image: &inference.Image{MIMEType: "image/png", Data: "abc"}},
			})
			require.NoError(t, err)

			got := app.Persist(context.Background(), content.Draft{ID: "story-1", Type: content.TypeStory})
			assert.Equal(t, tt.wantID, got)
			require.Len(t, saver.drafts, 1)
			assert.Equal(t, "user-1", saver.drafts[0].OwnerID)
			assert.Equal(t, "child-1", saver.drafts[0].ProfileID)
			assert.NotNil(t, app.ReferenceImage(context.Background()))
		})
	}
}

func TestContext_Persist_CancelledRequest(t *testing.T) {
	child := &profile.ChildProfile{ID: "child-1", OwnerID: "user-1"}
	saver := &fakeSaver{}
	app, err := New("user-1", child, &Services{Content: saver})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := app.Persist(ctx, content.Draft{ID: "story-1", Type: content.TypeStory})
	assert.Equal(t, "story-1", got)
	require.Len(t, saver.ctxErrs, 1)
	assert.NoError(t, saver.ctxErrs[0])
}

func TestGuard_Enter(t *testing.T) {
	var guard Guard

	release, err := guard.Enter()
	require.NoError(t, err)

	_, err = guard.Enter()
	assert.ErrorIs(t, err, ErrBusy)

	release()
	release, err = guard.Enter()
	require.NoError(t, err)
	release()
}

func TestUserMessage(t *testing.T) {
	errCustom := NewError("title is empty", "יש לתת שם לסיפור")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "busy", err: ErrBusy, want: "פעולה אחרת עדיין מתבצעת, נא להמתין לסיומה"},
		{name: "wrapped package error", err: fmt.Errorf("advance > %w", errCustom), want: "יש לתת שם לסיפור"},
		{name: "insufficient credits", err: fmt.Errorf("%w: story_part costs 2, balance is 1", credit.ErrInsufficientCredits), want: "אין מספיק קרדיטים לפעולה זו"},
		{name: "missing credentials", err: inference.ErrMissingCredentials, want: "לא הוגדר מפתח גישה לשירות הבינה המלאכותית"},
		{name: "format", err: fmt.Errorf("%w: $.text: required property is missing", inference.ErrGenerationFormat), want: "היצירה נכשלה, נא לנסות שוב"},
		{name: "not found", err: content.ErrNotFound, want: "התוכן המבוקש לא נמצא"},
		{name: "profile not found", err: fmt.Errorf("%w: child-9", profile.ErrNotFound), want: "פרופיל הילד לא נמצא"},
		{name: "unknown", err: errors.New("boom"), want: defaultUserMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
