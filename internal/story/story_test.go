package story_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	mock_inference "github.com/at-ishikawa/genius/internal/mocks/inference"
	"github.com/at-ishikawa/genius/internal/session"
	"github.com/at-ishikawa/genius/internal/story"
	"github.com/at-ishikawa/genius/internal/testutil"
)

type fixture struct {
	app       *session.Context
	generator *mock_inference.MockClient
	ledger    *testutil.MemoryLedger
	store     *testutil.MemoryStore
}

func newFixture(t *testing.T, balance int) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	generator := mock_inference.NewMockClient(ctrl)
	ledger := testutil.NewMemoryLedger(map[string]int{"user-1": balance})
	store := testutil.NewMemoryStore()

	app, err := session.New("user-1", testutil.ChildProfile("user-1"), &session.Services{
		Generator: generator,
		Gate:      credit.NewGate(ledger),
		Content:   content.NewPersister(store, nil),
		Prompts:   assets.NewPrompts(""),
	})
	require.NoError(t, err)
	return &fixture{app: app, generator: generator, ledger: ledger, store: store}
}

func respond(text, imagePrompt string) func(context.Context, inference.StructuredRequest, any) error {
	return func(_ context.Context, _ inference.StructuredRequest, out any) error {
		*out.(*inference.StoryPartResponse) = inference.StoryPartResponse{Text: text, ImagePrompt: imagePrompt}
		return nil
	}
}

var rocket = &inference.Image{MIMEType: "image/png", Data: "cm9ja2V0"}

func TestNew(t *testing.T) {
	f := newFixture(t, 10)

	_, err := story.New(f.app, "   ", story.Style{})
	assert.ErrorIs(t, err, story.ErrEmptyTitle)

	_, err = story.New(nil, "הרפתקה בחלל", story.Style{})
	assert.ErrorIs(t, err, session.ErrNoActiveProfile)

	s, err := story.New(f.app, " הרפתקה בחלל ", story.Style{Genre: "fantasy"})
	require.NoError(t, err)
	assert.Equal(t, "הרפתקה בחלל", s.Story().Title)
	assert.Empty(t, s.Story().Parts)
	assert.NotEmpty(t, s.ID())
}

func TestSession_Advance(t *testing.T) {
	ctx := context.Background()

	t.Run("first part debits and persists", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{ArtStyle: "watercolor"})
		require.NoError(t, err)

		f.generator.EXPECT().
			GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req inference.StructuredRequest, out any) error {
				assert.Equal(t, inference.OperationStoryPart, req.Operation)
				assert.Equal(t, "user-1", req.OwnerID)
				assert.Contains(t, req.Prompt, "opening part")
				assert.Contains(t, req.Prompt, "נועה, age 7")
				return respond("נועה עלתה לחללית.", "A girl boarding a rocket")(ctx, req, out)
			})
		f.generator.EXPECT().
			GenerateImage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req inference.ImageRequest) (*inference.Image, error) {
				assert.Contains(t, req.Prompt, "watercolor style. A girl boarding a rocket")
				assert.Nil(t, req.Reference)
				return rocket, nil
			})

		part, err := s.Advance(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, story.AuthorAI, part.Author)
		assert.Equal(t, "נועה עלתה לחללית.", part.Text)
		assert.Equal(t, "data:image/png;base64,cm9ja2V0", part.Image)

		assert.Equal(t, 8, f.ledger.BalanceOf("user-1"))
		require.Len(t, s.Story().Parts, 1)

		record, ok := f.store.Get(s.ID())
		require.True(t, ok)
		assert.Equal(t, content.TypeStory, record.Type)
		assert.Equal(t, "child-1", record.ProfileID)
		var stored story.Story
		require.NoError(t, json.Unmarshal(record.ContentData, &stored))
		assert.Len(t, stored.Parts, 1)
	})

	t.Run("insufficient credits never calls the generator", func(t *testing.T) {
		f := newFixture(t, 1)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		_, err = s.Advance(ctx, "ואז הגיע חתול")
		assert.ErrorIs(t, err, credit.ErrInsufficientCredits)
		assert.Equal(t, 1, f.ledger.BalanceOf("user-1"))
		assert.Empty(t, s.Story().Parts)
		assert.Zero(t, f.store.UpsertCalls)
	})

	t.Run("missing image still commits the part", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(respond("היה היה חתול.", "A cat"))
		f.generator.EXPECT().GenerateImage(gomock.Any(), gomock.Any()).Return(nil, nil)

		part, err := s.Advance(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, part.Image)
		assert.Len(t, s.Story().Parts, 1)
		assert.Equal(t, 8, f.ledger.BalanceOf("user-1"))
	})

	t.Run("format error drops the user's line", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("%w: $.text: required property is missing", inference.ErrGenerationFormat))

		_, err = s.Advance(ctx, "ואז הגיע חתול")
		assert.ErrorIs(t, err, inference.ErrGenerationFormat)
		assert.Empty(t, s.Story().Parts)
		assert.Equal(t, 10, f.ledger.BalanceOf("user-1"))
		assert.Zero(t, f.store.UpsertCalls)
	})

	t.Run("blank text is a format error", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(respond("  ", "A cat"))

		_, err = s.Advance(ctx, "")
		assert.ErrorIs(t, err, inference.ErrGenerationFormat)
		assert.Empty(t, s.Story().Parts)
	})

	t.Run("user line and continuation keep earlier parts", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		gomock.InOrder(
			f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(respond("נועה עלתה לחללית.", "")),
			f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, req inference.StructuredRequest, out any) error {
					assert.Contains(t, req.Prompt, "ai: נועה עלתה לחללית.\nuser: ואז הגיע חתול\n")
					return respond("החתול הצטרף למסע.", "")(ctx, req, out)
				}),
		)

		first, err := s.Advance(ctx, "")
		require.NoError(t, err)
		_, err = s.Advance(ctx, "ואז הגיע חתול")
		require.NoError(t, err)

		parts := s.Story().Parts
		require.Len(t, parts, 3)
		assert.Equal(t, first, parts[0])
		assert.Equal(t, story.AuthorUser, parts[1].Author)
		assert.Equal(t, "ואז הגיע חתול", parts[1].Text)
		assert.Equal(t, story.AuthorAI, parts[2].Author)
		assert.Equal(t, 6, f.ledger.BalanceOf("user-1"))
		assert.Len(t, f.store.Records, 1)
	})

	t.Run("debit failure keeps the part", func(t *testing.T) {
		f := newFixture(t, 10)
		f.ledger.AdjustErr = errors.New("deadlock")
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(respond("נועה עלתה לחללית.", ""))

		part, err := s.Advance(ctx, "")
		assert.ErrorIs(t, err, credit.ErrDebitFailed)
		assert.Equal(t, "נועה עלתה לחללית.", part.Text)
		assert.Len(t, s.Story().Parts, 1)
		_, ok := f.store.Get(s.ID())
		assert.True(t, ok)
	})

	t.Run("persistence failure is not surfaced", func(t *testing.T) {
		f := newFixture(t, 10)
		f.store.UpsertErr = errors.New("connection refused")
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(respond("נועה עלתה לחללית.", ""))

		_, err = s.Advance(ctx, "")
		require.NoError(t, err)
		assert.Len(t, s.Story().Parts, 1)
	})

	t.Run("concurrent advance is rejected", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req inference.StructuredRequest, out any) error {
				_, err := s.Advance(ctx, "עוד")
				assert.ErrorIs(t, err, session.ErrBusy)
				return respond("נועה עלתה לחללית.", "")(ctx, req, out)
			})

		_, err = s.Advance(ctx, "")
		require.NoError(t, err)
		assert.Len(t, s.Story().Parts, 1)
	})

	t.Run("snapshots can be read while advancing", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(respond("נועה עלתה לחללית.", ""))

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					snapshot := s.Story()
					assert.LessOrEqual(t, len(snapshot.Parts), 2)
					assert.NotEmpty(t, s.ID())
				}
			}
		}()

		_, err = s.Advance(ctx, "שלום")
		close(stop)
		wg.Wait()
		require.NoError(t, err)
		assert.Len(t, s.Story().Parts, 2)
	})

	t.Run("cancelled request is still charged and saved", func(t *testing.T) {
		f := newFixture(t, 10)
		s, err := story.New(f.app, "הרפתקה בחלל", story.Style{})
		require.NoError(t, err)

		requestCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req inference.StructuredRequest, out any) error {
				cancel()
				return respond("נועה עלתה לחללית.", "")(ctx, req, out)
			})

		part, err := s.Advance(requestCtx, "")
		require.NoError(t, err)
		assert.Equal(t, "נועה עלתה לחללית.", part.Text)
		assert.Equal(t, 8, f.ledger.BalanceOf("user-1"))
		_, ok := f.store.Get(s.ID())
		assert.True(t, ok)
	})
}

func TestResume(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	data, err := json.Marshal(story.Story{
		Title: "הרפתקה בחלל",
		Parts: []story.Part{{Author: story.AuthorAI, Text: "נועה עלתה לחללית."}},
	})
	require.NoError(t, err)
	record := &content.Record{ID: "story-1", UserID: "user-1", Type: content.TypeStory, Title: "הרפתקה בחלל", ContentData: data}

	s, err := story.Resume(f.app, record)
	require.NoError(t, err)
	assert.Equal(t, "story-1", s.ID())
	require.Len(t, s.Story().Parts, 1)

	f.generator.EXPECT().GenerateStructured(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(respond("החתול הצטרף למסע.", ""))
	_, err = s.Advance(ctx, "")
	require.NoError(t, err)

	_, ok := f.store.Get("story-1")
	assert.True(t, ok)

	_, err = story.Resume(f.app, &content.Record{ID: "wb-1", Type: content.TypeWorkbook, ContentData: []byte(`{}`)})
	assert.ErrorIs(t, err, story.ErrNotAStory)
}
