package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/at-ishikawa/genius/internal/story"
)

type createStoryRequest struct {
	ProfileID string      `json:"profile_id"`
	Title     string      `json:"title"`
	Style     story.Style `json:"style"`
}

type advanceStoryRequest struct {
	Text string `json:"text"`
}

type advanceStoryResponse struct {
	Part    story.Part  `json:"part"`
	Story   story.Story `json:"story"`
	Warning string      `json:"warning,omitempty"`
}

func (s *Server) createStory(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	owner := ownerID(c)
	app, err := s.appFor(c.Request.Context(), owner, req.ProfileID)
	if err != nil {
		respondError(c, err)
		return
	}
	sess, err := story.New(app, req.Title, req.Style)
	if err != nil {
		respondError(c, err)
		return
	}
	s.sessions.put(owner, sess.ID(), &entry{story: sess})
	c.JSON(http.StatusCreated, gin.H{"story": sess.Story()})
}

func (s *Server) getStory(c *gin.Context) {
	sess, err := s.storySession(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": sess.Story()})
}

func (s *Server) advanceStory(c *gin.Context) {
	var req advanceStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	owner, id := ownerID(c), c.Param("id")
	sess, err := s.storySession(ctx, owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	end := s.sessions.begin(owner, id)
	part, err := sess.Advance(ctx, req.Text)
	end()
	if !delivered(err) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, advanceStoryResponse{
		Part:    part,
		Story:   sess.Story(),
		Warning: warning(err),
	})
}

// storySession returns the live session or resumes the stored story
func (s *Server) storySession(ctx context.Context, owner, id string) (*story.Session, error) {
	if e, ok := s.sessions.get(owner, id); ok && e.story != nil {
		return e.story, nil
	}
	record, err := s.contents.Load(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	app, err := s.appFor(ctx, owner, record.ProfileID)
	if err != nil {
		return nil, err
	}
	sess, err := story.Resume(app, record)
	if err != nil {
		return nil, err
	}
	e := s.sessions.put(owner, id, &entry{story: sess})
	if e.story == nil {
		return nil, story.ErrNotAStory
	}
	return e.story, nil
}
