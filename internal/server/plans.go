package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/at-ishikawa/genius/internal/plan"
)

type createPlanRequest struct {
	ProfileID string `json:"profile_id"`
	Subject   string `json:"subject"`
	Topic     string `json:"topic"`
	Goal      string `json:"goal"`
}

type advancePlanRequest struct {
	Feedback string `json:"feedback"`
}

type advancePlanResponse struct {
	Step     plan.Step         `json:"step"`
	Plan     plan.LearningPlan `json:"plan"`
	Complete bool              `json:"complete"`
	Warning  string            `json:"warning,omitempty"`
}

type worksheetResponse struct {
	Worksheet        *plan.Worksheet `json:"worksheet"`
	ImageUnavailable bool            `json:"image_unavailable"`
	Warning          string          `json:"warning,omitempty"`
}

type suggestTopicsRequest struct {
	ProfileID string `json:"profile_id"`
	Subject   string `json:"subject"`
}

func (s *Server) createPlan(c *gin.Context) {
	var req createPlanRequest
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
	sess, err := plan.New(app, req.Subject, req.Topic, req.Goal)
	if err != nil {
		respondError(c, err)
		return
	}
	s.sessions.put(owner, sess.ID(), &entry{plan: sess})
	c.JSON(http.StatusCreated, gin.H{"plan": sess.Plan()})
}

func (s *Server) getPlan(c *gin.Context) {
	sess, err := s.planSession(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": sess.Plan()})
}

func (s *Server) advancePlan(c *gin.Context) {
	var req advancePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	owner, id := ownerID(c), c.Param("id")
	sess, err := s.planSession(ctx, owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	end := s.sessions.begin(owner, id)
	step, err := sess.AdvanceStep(ctx, req.Feedback)
	end()
	if !delivered(err) {
		respondError(c, err)
		return
	}
	snapshot := sess.Plan()
	c.JSON(http.StatusOK, advancePlanResponse{
		Step:     step,
		Plan:     snapshot,
		Complete: snapshot.Complete(),
		Warning:  warning(err),
	})
}

func (s *Server) generateWorksheet(c *gin.Context) {
	ctx := c.Request.Context()
	owner, id := ownerID(c), c.Param("id")
	sess, err := s.planSession(ctx, owner, id)
	if err != nil {
		respondError(c, err)
		return
	}
	end := s.sessions.begin(owner, id)
	worksheet, err := sess.GenerateWorksheet(ctx)
	end()
	if !delivered(err) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, worksheetResponse{
		Worksheet:        worksheet,
		ImageUnavailable: worksheet.ImageUnavailable,
		Warning:          warning(err),
	})
}

func (s *Server) suggestTopics(c *gin.Context) {
	var req suggestTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	app, err := s.appFor(ctx, ownerID(c), req.ProfileID)
	if err != nil {
		respondError(c, err)
		return
	}
	topics, err := plan.SuggestTopics(ctx, app, req.Subject)
	if !delivered(err) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics, "warning": warning(err)})
}

// planSession returns the live session or resumes the stored plan
func (s *Server) planSession(ctx context.Context, owner, id string) (*plan.Session, error) {
	if e, ok := s.sessions.get(owner, id); ok && e.plan != nil {
		return e.plan, nil
	}
	record, err := s.contents.Load(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	app, err := s.appFor(ctx, owner, record.ProfileID)
	if err != nil {
		return nil, err
	}
	sess, err := plan.Resume(app, record)
	if err != nil {
		return nil, err
	}
	e := s.sessions.put(owner, id, &entry{plan: sess})
	if e.plan == nil {
		return nil, plan.ErrNotAPlan
	}
	return e.plan, nil
}
