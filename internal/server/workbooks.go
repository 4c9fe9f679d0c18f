package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/at-ishikawa/genius/internal/workbook"
)

type createWorkbookRequest struct {
	ProfileID string `json:"profile_id"`
	workbook.Request
}

type checkAnswersRequest struct {
	Answers []string `json:"answers"`
}

func (s *Server) createWorkbook(c *gin.Context) {
	var req createWorkbookRequest
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
	generator, err := workbook.NewGenerator(app)
	if err != nil {
		respondError(c, err)
		return
	}
	wb, err := generator.Generate(ctx, req.Request)
	if !delivered(err) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"workbook": wb, "warning": warning(err)})
}

func (s *Server) checkAnswers(c *gin.Context) {
	var req checkAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	owner := ownerID(c)
	record, err := s.contents.Load(ctx, c.Param("id"), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	wb, err := workbook.Decode(record)
	if err != nil {
		respondError(c, err)
		return
	}
	app, err := s.appFor(ctx, owner, record.ProfileID)
	if err != nil {
		respondError(c, err)
		return
	}
	generator, err := workbook.NewGenerator(app)
	if err != nil {
		respondError(c, err)
		return
	}
	grade, err := generator.CheckAnswers(ctx, wb, req.Answers)
	if !delivered(err) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grade": grade, "warning": warning(err)})
}
