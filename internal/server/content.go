package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/at-ishikawa/genius/internal/content"
)

func (s *Server) getContent(c *gin.Context) {
	record, err := s.contents.Load(c.Request.Context(), c.Param("id"), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) listContent(c *gin.Context) {
	filter := content.Filter{
		Type:      content.Type(c.Query("type")),
		ProfileID: c.Query("profile_id"),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "סוג תוכן לא מוכר"})
		return
	}

	records, err := s.contents.List(c.Request.Context(), ownerID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []content.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"content": records})
}
