package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type creditsResponse struct {
	Balance int            `json:"balance"`
	Costs   map[string]int `json:"costs"`
}

func (s *Server) getCredits(c *gin.Context) {
	ctx := c.Request.Context()
	balance, err := s.services.Gate.Balance(ctx, ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	costs, err := s.services.Gate.Costs(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	response := creditsResponse{Balance: balance, Costs: make(map[string]int, len(costs))}
	for kind, cost := range costs {
		response.Costs[string(kind)] = cost
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) listProfiles(c *gin.Context) {
	profiles, err := s.profiles.ListByOwner(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
