package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clubattend/internal/auth"
	"clubattend/pkg/types"
)

type JoinClubRequest struct {
	ClubCode string `json:"club_code" binding:"required,clubcode"`
}

type JoinClubResponse struct {
	ClubCode string `json:"club_code"`
	Name     string `json:"name"`
}

// POST /api/clubs/join
// FUNCTIONAL DISCOVERY: A member belongs to one club at a time; joining
// another club replaces the previous membership
func (s *Server) joinClub(c *gin.Context) {
	var req JoinClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, _ := auth.UserFrom(c)
	ctx := c.Request.Context()

	if err := s.deps.DB.JoinClub(ctx, user.UserID, req.ClubCode); err != nil {
		respondError(c, err)
		return
	}
	club, err := s.deps.DB.GetClub(ctx, req.ClubCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, JoinClubResponse{ClubCode: club.Code, Name: club.Name})
}

// GET /api/clubs/:club_code/location
func (s *Server) clubLocation(c *gin.Context) {
	clubCode := c.Param("club_code")
	if !types.IsValidClubCode(clubCode) {
		respondError(c, types.ErrInvalidClubCode)
		return
	}

	club, err := s.deps.DB.GetClub(c.Request.Context(), clubCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.Location)
}
