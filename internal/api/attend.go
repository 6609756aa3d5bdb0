package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clubattend/internal/auth"
	"clubattend/internal/checkin"
	"clubattend/pkg/types"
)

type CheckInRequest struct {
	ClubCode  string   `json:"club_code" binding:"required,clubcode"`
	Code      string   `json:"code" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
}

type CheckInQRRequest struct {
	QRCode    string   `json:"qr_code" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
}

type HistoryResponse struct {
	ClubCode   string                    `json:"club_code"`
	Attendance []*types.MemberAttendance `json:"attendance"`
}

// POST /api/attend/check
func (s *Server) checkIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, _ := auth.UserFrom(c)

	s.runCheckIn(c, checkin.Request{
		UserID:    user.UserID,
		ClubCode:  req.ClubCode,
		Code:      normalizeCode(req.Code),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
}

// POST /api/attend/check_qr
func (s *Server) checkInQR(c *gin.Context) {
	var req CheckInQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, _ := auth.UserFrom(c)

	s.runCheckIn(c, checkin.Request{
		UserID:    user.UserID,
		QR:        normalizeCode(req.QRCode),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
}

func (s *Server) runCheckIn(c *gin.Context, req checkin.Request) {
	res, err := s.deps.CheckIns.CheckIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/attend/mine/:club_code
func (s *Server) myAttendance(c *gin.Context) {
	clubCode := c.Param("club_code")
	if !types.IsValidClubCode(clubCode) {
		respondError(c, types.ErrInvalidClubCode)
		return
	}
	user, _ := auth.UserFrom(c)
	ctx := c.Request.Context()

	member, err := s.deps.DB.IsMember(ctx, user.UserID, clubCode)
	if err != nil {
		respondError(c, err)
		return
	}
	if !member {
		respondError(c, checkin.ErrNotMember)
		return
	}

	history, err := s.deps.DB.MemberHistory(ctx, user.UserID, clubCode)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []*types.MemberAttendance{}
	}
	c.JSON(http.StatusOK, HistoryResponse{ClubCode: clubCode, Attendance: history})
}
