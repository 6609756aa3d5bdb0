package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"clubattend/internal/auth"
	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

const (
	ctxClubKey = "leader_club"
	qrSize     = 320
)

// DefaultRadiusKm applies when a leader enables the geofence without a radius
const DefaultRadiusKm = 0.5

type RegisterDatesRequest struct {
	Dates []string `json:"dates" binding:"required,min=1,dive,isodate"`
}

type RegisterDatesResponse struct {
	Dates []*types.AttendanceDate `json:"dates"`
}

type BulkUpdateRequest struct {
	AttendanceDateID int64                    `json:"attendance_date_id" binding:"required"`
	Attendances      []types.AttendanceUpdate `json:"attendances" binding:"required,min=1,dive"`
}

type BulkUpdateResponse struct {
	Updated int `json:"updated"`
}

type UpdateLocationRequest struct {
	Enabled   bool     `json:"location_enabled"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
	RadiusKm  *float64 `json:"radius_km" binding:"omitempty,gt=0"`
}

type StopSessionResponse struct {
	ClubCode string `json:"club_code"`
	Stopped  bool   `json:"stopped"`
}

// requireLeader resolves the caller's club and rejects non-leaders
// FUNCTIONAL DISCOVERY: A leader always acts on the club they run; no admin
// route takes a club code from the request
func (s *Server) requireLeader(c *gin.Context) {
	user, ok := auth.UserFrom(c)
	if !ok {
		respondError(c, interfaces.ErrUnauthenticated)
		return
	}
	ctx := c.Request.Context()

	clubCode, err := s.deps.DB.ResolveLeaderClub(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			err = interfaces.ErrForbidden
		}
		respondError(c, err)
		return
	}
	leader, err := s.deps.DB.IsClubLeader(ctx, user.UserID, clubCode)
	if err != nil {
		respondError(c, err)
		return
	}
	if !leader {
		respondError(c, interfaces.ErrForbidden)
		return
	}

	c.Set(ctxClubKey, clubCode)
	c.Next()
}

func leaderClub(c *gin.Context) string {
	return c.GetString(ctxClubKey)
}

// POST /api/admin/dates
func (s *Server) registerDates(c *gin.Context) {
	var req RegisterDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, _ := auth.UserFrom(c)

	dates, err := s.deps.DB.RegisterDates(c.Request.Context(), leaderClub(c), user.UserID, req.Dates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RegisterDatesResponse{Dates: dates})
}

// GET /api/admin/attendance/:date
func (s *Server) roster(c *gin.Context) {
	date, err := types.ParseAttendanceDate(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	roster, err := s.deps.DB.Roster(c.Request.Context(), leaderClub(c), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

// PUT /api/admin/attendance/bulk
func (s *Server) bulkUpdate(c *gin.Context) {
	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	n, err := s.deps.DB.BulkUpdateAttendance(c.Request.Context(), leaderClub(c), req.AttendanceDateID, req.Attendances)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("Bulk attendance update: club=%s date_id=%d rows=%d", leaderClub(c), req.AttendanceDateID, n)
	c.JSON(http.StatusOK, BulkUpdateResponse{Updated: n})
}

// PUT /api/admin/location
func (s *Server) updateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		respondError(c, types.ErrInvalidLocation)
		return
	}

	loc := types.ClubLocation{
		Enabled:   req.Enabled,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusKm:  DefaultRadiusKm,
	}
	if req.RadiusKm != nil {
		loc.RadiusKm = *req.RadiusKm
	}

	ctx := c.Request.Context()
	if err := s.deps.DB.UpdateClubLocation(ctx, leaderClub(c), loc); err != nil {
		respondError(c, err)
		return
	}
	club, err := s.deps.DB.GetClub(ctx, leaderClub(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.Location)
}

// GET /api/admin/session
func (s *Server) sessionStatus(c *gin.Context) {
	sess, ok := s.deps.Sessions.Get(leaderClub(c))
	if !ok {
		abortWith(c, http.StatusNotFound, CodeNotOpen, "no attendance session is open")
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// DELETE /api/admin/session
// TECHNICAL DISCOVERY: Removing the session closes it; the leader's live
// connection observes the close and finishes its own teardown
func (s *Server) stopSession(c *gin.Context) {
	clubCode := leaderClub(c)
	if !s.deps.Sessions.Remove(clubCode) {
		abortWith(c, http.StatusNotFound, CodeNotOpen, "no attendance session is open")
		return
	}
	c.JSON(http.StatusOK, StopSessionResponse{ClubCode: clubCode, Stopped: true})
}

// GET /api/admin/session/qr
func (s *Server) sessionQR(c *gin.Context) {
	sess, ok := s.deps.Sessions.Get(leaderClub(c))
	if !ok {
		abortWith(c, http.StatusNotFound, CodeNotOpen, "no attendance session is open")
		return
	}
	code := sess.CurrentCode()
	if code == "" {
		abortWith(c, http.StatusNotFound, CodeNotOpen, "no attendance code issued yet")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, qrSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
