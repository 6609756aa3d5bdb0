package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"clubattend/internal/checkin"
	"clubattend/internal/geofence"
	"clubattend/internal/session"
	"clubattend/pkg/interfaces"
	"clubattend/pkg/types"
)

// Reason codes let clients tell failures apart ("re-scan" vs "not a member")
const (
	CodeUnauthenticated  = "unauthenticated"
	CodeForbidden        = "forbidden"
	CodeNotMember        = "not_member"
	CodeNotOpen          = "not_open"
	CodeCodeMismatch     = "code_mismatch"
	CodeInvalidQR        = "invalid_qr"
	CodeLocationRequired = "location_required"
	CodeOutOfGeofence    = "out_of_geofence"
	CodeDuplicateCheckIn = "duplicate_checkin"
	CodeInvalidDate      = "invalid_date"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeInvalidRequest   = "invalid_request"
	CodeInternal         = "internal"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// FUNCTIONAL DISCOVERY: Mismatch and not-open are expected outcomes the client
// retries with a fresh code, so they map to 4xx and are never logged as errors
var errorMappings = []errorMapping{
	{interfaces.ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
	{interfaces.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{checkin.ErrNotMember, http.StatusForbidden, CodeNotMember},
	{checkin.ErrSessionNotOpen, http.StatusNotFound, CodeNotOpen},
	{checkin.ErrCodeMismatch, http.StatusBadRequest, CodeCodeMismatch},
	{checkin.ErrMalformedQR, http.StatusBadRequest, CodeInvalidQR},
	{checkin.ErrMissingCode, http.StatusBadRequest, CodeInvalidRequest},
	{geofence.ErrLocationRequired, http.StatusBadRequest, CodeLocationRequired},
	{geofence.ErrOutsideGeofence, http.StatusBadRequest, CodeOutOfGeofence},
	{interfaces.ErrAlreadyRecorded, http.StatusConflict, CodeDuplicateCheckIn},
	{interfaces.ErrAlreadyMember, http.StatusConflict, CodeConflict},
	{session.ErrSessionConflict, http.StatusConflict, CodeConflict},
	{types.ErrInvalidDate, http.StatusBadRequest, CodeInvalidDate},
	{interfaces.ErrDateNotRegistered, http.StatusNotFound, CodeInvalidDate},
	{interfaces.ErrClubNotFound, http.StatusNotFound, CodeNotFound},
	{interfaces.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{types.ErrInvalidStatus, http.StatusBadRequest, CodeInvalidRequest},
	{types.ErrInvalidLocation, http.StatusBadRequest, CodeInvalidRequest},
	{types.ErrInvalidClubCode, http.StatusBadRequest, CodeInvalidRequest},
	{types.ErrInvalidUserID, http.StatusBadRequest, CodeInvalidRequest},
}

// toHTTPStatus maps a domain error to its status and reason code
func toHTTPStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// respondError writes the error body for err
func respondError(c *gin.Context, err error) {
	status, code := toHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "internal server error"
	}
	abortWith(c, status, code, message)
}

func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	})
}

func badRequest(c *gin.Context, err error) {
	abortWith(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
}
