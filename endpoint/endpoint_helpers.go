package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ariebrainware/telemed-api/middleware"
	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// clientInfo is the request origin recorded in security events.
type clientInfo struct {
	IP    string
	Agent string
}

func clientOf(c *gin.Context) clientInfo {
	return clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}
}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db, err := middleware.GetDB(c)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: err})
		return nil, false
	}
	return db, true
}

func identityOrRespond(c *gin.Context) (service.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Authentication required", Err: service.ErrInvalidToken})
		return service.Identity{}, false
	}
	return id, true
}

func uintParamOrRespond(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: fmt.Sprintf("Invalid %s", name), Err: fmt.Errorf("invalid %s %q", name, c.Param(name))})
		return 0, false
	}
	return uint(v), true
}

// respondServiceError maps domain errors to status codes. Anything not
// recognised is a 500 with a generic message.
func respondServiceError(c *gin.Context, err error, msg string) {
	params := util.APIErrorParams{Msg: msg, Err: err}
	switch {
	case errors.Is(err, service.ErrIndexOutOfRange):
		util.CallUserError(c, util.APIErrorParams{Msg: "InvalidDeleteRequest", Err: err})
	case errors.Is(err, service.ErrDuplicateIdentity),
		errors.Is(err, service.ErrInvalidOrExpiredCode),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, util.ErrUploadTooLarge),
		errors.Is(err, util.ErrUnsupportedUpload),
		errors.Is(err, util.ErrEmptyUpload),
		errors.Is(err, model.ErrInvalidRegistryEntry):
		util.CallUserError(c, params)
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpiredToken):
		util.CallUserNotAuthorized(c, params)
	case errors.Is(err, service.ErrRegistryVerificationFailed),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrExternalAccount):
		util.CallForbidden(c, params)
	case errors.Is(err, service.ErrAccountConflict),
		errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrConcurrentUpdate):
		util.CallConflict(c, params)
	case errors.Is(err, service.ErrNotFound):
		util.CallErrorNotFound(c, params)
	default:
		util.CallServerError(c, params)
	}
}
