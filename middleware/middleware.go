package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DBKey is the gin context key holding the request's *gorm.DB.
const DBKey = "db"

// CORSMiddleware allows the configured origins with credentials so the
// doctor session cookie is sent by browsers.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", APITokenHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 {
		// Credentials cannot be combined with a wildcard origin.
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// DatabaseMiddleware injects db into every request.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// GetDB returns the request's database handle.
func GetDB(c *gin.Context) (*gorm.DB, error) {
	v, ok := c.Get(DBKey)
	if !ok {
		return nil, errors.New("database connection not found in context")
	}
	db, ok := v.(*gorm.DB)
	if !ok || db == nil {
		return nil, errors.New("invalid database connection in context")
	}
	return db, nil
}

func abortUnauthorized(c *gin.Context, msg string, err error) {
	util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: msg, Err: err})
	c.Abort()
}

func abortForbidden(c *gin.Context, msg string, err error) {
	util.CallForbidden(c, util.APIErrorParams{Msg: msg, Err: err})
	c.Abort()
}

// statusAborted reports whether a handler answered with an auth failure.
func statusAborted(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
