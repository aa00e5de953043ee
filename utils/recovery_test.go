package utils_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cppla/blogicum/utils"
)

func TestAccessLogAndRecoverJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(ginzap.Ginzap(logger, "2006-01-02", true), ginzap.CustomRecoveryWithZap(logger, true, utils.RecoverJSON))
	r.GET("/ok", func(c *gin.Context) { utils.Success(c, gin.H{"fine": true}) })
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":50000,"message":"internal server error"}`, w.Body.String())

	assert.Equal(t, 1, logs.FilterMessageSnippet("Recovery from panic").Len())
	assert.Equal(t, 1, logs.FilterMessage("/ok").Len())
	assert.Equal(t, 1, logs.FilterMessage("/boom").Len())
}
