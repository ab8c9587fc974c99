package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/s2010/story-twister/internal/errs"
)

func TestRespondErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		want int
	}{
		{errs.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("%w: title is required", errs.ErrInvalidInput), http.StatusBadRequest},
		{errs.ErrSessionNotStarted, http.StatusForbidden},
		{errs.ErrSessionExpired, http.StatusBadRequest},
		{errs.ErrStoryNotActive, http.StatusBadRequest},
		{errs.ErrSessionNotWaiting, http.StatusBadRequest},
		{errs.ErrTeamExists, http.StatusConflict},
		{errs.ErrTeamNotFound, http.StatusNotFound},
		{errs.ErrStoryNotFound, http.StatusNotFound},
		{errs.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("respondError(%v) = %d, want %d", tt.err, w.Code, tt.want)
			}
		})
	}
}
