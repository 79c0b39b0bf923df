package server

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/twbot/supportsite/internal/models"
)

func TestWriteErrorForStatusMapping(t *testing.T) {
	for err, want := range map[error]int{
		models.ErrAuth:             401,
		models.ErrForbidden:        403,
		models.ErrNotFound:         404,
		models.ErrStateMismatch:    400,
		errors.New("disk on fire"): 500,
	} {
		rec := httptest.NewRecorder()
		WriteErrorFor(rec, err)
		assert.Equal(t, want, rec.Code, err.Error())
	}

	// Wrapped sentinels map the same way.
	rec := httptest.NewRecorder()
	WriteErrorFor(rec, fmt.Errorf("guild lookup: %w", models.ErrForbidden))
	assert.Equal(t, 403, rec.Code)
}
