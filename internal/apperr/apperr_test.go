package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation(Issue{Field: "age", Reason: "required"})))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Auth("Invalid or expired token", nil)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("user not found")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Upstream("prediction failed", errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Storage("internal error", nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("submit insight: %w", Upstream("prediction service unavailable", cause))

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.True(t, Is(err, KindUpstream))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "prediction service unavailable", PublicMessage(err))
}

func TestPublicMessage_HidesUnknownErrors(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: password authentication failed")))
}

func TestIssuesOf(t *testing.T) {
	err := Validation(Issue{Field: "gender", Reason: "must be one of: Male Female"})
	assert.Len(t, IssuesOf(err), 1)
	assert.Nil(t, IssuesOf(NotFound("x")))
}
