package errorhandler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"categorised", NewNotFoundError(errors.New("gone"), "message 1"), true},
		{"wrapped categorised", errors.Wrap(NewNotFoundError(nil, "channel 2"), "scan"), true},
		{"mutation", NewMutationError(errors.New("denied"), "edit"), false},
		{
			"unknown message code",
			&discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage}},
			true,
		},
		{
			"http 404",
			fmt.Errorf("fetch: %w", &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}),
			true,
		},
		{
			"http 403",
			&discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestCustomErrorMessage(t *testing.T) {
	err := NewMutationError(errors.New("missing permissions"), "lock thread 42")
	assert.Equal(t, "mutation rejected: lock thread 42: missing permissions", err.Error())
	assert.True(t, IsCategory(errors.Wrap(err, "step a"), MutationError))
	assert.False(t, IsCategory(err, NotFoundError))
}

func TestHandleError(t *testing.T) {
	assert.True(t, HandleError(nil))
	assert.True(t, HandleError(NewAggregationError(errors.New("x"), "owner")))
	assert.False(t, HandleError(errors.New("raw")))
}
