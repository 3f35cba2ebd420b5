package errorhandler

import (
	"fmt"
	"net/http"

	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

type ErrorCategory int

const (
	ConfigurationError ErrorCategory = iota
	NotFoundError
	MutationError
	AggregationError
	DiscordError
	DatabaseError
	UnknownError
)

func (c ErrorCategory) String() string {
	switch c {
	case ConfigurationError:
		return "configuration"
	case NotFoundError:
		return "not_found"
	case MutationError:
		return "mutation"
	case AggregationError:
		return "aggregation"
	case DiscordError:
		return "discord"
	case DatabaseError:
		return "database"
	default:
		return "unknown"
	}
}

type CustomError struct {
	Category    ErrorCategory
	OriginalErr error
	Context     string
}

func (e *CustomError) Error() string {
	if e.OriginalErr == nil {
		return e.Context
	}
	return fmt.Sprintf("%s: %v", e.Context, e.OriginalErr)
}

func (e *CustomError) Unwrap() error {
	return e.OriginalErr
}

func NewError(category ErrorCategory, err error, context string) *CustomError {
	return &CustomError{
		Category:    category,
		OriginalErr: err,
		Context:     context,
	}
}

func NewConfigurationError(err error, key string) *CustomError {
	return NewError(ConfigurationError, err, fmt.Sprintf("invalid configuration value for %s", key))
}

func NewNotFoundError(err error, context string) *CustomError {
	return NewError(NotFoundError, err, fmt.Sprintf("not found: %s", context))
}

func NewMutationError(err error, context string) *CustomError {
	return NewError(MutationError, err, fmt.Sprintf("mutation rejected: %s", context))
}

func NewAggregationError(err error, context string) *CustomError {
	return NewError(AggregationError, err, fmt.Sprintf("aggregation failed: %s", context))
}

func NewDiscordError(err error, context string) *CustomError {
	return NewError(DiscordError, err, fmt.Sprintf("Discord error: %s", context))
}

func NewDatabaseError(err error, context string) *CustomError {
	return NewError(DatabaseError, err, fmt.Sprintf("Database error: %s", context))
}

// HandleError logs err with its category and reports whether the failure is
// limited to the unit of work that produced it.
func HandleError(err error) bool {
	if err == nil {
		return true
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		entry := logger.Log.WithError(customErr.OriginalErr).
			WithField("category", customErr.Category.String())
		switch customErr.Category {
		case NotFoundError:
			entry.Debug(customErr.Context)
		case ConfigurationError, AggregationError:
			entry.Warn(customErr.Context)
		default:
			entry.Error(customErr.Context)
		}
		return true
	}

	logger.Log.WithError(err).Error("Unexpected error occurred")
	return false
}

func IsCategory(err error, category ErrorCategory) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Category == category
	}
	return false
}

// IsNotFound reports whether err means the requested Discord entity does not
// exist, either as a categorised error or a raw REST error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if IsCategory(err, NotFoundError) {
		return true
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		return isNotFoundREST(restErr)
	}
	return false
}

func isNotFoundREST(restErr *discordgo.RESTError) bool {
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownUser:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
