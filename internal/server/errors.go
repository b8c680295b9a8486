package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentflow/internal/authorization"
	"github.com/smallbiznis/talentflow/internal/catalog"
	"github.com/smallbiznis/talentflow/internal/identity"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
	passdomain "github.com/smallbiznis/talentflow/internal/pass/domain"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
			Errors:  codedErrors(err, ErrForbidden, authorization.ErrForbidden),
		}
	case isConflictError(err):
		message := conflictMessage(err)
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: message,
			Errors:  codedErrors(err, ErrConflict),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
			Errors:  codedErrors(err, ErrNotFound, gorm.ErrRecordNotFound),
		}
	case errors.Is(err, passdomain.ErrPassExpired):
		return http.StatusGone, errorPayload{
			Type:    "gone",
			Message: "this pass has expired",
			Errors:  codedErrors(err),
		}
	case errors.Is(err, passdomain.ErrPassRevoked):
		return http.StatusGone, errorPayload{
			Type:    "gone",
			Message: "this pass has been revoked",
			Errors:  codedErrors(err),
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many booking attempts, retry shortly",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog yields the error type and a stable code for request
// logs. Internal errors never leak their message.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if payload.Type == "internal_error" {
		return payload.Type, payload.Type
	}
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// codedErrors exposes the sentinel code to clients unless err is one of the
// generic errors given.
func codedErrors(err error, generic ...error) []ValidationError {
	for _, g := range generic {
		if errors.Is(err, g) {
			return nil
		}
	}
	code := sentinelCode(err)
	if code == "" {
		return nil
	}
	return []ValidationError{{Code: code, Message: strings.ReplaceAll(code, "_", " ")}}
}

// sentinelCode unwraps to the innermost error so wrapped sentinels report
// their own code.
func sentinelCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.TrimSpace(err.Error())
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, catalog.ErrUnknownStage),
		errors.Is(err, catalog.ErrUnknownPerspective),
		errors.Is(err, identity.ErrInvalidRole):
		return true
	case isPositionValidationError(err),
		isPipelineValidationError(err),
		isInterviewValidationError(err),
		isPassValidationError(err):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identity.ErrMissingToken),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, authorization.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, interviewdomain.ErrNotSlotOwner),
		errors.Is(err, pipelinedomain.ErrTransitionNotPermitted),
		errors.Is(err, passdomain.ErrNotPositionManager):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, positiondomain.ErrNotFound),
		errors.Is(err, pipelinedomain.ErrCandidateNotFound),
		errors.Is(err, interviewdomain.ErrSetupNotFound),
		errors.Is(err, interviewdomain.ErrSlotNotFound),
		errors.Is(err, passdomain.ErrPassNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

var conflictMessages = []struct {
	err     error
	message string
}{
	{interviewdomain.ErrSlotAlreadyTaken, "this time is no longer available, pick another"},
	{interviewdomain.ErrDuplicateBookingForRound, "you already hold a slot for this interview round"},
	{interviewdomain.ErrCannotCancelBookedSlot, "this slot is booked by a candidate and cannot be cancelled"},
	{interviewdomain.ErrSlotCancelled, "this slot has been cancelled, pick another"},
	{interviewdomain.ErrSlotNotBooked, "this slot has not been booked yet"},
	{interviewdomain.ErrNotInInterviewStage, "interview slots open once the candidate reaches the interview stage"},
	{interviewdomain.ErrRoundOutOfOrder, "book the earlier interview rounds first"},
	{interviewdomain.ErrSetupExists, "an interview setup already exists for this position, edit it instead"},
	{interviewdomain.ErrRoundHasBookings, "candidates hold bookings in the rounds being removed"},
	{interviewdomain.ErrFeedbackExists, "feedback was already submitted for this interview"},
	{pipelinedomain.ErrConcurrentTransition, "the candidate was updated by someone else, reload and retry"},
	{pipelinedomain.ErrPipelineClosed, "this candidate's pipeline is closed"},
	{pipelinedomain.ErrDuplicateApplication, "an application with this email already exists for the position"},
	{positiondomain.ErrDuplicateRef, "a position with this reference number already exists"},
	{positiondomain.ErrNotOpen, "this position is not accepting applications"},
}

func isConflictError(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	for _, entry := range conflictMessages {
		if errors.Is(err, entry.err) {
			return true
		}
	}
	return false
}

func conflictMessage(err error) string {
	for _, entry := range conflictMessages {
		if errors.Is(err, entry.err) {
			return entry.message
		}
	}
	return "conflict"
}

func isPositionValidationError(err error) bool {
	switch {
	case errors.Is(err, positiondomain.ErrInvalidID),
		errors.Is(err, positiondomain.ErrInvalidTitle),
		errors.Is(err, positiondomain.ErrInvalidStatus),
		errors.Is(err, positiondomain.ErrInvalidHeadcount),
		errors.Is(err, positiondomain.ErrInvalidSLADays),
		errors.Is(err, positiondomain.ErrInvalidManager):
		return true
	default:
		return false
	}
}

func isPipelineValidationError(err error) bool {
	switch {
	case errors.Is(err, pipelinedomain.ErrInvalidCandidateID),
		errors.Is(err, pipelinedomain.ErrInvalidStatus),
		errors.Is(err, pipelinedomain.ErrIllegalStageRegression),
		errors.Is(err, pipelinedomain.ErrInvalidName),
		errors.Is(err, pipelinedomain.ErrInvalidEmail),
		errors.Is(err, pipelinedomain.ErrInvalidVisibility):
		return true
	default:
		return false
	}
}

func isInterviewValidationError(err error) bool {
	switch {
	case errors.Is(err, interviewdomain.ErrInvalidSetupID),
		errors.Is(err, interviewdomain.ErrInvalidSlotID),
		errors.Is(err, interviewdomain.ErrInvalidFormat),
		errors.Is(err, interviewdomain.ErrInvalidRounds),
		errors.Is(err, interviewdomain.ErrInvalidRecommendation),
		errors.Is(err, interviewdomain.ErrInvalidSlotStatus),
		errors.Is(err, interviewdomain.ErrEmptySelection),
		errors.Is(err, interviewdomain.ErrTooManySlots),
		errors.Is(err, interviewdomain.ErrRoundOutOfRange),
		errors.Is(err, interviewdomain.ErrInvalidDate),
		errors.Is(err, interviewdomain.ErrInvalidTimeRange),
		errors.Is(err, interviewdomain.ErrDuplicateDate),
		errors.Is(err, interviewdomain.ErrDuplicateTimeRange),
		errors.Is(err, interviewdomain.ErrSlotPositionMismatch):
		return true
	default:
		return false
	}
}

func isPassValidationError(err error) bool {
	switch {
	case errors.Is(err, passdomain.ErrInvalidID),
		errors.Is(err, passdomain.ErrInvalidType),
		errors.Is(err, passdomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return sentinelCode(err)
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	switch code {
	case "unknown_stage", "illegal_stage_regression":
		return "stage"
	case "empty_selection", "too_many_slots":
		return "selection"
	case "round_out_of_range":
		return "round_number"
	case "slot_position_mismatch":
		return "slot_id"
	case "duplicate_slot_date":
		return "dates"
	case "duplicate_time_range":
		return "time_ranges"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "unknown_stage":
		return "unknown pipeline stage"
	case "illegal_stage_regression":
		return "a candidate cannot move back to an earlier stage"
	case "empty_selection":
		return "select at least one date and one time range"
	case "too_many_slots":
		return "too many slots in one request, split the selection"
	case "round_out_of_range":
		return "round is outside the configured interview rounds"
	case "slot_position_mismatch":
		return "this slot belongs to another position"
	case "duplicate_slot_date":
		return "each date may be selected once"
	case "duplicate_time_range":
		return "each time range may be selected once"
	default:
		return "invalid value"
	}
}
