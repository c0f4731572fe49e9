package handler

import (
	"errors"
	"net/http"

	"narravox-server/internal/clients/affinity"
	"narravox-server/internal/clients/narrative"
	"narravox-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp ErrorResponse

	var narrativeErr *narrative.UpstreamError
	var affinityErr *affinity.UpstreamError

	switch {
	case service.IsValidationError(err):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: errCodeValidation, Message: err.Error()}
	case errors.Is(err, service.ErrRateLimited):
		statusCode = http.StatusTooManyRequests
		errResp = ErrorResponse{Code: errCodeRateLimited, Message: "Rate limit exceeded, please wait before retrying"}
	case errors.Is(err, service.ErrStoryComplete):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: errCodeComplete, Message: "Story has reached the maximum number of turns"}
	case errors.Is(err, service.ErrServiceUnavailable):
		statusCode = http.StatusServiceUnavailable
		errResp = ErrorResponse{Code: errCodeInternal, Message: "Story services are not configured"}
	case errors.As(err, &narrativeErr), errors.As(err, &affinityErr):
		statusCode = http.StatusBadGateway
		errResp = ErrorResponse{Code: errCodeUpstream, Message: err.Error()}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: errCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
