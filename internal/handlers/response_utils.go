package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/geoprep/internal/classifications"
	"example.com/geoprep/internal/models"
	"example.com/geoprep/internal/qa"
)

// RespondWithError sends a standardized JSON error response.
func RespondWithError(c *gin.Context, httpStatus int, appErrorCode string, message string, details interface{}) {
	errResp := models.APIError{
		Code:    appErrorCode,
		Message: message,
		Details: details,
	}
	c.JSON(httpStatus, errResp)
}

// respondWithPipelineError maps the classification/QA error taxonomy onto
// HTTP statuses and APIError codes. Fetch and parse failures are upstream
// problems (502); unwritable outputs and everything else are server-side
// (500).
func respondWithPipelineError(c *gin.Context, err error) {
	var fetchErr *classifications.RemoteFetchError
	var respErr *classifications.MalformedResponseError
	var codeErr *classifications.MalformedCodeError
	var writeErr *qa.FileWriteError

	switch {
	case errors.As(err, &fetchErr):
		RespondWithError(c, http.StatusBadGateway, models.ErrorCodeRemoteFetchFailed, err.Error(), nil)
	case errors.As(err, &respErr):
		RespondWithError(c, http.StatusBadGateway, models.ErrorCodeMalformedResponse, err.Error(), nil)
	case errors.As(err, &codeErr):
		RespondWithError(c, http.StatusBadGateway, models.ErrorCodeMalformedCode, err.Error(), nil)
	case errors.As(err, &writeErr):
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeFileWriteFailed, err.Error(), nil)
	default:
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, err.Error(), nil)
	}
}
