// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

// respondError writes err using the status and visibility rules of its code.
// Internal errors never leak their message.
func respondError(c *gin.Context, logger logrus.FieldLogger, err error) {
	code := apperrors.CodeOf(err)
	meta := apperrors.MetadataFor(code)

	body := gin.H{"code": code}
	if typed := apperrors.As(err); typed != nil && code != apperrors.CodeInternal {
		body["error"] = typed.Message()
		if meta.DetailsAllowed && typed.Details() != nil {
			body["details"] = typed.Details()
		}
	} else {
		body["error"] = meta.PublicMessage
	}
	if reasons := reasonCodes(err); len(reasons) > 1 {
		body["reasons"] = reasons
	}

	if meta.HTTPStatus >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	_ = c.Error(err)
	c.JSON(meta.HTTPStatus, body)
}

// respondBindError reports a malformed or invalid body as VALIDATION_FAILED
func respondBindError(c *gin.Context, err error) {
	details := []string{err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details = details[:0]
		for _, fe := range verrs {
			details = append(details, fieldMessage(fe))
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"code":    apperrors.CodeValidation,
		"details": details,
	})
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "order_status", "production_status":
		return fmt.Sprintf("%s is not a known status", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// reasonCodes lists every typed code in the chain, outermost first
func reasonCodes(err error) []apperrors.Code {
	var codes []apperrors.Code
	for err != nil {
		if typed, ok := err.(*apperrors.Error); ok {
			codes = append(codes, typed.Code())
		}
		err = errors.Unwrap(err)
	}
	return codes
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid %s", strings.ReplaceAll(name, "_", " ")),
			"code":  apperrors.CodeValidation,
		})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}
