package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"round_dao/internal/domain" // Domain errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// errorMapping binds a domain error to its HTTP status and stable code
type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrContentTooLong, http.StatusBadRequest, "content_too_long"},
	{domain.ErrUsernameTooLong, http.StatusBadRequest, "username_too_long"},
	{domain.ErrInvalidDepositAddress, http.StatusBadRequest, "invalid_deposit_address"},
	{domain.ErrNoWithdrawable, http.StatusBadRequest, "no_withdrawable"},
	{domain.ErrNoDepositAddress, http.StatusBadRequest, "no_deposit_address"},
	{domain.ErrNoPermission, http.StatusForbidden, "no_permission"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrProposalNotFound, http.StatusNotFound, "proposal_not_found"},
	{domain.ErrRoundResultNotFound, http.StatusNotFound, "round_result_not_found"},
	{domain.ErrUserExists, http.StatusConflict, "user_exists"},
	{domain.ErrProposalLimitReached, http.StatusConflict, "proposal_limit_reached"},
	{domain.ErrUserProposalLimitReached, http.StatusConflict, "user_proposal_limit_reached"},
	{domain.ErrPaymentInProgress, http.StatusConflict, "payment_in_progress"},
	{domain.ErrNoPaymentInProgress, http.StatusConflict, "no_payment_in_progress"},
	{domain.ErrPaymentTooRecent, http.StatusConflict, "payment_too_recent"},
	{domain.ErrTransferFailed, http.StatusBadGateway, "transfer_failed"},
}

// respondError writes err as {"error", "code"} with the mapped status
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": err.Error(), "code": m.code})
			return
		}
	}
	// Unmapped errors are internal; log them and keep the details out of the response
	logrus.WithFields(logrus.Fields{
		"path":  c.FullPath(), // Route
		"error": err.Error(),  // Error message
	}).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "code": "internal"})
}

// badRequest responds to a malformed request
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}
