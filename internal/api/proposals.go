package api

import (
	"html"     // Entity unescaping
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"round_dao/internal/domain"     // Importing domain models
	"round_dao/internal/engine"     // Governance engine
	"round_dao/internal/middleware" // Caller identity

	"github.com/gin-gonic/gin"           // Gin web framework
	"github.com/microcosm-cc/bluemonday" // HTML sanitizer
	"github.com/redis/go-redis/v9"       // Redis client
)

// CreateProposalRequest is the body of POST /proposals
type CreateProposalRequest struct {
	Text      string `json:"text" binding:"required"` // Proposal text
	ImagePath string `json:"image_path"`              // Optional image reference
}

// VoteRequest is the body of POST /proposals/:id/vote
type VoteRequest struct {
	Vote domain.Vote `json:"vote" binding:"required,oneof=upvote downvote"` // Vote direction
}

// ListProposalInfosHandler lists live proposals with the viewer's vote status
func ListProposalInfosHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, _ := middleware.Identity(c) // Empty for anonymous viewers
		c.JSON(http.StatusOK, gin.H{"proposals": eng.ProposalInfos(viewer)})
	}
}

// ListProposalsHandler lists live proposals as stored
func ListProposalsHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"proposals": eng.Proposals()})
	}
}

// CreateProposalHandler submits a proposal for the current round. Markup is
// stripped from the text before it is stored.
func CreateProposalHandler(eng *engine.Engine, sanitizer *bluemonday.Policy, imagePrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		var req CreateProposalRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		text := strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(req.Text)))
		if text == "" {
			badRequest(c, "Proposal text is empty")
			return
		}
		image := strings.TrimSpace(req.ImagePath)
		if image != "" && imagePrefix != "" && !strings.HasPrefix(image, imagePrefix) {
			badRequest(c, "Image must be uploaded first")
			return
		}
		id, err := eng.CreateProposal(identity, domain.Content{Text: text, ImagePath: image})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

// DeleteProposalHandler removes one of the caller's own proposals
func DeleteProposalHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		id, ok := uint32Param(c, "id")
		if !ok {
			return
		}
		if err := eng.DeleteProposal(identity, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Proposal deleted"})
	}
}

// VoteHandler toggles the caller's vote on a proposal
func VoteHandler(eng *engine.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		id, ok := uint32Param(c, "id")
		if !ok {
			return
		}
		var req VoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Vote must be upvote or downvote")
			return
		}
		if err := eng.Vote(identity, id, req.Vote); err != nil {
			respondError(c, err)
			return
		}
		InvalidateUserCaches(c.Request.Context(), rdb) // Karma changed
		c.JSON(http.StatusOK, gin.H{"message": "Vote recorded"})
	}
}

// ReportProposalHandler flags a proposal for moderation
func ReportProposalHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := callerIdentity(c)
		if !ok {
			return
		}
		id, ok := uint32Param(c, "id")
		if !ok {
			return
		}
		if err := eng.ReportProposal(identity, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Proposal reported"})
	}
}
