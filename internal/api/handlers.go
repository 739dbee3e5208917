package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/conversion"
	"github.com/funlynk/funlynk/internal/models"
)

// actorKey is the context key holding the authenticated user ID
const actorKey = "actor_id"

// requireActor reads the authenticated user from the gateway-injected
// header. Authentication itself happens upstream; an absent header means
// the request never passed the gateway.
func (r *Router) requireActor(c *gin.Context) {
	actor := c.GetHeader("X-User-ID")
	if actor == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.Set(actorKey, actor)
	c.Next()
}

func actor(c *gin.Context) string {
	return c.GetString(actorKey)
}

type reactRequest struct {
	ReactionType string `json:"reaction_type" binding:"required"`
}

// reactHandler toggles the caller's reaction on a post
func (r *Router) reactHandler(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reaction_type is required"})
		return
	}

	result, err := r.ledger.React(c.Request.Context(), c.Param("id"), actor(c), req.ReactionType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type inviteRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

// inviteHandler invites friends to a post
func (r *Router) inviteHandler(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_ids is required"})
		return
	}

	created, err := r.inviter.InviteFriends(c.Request.Context(), c.Param("id"), actor(c), req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invited": len(created)})
}

// previewHandler returns the pre-filled conversion form for the owner.
// A request body carries draft event data to merge over the post's fields.
func (r *Router) previewHandler(c *gin.Context) {
	var overrides *conversion.EventData
	if c.Request.ContentLength > 0 {
		var data conversion.EventData
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		overrides = &data
	}

	preview, err := r.executor.PreviewConversion(c.Request.Context(), c.Param("id"), actor(c), overrides)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// checkHandler runs an inline eligibility evaluation for a post. Owners
// hit this when opening their post so an earned prompt shows immediately
// instead of waiting for the background checker.
func (r *Router) checkHandler(c *gin.Context) {
	post, err := r.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if post == nil {
		respondError(c, conversion.ErrPostNotFound)
		return
	}
	if post.UserID != actor(c) {
		respondError(c, conversion.ErrUnauthorized)
		return
	}

	decision, err := r.evaluator.CheckAndPrompt(c.Request.Context(), post)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// dismissHandler records the owner declining a conversion prompt
func (r *Router) dismissHandler(c *gin.Context) {
	post, err := r.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if post == nil {
		respondError(c, conversion.ErrPostNotFound)
		return
	}

	if err := r.evaluator.DismissPrompt(c.Request.Context(), post, actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dismissed":     true,
		"dismiss_count": post.ConversionDismissCount,
	})
}

// convertHandler converts a post into an activity
func (r *Router) convertHandler(c *gin.Context) {
	var data conversion.EventData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	activity, err := r.executor.CreateFromPost(c.Request.Context(), c.Param("id"), actor(c), models.TriggerManual, &data)
	if err != nil {
		respondError(c, err)
		return
	}

	r.logger.Info("Conversion completed via API",
		zap.String("post_id", c.Param("id")),
		zap.String("activity_id", activity.ID))
	c.JSON(http.StatusCreated, gin.H{
		"id":                      activity.ID,
		"host_id":                 activity.HostID,
		"title":                   activity.Title,
		"description":             activity.Description,
		"location_name":           activity.LocationName,
		"start_time":              activity.StartTime,
		"end_time":                activity.EndTime,
		"max_attendees":           activity.MaxAttendees,
		"price":                   activity.Price,
		"is_paid":                 activity.IsPaid,
		"status":                  activity.Status,
		"originated_from_post_id": activity.OriginatedFromPostID.String,
	})
}

// notificationsHandler lists the caller's notifications, newest first
func (r *Router) notificationsHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	rows, err := r.notifications.ListByUser(c.Request.Context(), actor(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, n := range rows {
		out = append(out, gin.H{
			"id":         n.ID,
			"type":       n.Type,
			"title":      n.Title,
			"message":    n.Message,
			"data":       n.DataMap(),
			"read":       n.ReadAt.Valid,
			"created_at": n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}
