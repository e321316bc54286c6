package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) requestFriend(c *gin.Context) {
	edge, err := h.svc.RequestFriend(c.Request.Context(), caller(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, "request_friend", err)
		return
	}
	respond(c, http.StatusCreated, "friend request sent", edge)
}

func (h *Handler) acceptFriend(c *gin.Context) {
	edge, err := h.svc.AcceptFriend(c.Request.Context(), caller(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, "accept_friend", err)
		return
	}
	respond(c, http.StatusOK, "friend request accepted", edge)
}

func (h *Handler) removeFriend(c *gin.Context) {
	outcome, err := h.svc.RemoveFriend(c.Request.Context(), caller(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, "remove_friend", err)
		return
	}
	respond(c, http.StatusOK, string(outcome), nil)
}

func (h *Handler) listFriends(c *gin.Context) {
	friends, err := h.svc.Friends(c.Request.Context(), caller(c))
	if err != nil {
		h.respondError(c, "friends", err)
		return
	}
	respond(c, http.StatusOK, "ok", friends)
}

func (h *Handler) relations(c *gin.Context) {
	view, err := h.svc.Relations(c.Request.Context(), caller(c))
	if err != nil {
		h.respondError(c, "relations", err)
		return
	}
	respond(c, http.StatusOK, "ok", view)
}

// recommend accepts categories as repeated or comma separated query values.
func (h *Handler) recommend(c *gin.Context) {
	var categories []string
	for _, v := range c.QueryArray("category") {
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				categories = append(categories, token)
			}
		}
	}

	candidates, err := h.svc.Recommend(c.Request.Context(), caller(c), categories, c.Query("searchword"))
	if err != nil {
		h.respondError(c, "recommend", err)
		return
	}
	respond(c, http.StatusOK, "ok", candidates)
}

func (h *Handler) random(c *gin.Context) {
	candidates, err := h.svc.RandomSuggestions(c.Request.Context(), caller(c))
	if err != nil {
		h.respondError(c, "random_suggestions", err)
		return
	}
	respond(c, http.StatusOK, "ok", candidates)
}

func (h *Handler) subscribe(c *gin.Context) {
	if err := h.svc.Subscribe(c.Request.Context(), caller(c), c.Param("userId")); err != nil {
		h.respondError(c, "subscribe", err)
		return
	}
	respond(c, http.StatusCreated, "subscribed", nil)
}

func (h *Handler) unsubscribe(c *gin.Context) {
	if err := h.svc.Unsubscribe(c.Request.Context(), caller(c), c.Param("userId")); err != nil {
		h.respondError(c, "unsubscribe", err)
		return
	}
	respond(c, http.StatusOK, "unsubscribed", nil)
}

func (h *Handler) setCategories(c *gin.Context) {
	var req struct {
		Categories []string `json:"categories" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	user, err := h.svc.SetCategories(c.Request.Context(), caller(c), req.Categories)
	if err != nil {
		h.respondError(c, "set_categories", err)
		return
	}
	respond(c, http.StatusOK, "categories updated", user)
}

func (h *Handler) subscribers(c *gin.Context) {
	users, err := h.svc.SubscribersOf(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, "subscribers_of", err)
		return
	}
	respond(c, http.StatusOK, "ok", users)
}

func (h *Handler) subscriptions(c *gin.Context) {
	users, err := h.svc.SubscriptionsOf(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, "subscriptions_of", err)
		return
	}
	respond(c, http.StatusOK, "ok", users)
}
