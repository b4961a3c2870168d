package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMyVotes lists the issues the caller has voted on.
func (ctl *Controller) GetMyVotes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	history, err := ctl.Votes.History(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (ctl *Controller) GetMyStats(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := ctl.Rewards.Stats(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (ctl *Controller) GetRewards(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": ctl.Rewards.Catalog(user)})
}

func (ctl *Controller) RedeemReward(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	redeemed, err := ctl.Rewards.Redeem(ctx, user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, redeemed)
}
