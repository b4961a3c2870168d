package controllers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"fixit-be/apperrors"
	"fixit-be/middlewares"
	"fixit-be/models"
	authUtils "fixit-be/utils"

	"github.com/gin-gonic/gin"
)

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"role":        user.Role,
		"department":  user.Department,
		"impactScore": user.ImpactScore,
		"level":       user.Level,
		"createdAt":   user.CreatedAt,
	}
}

// RegisterUser handles user registration
func (ctl *Controller) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	count, err := ctl.Users.CountByEmail(ctx, input.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
		return
	}

	now := time.Now()
	user := models.User{
		Name:            strings.TrimSpace(input.Name),
		Email:           strings.ToLower(input.Email),
		Password:        input.Password,
		Role:            models.RoleUser,
		Level:           1,
		RedeemedRewards: []models.RedeemedReward{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := user.HashPassword(); err != nil {
		log.Println("Error hashing password:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if err := ctl.Users.Create(ctx, &user); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse(&user))
}

// LoginUser checks credentials and issues the token as body field and cookie.
func (ctl *Controller) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := ctl.Users.GetByEmail(ctx, input.Email)
	if apperrors.Is(err, apperrors.KindNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if !user.ComparePassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := authUtils.GenerateToken(ctl.JWTSecret, user.ID.Hex())
	if err != nil {
		log.Println("Error generating token:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	// For production, don't set domain to allow cross-origin cookies
	domain := ctl.Domain
	if ctl.Production {
		domain = ""
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(authUtils.TokenTTL.Seconds()),
		Path:     "/",
		Domain:   domain,
		Secure:   ctl.Production,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})

	resp := userResponse(user)
	resp["token"] = token
	c.JSON(http.StatusOK, resp)
}

// GetMe retrieves the authenticated user's information
func (ctl *Controller) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// LogoutUser handles user logout by clearing the auth_token cookie
func (ctl *Controller) LogoutUser(c *gin.Context) {
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", ctl.Domain, ctl.Production, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
