package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"carbonseed/internal/auth"
	"carbonseed/internal/models"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var user models.User
	err := a.store.ORM.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	if !user.IsActive {
		respondError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}

	token, err := a.tokens.Issue(user.ID, user.Role, user.FactoryID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.log.Info().Str("user", user.Email).Msg("user logged in")
	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var user models.User
	err := a.store.ORM.WithContext(ctx).First(&user, "id = ?", c.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusUnauthorized, errors.New("account no longer exists"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	c, ok := a.claims(w, r)
	if !ok {
		return
	}
	if c.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, errForbidden)
		return
	}

	var req struct {
		Email     string     `json:"email"`
		Password  string     `json:"password"`
		FullName  string     `json:"full_name"`
		Role      string     `json:"role"`
		FactoryID *uuid.UUID `json:"factory_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case req.Email == "":
		respondError(w, http.StatusUnprocessableEntity, errors.New("email is required"))
		return
	case len(req.Password) < 8:
		respondError(w, http.StatusUnprocessableEntity, errors.New("password must be at least 8 characters"))
		return
	case req.FullName == "":
		respondError(w, http.StatusUnprocessableEntity, errors.New("full_name is required"))
		return
	case !models.ValidRole(req.Role):
		respondError(w, http.StatusUnprocessableEntity, errors.New("unknown role"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	orm := a.store.ORM.WithContext(ctx)

	var count int64
	if err := orm.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if count > 0 {
		respondError(w, http.StatusConflict, errors.New("email already registered"))
		return
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		IsActive:     true,
		FactoryID:    req.FactoryID,
	}
	if err := orm.Create(&user).Error; err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	a.log.Info().Str("user", user.Email).Str("role", user.Role).Msg("user registered")
	respondJSON(w, http.StatusCreated, map[string]any{"user": user})
}
