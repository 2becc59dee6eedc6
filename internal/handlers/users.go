package handlers

import (
	"strings"

	"github.com/communityconnect/backend/internal/middleware"
	"github.com/communityconnect/backend/internal/models"
	"github.com/communityconnect/backend/pkg/logger"
	"github.com/communityconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB *gorm.DB
}

func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{DB: db}
}

func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user.Public())
}

type updateMeRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
}

// UpdateMe saves the caller's profile and rewrites the denormalized
// author snapshots on everything they ever posted or commented. The
// whole cascade runs in one transaction, so a crash or a concurrent
// rename cannot leave half the history under the old name.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return utils.Error(c, fiber.StatusBadRequest, "email cannot be empty")
		}
		if email != currentUser.Email {
			var existing models.User
			if err := h.DB.First(&existing, "email = ?", email).Error; err == nil {
				return utils.Error(c, fiber.StatusConflict, "email is already registered")
			} else if err != gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
			}
		}
		updates["email"] = email
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	_, renamed := updates["name"]
	_, avatarChanged := updates["avatar_url"]

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", currentUser.ID).Updates(updates).Error; err != nil {
			return err
		}

		if !renamed && !avatarChanged {
			return nil
		}

		snapshot := map[string]interface{}{}
		if renamed {
			snapshot["author_name"] = updates["name"]
		}
		if avatarChanged {
			snapshot["avatar_url"] = updates["avatar_url"]
		}

		for _, model := range []interface{}{
			&models.Post{},
			&models.PostComment{},
			&models.Event{},
			&models.EventComment{},
		} {
			if err := tx.Model(model).Where("user_id = ?", currentUser.ID).Updates(snapshot).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated user")
	}

	logger.InfoWithUser(updated.ID.String(), "profile_updated", map[string]interface{}{
		"renamed":        renamed,
		"avatar_changed": avatarChanged,
	})

	return utils.Success(c, fiber.StatusOK, updated.Public())
}
