package handlers

import (
	"strings"

	"github.com/communityconnect/backend/internal/middleware"
	"github.com/communityconnect/backend/internal/models"
	"github.com/communityconnect/backend/pkg/logger"
	"github.com/communityconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupsHandler struct {
	DB *gorm.DB
}

func NewGroupsHandler(db *gorm.DB) *GroupsHandler {
	return &GroupsHandler{DB: db}
}

// groupResponse flattens the membership rows into a member id list so
// clients get the roster alongside the group itself.
type groupResponse struct {
	models.Group
	Members []uuid.UUID `json:"members"`
}

func (h *GroupsHandler) groupWithMembers(group models.Group) (groupResponse, error) {
	var memberships []models.GroupMembership
	if err := h.DB.Where("group_id = ?", group.ID).Find(&memberships).Error; err != nil {
		return groupResponse{}, err
	}
	members := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, m.UserID)
	}
	return groupResponse{Group: group, Members: members}, nil
}

func (h *GroupsHandler) List(c *fiber.Ctx) error {
	var groups []models.Group
	if err := h.DB.Order("created_at DESC").Find(&groups).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing groups")
	}

	responses := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		resp, err := h.groupWithMembers(group)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading memberships")
		}
		responses = append(responses, resp)
	}
	return utils.Success(c, fiber.StatusOK, responses)
}

func (h *GroupsHandler) Mine(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var groups []models.Group
	err := h.DB.
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
		Where("group_memberships.user_id = ?", currentUser.ID).
		Order("groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing groups")
	}

	responses := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		resp, err := h.groupWithMembers(group)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading memberships")
		}
		responses = append(responses, resp)
	}
	return utils.Success(c, fiber.StatusOK, responses)
}

func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var group models.Group
	if err := h.DB.First(&group, "id = ?", groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "group not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading group")
	}

	resp, err := h.groupWithMembers(group)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading memberships")
	}
	return utils.Success(c, fiber.StatusOK, resp)
}

type createGroupRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Create inserts the group and the creator's membership in one
// transaction. A group never exists without its creator on the roster.
func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "group name is required")
	}

	group := models.Group{
		Name:        req.Name,
		Image:       strings.TrimSpace(req.Image),
		CreatedByID: currentUser.ID,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		membership := models.GroupMembership{UserID: currentUser.ID, GroupID: group.ID}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating group")
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_created", map[string]interface{}{
		"group_id": group.ID.String(),
		"name":     group.Name,
	})

	resp, err := h.groupWithMembers(group)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading memberships")
	}
	return utils.Success(c, fiber.StatusCreated, resp)
}

func (h *GroupsHandler) Join(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var group models.Group
	if err := h.DB.First(&group, "id = ?", groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "group not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading group")
	}

	// FirstOrCreate keeps repeat joins idempotent, the unique index on
	// (user_id, group_id) backs it up under concurrency.
	membership := models.GroupMembership{UserID: currentUser.ID, GroupID: group.ID}
	err = h.DB.Where("user_id = ? AND group_id = ?", currentUser.ID, group.ID).
		FirstOrCreate(&membership).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed joining group")
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_joined", map[string]interface{}{
		"group_id": group.ID.String(),
	})

	resp, err := h.groupWithMembers(group)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading memberships")
	}
	return utils.Success(c, fiber.StatusOK, resp)
}

func (h *GroupsHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var group models.Group
	if err := h.DB.First(&group, "id = ?", groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "group not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading group")
	}

	err = h.DB.Delete(&models.GroupMembership{}, "user_id = ? AND group_id = ?", currentUser.ID, group.ID).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed leaving group")
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_left", map[string]interface{}{
		"group_id": group.ID.String(),
	})

	resp, err := h.groupWithMembers(group)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading memberships")
	}
	return utils.Success(c, fiber.StatusOK, resp)
}
