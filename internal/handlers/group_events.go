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

const groupIDKey = "groupID"

type GroupEventsHandler struct {
	DB *gorm.DB
}

func NewGroupEventsHandler(db *gorm.DB) *GroupEventsHandler {
	return &GroupEventsHandler{DB: db}
}

// RequireGroupMember gates every route under a group's event tree. It
// resolves the group id once and stores it in the request locals so the
// handlers never re-parse the path parameter.
func (h *GroupEventsHandler) RequireGroupMember(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var membership models.GroupMembership
	err = h.DB.First(&membership, "user_id = ? AND group_id = ?", currentUser.ID, groupID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusForbidden, "you are not a member of this group")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking membership")
	}

	c.Locals(groupIDKey, groupID)
	return c.Next()
}

func groupIDFromContext(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(groupIDKey).(uuid.UUID)
	return id
}

func (h *GroupEventsHandler) List(c *fiber.Ctx) error {
	groupID := groupIDFromContext(c)

	var events []models.Event
	err := h.DB.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("event_comments.created_at ASC")
	}).Where("group_id = ?", groupID).Order("created_at DESC").Find(&events).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	return utils.Success(c, fiber.StatusOK, events)
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EventTime   string `json:"eventTime"`
	Location    string `json:"location"`
	Image       string `json:"image"`
}

func (h *GroupEventsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	groupID := groupIDFromContext(c)

	var req createEventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title and description are required")
	}

	event := models.Event{
		GroupID:     groupID,
		UserID:      currentUser.ID,
		AuthorName:  currentUser.Name,
		AvatarURL:   currentUser.AvatarURL,
		Title:       req.Title,
		Description: req.Description,
		EventTime:   strings.TrimSpace(req.EventTime),
		Location:    strings.TrimSpace(req.Location),
		Image:       strings.TrimSpace(req.Image),
	}
	if err := h.DB.Create(&event).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating event")
	}
	event.Comments = []models.EventComment{}

	logger.InfoWithUser(currentUser.ID.String(), "event_created", map[string]interface{}{
		"event_id": event.ID.String(),
		"group_id": groupID.String(),
	})

	return utils.Success(c, fiber.StatusCreated, event)
}

// Delete removes an event together with its comments and RSVPs in one
// transaction.
func (h *GroupEventsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	groupID := groupIDFromContext(c)

	eventID, err := parseUUID(c.Params("eventId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ? AND group_id = ?", eventID, groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	if event.UserID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "you can only delete your own events")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.EventComment{}, "event_id = ?", event.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.EventRSVP{}, "event_id = ?", event.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Event{}, "id = ?", event.ID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting event")
	}

	logger.InfoWithUser(currentUser.ID.String(), "event_deleted", map[string]interface{}{
		"event_id": event.ID.String(),
		"group_id": groupID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "event deleted", "id": event.ID.String()})
}

func (h *GroupEventsHandler) AddComment(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	groupID := groupIDFromContext(c)

	eventID, err := parseUUID(c.Params("eventId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return utils.Error(c, fiber.StatusBadRequest, "comment text is required")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ? AND group_id = ?", eventID, groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	comment := models.EventComment{
		EventID:    event.ID,
		UserID:     currentUser.ID,
		AuthorName: currentUser.Name,
		AvatarURL:  currentUser.AvatarURL,
		Text:       req.Text,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed adding comment")
	}

	updated, err := h.loadEvent(event.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}
	return utils.Success(c, fiber.StatusCreated, updated)
}

func (h *GroupEventsHandler) DeleteComment(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	groupID := groupIDFromContext(c)

	eventID, err := parseUUID(c.Params("eventId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}
	commentID, err := parseUUID(c.Params("commentId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ? AND group_id = ?", eventID, groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	var comment models.EventComment
	if err := h.DB.First(&comment, "id = ? AND event_id = ?", commentID, event.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comment")
	}

	if comment.UserID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "you can only delete your own comments")
	}

	if err := h.DB.Delete(&models.EventComment{}, "id = ?", comment.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting comment")
	}

	updated, err := h.loadEvent(event.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}
	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *GroupEventsHandler) loadEvent(id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := h.DB.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("event_comments.created_at ASC")
	}).First(&event, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
