package handlers

import (
	"sort"
	"time"

	"github.com/communityconnect/backend/internal/middleware"
	"github.com/communityconnect/backend/internal/models"
	"github.com/communityconnect/backend/pkg/logger"
	"github.com/communityconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// joinableLimit caps the discovery feed so the endpoint stays cheap no
// matter how many groups a user belongs to.
const joinableLimit = 20

const unknownGroupName = "Unknown Group"

// EventsHandler serves the cross-group event views: the events a user
// has joined and the upcoming ones they could still join.
type EventsHandler struct {
	DB *gorm.DB
}

func NewEventsHandler(db *gorm.DB) *EventsHandler {
	return &EventsHandler{DB: db}
}

// eventWithGroup decorates an event with its group's display name.
type eventWithGroup struct {
	models.Event
	GroupName string `json:"groupName"`
}

// eventTimeLayouts covers the formats clients have historically sent.
// Event times are stored as the raw strings clients submitted, so the
// feed has to parse defensively.
var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseEventTime(value string) (time.Time, bool) {
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (h *EventsHandler) groupNames(events []models.Event) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(events))
	seen := map[uuid.UUID]bool{}
	for _, e := range events {
		if !seen[e.GroupID] {
			seen[e.GroupID] = true
			ids = append(ids, e.GroupID)
		}
	}

	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var groups []models.Group
	if err := h.DB.Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, err
	}
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	return names, nil
}

func (h *EventsHandler) decorate(events []models.Event) ([]eventWithGroup, error) {
	names, err := h.groupNames(events)
	if err != nil {
		return nil, err
	}

	decorated := make([]eventWithGroup, 0, len(events))
	for _, e := range events {
		name, ok := names[e.GroupID]
		if !ok {
			name = unknownGroupName
		}
		decorated = append(decorated, eventWithGroup{Event: e, GroupName: name})
	}
	return decorated, nil
}

func (h *EventsHandler) Mine(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var events []models.Event
	err := h.DB.
		Joins("JOIN event_rsvps ON event_rsvps.event_id = events.id").
		Where("event_rsvps.user_id = ?", currentUser.ID).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("event_comments.created_at ASC")
		}).
		Order("events.created_at DESC").
		Find(&events).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	decorated, err := h.decorate(events)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading groups")
	}
	return utils.Success(c, fiber.StatusOK, decorated)
}

// Joinable returns upcoming events from the caller's groups that they
// have not joined yet, soonest first. Events whose time string cannot
// be parsed, or is already past, are dropped.
func (h *EventsHandler) Joinable(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var memberships []models.GroupMembership
	if err := h.DB.Where("user_id = ?", currentUser.ID).Find(&memberships).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading memberships")
	}
	if len(memberships) == 0 {
		return utils.Success(c, fiber.StatusOK, []eventWithGroup{})
	}
	groupIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
	}

	var events []models.Event
	err := h.DB.
		Where("group_id IN ?", groupIDs).
		Where("id NOT IN (?)", h.DB.Model(&models.EventRSVP{}).Select("event_id").Where("user_id = ?", currentUser.ID)).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("event_comments.created_at ASC")
		}).
		Find(&events).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	now := time.Now()
	type timedEvent struct {
		event models.Event
		at    time.Time
	}
	upcoming := make([]timedEvent, 0, len(events))
	for _, e := range events {
		at, ok := parseEventTime(e.EventTime)
		if !ok || !at.After(now) {
			continue
		}
		upcoming = append(upcoming, timedEvent{event: e, at: at})
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].at.Before(upcoming[j].at) })
	if len(upcoming) > joinableLimit {
		upcoming = upcoming[:joinableLimit]
	}

	sorted := make([]models.Event, 0, len(upcoming))
	for _, te := range upcoming {
		sorted = append(sorted, te.event)
	}

	decorated, err := h.decorate(sorted)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading groups")
	}
	return utils.Success(c, fiber.StatusOK, decorated)
}

// Join records an RSVP. Only members of the event's group may join, and
// the check runs against the live membership table so leaving a group
// immediately revokes the ability.
func (h *EventsHandler) Join(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("eventId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("event_comments.created_at ASC")
	}).First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	var membership models.GroupMembership
	err = h.DB.First(&membership, "user_id = ? AND group_id = ?", currentUser.ID, event.GroupID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusForbidden, "you must be a member of the group to join its events")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking membership")
	}

	rsvp := models.EventRSVP{UserID: currentUser.ID, EventID: event.ID}
	err = h.DB.Where("user_id = ? AND event_id = ?", currentUser.ID, event.ID).
		FirstOrCreate(&rsvp).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed joining event")
	}

	logger.InfoWithUser(currentUser.ID.String(), "event_joined", map[string]interface{}{
		"event_id": event.ID.String(),
	})

	decorated, err := h.decorate([]models.Event{event})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading groups")
	}
	return utils.Success(c, fiber.StatusOK, decorated[0])
}

func (h *EventsHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("eventId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	err = h.DB.Delete(&models.EventRSVP{}, "user_id = ? AND event_id = ?", currentUser.ID, event.ID).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed leaving event")
	}

	logger.InfoWithUser(currentUser.ID.String(), "event_left", map[string]interface{}{
		"event_id": event.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "left event", "id": event.ID.String()})
}
