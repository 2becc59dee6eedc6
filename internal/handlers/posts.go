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

const maxPostImages = 4

type PostsHandler struct {
	DB *gorm.DB
}

func NewPostsHandler(db *gorm.DB) *PostsHandler {
	return &PostsHandler{DB: db}
}

func (h *PostsHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Post{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting posts")
	}

	var posts []models.Post
	query := h.DB.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_comments.created_at ASC")
	}).Order("created_at DESC")
	if err := utils.ApplyPagination(query, p).Find(&posts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing posts")
	}

	return utils.Paginated(c, posts, p.Page, p.Limit, total)
}

type createPostRequest struct {
	Description string   `json:"description"`
	EventTime   string   `json:"eventTime"`
	Location    string   `json:"location"`
	Images      []string `json:"images"`
	GroupID     *string  `json:"groupId"`
}

// Create stamps the post with the caller's stored name and avatar.
// Client-supplied attribution fields are ignored.
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return utils.Error(c, fiber.StatusBadRequest, "description is required")
	}
	if len(req.Images) > maxPostImages {
		return utils.Error(c, fiber.StatusBadRequest, "a post can have at most 4 images")
	}

	post := models.Post{
		UserID:      currentUser.ID,
		AuthorName:  currentUser.Name,
		AvatarURL:   currentUser.AvatarURL,
		Description: req.Description,
		EventTime:   strings.TrimSpace(req.EventTime),
		Location:    strings.TrimSpace(req.Location),
		Images:      req.Images,
	}
	if post.Images == nil {
		post.Images = []string{}
	}

	if req.GroupID != nil && strings.TrimSpace(*req.GroupID) != "" {
		groupID, err := parseUUID(*req.GroupID)
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
		post.GroupID = &group.ID
		post.GroupName = group.Name
	}

	if err := h.DB.Create(&post).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating post")
	}
	post.Comments = []models.PostComment{}

	logger.InfoWithUser(currentUser.ID.String(), "post_created", map[string]interface{}{
		"post_id": post.ID.String(),
	})

	return utils.Success(c, fiber.StatusCreated, post)
}

type createCommentRequest struct {
	Text string `json:"text"`
}

func (h *PostsHandler) AddComment(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("postId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return utils.Error(c, fiber.StatusBadRequest, "comment text is required")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	comment := models.PostComment{
		PostID:     post.ID,
		UserID:     currentUser.ID,
		AuthorName: currentUser.Name,
		AvatarURL:  currentUser.AvatarURL,
		Text:       req.Text,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed adding comment")
	}

	updated, err := h.loadPost(post.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}
	return utils.Success(c, fiber.StatusCreated, updated)
}

func (h *PostsHandler) DeleteComment(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("postId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}
	commentID, err := parseUUID(c.Params("commentId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	var comment models.PostComment
	if err := h.DB.First(&comment, "id = ? AND post_id = ?", commentID, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comment")
	}

	if comment.UserID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "you can only delete your own comments")
	}

	if err := h.DB.Delete(&models.PostComment{}, "id = ?", comment.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting comment")
	}

	updated, err := h.loadPost(post.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}
	return utils.Success(c, fiber.StatusOK, updated)
}

// Delete removes a post and its comments in one transaction, so a
// fetch after deletion can never observe orphaned comments.
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("postId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	if post.UserID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "you can only delete your own posts")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.PostComment{}, "post_id = ?", post.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", post.ID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting post")
	}

	logger.InfoWithUser(currentUser.ID.String(), "post_deleted", map[string]interface{}{
		"post_id": post.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "post deleted", "id": post.ID.String()})
}

func (h *PostsHandler) loadPost(id interface{}) (*models.Post, error) {
	var post models.Post
	err := h.DB.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_comments.created_at ASC")
	}).First(&post, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}
