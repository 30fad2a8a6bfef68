package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
	"helpdesk-app/internal/services"
	"helpdesk-app/internal/utils"
)

type TicketHandler struct {
	service *services.TicketService
	storage *utils.LocalStorage
}

func NewTicketHandler(service *services.TicketService, storage *utils.LocalStorage) *TicketHandler {
	return &TicketHandler{service: service, storage: storage}
}

// Create accepts either a JSON body or a multipart form with attachments.
func (h *TicketHandler) Create(c *gin.Context) {
	requester, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input services.TicketInput
	var attachments []models.Attachment

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		input = services.TicketInput{
			Subject:     c.PostForm("subject"),
			Description: c.PostForm("description"),
			CategoryID:  c.PostForm("category_id"),
			Priority:    c.PostForm("priority"),
			Tags:        c.PostFormArray("tags"),
			Urgent:      c.PostForm("urgent") == "true",
		}
		if due := c.PostForm("due_date"); due != "" {
			parsed, err := time.Parse(time.RFC3339, due)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be RFC3339"})
				return
			}
			input.DueDate = &parsed
		}

		form, err := c.MultipartForm()
		if err == nil {
			for _, file := range form.File["attachments"] {
				stored, err := h.storage.Save(c, file)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store attachment"})
					return
				}
				attachments = append(attachments, models.Attachment{
					Filename:     stored.Filename,
					OriginalName: stored.OriginalName,
					Path:         stored.Path,
					Size:         stored.Size,
					UploadedBy:   requester.ID,
				})
			}
		}
	} else {
		var req struct {
			Subject     string     `json:"subject"`
			Description string     `json:"description"`
			CategoryID  string     `json:"category_id"`
			Priority    string     `json:"priority"`
			Tags        []string   `json:"tags"`
			Urgent      bool       `json:"urgent"`
			DueDate     *time.Time `json:"due_date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}
		input = services.TicketInput{
			Subject:     req.Subject,
			Description: req.Description,
			CategoryID:  req.CategoryID,
			Priority:    req.Priority,
			Tags:        req.Tags,
			Urgent:      req.Urgent,
			DueDate:     req.DueDate,
		}
	}

	ticket, err := h.service.Create(c.Request.Context(), requester, input, attachments)
	if err != nil {
		// The ticket was rejected, so the files saved above are orphans.
		for _, a := range attachments {
			if removeErr := h.storage.Remove(a.Path); removeErr != nil {
				log.Printf("[UPLOAD] Failed to remove orphan file %s: %v", a.Path, removeErr)
			}
		}
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) List(c *gin.Context) {
	requester, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	filter := services.TicketFilter{
		Status:       c.Query("status"),
		Priority:     c.Query("priority"),
		Category:     c.Query("category"),
		CreatedBy:    c.Query("created_by"),
		AssignedToMe: c.Query("assigned_to") == "me",
		Search:       c.Query("search"),
		Page:         page,
		Limit:        limit,
		SortBy:       c.DefaultQuery("sort_by", "created_at"),
		SortOrder:    c.DefaultQuery("sort_order", "desc"),
	}

	tickets, total, err := h.service.List(c.Request.Context(), requester, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "total": total, "page": page, "limit": limit})
}

func (h *TicketHandler) Get(c *gin.Context) {
	requester, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	ticket, err := h.service.Get(c.Request.Context(), requester, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Update(c *gin.Context) {
	requester, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var req struct {
		Subject     *string    `json:"subject"`
		Description *string    `json:"description"`
		CategoryID  *string    `json:"category_id"`
		Tags        *[]string  `json:"tags"`
		Urgent      *bool      `json:"urgent"`
		DueDate     *time.Time `json:"due_date"`
		Status      *string    `json:"status"`
		Priority    *string    `json:"priority"`
		AssignedTo  *string    `json:"assigned_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	ticket, err := h.service.Update(c.Request.Context(), requester, id, services.TicketUpdate{
		Subject:     req.Subject,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
		Urgent:      req.Urgent,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) AddComment(c *gin.Context) {
	requester, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var req struct {
		Content  string `json:"content"`
		Internal bool   `json:"internal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), requester, id, req.Content, req.Internal)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *TicketHandler) Vote(c *gin.Context) {
	requester, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var req struct {
		Direction string `json:"direction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	result, err := h.service.Vote(c.Request.Context(), requester, id, models.VoteDirection(req.Direction))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TicketHandler) Delete(c *gin.Context) {
	requester, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), requester, id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket deleted"})
}
