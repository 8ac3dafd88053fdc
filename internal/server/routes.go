package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/conversation"
	"github.com/zulandar/switchboard/internal/errs"
	"github.com/zulandar/switchboard/internal/messaging"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/registry"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	router.GET("/", handleRoot())
	router.GET("/health", handleHealth(db))

	router.POST("/agents", handleCreateAgent(db))
	router.PUT("/agents/:agent_id", handleUpdateAgent(db))
	router.GET("/agents/:agent_id", handleGetAgent(db))
	router.GET("/agents/:agent_id/messages", handleAgentMessages(db))
	router.GET("/agents/:agent_id/messages/unread", handleAgentUnread(db))
	router.PUT("/agents/:agent_id/messages/mark-read", handleMarkRead(db))

	router.POST("/messages", handleCreateMessage(db))
	router.PUT("/messages/:message_id", handleUpdateMessage(db))
	router.GET("/messages/:message_id/metadata/:agent_id", handleMessageMetadata(db))

	router.POST("/message_recipients", handleCreateRecipient(db))
	router.PUT("/message_recipients/:message_id/:recipient_id", handleUpdateRecipient(db))

	router.POST("/agent_message_metadata", handleCreateMetadata(db))
	router.PUT("/agent_message_metadata/:metadata_id", handleUpdateMetadata(db))

	router.POST("/conversations", handleCreateConversation(db))
	router.GET("/conversations", handleListConversations(db))
	router.PUT("/conversations/:conversation_id", handleUpdateConversation(db))
	router.GET("/conversations/:conversation_id", handleGetConversation(db))
	router.GET("/conversations/:conversation_id/details", handleConversationDetails(db))

	router.POST("/users", handleCreateUser(db))
	router.GET("/users/:user_id", handleGetUser(db))
}

func handleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Switchboard messaging API"})
	}
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// --- agents ---

type agentRequest struct {
	AgentName *string `json:"agent_name"`
	IPAddress *string `json:"ip_address"`
	Port      *int    `json:"port"`
}

func handleCreateAgent(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		in := registry.AgentCreate{IPAddress: req.IPAddress, Port: req.Port}
		if req.AgentName != nil {
			in.AgentName = *req.AgentName
		}
		agent, err := registry.CreateAgent(db, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, agent)
	}
}

func handleUpdateAgent(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		agent, err := registry.UpdateAgent(db, c.Param("agent_id"), registry.AgentUpdate{
			AgentName: req.AgentName,
			IPAddress: req.IPAddress,
			Port:      req.Port,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, agent)
	}
}

func handleGetAgent(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, err := registry.GetAgent(db, c.Param("agent_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, agent)
	}
}

func handleAgentMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := messaging.ListForAgent(db, c.Param("agent_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func handleAgentUnread(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := messaging.ListUnreadForAgent(db, c.Param("agent_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

type markReadRequest struct {
	ReadUpToDate time.Time `json:"read_up_to_date"`
}

func handleMarkRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if req.ReadUpToDate.IsZero() {
			writeError(c, errs.Validationf("server: read_up_to_date is required"))
			return
		}
		updated, err := messaging.MarkRead(db, c.Param("agent_id"), req.ReadUpToDate)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated_count": updated})
	}
}

// --- messages ---

type messageRequest struct {
	SenderID        *string         `json:"sender_id"`
	ParentMessageID *string         `json:"parent_message_id"`
	ConversationID  *string         `json:"conversation_id"`
	Content         *string         `json:"content"`
	MessageType     *string         `json:"message_type"`
	Importance      *int            `json:"importance"`
	Status          *string         `json:"status"`
	Metadata        models.Document `json:"metadata"`
	SentAt          *time.Time      `json:"sent_at"`
	ScheduleAt      *time.Time      `json:"schedule_at"`
}

func handleCreateMessage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		in := messaging.MessageCreate{
			SenderID:        req.SenderID,
			ParentMessageID: req.ParentMessageID,
			ConversationID:  req.ConversationID,
			MessageType:     req.MessageType,
			Importance:      req.Importance,
			Status:          req.Status,
			Metadata:        req.Metadata,
			SentAt:          req.SentAt,
			ScheduleAt:      req.ScheduleAt,
		}
		if req.Content != nil {
			in.Content = *req.Content
		}
		msg, err := messaging.CreateMessage(db, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

func handleUpdateMessage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		msg, err := messaging.UpdateMessage(db, c.Param("message_id"), messaging.MessageUpdate{
			Content:         req.Content,
			ParentMessageID: req.ParentMessageID,
			ConversationID:  req.ConversationID,
			MessageType:     req.MessageType,
			Importance:      req.Importance,
			Status:          req.Status,
			Metadata:        req.Metadata,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

func handleMessageMetadata(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		bundle, err := messaging.MessageMetadata(db, c.Param("message_id"), c.Param("agent_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, bundle)
	}
}

// --- message recipients ---

type recipientRequest struct {
	MessageID   *string    `json:"message_id"`
	RecipientID *string    `json:"recipient_id"`
	IsRead      *bool      `json:"is_read"`
	ReadAt      *time.Time `json:"read_at"`
}

func handleCreateRecipient(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recipientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		var messageID, recipientID string
		if req.MessageID != nil {
			messageID = *req.MessageID
		}
		if req.RecipientID != nil {
			recipientID = *req.RecipientID
		}
		rec, err := messaging.CreateRecipient(db, messageID, recipientID)
		if err != nil {
			writeError(c, err)
			return
		}
		// The create payload may carry an initial read state.
		if req.IsRead != nil || req.ReadAt != nil {
			rec, err = messaging.UpdateRecipient(db, messageID, recipientID, messaging.RecipientUpdate{
				IsRead: req.IsRead,
				ReadAt: req.ReadAt,
			})
			if err != nil {
				writeError(c, err)
				return
			}
		}
		c.JSON(http.StatusCreated, rec)
	}
}

func handleUpdateRecipient(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recipientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		rec, err := messaging.UpdateRecipient(db, c.Param("message_id"), c.Param("recipient_id"), messaging.RecipientUpdate{
			IsRead: req.IsRead,
			ReadAt: req.ReadAt,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// --- agent message metadata ---

type metadataRequest struct {
	MessageID *string `json:"message_id"`
	Key       *string `json:"key"`
	Value     *string `json:"value"`
}

func handleCreateMetadata(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req metadataRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		var messageID, key string
		if req.MessageID != nil {
			messageID = *req.MessageID
		}
		if req.Key != nil {
			key = *req.Key
		}
		meta, err := messaging.CreateMetadata(db, messageID, key, req.Value)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, meta)
	}
}

func handleUpdateMetadata(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req metadataRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		meta, err := messaging.UpdateMetadata(db, c.Param("metadata_id"), messaging.MetadataUpdate{
			Key:   req.Key,
			Value: req.Value,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, meta)
	}
}

// --- conversations ---

type conversationRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Archived    *bool           `json:"archived"`
	Metadata    models.Document `json:"metadata"`
}

func handleCreateConversation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req conversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		in := conversation.Create{
			Title:       req.Title,
			Description: req.Description,
			Metadata:    req.Metadata,
		}
		if req.Archived != nil {
			in.Archived = *req.Archived
		}
		conv, err := conversation.New(db, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, conv)
	}
}

func handleListConversations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		convs, err := conversation.List(db)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, convs)
	}
}

func handleUpdateConversation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req conversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		conv, err := conversation.Apply(db, c.Param("conversation_id"), conversation.Update{
			Title:       req.Title,
			Description: req.Description,
			Archived:    req.Archived,
			Metadata:    req.Metadata,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}

func handleGetConversation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		conv, err := conversation.Get(db, c.Param("conversation_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}

func handleConversationDetails(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		details, err := conversation.GetDetails(db, c.Param("conversation_id"), c.Query("agent_id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, details)
	}
}

// --- users ---

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func handleCreateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req userRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		user, err := registry.CreateUser(db, req.Name, req.Email)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func handleGetUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
		if err != nil {
			writeError(c, errs.Validationf("server: user id must be numeric"))
			return
		}
		user, err := registry.GetUser(db, uint(id))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
