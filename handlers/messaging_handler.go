package handlers

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	configs "github.com/engagenetwork/engage-api/configs"
	"github.com/engagenetwork/engage-api/database"
	"github.com/engagenetwork/engage-api/middleware"
	"github.com/engagenetwork/engage-api/models"
	"github.com/engagenetwork/engage-api/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InitiateChatRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,uuid"`
}

// InitiateChat returns the chat for the given participant set, creating it if
// none exists. The set is order-insensitive and excludes the initiator's own
// id from the supplied list, so no duplicate threads arise for the same pair
// or group.
func InitiateChat(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var req InitiateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ids := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, _ := uuid.Parse(raw)
		ids = append(ids, id)
	}

	others := models.ExcludeSelf(ids, userID)
	if len(others) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Other user cannot be empty/be yourself"})
	}

	var count int64
	if err := database.DB.Model(&models.User{}).Where("id IN ?", others).Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify users"})
	}
	if count != int64(len(others)) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "One of the specified users does not exist"})
	}

	participantIDs := append(others, userID)
	key := models.ChatParticipantKey(participantIDs)

	var existing models.Chat
	if err := database.DB.First(&existing, "participant_key = ?", key).Error; err == nil {
		return c.JSON(fiber.Map{"id": existing.ID})
	}

	var participants []*models.User
	if err := database.DB.Where("id IN ?", participantIDs).Find(&participants).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load participants"})
	}

	newChat := models.Chat{
		InitiatorID:    userID,
		ParticipantKey: key,
		Participants:   participants,
	}
	if err := database.DB.Create(&newChat).Error; err != nil {
		// Lost a creation race: the unique participant key means the winner's
		// chat is the one we wanted anyway.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if ferr := database.DB.First(&existing, "participant_key = ?", key).Error; ferr == nil {
				return c.JSON(fiber.Map{"id": existing.ID})
			}
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create chat"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": newChat.ID})
}

type PostMessageRequest struct {
	MsgPayload string `json:"msg_payload" validate:"required"`
}

// MessageView is the denormalized shape returned after a post and pushed to
// subscribed connections.
type MessageView struct {
	PostID           uuid.UUID              `json:"post_id"`
	ChatID           uuid.UUID              `json:"chat_id"`
	Message          string                 `json:"message"`
	PostedByUser     models.PublicProfile   `json:"posted_by_user"`
	ReadByRecipients []models.ReadReceipt   `json:"read_by_recipients"`
	ChatParticipants []models.PublicProfile `json:"chat_participants"`
	CreatedAt        time.Time              `json:"created_at"`
}

func PostMessage(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var req PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	view, status, err := postMessage(c.Params("chatId"), req.MsgPayload, userID)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	websocket.DefaultHub.Broadcast(view.ChatID, userID, "new message", view)
	return c.JSON(view)
}

// postMessage appends a message with the author's own read receipt seeded and
// returns the denormalized view. Shared by the REST and websocket paths.
func postMessage(chatID, payload string, author uuid.UUID) (*MessageView, int, error) {
	var chat models.Chat
	if err := database.DB.Preload("Participants").First(&chat, "id = ?", chatID).Error; err != nil {
		return nil, fiber.StatusBadRequest, errors.New("No chat exists with the specified id")
	}

	msg := models.Message{
		ChatID:   chat.ID,
		PostedBy: author,
		Content:  payload,
		ReadReceipts: []models.ReadReceipt{
			{ReaderID: author, ReadAt: time.Now()},
		},
	}
	if err := database.DB.Create(&msg).Error; err != nil {
		return nil, fiber.StatusInternalServerError, errors.New("Failed to save message")
	}

	var poster models.User
	if err := database.DB.First(&poster, "id = ?", author).Error; err != nil {
		return nil, fiber.StatusInternalServerError, errors.New("Failed to load poster profile")
	}

	view := &MessageView{
		PostID:           msg.ID,
		ChatID:           chat.ID,
		Message:          msg.Content,
		PostedByUser:     poster.Public(),
		ReadByRecipients: msg.ReadReceipts,
		ChatParticipants: participantProfiles(chat.Participants),
		CreatedAt:        msg.CreatedAt,
	}
	return view, fiber.StatusOK, nil
}

type ConversationMessage struct {
	ID               uuid.UUID            `json:"id"`
	Message          string               `json:"message"`
	PostedByUser     models.PublicProfile `json:"posted_by_user"`
	ReadByRecipients []models.ReadReceipt `json:"read_by_recipients"`
	CreatedAt        time.Time            `json:"created_at"`
}

// GetConversation returns a chat's messages oldest first, each annotated with
// the poster's profile.
func GetConversation(c *fiber.Ctx) error {
	chatID := c.Params("chatId")
	page, _ := strconv.Atoi(c.Query("page", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	var chat models.Chat
	if err := database.DB.Preload("Participants").First(&chat, "id = ?", chatID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No chat exists with the specified id"})
	}

	var messages []models.Message
	err := database.DB.Preload("Poster").Preload("ReadReceipts").
		Where("chat_id = ?", chat.ID).
		Order("created_at asc").
		Offset(page * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}

	conversation := make([]ConversationMessage, 0, len(messages))
	for _, m := range messages {
		conversation = append(conversation, ConversationMessage{
			ID:               m.ID,
			Message:          m.Content,
			PostedByUser:     m.Poster.Public(),
			ReadByRecipients: m.ReadReceipts,
			CreatedAt:        m.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"conversation": conversation,
		"users":        participantProfiles(chat.Participants),
	})
}

type RecentChatView struct {
	ChatID           uuid.UUID              `json:"chat_id"`
	MessageID        uuid.UUID              `json:"message_id"`
	Message          string                 `json:"message"`
	PostedByUser     models.PublicProfile   `json:"posted_by_user"`
	ReadByRecipients []models.ReadReceipt   `json:"read_by_recipients"`
	ChatParticipants []models.PublicProfile `json:"chat_participants"`
	CreatedAt        time.Time              `json:"created_at"`
}

// GetRecentChats summarizes the caller's chats: the latest message of each,
// with its accumulated receipts and the participant profiles, newest first.
func GetRecentChats(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)
	page, _ := strconv.Atoi(c.Query("page", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	var chats []models.Chat
	err := database.DB.Preload("Participants").
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id AND cp.user_id = ?", userID).
		Find(&chats).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch chats"})
	}

	recent := make([]RecentChatView, 0, len(chats))
	for _, chat := range chats {
		var last models.Message
		err := database.DB.Preload("Poster").Preload("ReadReceipts").
			Where("chat_id = ?", chat.ID).
			Order("created_at desc").
			First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
		}
		recent = append(recent, RecentChatView{
			ChatID:           chat.ID,
			MessageID:        last.ID,
			Message:          last.Content,
			PostedByUser:     last.Poster.Public(),
			ReadByRecipients: last.ReadReceipts,
			ChatParticipants: participantProfiles(chat.Participants),
			CreatedAt:        last.CreatedAt,
		})
	}

	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})

	start := page * limit
	if start > len(recent) {
		start = len(recent)
	}
	end := start + limit
	if end > len(recent) {
		end = len(recent)
	}

	return c.JSON(fiber.Map{"chat": recent[start:end]})
}

// MarkChatRead adds the caller's read receipt to every message in the chat
// they have not read yet. Re-marking is a no-op thanks to the receipt's
// composite key.
func MarkChatRead(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var chat models.Chat
	if err := database.DB.First(&chat, "id = ?", c.Params("chatId")).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No chat exists with the specified id"})
	}

	var messageIDs []uuid.UUID
	if err := database.DB.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Pluck("id", &messageIDs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	if len(messageIDs) == 0 {
		return c.JSON(fiber.Map{"message": "Messages marked as read"})
	}

	now := time.Now()
	receipts := make([]models.ReadReceipt, 0, len(messageIDs))
	for _, id := range messageIDs {
		receipts = append(receipts, models.ReadReceipt{MessageID: id, ReaderID: userID, ReadAt: now})
	}

	err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipts).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark messages as read"})
	}

	return c.JSON(fiber.Map{"message": "Messages marked as read"})
}

func participantProfiles(users []*models.User) []models.PublicProfile {
	profiles := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	return profiles
}

type wsInbound struct {
	Action  string `json:"action"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// ServeWs handles a realtime connection: the client authenticates with a JWT,
// subscribes to chat channels, and receives new-message events for them.
func ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(authMsg.Token)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	client := websocket.NewClient(userID, c)
	websocket.DefaultHub.Add(client)
	defer func() {
		websocket.DefaultHub.Remove(client)
		c.Close()
	}()
	log.Printf("WebSocket client authenticated and registered: %s", userID)

	// Once the writer goroutine owns the connection, replies from this read
	// loop must be queued through the hub instead of written directly.
	sendError := func(detail string) {
		websocket.DefaultHub.Notify(userID, websocket.Event{Event: "error", Payload: detail})
	}

	for {
		var msg wsInbound
		if err := c.ReadJSON(&msg); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			break
		}

		chatID, err := uuid.Parse(msg.ChatID)
		if err != nil {
			sendError("Invalid chat ID")
			continue
		}

		switch msg.Action {
		case "subscribe":
			if !isChatParticipant(chatID, userID) {
				sendError("Not a participant of this chat")
				continue
			}
			websocket.DefaultHub.Join(chatID, userID)
			// Pull any other online participants into the channel so they
			// receive events without having subscribed themselves yet.
			for _, participantID := range chatParticipantIDs(chatID) {
				if participantID != userID {
					websocket.DefaultHub.Join(chatID, participantID)
				}
			}
		case "unsubscribe":
			websocket.DefaultHub.Leave(chatID, userID)
		case "message":
			view, _, err := postMessage(msg.ChatID, msg.Content, userID)
			if err != nil {
				sendError(err.Error())
				continue
			}
			websocket.DefaultHub.Broadcast(chatID, userID, "new message", view)
		default:
			sendError("Unknown action")
		}
	}
}

func isChatParticipant(chatID, userID uuid.UUID) bool {
	var count int64
	database.DB.Table("chat_participants").
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count)
	return count > 0
}

func chatParticipantIDs(chatID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	err := database.DB.Table("chat_participants").
		Where("chat_id = ?", chatID).
		Pluck("user_id", &ids).Error
	if err != nil {
		log.Printf("Error fetching participant IDs for chat %s: %v", chatID, err)
	}
	return ids
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(configs.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
