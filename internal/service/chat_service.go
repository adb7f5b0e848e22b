package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legal-research-be/internal/dto"
	"legal-research-be/internal/entity"
	"legal-research-be/internal/repository/memory"
	"legal-research-be/internal/repository/specification"
	"legal-research-be/internal/repository/unitofwork"
	"legal-research-be/pkg/conversation"
	"legal-research-be/pkg/retrieval"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IChatService defines the chat service interface
type IChatService interface {
	CreateSession(ctx context.Context, userId, firmId uuid.UUID) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId, firmId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	SendChatStream(ctx context.Context, userId, firmId uuid.UUID, request *dto.SendChatRequest, onChunk func(string)) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	convRepo   *memory.ConversationRepository
	manager    *conversation.Manager
	logger     *zap.Logger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	convRepo *memory.ConversationRepository,
	manager *conversation.Manager,
	logger *zap.Logger,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		convRepo:   convRepo,
		manager:    manager,
		logger:     logger,
	}
}

func (cs *chatService) CreateSession(ctx context.Context, userId, firmId uuid.UUID) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session := &entity.ChatSession{
		Id:     uuid.New(),
		UserId: userId,
		FirmId: firmId,
		Title:  "New Research",
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.GetAllSessionsResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		}
	}
	return responses, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.verifySession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.GetChatHistoryResponse, len(messages))
	for i, m := range messages {
		responses[i] = &dto.GetChatHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Chat:      m.Chat,
			CreatedAt: m.CreatedAt,
		}
		if m.Role == "assistant" {
			citations, err := cs.loadCitations(ctx, uow, m.Id)
			if err != nil {
				cs.logger.Warn("failed to load citations",
					zap.String("message_id", m.Id.String()),
					zap.Error(err))
				continue
			}
			responses[i].Citations = citations
		}
	}
	return responses, nil
}

func (cs *chatService) SendChat(ctx context.Context, userId, firmId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	return cs.sendChat(ctx, userId, firmId, request, nil)
}

func (cs *chatService) SendChatStream(ctx context.Context, userId, firmId uuid.UUID, request *dto.SendChatRequest, onChunk func(string)) (*dto.SendChatResponse, error) {
	return cs.sendChat(ctx, userId, firmId, request, onChunk)
}

func (cs *chatService) sendChat(ctx context.Context, userId, firmId uuid.UUID, request *dto.SendChatRequest, onChunk func(string)) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	conv, existed := cs.convRepo.GetOrCreate(session.Id.String(), userId.String(), firmId.String())
	if !existed {
		// Live state expired or first turn after restart: rebuild dialogue
		// memory from persisted messages. Active context is never
		// persisted, so it starts empty and is rebuilt on this turn.
		if err := cs.rehydrateMemory(ctx, uow, session.Id, conv); err != nil {
			cs.logger.Warn("failed to rehydrate conversation memory",
				zap.String("session_id", session.Id.String()),
				zap.Error(err))
		}
	}

	result, err := cs.manager.RunTurnStream(ctx, conv, request.Chat, onChunk)
	if err != nil {
		return nil, err
	}

	sent, reply, err := cs.persistTurn(ctx, session, request.Chat, result)
	if err != nil {
		return nil, err
	}

	if session.Title == "New Research" {
		cs.updateSessionTitle(ctx, session, request.Chat)
	}

	return &dto.SendChatResponse{
		ChatSessionId:    session.Id,
		ChatSessionTitle: session.Title,
		Sent:             sent,
		Reply:            reply,
		Status:           result.Status,
	}, nil
}

func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	cs.convRepo.Delete(session.Id.String())
	return nil
}

func (cs *chatService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session not found")
	}
	return session, nil
}

// rehydrateMemory rebuilds bounded dialogue memory from the message table.
func (cs *chatService) rehydrateMemory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID, conv *conversation.Conversation) error {
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return err
	}

	var turns []conversation.Turn
	var pendingQuery string
	var pendingAt time.Time
	for _, m := range messages {
		switch m.Role {
		case "user":
			pendingQuery = m.Chat
			pendingAt = m.CreatedAt
		case "assistant":
			if pendingQuery != "" {
				turns = append(turns, conversation.Turn{
					Query:  pendingQuery,
					Answer: m.Chat,
					At:     pendingAt,
				})
				pendingQuery = ""
			}
		}
	}

	conv.SeedMemory(turns)
	return nil
}

func (cs *chatService) persistTurn(ctx context.Context, session *entity.ChatSession, query string, result *conversation.TurnResult) (*dto.SendChatResponseChat, *dto.SendChatResponseChat, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          query,
		Role:          "user",
		ChatSessionId: session.Id,
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return nil, nil, err
	}

	assistantMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          result.Answer,
		Role:          "assistant",
		ChatSessionId: session.Id,
	}
	if err := uow.ChatMessageRepository().Create(ctx, assistantMessage); err != nil {
		return nil, nil, err
	}

	citations := cs.buildCitations(assistantMessage.Id, result.Sources)
	if err := uow.ChatCitationRepository().CreateBulk(ctx, citations); err != nil {
		return nil, nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}

	// Enrich the persisted citations with display metadata from the same
	// sources they were built from, matched by document id.
	metaById := make(map[uuid.UUID]retrieval.ScoredCandidate, len(result.Sources))
	for _, src := range result.Sources {
		if docIdStr, ok := src.Doc.Metadata["document_id"].(string); ok {
			if docId, err := uuid.Parse(docIdStr); err == nil {
				if _, seen := metaById[docId]; !seen {
					metaById[docId] = src
				}
			}
		}
	}
	citationDTOs := make([]dto.CitationDTO, len(citations))
	for i, c := range citations {
		citationDTOs[i] = dto.CitationDTO{
			DocumentId: c.DocumentId,
			Score:      c.FinalScore,
		}
		if src, ok := metaById[c.DocumentId]; ok {
			citationDTOs[i].Title = src.Doc.Title
			citationDTOs[i].Collection = string(src.Doc.Collection)
			citationDTOs[i].Year = src.Doc.Year
		}
	}

	sent := &dto.SendChatResponseChat{
		Id:        userMessage.Id,
		Chat:      userMessage.Chat,
		Role:      userMessage.Role,
		CreatedAt: userMessage.CreatedAt,
	}
	reply := &dto.SendChatResponseChat{
		Id:        assistantMessage.Id,
		Chat:      assistantMessage.Chat,
		Role:      assistantMessage.Role,
		CreatedAt: assistantMessage.CreatedAt,
		Citations: citationDTOs,
	}
	return sent, reply, nil
}

func (cs *chatService) buildCitations(messageId uuid.UUID, sources []retrieval.ScoredCandidate) []*entity.ChatCitation {
	citations := make([]*entity.ChatCitation, 0, len(sources))
	for _, src := range sources {
		docIdStr, _ := src.Doc.Metadata["document_id"].(string)
		docId, err := uuid.Parse(docIdStr)
		if err != nil {
			continue
		}
		citations = append(citations, &entity.ChatCitation{
			Id:            uuid.New(),
			ChatMessageId: messageId,
			DocumentId:    docId,
			FinalScore:    src.FinalScore,
		})
	}
	return citations
}

func (cs *chatService) loadCitations(ctx context.Context, uow unitofwork.UnitOfWork, messageId uuid.UUID) ([]dto.CitationDTO, error) {
	citations, err := uow.ChatCitationRepository().FindAll(ctx,
		specification.FilterBy{Field: "chat_message_id", Value: messageId},
	)
	if err != nil {
		return nil, err
	}
	if len(citations) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(citations))
	for i, c := range citations {
		ids[i] = c.DocumentId
	}
	documents, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, err
	}
	titles := make(map[uuid.UUID]*entity.Document, len(documents))
	for _, d := range documents {
		titles[d.Id] = d
	}

	dtos := make([]dto.CitationDTO, len(citations))
	for i, c := range citations {
		dtos[i] = dto.CitationDTO{
			DocumentId: c.DocumentId,
			Score:      c.FinalScore,
		}
		if d, ok := titles[c.DocumentId]; ok {
			dtos[i].Title = d.Title
			dtos[i].Collection = d.Collection
			dtos[i].Year = d.Year
		}
	}
	return dtos, nil
}

func (cs *chatService) updateSessionTitle(ctx context.Context, session *entity.ChatSession, query string) {
	title := strings.TrimSpace(query)
	if len(title) > 80 {
		title = title[:80]
	}
	if title == "" {
		return
	}

	session.Title = title
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		cs.logger.Warn("failed to update session title",
			zap.String("session_id", session.Id.String()),
			zap.Error(err))
	}
}
