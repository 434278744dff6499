package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/coverline/engine/internal/agent/model"
	"github.com/coverline/engine/internal/agent/validate"
	errx "github.com/coverline/engine/internal/core/error"
	logx "github.com/coverline/engine/pkg/logger"
)

// Open connects to the sqlite database at path and migrates the schema.
// Pass ":memory:" for tests.
func Open(path string) (*gorm.DB, error) {
	// TranslateError maps driver unique-constraint violations to
	// gorm.ErrDuplicatedKey, which CreateLead relies on when two writers race
	// past the pre-insert duplicate check.
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.AutoMigrate(&Conversation{}, &Message{}, &Lead{}, &Policy{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return db, nil
}

// Store implements the conversation log, lead sink, and policy catalog over
// one gorm handle.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateConversation(ctx context.Context, sessionID string) error {
	conv := Conversation{SessionID: sessionID, Stage: model.StageIntroduction.String()}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return errx.Persistence(fmt.Errorf("create conversation: %w", err))
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	convID, err := s.conversationID(ctx, sessionID)
	if err != nil {
		return err
	}
	msg := Message{ConversationID: convID, Role: role, Content: content}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return errx.Persistence(fmt.Errorf("append message: %w", err))
	}
	return nil
}

// History returns up to limit most recent messages, oldest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error) {
	convID, err := s.conversationID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var rows []Message
	err = s.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errx.Persistence(fmt.Errorf("load history: %w", err))
	}

	messages := make([]*schema.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		switch rows[i].Role {
		case "assistant":
			messages = append(messages, schema.AssistantMessage(rows[i].Content, nil))
		default:
			messages = append(messages, schema.UserMessage(rows[i].Content))
		}
	}
	return messages, nil
}

func (s *Store) UpdateConversation(ctx context.Context, sessionID string, stage model.ConversationStage, messageCount int) error {
	err := s.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"stage": stage.String(), "message_count": messageCount}).Error
	if err != nil {
		return errx.Persistence(fmt.Errorf("update conversation: %w", err))
	}
	return nil
}

// CreateLead normalizes the phone, validates the record, and inserts it.
// A lead with the same normalized phone fails with ErrDuplicate.
func (s *Store) CreateLead(ctx context.Context, lead model.NewLead) (*model.Lead, error) {
	phone, err := validate.Phone(lead.Phone)
	if err != nil {
		return nil, err
	}
	if err := validate.Lead(lead.Name, phone, lead.NID, lead.Address, lead.Email); err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&Lead{}).Where("phone = ?", phone).Count(&existing).Error; err != nil {
		return nil, errx.Persistence(fmt.Errorf("check duplicate lead: %w", err))
	}
	if existing > 0 {
		return nil, errx.Duplicate(fmt.Sprintf("lead with phone %s already exists", phone))
	}

	row := Lead{
		Name:                 lead.Name,
		Phone:                phone,
		NID:                  lead.NID,
		Address:              lead.Address,
		Email:                lead.Email,
		InterestedPolicy:     lead.InterestedPolicy,
		PreferredContactTime: lead.PreferredContactTime,
		Notes:                lead.Notes,
		Status:               string(model.LeadStatusNew),
		SessionID:            lead.SessionID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errx.Duplicate(fmt.Sprintf("lead with phone %s already exists", phone))
		}
		return nil, errx.Persistence(fmt.Errorf("create lead: %w", err))
	}

	logx.Info().Str("phone", validate.MaskPhone(phone)).Str("session_id", lead.SessionID).Msg("lead created")
	return row.toDomain(), nil
}

func (s *Store) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	var rows []Policy
	if err := s.db.WithContext(ctx).Order("monthly_premium ASC").Find(&rows).Error; err != nil {
		return nil, errx.Persistence(fmt.Errorf("list policies: %w", err))
	}
	policies := make([]model.Policy, 0, len(rows))
	for _, row := range rows {
		policies = append(policies, row.toDomain())
	}
	return policies, nil
}

func (s *Store) conversationID(ctx context.Context, sessionID string) (uint, error) {
	var conv Conversation
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errx.SessionNotFound(sessionID)
		}
		return 0, errx.Persistence(fmt.Errorf("find conversation: %w", err))
	}
	return conv.ID, nil
}

var (
	_ model.ConversationLog = (*Store)(nil)
	_ model.LeadSink        = (*Store)(nil)
	_ model.PolicyCatalog   = (*Store)(nil)
)
