package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"actionbot/internal/action"
	"actionbot/internal/db"
	"actionbot/internal/model"
)

// GormStore persists through gorm on SQLite or Postgres.
type GormStore struct {
	db *gorm.DB
	pg *db.DB
}

func gormConfig(logger *logrus.Logger) *gorm.Config {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// OpenSQLite opens (creating if needed) a SQLite database file and migrates it.
func OpenSQLite(path string, logger *logrus.Logger) (*GormStore, error) {
	gdb, err := gorm.Open(sqlite.Open(path), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s := &GormStore{db: gdb}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenPostgres wraps an open Postgres pool and migrates it.
func OpenPostgres(pg *db.DB, logger *logrus.Logger) (*GormStore, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: pg.DB}), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &GormStore{db: gdb, pg: pg}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GormStore) migrate() error {
	err := s.db.AutoMigrate(
		&model.Chatbot{},
		&model.Action{},
		&model.Message{},
		&model.Submission{},
		&model.APIKey{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func wrap(err error, kind string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(kind, id)
	}
	return fmt.Errorf("%s %v: %w", kind, id, err)
}

// Chatbots

func (s *GormStore) CreateChatbot(ctx context.Context, c *model.Chatbot) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create chatbot: %w", err)
	}
	return nil
}

func (s *GormStore) Chatbot(ctx context.Context, id int64) (model.Chatbot, error) {
	var c model.Chatbot
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Chatbot{}, wrap(err, "chatbot", id)
	}
	return c, nil
}

func (s *GormStore) ChatbotByShareToken(ctx context.Context, token string) (model.Chatbot, error) {
	var c model.Chatbot
	if token == "" {
		return c, notFound("share token", token)
	}
	if err := s.db.WithContext(ctx).Where("share_token = ?", token).First(&c).Error; err != nil {
		return model.Chatbot{}, wrap(err, "share token", token)
	}
	return c, nil
}

func (s *GormStore) ListChatbots(ctx context.Context) ([]model.Chatbot, error) {
	var out []model.Chatbot
	if err := s.db.WithContext(ctx).Order("created_at desc, id desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list chatbots: %w", err)
	}
	return out, nil
}

func (s *GormStore) UpdateChatbot(ctx context.Context, c *model.Chatbot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old model.Chatbot
		if err := tx.First(&old, c.ID).Error; err != nil {
			return wrap(err, "chatbot", c.ID)
		}
		c.CreatedAt = old.CreatedAt
		c.ShareToken = old.ShareToken
		return tx.Save(c).Error
	})
}

func (s *GormStore) DeleteChatbot(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Chatbot
		if err := tx.First(&c, id).Error; err != nil {
			return wrap(err, "chatbot", id)
		}
		for _, m := range []any{&model.Submission{}, &model.Message{}, &model.Action{}} {
			if err := tx.Where("chatbot_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete chatbot %d: %w", id, err)
			}
		}
		return tx.Delete(&c).Error
	})
}

// Actions

func (s *GormStore) CreateAction(ctx context.Context, d *action.Definition) error {
	row, err := model.ActionFrom(*d)
	if err != nil {
		return err
	}
	row.ID = 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Chatbot
		if err := tx.Select("id").First(&c, d.ChatbotID).Error; err != nil {
			return wrap(err, "chatbot", d.ChatbotID)
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return err
	}
	d.ID = row.ID
	d.CreatedAt = row.CreatedAt
	return nil
}

func (s *GormStore) Action(ctx context.Context, id int64) (action.Definition, error) {
	var row model.Action
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return action.Definition{}, wrap(err, "action", id)
	}
	return row.Definition()
}

func (s *GormStore) ListActions(ctx context.Context, chatbotID int64) ([]action.Definition, error) {
	var rows []model.Action
	if err := s.db.WithContext(ctx).Where("chatbot_id = ?", chatbotID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	out := make([]action.Definition, 0, len(rows))
	for _, row := range rows {
		d, err := row.Definition()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *GormStore) UpdateAction(ctx context.Context, d *action.Definition) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old model.Action
		if err := tx.First(&old, d.ID).Error; err != nil {
			return wrap(err, "action", d.ID)
		}
		d.ChatbotID = old.ChatbotID
		d.CreatedAt = old.CreatedAt
		row, err := model.ActionFrom(*d)
		if err != nil {
			return err
		}
		return tx.Save(&row).Error
	})
}

func (s *GormStore) DeleteAction(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Action{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete action %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("action", id)
	}
	return nil
}

// Conversations

func (s *GormStore) AppendMessages(ctx context.Context, msgs ...*model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range msgs {
			if err := tx.Create(m).Error; err != nil {
				return fmt.Errorf("append message: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) History(ctx context.Context, chatbotID int64, sessionID string, limit int) ([]model.Message, error) {
	q := s.db.WithContext(ctx).
		Where("chatbot_id = ? AND session_id = ?", chatbotID, sessionID).
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Message
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *GormStore) Sessions(ctx context.Context, chatbotID int64) ([]model.SessionSummary, error) {
	var rows []model.Message
	err := s.db.WithContext(ctx).
		Select("session_id", "created_at").
		Where("chatbot_id = ?", chatbotID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	latest := map[string]time.Time{}
	for _, r := range rows {
		if r.CreatedAt.After(latest[r.SessionID]) {
			latest[r.SessionID] = r.CreatedAt
		}
	}
	out := make([]model.SessionSummary, 0, len(latest))
	for id, at := range latest {
		out = append(out, model.SessionSummary{SessionID: id, LastMessageAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

// Submissions

func (s *GormStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *GormStore) ListSubmissions(ctx context.Context, chatbotID int64) ([]model.Submission, error) {
	var out []model.Submission
	if err := s.db.WithContext(ctx).Where("chatbot_id = ?", chatbotID).Order("id desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

// API keys

func (s *GormStore) APIKeys(ctx context.Context) (map[string]string, error) {
	var rows []model.APIKey
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Provider] = r.Key
	}
	return out, nil
}

func (s *GormStore) APIKey(ctx context.Context, provider string) (string, error) {
	var row model.APIKey
	err := s.db.WithContext(ctx).Where("provider = ?", provider).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("api key %s: %w", provider, err)
	}
	return row.Key, nil
}

func upsertAPIKey(tx *gorm.DB, provider, key string) error {
	row := model.APIKey{Provider: provider, Key: key, UpdatedAt: time.Now().UTC()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"api_key", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save api key %s: %w", provider, err)
	}
	return nil
}

func (s *GormStore) SetAPIKey(ctx context.Context, provider, key string) error {
	return upsertAPIKey(s.db.WithContext(ctx), provider, key)
}

func (s *GormStore) SaveAPIKeys(ctx context.Context, keys map[string]string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for provider, key := range keys {
			if key == "" {
				if err := tx.Where("provider = ?", provider).Delete(&model.APIKey{}).Error; err != nil {
					return fmt.Errorf("delete api key %s: %w", provider, err)
				}
				continue
			}
			if err := upsertAPIKey(tx, provider, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) DeleteAPIKey(ctx context.Context, provider string) error {
	res := s.db.WithContext(ctx).Where("provider = ?", provider).Delete(&model.APIKey{})
	if res.Error != nil {
		return fmt.Errorf("delete api key %s: %w", provider, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("api key", provider)
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	if s.pg != nil {
		return s.pg.HealthCheck(ctx)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	if s.pg != nil {
		return s.pg.Close()
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
