package testutil

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/assignment"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
	"github.com/gymhub/contentdesk/core/submission"
	"github.com/gymhub/contentdesk/services/logger"
	"github.com/gymhub/contentdesk/storage/database"
)

// NewValidator returns a validator with every domain tag registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	gym.InitValidators(validate, translator)
	format.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)
	return validate, translator
}

func NopLogger() core.Logger {
	return logsvc.NewZapLogger(zap.NewNop())
}

// PrepareDB opens a migrated in-memory sqlite database, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	conf := core.NewTestConfig()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateGym(t *testing.T, repo gym.Repository, name, pin, role string, isActive bool, email ...string) gym.Gym {
	now := time.Now().UTC()
	g := gym.Gym{
		Name:      name,
		Location:  name + " city",
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(email) > 0 {
		g.Email = email[0]
	}
	if err := g.SetPIN(pin, core.NewTestConfig().SecretKey); err != nil {
		t.Fatalf("CreateGym() failed: %v", err)
	}
	g, err := repo.CreateGym(context.Background(), g)
	if err != nil {
		t.Fatalf("CreateGym() failed: %v", err)
	}
	return g
}

func CreateFormat(t *testing.T, repo format.Repository, key, typ string, totalRequired int) format.Format {
	now := time.Now().UTC()
	f, err := repo.CreateFormat(context.Background(), format.Format{
		Key:           key,
		Title:         strings.ReplaceAll(key, "_", " "),
		Type:          typ,
		TotalRequired: totalRequired,
		Examples:      []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateFormat() failed: %v", err)
	}
	return f
}

// File returns an uploadable in-memory file.
func File(name string, content []byte) submission.File {
	return submission.File{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
	}
}

// PNG is the smallest content sniffed as image/png.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// MailRecorder is a core.EmailService keeping the messages it is asked to send.
type MailRecorder struct {
	mu   sync.Mutex
	Sent []core.EmailMessage
}

var _ core.EmailService = (*MailRecorder)(nil)

func (m *MailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.Sent = append(m.Sent, *msg)
	}
}

func (m *MailRecorder) Messages() []core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.EmailMessage(nil), m.Sent...)
}

// MemoryStore is a core.ObjectStore holding objects in memory. Uploads whose
// content contains one of the FailOn markers fail.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	FailOn  []string
}

var _ core.ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(failOn ...string) *MemoryStore {
	return &MemoryStore{
		Objects: make(map[string][]byte),
		Types:   make(map[string]string),
		FailOn:  failOn,
	}
}

func (s *MemoryStore) Upload(_ context.Context, path string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, f := range s.FailOn {
		if bytes.Contains(data, []byte(f)) {
			return core.NewUpstreamError("uploading "+path, io.ErrUnexpectedEOF)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[path] = data
	s.Types[path] = contentType
	return nil
}

func (s *MemoryStore) PublicURL(path string) string {
	return "http://test.local/uploads/" + path
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}
