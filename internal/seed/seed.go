// Package seed imports question banks into the content store.
//
// A bank is a YAML or JSON document listing subjects with their questions and
// reference answers. Questions without an explicit id get a deterministic one
// so re-importing the same bank updates rows instead of duplicating them.
package seed

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Writer is the subset of the content store the importer needs.
type Writer interface {
	UpsertSubject(ctx domain.Context, s domain.Subject) error
	UpsertQuestion(ctx domain.Context, q domain.Question) error
}

// Bank is the document shape.
type Bank struct {
	Subjects []BankSubject `yaml:"subjects" json:"subjects"`
}

// BankSubject groups questions under one subject.
type BankSubject struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Questions []BankQuestion `yaml:"questions" json:"questions"`
}

// BankQuestion is one question and its reference answer.
type BankQuestion struct {
	ID       string `yaml:"id" json:"id"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Stats reports what an import wrote.
type Stats struct {
	Subjects  int
	Questions int
}

// Parse decodes b as JSON or YAML depending on its sniffed content type.
func Parse(b []byte) (Bank, error) {
	var bank Bank
	mt := mimetype.Detect(b)
	switch {
	case mt.Is("application/json"):
		if err := json.Unmarshal(b, &bank); err != nil {
			return Bank{}, fmt.Errorf("json parse: %w", err)
		}
	case strings.HasPrefix(mt.String(), "text/"):
		if err := yaml.Unmarshal(b, &bank); err != nil {
			return Bank{}, fmt.Errorf("yaml parse: %w", err)
		}
	default:
		return Bank{}, fmt.Errorf("unsupported seed content type %s", mt.String())
	}
	return bank, nil
}

// Normalize trims fields, derives missing ids and names and drops questions
// without text. Duplicate question ids keep the first occurrence.
func (b Bank) Normalize() (Bank, error) {
	out := Bank{Subjects: make([]BankSubject, 0, len(b.Subjects))}
	seen := make(map[string]struct{})
	for i, s := range b.Subjects {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		if s.ID == "" {
			return Bank{}, fmt.Errorf("subject %d: %w: id is required", i, domain.ErrInvalidArgument)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		qs := make([]BankQuestion, 0, len(s.Questions))
		for _, q := range s.Questions {
			q.Question = strings.TrimSpace(q.Question)
			q.Answer = strings.TrimSpace(q.Answer)
			if q.Question == "" {
				continue
			}
			q.ID = strings.TrimSpace(q.ID)
			if q.ID == "" {
				q.ID = QuestionID(s.ID, q.Question)
			}
			if _, ok := seen[q.ID]; ok {
				continue
			}
			seen[q.ID] = struct{}{}
			qs = append(qs, q)
		}
		s.Questions = qs
		out.Subjects = append(out.Subjects, s)
	}
	if len(out.Subjects) == 0 {
		return Bank{}, fmt.Errorf("%w: bank has no subjects", domain.ErrInvalidArgument)
	}
	return out, nil
}

// QuestionID derives a stable id from the subject and question text.
func QuestionID(subjectID, text string) string {
	sum := sha256.Sum256([]byte(subjectID + ":" + strings.TrimSpace(text)))
	return fmt.Sprintf("%s-%x", subjectID, sum[:6])
}

// Import writes every subject before its questions.
func Import(ctx domain.Context, w Writer, bank Bank) (Stats, error) {
	bank, err := bank.Normalize()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, s := range bank.Subjects {
		if err := w.UpsertSubject(ctx, domain.Subject{ID: s.ID, Name: s.Name}); err != nil {
			return st, fmt.Errorf("subject %s: %w", s.ID, err)
		}
		st.Subjects++
		for _, q := range s.Questions {
			err := w.UpsertQuestion(ctx, domain.Question{
				ID:           q.ID,
				SubjectID:    s.ID,
				QuestionText: q.Question,
				ExpertAnswer: q.Answer,
			})
			if err != nil {
				return st, fmt.Errorf("question %s: %w", q.ID, err)
			}
			st.Questions++
		}
	}
	return st, nil
}

// LoadFile reads and imports a bank. Paths outside the working directory are
// refused unless SEED_ALLOW_ABSPATHS=1.
func LoadFile(ctx domain.Context, w Writer, path string) (Stats, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Stats{}, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return Stats{}, err
	}
	abs, wd = filepath.Clean(abs), filepath.Clean(wd)
	if os.Getenv("SEED_ALLOW_ABSPATHS") != "1" {
		if !strings.HasPrefix(abs, wd+string(os.PathSeparator)) && abs != wd {
			return Stats{}, fmt.Errorf("disallowed path: %s", abs)
		}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stats{}, fmt.Errorf("seed file not found: %s", path)
		}
		return Stats{}, err
	}
	bank, err := Parse(b)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	return Import(ctx, w, bank)
}
