package usecase_test

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// memStore is an in-memory stand-in for the content, interview and quota stores.
type memStore struct {
	mu        sync.Mutex
	questions map[string]domain.Question
	order     []string
	ivs       map[string]domain.Interview
	assigned  map[string][]string
	answers   map[string][]domain.Answer
	usage     map[string]int
	seq       int
}

func newMemStore(subjectID string, n int) *memStore {
	s := &memStore{
		questions: map[string]domain.Question{},
		ivs:       map[string]domain.Interview{},
		assigned:  map[string][]string{},
		answers:   map[string][]domain.Answer{},
		usage:     map[string]int{},
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("q%d", i)
		s.questions[id] = domain.Question{
			ID:           id,
			SubjectID:    subjectID,
			QuestionText: fmt.Sprintf("question %d", i),
			ExpertAnswer: fmt.Sprintf("reference answer number %d covers hashing", i),
		}
		s.order = append(s.order, id)
	}
	return s
}

func (s *memStore) ListSubjects(domain.Context) ([]domain.Subject, error) {
	return []domain.Subject{{ID: "go", Name: "Go"}}, nil
}

func (s *memStore) ListQuestionsBySubject(_ domain.Context, subjectID string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Question
	for _, id := range s.order {
		if q := s.questions[id]; q.SubjectID == subjectID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *memStore) GetQuestion(_ domain.Context, id string) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrNotFound
	}
	return q, nil
}

func (s *memStore) CreateInterview(_ domain.Context, d domain.InterviewDraft) (domain.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	iv := domain.Interview{
		ID:             fmt.Sprintf("iv-%d", s.seq),
		UserID:         d.UserID,
		SubjectID:      d.SubjectID,
		TotalQuestions: len(d.QuestionIDs),
		Status:         domain.InterviewActive,
		CreatedAt:      time.Now(),
	}
	s.ivs[iv.ID] = iv
	s.assigned[iv.ID] = append([]string(nil), d.QuestionIDs...)
	return iv, nil
}

func (s *memStore) GetInterview(_ domain.Context, id string) (domain.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.ivs[id]
	if !ok {
		return domain.Interview{}, domain.ErrNotFound
	}
	return iv, nil
}

func (s *memStore) GetAssignedQuestionIDAt(_ domain.Context, id string, pos int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.assigned[id]
	if pos < 0 || pos >= len(ids) {
		return "", domain.ErrNotFound
	}
	return ids[pos], nil
}

func (s *memStore) ListAssignedQuestions(_ domain.Context, id string) ([]domain.AssignedQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AssignedQuestion
	for i, qid := range s.assigned[id] {
		out = append(out, domain.AssignedQuestion{Position: i, QuestionID: qid})
	}
	return out, nil
}

func (s *memStore) ListAnswers(_ domain.Context, id string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Answer(nil), s.answers[id]...), nil
}

func (s *memStore) RecordAnswer(_ domain.Context, a domain.Answer, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.ivs[a.InterviewID]
	if !ok || iv.CurrentIndex != p.ExpectedIndex || !iv.IsActive() {
		return domain.ErrConflict
	}
	for _, prev := range s.answers[a.InterviewID] {
		if prev.QuestionID == a.QuestionID {
			return domain.ErrConflict
		}
	}
	a.ID = fmt.Sprintf("a-%d", len(s.answers[a.InterviewID])+1)
	s.answers[a.InterviewID] = append(s.answers[a.InterviewID], a)
	iv.CurrentIndex = p.CurrentIndex
	iv.Status = p.Status
	s.ivs[iv.ID] = iv
	return nil
}

func (s *memStore) ReserveDailyQuestions(_ domain.Context, r domain.QuotaRequest) (domain.QuotaReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.UserID + "|" + r.Day.Format(time.DateOnly)
	used := s.usage[key]
	if used+r.Count > r.Limit {
		return domain.QuotaReservation{Allowed: false, Used: used, Remaining: r.Limit - used, Limit: r.Limit}, nil
	}
	used += r.Count
	s.usage[key] = used
	return domain.QuotaReservation{Allowed: true, Used: used, Remaining: r.Limit - used, Limit: r.Limit}, nil
}

func (s *memStore) assignedIDs(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.assigned[id]...)
}

func (s *memStore) answerCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers[id])
}

// firstRand always picks the lowest remaining index, which keeps inventory order.
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.InterviewEvent
	err    error
}

func (p *recordingPublisher) Publish(_ domain.Context, evt domain.InterviewEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
