package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

var (
	_ QuizStore         = (*fakeQuizStore)(nil)
	_ AssignmentStore   = (*fakeAssignmentStore)(nil)
	_ AttemptStore      = (*fakeAttemptStore)(nil)
	_ ResultStore       = (*fakeResultStore)(nil)
	_ UserStore         = (*fakeUserStore)(nil)
	_ NotificationStore = (*fakeNotificationStore)(nil)
)

// In-memory stores. A single mutex per store stands in for row locks, so
// Finalize calls on the same attempt are serialized like SELECT ... FOR UPDATE.

type fakeQuizStore struct {
	mu      sync.Mutex
	quizzes map[uuid.UUID]*model.Quiz
	// beforeUpdate runs ahead of Update, simulating a concurrent writer.
	beforeUpdate func()
}

func newFakeQuizStore(qs ...*model.Quiz) *fakeQuizStore {
	s := &fakeQuizStore{quizzes: map[uuid.UUID]*model.Quiz{}}
	for _, q := range qs {
		s.quizzes[q.ID] = q
	}
	return s
}

func (s *fakeQuizStore) Create(_ context.Context, q *model.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = uuid.New()
	for i := range q.Questions {
		q.Questions[i].ID = uuid.New()
		q.Questions[i].QuizID = q.ID
	}
	q.QuestionCount = len(q.Questions)
	cp := *q
	s.quizzes[q.ID] = &cp
	return nil
}

func (s *fakeQuizStore) GetByID(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *fakeQuizStore) List(_ context.Context, publishedOnly bool, limit, offset int) ([]model.Quiz, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Quiz
	for _, q := range s.quizzes {
		if publishedOnly && !q.IsPublished {
			continue
		}
		out = append(out, *q)
	}
	return page(out, limit, offset), len(out), nil
}

func (s *fakeQuizStore) ListForUser(_ context.Context, _ uuid.UUID, _ time.Time, limit, offset int) ([]model.Quiz, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Quiz
	for _, q := range s.quizzes {
		if q.IsPublished && q.IsPublic {
			out = append(out, *q)
		}
	}
	return page(out, limit, offset), len(out), nil
}

func page(in []model.Quiz, limit, offset int) []model.Quiz {
	if offset >= len(in) {
		return nil
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}

func (s *fakeQuizStore) Update(_ context.Context, q *model.Quiz) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.quizzes[q.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.IsPublished {
		return repository.ErrQuizPublished
	}
	cp := *q
	cp.Questions = cur.Questions
	s.quizzes[q.ID] = &cp
	return nil
}

func (s *fakeQuizStore) ReplaceQuestions(_ context.Context, quizID uuid.UUID, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.quizzes[quizID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.IsPublished {
		return repository.ErrQuizPublished
	}
	for i := range questions {
		questions[i].ID = uuid.New()
		questions[i].QuizID = quizID
	}
	cur.Questions = questions
	cur.QuestionCount = len(questions)
	return nil
}

func (s *fakeQuizStore) Publish(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if q.IsPublished {
		return false, nil
	}
	q.IsPublished = true
	return true, nil
}

func (s *fakeQuizStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.quizzes, id)
	return nil
}

type fakeAssignmentStore struct {
	mu   sync.Mutex
	rows map[[2]uuid.UUID]*model.Assignment
	// users, when set, supplies the email and username ListByQuiz joins in.
	users *fakeUserStore
	// quizzes and completed stand in for the joins ClaimDueSoon makes.
	quizzes   *fakeQuizStore
	completed map[[2]uuid.UUID]bool
	reminded  map[[2]uuid.UUID]bool
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{
		rows:      map[[2]uuid.UUID]*model.Assignment{},
		completed: map[[2]uuid.UUID]bool{},
		reminded:  map[[2]uuid.UUID]bool{},
	}
}

func (s *fakeAssignmentStore) Upsert(_ context.Context, a *model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{a.QuizID, a.UserID}
	if cur, ok := s.rows[key]; ok {
		a.ID = cur.ID
	} else {
		a.ID = uuid.New()
	}
	a.IsActive = true
	cp := *a
	s.rows[key] = &cp
	delete(s.reminded, key)
	return nil
}

func (s *fakeAssignmentStore) UpsertMany(ctx context.Context, as []model.Assignment) error {
	for i := range as {
		if err := s.Upsert(ctx, &as[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeAssignmentStore) Get(_ context.Context, quizID, userID uuid.UUID) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[[2]uuid.UUID{quizID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAssignmentStore) Revoke(_ context.Context, quizID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[[2]uuid.UUID{quizID, userID}]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsActive = false
	return nil
}

func (s *fakeAssignmentStore) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.AssignmentWithUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AssignmentWithUser
	for k, a := range s.rows {
		if k[0] != quizID {
			continue
		}
		row := model.AssignmentWithUser{Assignment: *a}
		if s.users != nil {
			if u, err := s.users.GetByID(ctx, a.UserID); err == nil {
				row.Email, row.Username = u.Email, u.Username
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *fakeAssignmentStore) ClaimDueSoon(ctx context.Context, now, until time.Time, limit int) ([]model.DueAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DueAssignment
	for k, a := range s.rows {
		if len(out) == limit {
			break
		}
		if !a.IsActive || a.DueDate == nil || s.reminded[k] || s.completed[k] {
			continue
		}
		if !a.DueDate.After(now) || a.DueDate.After(until) {
			continue
		}
		q, err := s.quizzes.GetByID(ctx, a.QuizID)
		if err != nil || !q.IsPublished {
			continue
		}
		s.reminded[k] = true
		out = append(out, model.DueAssignment{UserID: a.UserID, QuizID: a.QuizID, QuizTitle: q.Title, DueDate: *a.DueDate})
	}
	return out, nil
}

type fakeAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.Attempt
	answers  map[uuid.UUID][]model.Answer
	results  map[uuid.UUID]*model.Result
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts: map[uuid.UUID]*model.Attempt{},
		answers:  map[uuid.UUID][]model.Answer{},
		results:  map[uuid.UUID]*model.Result{},
	}
}

func (s *fakeAttemptStore) CreateExclusive(_ context.Context, a *model.Attempt, maxAttempts *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, cur := range s.attempts {
		if cur.UserID != a.UserID || cur.QuizID != a.QuizID {
			continue
		}
		if cur.Status == model.AttemptStatusInProgress {
			return repository.ErrActiveAttemptExists
		}
		total++
	}
	if maxAttempts != nil && total >= *maxAttempts {
		return repository.ErrAttemptLimitReached
	}
	a.ID = uuid.New()
	a.Status = model.AttemptStatusInProgress
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}

func (s *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAttemptStore) ListByUser(_ context.Context, userID uuid.UUID, quizID *uuid.UUID) ([]model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID && (quizID == nil || a.QuizID == *quizID) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *fakeAttemptStore) UpsertAnswer(_ context.Context, ans *model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[ans.AttemptID]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Status == model.AttemptStatusSubmitted {
		return repository.ErrAlreadySubmitted
	}
	if ans.AnsweredAt.After(a.ExpiresAt) {
		return repository.ErrAttemptExpired
	}
	list := s.answers[ans.AttemptID]
	for i := range list {
		if list[i].QuestionID == ans.QuestionID {
			ans.ID = list[i].ID
			list[i] = *ans
			return nil
		}
	}
	ans.ID = uuid.New()
	s.answers[ans.AttemptID] = append(list, *ans)
	return nil
}

func (s *fakeAttemptStore) ListAnswers(_ context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Answer(nil), s.answers[attemptID]...), nil
}

func (s *fakeAttemptStore) Finalize(_ context.Context, attemptID uuid.UUID, grade repository.GradeFunc) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.IsSubmitted {
		return nil, repository.ErrAlreadySubmitted
	}
	locked := *a
	f, err := grade(&locked, append([]model.Answer(nil), s.answers[attemptID]...))
	if err != nil {
		return nil, err
	}
	s.answers[attemptID] = f.Graded

	res := f.Result
	res.ID = uuid.New()
	res.AttemptID, res.UserID, res.QuizID = a.ID, a.UserID, a.QuizID
	res.CreatedAt = f.SubmittedAt
	s.results[attemptID] = &res

	submittedAt, taken := f.SubmittedAt, f.TimeTakenSeconds
	a.IsSubmitted = true
	a.Status = model.AttemptStatusSubmitted
	a.SubmittedAt = &submittedAt
	a.TimeTakenSeconds = &taken
	cp := res
	return &cp, nil
}

func (s *fakeAttemptStore) ListExpired(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id, a := range s.attempts {
		if a.Status == model.AttemptStatusInProgress && a.ExpiresAt.Before(now) {
			out = append(out, id)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeAttemptStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []model.NotificationJob
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, job model.NotificationJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *fakeDispatcher) sent() []model.NotificationJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.NotificationJob(nil), d.jobs...)
}

var errQueueDown = errors.New("queue down")

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*model.User{}, tokens: map[string]*model.RefreshToken{}}
}

func (s *fakeUserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.users {
		if cur.Email == u.Email || cur.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) GetByLogin(_ context.Context, login string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) CreateRefreshToken(_ context.Context, t *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.New()
	cp := *t
	s.tokens[t.TokenHash] = &cp
	return nil
}

func (s *fakeUserStore) ConsumeRefreshToken(_ context.Context, hash string, now time.Time) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.IsRevoked || !t.ExpiresAt.After(now) {
		return nil, repository.ErrNotFound
	}
	t.IsRevoked = true
	cp := *t
	return &cp, nil
}

func (s *fakeUserStore) RevokeAllRefreshTokens(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (s *fakeUserStore) add(role model.Role) *model.User {
	u := &model.User{Email: uuid.NewString() + "@example.com", Username: uuid.NewString()[:8], Role: role, IsActive: true}
	_ = s.Create(context.Background(), u)
	return u
}

type fakeResultStore struct {
	mu       sync.Mutex
	results  []model.Result
	lbCalls  int
	syncRows int64
}

func (s *fakeResultStore) GetByAttempt(_ context.Context, attemptID uuid.UUID) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.AttemptID == attemptID {
			cp := r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeResultStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Result
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeResultStore) ListByQuiz(_ context.Context, quizID uuid.UUID) ([]model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Result
	for _, r := range s.results {
		if r.QuizID == quizID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeResultStore) Leaderboard(_ context.Context, quizID *uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lbCalls++
	var rows []model.Result
	for _, r := range s.results {
		if quizID == nil || r.QuizID == *quizID {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]model.LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		out = append(out, model.LeaderboardEntry{
			Rank: i + 1, UserID: r.UserID, QuizID: r.QuizID, Score: r.Score,
			TotalPoints: r.TotalPoints, Percentage: r.Percentage, CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (s *fakeResultStore) SyncRanks(context.Context) (int64, error) {
	return s.syncRows, nil
}

type fakeNotificationStore struct {
	mu    sync.Mutex
	items []*model.Notification
}

func (s *fakeNotificationStore) Create(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uuid.New()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	s.items = append(s.items, &cp)
	return nil
}

func (s *fakeNotificationStore) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, *n)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id, userID uuid.UUID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			n.ReadAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c int64
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			c++
		}
	}
	return c, nil
}

func (s *fakeNotificationStore) Delete(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.items {
		if n.ID == id && n.UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *fakeNotificationStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	var c int64
	for _, n := range s.items {
		if n.CreatedAt.Before(cutoff) {
			c++
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	return c, nil
}
