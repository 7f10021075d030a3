package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/speaker-scheduler/internal/persistence"
	"github.com/example/speaker-scheduler/internal/scheduler"
)

var (
	adminPrincipal   = Principal{UserID: "admin-1", Role: RoleAdmin, Status: StatusActive, DisplayName: "Admin"}
	userPrincipal    = Principal{UserID: "user-1", Role: RoleUser, Status: StatusActive, DisplayName: "Mario Rossi"}
	otherPrincipal   = Principal{UserID: "user-2", Role: RoleUser, Status: StatusActive, DisplayName: "Luca Bianchi"}
	pendingPrincipal = Principal{UserID: "pending-1", Role: RolePending, Status: StatusActive}
)

func fixedClock() time.Time {
	return time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)
}

func sequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

type titleStub map[int]string

func (t titleStub) Title(number int) (string, bool) {
	title, ok := t[number]
	return title, ok
}

type speakerRepoStub struct {
	mu       sync.Mutex
	speakers map[string]Speaker
	err      error
}

func newSpeakerRepoStub(speakers ...Speaker) *speakerRepoStub {
	repo := &speakerRepoStub{speakers: map[string]Speaker{}}
	for _, sp := range speakers {
		repo.speakers[sp.ID] = sp
	}
	return repo
}

func (r *speakerRepoStub) CreateSpeaker(_ context.Context, speaker Speaker) (Speaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Speaker{}, r.err
	}
	if _, exists := r.speakers[speaker.ID]; exists {
		return Speaker{}, persistence.ErrDuplicate
	}
	r.speakers[speaker.ID] = speaker
	return speaker, nil
}

func (r *speakerRepoStub) UpdateSpeaker(_ context.Context, speaker Speaker) (Speaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.speakers[speaker.ID]; !exists {
		return Speaker{}, persistence.ErrNotFound
	}
	r.speakers[speaker.ID] = speaker
	return speaker, nil
}

func (r *speakerRepoStub) GetSpeaker(_ context.Context, id string) (Speaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Speaker{}, r.err
	}
	speaker, ok := r.speakers[id]
	if !ok {
		return Speaker{}, persistence.ErrNotFound
	}
	return speaker, nil
}

func (r *speakerRepoStub) ListSpeakers(_ context.Context, filter SpeakerFilter) ([]Speaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Speaker, 0, len(r.speakers))
	for _, sp := range r.speakers {
		if !containsFold(sp.FamilyName, filter.FamilyName) || !containsFold(sp.GivenName, filter.GivenName) {
			continue
		}
		if !containsFold(sp.Congregation, filter.Congregation) || !containsFold(derefString(sp.Locality), filter.Locality) {
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

func (r *speakerRepoStub) DeleteSpeaker(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.speakers[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.speakers, id)
	return nil
}

func containsFold(value, needle string) bool {
	return needle == "" || strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}

// programRepoStub enforces the unique (speaker, date) pair like the store does.
type programRepoStub struct {
	mu       sync.Mutex
	programs map[string]Program
	// speakerListBarrier, when set, holds speaker-scoped listings until every
	// expected caller has read its snapshot.
	speakerListBarrier *sync.WaitGroup
	listCalls          []ProgramFilter
}

func newProgramRepoStub(programs ...Program) *programRepoStub {
	repo := &programRepoStub{programs: map[string]Program{}}
	for _, p := range programs {
		repo.programs[p.ID] = p
	}
	return repo
}

func (r *programRepoStub) CreateProgram(_ context.Context, program Program) (Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if program.ID == "" || program.OwnerID == "" || program.SpeakerID == "" {
		return Program{}, persistence.ErrConstraintViolation
	}
	if err := r.checkUnique(program); err != nil {
		return Program{}, err
	}
	program.Speaker = nil
	r.programs[program.ID] = program
	return program, nil
}

func (r *programRepoStub) UpdateProgram(_ context.Context, program Program) (Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[program.ID]; !ok {
		return Program{}, persistence.ErrNotFound
	}
	if err := r.checkUnique(program); err != nil {
		return Program{}, err
	}
	program.Speaker = nil
	r.programs[program.ID] = program
	return program, nil
}

func (r *programRepoStub) checkUnique(program Program) error {
	for _, existing := range r.programs {
		if existing.ID != program.ID && existing.SpeakerID == program.SpeakerID && existing.Date == program.Date {
			return persistence.ErrDuplicate
		}
	}
	return nil
}

func (r *programRepoStub) GetProgram(_ context.Context, id string) (Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	program, ok := r.programs[id]
	if !ok {
		return Program{}, persistence.ErrNotFound
	}
	return program, nil
}

func (r *programRepoStub) ListPrograms(_ context.Context, filter ProgramFilter) ([]Program, error) {
	r.mu.Lock()
	r.listCalls = append(r.listCalls, filter)
	out := make([]Program, 0, len(r.programs))
	for _, p := range r.programs {
		if filter.OwnerID != "" && p.OwnerID != filter.OwnerID {
			continue
		}
		if filter.SpeakerID != "" && p.SpeakerID != filter.SpeakerID {
			continue
		}
		if filter.Date != "" && p.Date.String() != filter.Date {
			continue
		}
		out = append(out, p)
	}
	barrier := r.speakerListBarrier
	r.mu.Unlock()

	if barrier != nil && filter.SpeakerID != "" {
		barrier.Done()
		barrier.Wait()
	}
	return out, nil
}

func (r *programRepoStub) DeleteProgram(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.programs, id)
	return nil
}

func (r *programRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.programs)
}

type congregationRepoStub struct {
	mu            sync.Mutex
	congregations map[string]Congregation
}

func newCongregationRepoStub(congregations ...Congregation) *congregationRepoStub {
	repo := &congregationRepoStub{congregations: map[string]Congregation{}}
	for _, c := range congregations {
		repo.congregations[c.ID] = c
	}
	return repo
}

func (r *congregationRepoStub) CreateCongregation(_ context.Context, congregation Congregation) (Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	congregation.Responsible = nil
	r.congregations[congregation.ID] = congregation
	return congregation, nil
}

func (r *congregationRepoStub) UpdateCongregation(_ context.Context, congregation Congregation) (Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.congregations[congregation.ID]; !ok {
		return Congregation{}, persistence.ErrNotFound
	}
	congregation.Responsible = nil
	r.congregations[congregation.ID] = congregation
	return congregation, nil
}

func (r *congregationRepoStub) GetCongregation(_ context.Context, id string) (Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.congregations[id]
	if !ok {
		return Congregation{}, persistence.ErrNotFound
	}
	return c, nil
}

func (r *congregationRepoStub) GetCongregationByName(_ context.Context, name string) (Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.congregations {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Congregation{}, persistence.ErrNotFound
}

func (r *congregationRepoStub) ListCongregations(context.Context) ([]Congregation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Congregation, 0, len(r.congregations))
	for _, c := range r.congregations {
		out = append(out, c)
	}
	return out, nil
}

func (r *congregationRepoStub) DeleteCongregation(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.congregations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.congregations, id)
	return nil
}

type userRepoStub struct {
	mu          sync.Mutex
	users       map[string]User
	hashes      map[string]string
	createErr   error
	lastFilter  UserFilter
	updateCalls int
}

func newUserRepoStub(users ...User) *userRepoStub {
	repo := &userRepoStub{users: map[string]User{}, hashes: map[string]string{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *userRepoStub) CreateUser(_ context.Context, credentials UserCredentials) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return User{}, r.createErr
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, credentials.User.Email) {
			return User{}, persistence.ErrDuplicate
		}
	}
	r.users[credentials.User.ID] = credentials.User
	r.hashes[credentials.User.ID] = credentials.PasswordHash
	return credentials.User, nil
}

func (r *userRepoStub) GetUser(_ context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return u, nil
}

func (r *userRepoStub) GetUserBySpeaker(_ context.Context, speakerID string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.SpeakerID != nil && *u.SpeakerID == speakerID {
			return u, nil
		}
	}
	return User{}, persistence.ErrNotFound
}

func (r *userRepoStub) UpdateUser(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return User{}, persistence.ErrNotFound
	}
	r.updateCalls++
	user.Speaker = nil
	r.users[user.ID] = user
	return user, nil
}

func (r *userRepoStub) ListUsers(_ context.Context, filter UserFilter) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *userRepoStub) GetUserCredentialsByEmail(_ context.Context, email string) (UserCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return UserCredentials{User: u, PasswordHash: r.hashes[id]}, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

type notifierStub struct {
	mu        sync.Mutex
	requested []string
	approved  []string
	rejected  map[string]string
	err       error
}

func (n *notifierStub) ApprovalRequested(_ context.Context, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requested = append(n.requested, email)
	return n.err
}

func (n *notifierStub) Approved(_ context.Context, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, email)
	return n.err
}

func (n *notifierStub) Rejected(_ context.Context, email, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rejected == nil {
		n.rejected = map[string]string{}
	}
	n.rejected[email] = reason
	return n.err
}

type distanceStub struct {
	from      string
	distances map[string]*int
}

func (d *distanceStub) Distances(_ context.Context, from string, targets map[string]string) map[string]*int {
	d.from = from
	out := make(map[string]*int, len(targets))
	for id := range targets {
		out[id] = d.distances[id]
	}
	return out
}

type tokenStub struct {
	issued   []string
	parseErr error
	subject  string
}

func (t *tokenStub) Issue(userID string) (string, time.Time, error) {
	t.issued = append(t.issued, userID)
	return "token-" + userID, fixedClock().Add(time.Hour), nil
}

func (t *tokenStub) Parse(token string) (string, error) {
	if t.parseErr != nil {
		return "", t.parseErr
	}
	if t.subject != "" {
		return t.subject, nil
	}
	return strings.TrimPrefix(token, "token-"), nil
}

func plainVerifier(hashed, password string) error {
	if hashed != password {
		return ErrInvalidCredentials
	}
	return nil
}

func mustDate(value string) scheduler.Date {
	return scheduler.MustParseDate(value)
}

var errBoom = errors.New("boom")
