package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rkoval/postwave/internal/models"
)

// memPostStore implements PostStore in memory with the same selection
// semantics as the gorm-backed store.
type memPostStore struct {
	posts map[uint]*models.ScheduledPost
}

func newMemPostStore(posts ...*models.ScheduledPost) *memPostStore {
	s := &memPostStore{posts: make(map[uint]*models.ScheduledPost)}
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	return s
}

func (s *memPostStore) FindDue(ctx context.Context, now time.Time) ([]models.ScheduledPost, error) {
	var due []models.ScheduledPost
	for _, p := range s.posts {
		if p.Status == models.PostStatusScheduled && !p.ScheduledAt.After(now) {
			due = append(due, *p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	return due, nil
}

func (s *memPostStore) MarkPosted(ctx context.Context, postID uint, remotePostID string, results models.AccountResults) error {
	p := s.posts[postID]
	now := time.Now()
	p.Status = models.PostStatusPosted
	p.LinkedInPostID = remotePostID
	p.PostedAt = &now
	p.ErrorMessage = ""
	if results != nil {
		p.PostedAccounts = results
	}
	return nil
}

func (s *memPostStore) MarkFailed(ctx context.Context, postID uint, message string, results models.AccountResults) error {
	p := s.posts[postID]
	p.Status = models.PostStatusFailed
	p.ErrorMessage = message
	if results != nil {
		p.PostedAccounts = results
	}
	return nil
}

func (s *memPostStore) Requeue(ctx context.Context, postID uint, attempts int, message string) error {
	p := s.posts[postID]
	p.Attempts = attempts
	p.ErrorMessage = message
	return nil
}

// memAccountStore implements AccountStore in memory.
type memAccountStore struct {
	accounts map[string]*models.LinkedInAccount
	users    map[string]*models.User
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{
		accounts: make(map[string]*models.LinkedInAccount),
		users:    make(map[string]*models.User),
	}
}

func (s *memAccountStore) addAccount(a *models.LinkedInAccount) {
	s.accounts[a.ID] = a
}

func (s *memAccountStore) addUser(u *models.User) {
	s.users[u.ClerkID] = u
}

func (s *memAccountStore) FindByID(ctx context.Context, accountID string) (*models.LinkedInAccount, error) {
	return s.accounts[accountID], nil
}

func (s *memAccountStore) FindActiveByIDs(ctx context.Context, accountIDs []string) ([]models.LinkedInAccount, error) {
	var out []models.LinkedInAccount
	for _, id := range accountIDs {
		if a, ok := s.accounts[id]; ok && a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memAccountStore) FindDefault(ctx context.Context, userID string) (*models.LinkedInAccount, error) {
	for _, a := range s.accounts {
		if a.UserID == userID && a.IsDefault && a.IsActive {
			return a, nil
		}
	}
	return nil, nil
}

func (s *memAccountStore) FindAnyActive(ctx context.Context, userID string) (*models.LinkedInAccount, error) {
	var ids []string
	for id, a := range s.accounts {
		if a.UserID == userID && a.IsActive {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	return s.accounts[ids[0]], nil
}

func (s *memAccountStore) FindAllActive(ctx context.Context, userID string) ([]models.LinkedInAccount, error) {
	var out []models.LinkedInAccount
	for _, a := range s.accounts {
		if a.UserID == userID && a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memAccountStore) SetDefault(ctx context.Context, userID, accountID string) error {
	for _, a := range s.accounts {
		if a.UserID == userID {
			a.IsDefault = a.ID == accountID
		}
	}
	return nil
}

func (s *memAccountStore) Deactivate(ctx context.Context, accountID string) error {
	a := s.accounts[accountID]
	a.IsActive = false
	a.IsDefault = false
	a.MemberURN = ""
	return nil
}

func (s *memAccountStore) SaveMemberURN(ctx context.Context, accountID, urn string) error {
	s.accounts[accountID].MemberURN = urn
	return nil
}

func (s *memAccountStore) ClearMemberURN(ctx context.Context, accountID string) error {
	s.accounts[accountID].MemberURN = ""
	return nil
}

func (s *memAccountStore) FindUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users[userID], nil
}

func (s *memAccountStore) DisconnectLegacy(ctx context.Context, userID string) error {
	u := s.users[userID]
	u.IsLinkedInConnected = false
	u.LinkedInMemberURN = ""
	return nil
}

func (s *memAccountStore) SaveLegacyMemberURN(ctx context.Context, userID, urn string) error {
	s.users[userID].LinkedInMemberURN = urn
	return nil
}

func (s *memAccountStore) ClearLegacyMemberURN(ctx context.Context, userID string) error {
	s.users[userID].LinkedInMemberURN = ""
	return nil
}

// memFileStore serves image bytes from a map keyed by reference.
type memFileStore struct {
	files map[string][]byte
}

func (s *memFileStore) ReadImage(ref string) ([]byte, string, error) {
	data, ok := s.files[ref]
	if !ok {
		return nil, "", fmt.Errorf("failed to read image %s: file not found", ref)
	}
	return data, "image/png", nil
}

type uploadCall struct {
	token    string
	ownerURN string
	size     int
}

type postCall struct {
	token    string
	author   string
	text     string
	assetURN string
}

// fakeClient stands in for the LinkedIn API. Failures are injected per access
// token.
type fakeClient struct {
	memberURNs   map[string]string // access token -> URN
	memberErr    map[string]error
	uploadErr    map[string]error
	createErr    map[string]error
	uploads      []uploadCall
	posts        []postCall
	nextPostSeq  int
	nextAssetSeq int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		memberURNs: make(map[string]string),
		memberErr:  make(map[string]error),
		uploadErr:  make(map[string]error),
		createErr:  make(map[string]error),
	}
}

func (c *fakeClient) MemberURN(ctx context.Context, accessToken string) (string, error) {
	if err := c.memberErr[accessToken]; err != nil {
		return "", err
	}
	urn, ok := c.memberURNs[accessToken]
	if !ok {
		return "", fmt.Errorf("unknown access token")
	}
	return urn, nil
}

func (c *fakeClient) UploadImage(ctx context.Context, accessToken, ownerURN string, data []byte, contentType string) (string, error) {
	if err := c.uploadErr[accessToken]; err != nil {
		return "", err
	}
	c.uploads = append(c.uploads, uploadCall{token: accessToken, ownerURN: ownerURN, size: len(data)})
	c.nextAssetSeq++
	return fmt.Sprintf("urn:li:digitalmediaAsset:%d", c.nextAssetSeq), nil
}

func (c *fakeClient) CreatePost(ctx context.Context, accessToken, authorURN, text, assetURN string) (string, error) {
	if err := c.createErr[accessToken]; err != nil {
		return "", err
	}
	c.posts = append(c.posts, postCall{token: accessToken, author: authorURN, text: text, assetURN: assetURN})
	c.nextPostSeq++
	return fmt.Sprintf("urn:li:share:%d", c.nextPostSeq), nil
}

type recordedError struct {
	level   string
	source  string
	title   string
	message string
}

type fakeRecorder struct {
	entries []recordedError
}

func (r *fakeRecorder) RecordError(level, source, title, message string, options ...ErrorLogOption) error {
	r.entries = append(r.entries, recordedError{level: level, source: source, title: title, message: message})
	return nil
}
