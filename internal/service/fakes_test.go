package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// =========================================================================
// FAKE REPOSITORY
// =========================================================================
//
// fakeRepo is an in-memory implementation of every repository interface,
// mirroring how the real sqlite.DB implements them all on one type. The
// services under test don't know or care which one they get — that is the
// point of programming to the interfaces.
//
// forcedErr lets a test simulate a storage failure on every call.

type fakeRepo struct {
	users     map[string]*model.User
	posts     map[string]*model.Post
	comments  map[string]*model.Comment
	likes     []model.Like
	follows   []model.Follow
	nextID    int
	forcedErr error
}

var (
	_ repository.UserRepository    = (*fakeRepo)(nil)
	_ repository.PostRepository    = (*fakeRepo)(nil)
	_ repository.CommentRepository = (*fakeRepo)(nil)
	_ repository.LikeRepository    = (*fakeRepo)(nil)
	_ repository.FollowRepository  = (*fakeRepo)(nil)
)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[string]*model.User),
		posts:    make(map[string]*model.Post),
		comments: make(map[string]*model.Comment),
	}
}

func (f *fakeRepo) genID() string {
	f.nextID++
	return fmt.Sprintf("fake-%d", f.nextID)
}

// --- UserRepository ---

func (f *fakeRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	user.ID = f.genID()
	if user.Date.IsZero() {
		user.Date = time.Now()
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	user, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	result := *user
	return &result, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	for _, user := range f.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("User")
}

func (f *fakeRepo) UserExists(_ context.Context, id string) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	for _, user := range f.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) EmailExists(_ context.Context, email string) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	for _, user := range f.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) SearchIDsByUsername(_ context.Context, substr string) ([]string, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	var ids []string
	for _, user := range f.users {
		if strings.Contains(strings.ToLower(user.Username), strings.ToLower(substr)) {
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}

func (f *fakeRepo) setUserField(id string, set func(*model.User)) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	user, ok := f.users[id]
	if !ok {
		return apperror.NotFound("User")
	}
	set(user)
	return nil
}

func (f *fakeRepo) SetEmail(_ context.Context, id, email string) error {
	return f.setUserField(id, func(u *model.User) { u.Email = email })
}

func (f *fakeRepo) SetUsername(_ context.Context, id, username string) error {
	return f.setUserField(id, func(u *model.User) { u.Username = username })
}

func (f *fakeRepo) SetDescription(_ context.Context, id, description string) error {
	return f.setUserField(id, func(u *model.User) { u.Description = description })
}

func (f *fakeRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	return f.setUserField(id, func(u *model.User) { u.PasswordHash = hash })
}

func (f *fakeRepo) SetProfilePic(_ context.Context, id, profilePic string) error {
	return f.setUserField(id, func(u *model.User) { u.ProfilePic = profilePic })
}

// --- PostRepository ---

func (f *fakeRepo) CreatePost(_ context.Context, post *model.Post, media *model.Media) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	post.ID = f.genID()
	if post.Date.IsZero() {
		post.Date = time.Now()
	}
	if media != nil {
		media.ID = f.genID()
		post.MediaID = media.ID
		stored := *media
		post.Media = &stored
	}
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakeRepo) populatePost(p *model.Post) model.Post {
	result := *p
	if user, ok := f.users[p.UserID]; ok {
		result.User = user.Ref()
	}
	return result
}

func (f *fakeRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	post, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("Post")
	}
	result := f.populatePost(post)
	return &result, nil
}

func (f *fakeRepo) PostExists(_ context.Context, id string) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	_, ok := f.posts[id]
	return ok, nil
}

// listWhere pages the posts matching keep, newest first.
func (f *fakeRepo) listWhere(page repository.Page, keep func(*model.Post) bool) []model.Post {
	result := []model.Post{}
	for _, p := range f.posts {
		if p.Date.Before(page.MaxDate) && keep(p) {
			result = append(result, f.populatePost(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	if page.Limit > 0 && len(result) > page.Limit {
		result = result[:page.Limit]
	}
	return result
}

func (f *fakeRepo) ListPosts(_ context.Context, page repository.Page) ([]model.Post, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	return f.listWhere(page, func(*model.Post) bool { return true }), nil
}

func (f *fakeRepo) ListPostsByAuthors(_ context.Context, authorIDs []string, page repository.Page) ([]model.Post, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	allowed := map[string]bool{}
	for _, id := range authorIDs {
		allowed[id] = true
	}
	return f.listWhere(page, func(p *model.Post) bool { return allowed[p.UserID] }), nil
}

func (f *fakeRepo) ListPostsByIDs(_ context.Context, ids []string, page repository.Page) ([]model.Post, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	allowed := map[string]bool{}
	for _, id := range ids {
		allowed[id] = true
	}
	return f.listWhere(page, func(p *model.Post) bool { return allowed[p.ID] }), nil
}

func (f *fakeRepo) ListPostsInRange(_ context.Context, start, end time.Time, page repository.Page) ([]model.Post, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	return f.listWhere(page, func(p *model.Post) bool {
		return !p.Date.Before(start) && p.Date.Before(end)
	}), nil
}

func (f *fakeRepo) ApplyPostLikeDelta(_ context.Context, postID, userID string, delta int) (int, error) {
	if f.forcedErr != nil {
		return 0, f.forcedErr
	}
	post, ok := f.posts[postID]
	if !ok {
		return 0, apperror.NotFound("Post")
	}
	if post.Likes+delta < 0 {
		return 0, apperror.ValidationFailed("like", "Can't unlike a post with 0 likes")
	}
	post.Likes += delta
	f.setLiked(model.ContentPost, userID, postID, delta > 0)
	return post.Likes, nil
}

func (f *fakeRepo) DeletePost(_ context.Context, id string) (*model.Post, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	post, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("Post")
	}
	result := f.populatePost(post)
	delete(f.posts, id)
	for cid, c := range f.comments {
		if c.PostID == id {
			f.removeLikes(model.ContentComment, cid)
			delete(f.comments, cid)
		}
	}
	f.removeLikes(model.ContentPost, id)
	return &result, nil
}

// --- CommentRepository ---

func (f *fakeRepo) CreateComment(_ context.Context, comment *model.Comment) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	comment.ID = f.genID()
	if comment.Date.IsZero() {
		comment.Date = time.Now()
	}
	stored := *comment
	f.comments[comment.ID] = &stored
	if post, ok := f.posts[comment.PostID]; ok {
		post.NumberOfComments++
	}
	return nil
}

func (f *fakeRepo) GetCommentByID(_ context.Context, id string) (*model.Comment, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	comment, ok := f.comments[id]
	if !ok {
		return nil, apperror.NotFound("Comment")
	}
	result := *comment
	if user, ok := f.users[comment.UserID]; ok {
		result.User = user.Ref()
	}
	return &result, nil
}

func (f *fakeRepo) ListCommentsByPost(_ context.Context, postID string, page repository.Page) ([]model.Comment, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	result := []model.Comment{}
	for _, c := range f.comments {
		if c.PostID == postID && c.Date.Before(page.MaxDate) {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	if page.Limit > 0 && len(result) > page.Limit {
		result = result[:page.Limit]
	}
	return result, nil
}

func (f *fakeRepo) ApplyCommentLikeDelta(_ context.Context, commentID, userID string, delta int) (int, error) {
	if f.forcedErr != nil {
		return 0, f.forcedErr
	}
	comment, ok := f.comments[commentID]
	if !ok {
		return 0, apperror.NotFound("Comment")
	}
	if comment.Likes+delta < 0 {
		return 0, apperror.ValidationFailed("like", "Can't unlike a comment with 0 likes")
	}
	comment.Likes += delta
	f.setLiked(model.ContentComment, userID, commentID, delta > 0)
	return comment.Likes, nil
}

func (f *fakeRepo) DeleteComment(_ context.Context, id string) (*model.Comment, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	comment, ok := f.comments[id]
	if !ok {
		return nil, apperror.NotFound("Comment")
	}
	result := *comment
	delete(f.comments, id)
	f.removeLikes(model.ContentComment, id)
	if post, ok := f.posts[comment.PostID]; ok && post.NumberOfComments > 0 {
		post.NumberOfComments--
	}
	return &result, nil
}

// --- LikeRepository ---

func (f *fakeRepo) setLiked(kind model.ContentKind, userID, contentID string, liked bool) {
	if liked {
		f.likes = append(f.likes, model.Like{
			ID: f.genID(), Content: kind, UserID: userID, ContentID: contentID,
		})
		return
	}
	kept := f.likes[:0]
	for _, l := range f.likes {
		if !(l.Content == kind && l.UserID == userID && l.ContentID == contentID) {
			kept = append(kept, l)
		}
	}
	f.likes = kept
}

func (f *fakeRepo) removeLikes(kind model.ContentKind, contentID string) {
	kept := f.likes[:0]
	for _, l := range f.likes {
		if !(l.Content == kind && l.ContentID == contentID) {
			kept = append(kept, l)
		}
	}
	f.likes = kept
}

func (f *fakeRepo) LikeExists(_ context.Context, kind model.ContentKind, userID, contentID string) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	for _, l := range f.likes {
		if l.Content == kind && l.UserID == userID && l.ContentID == contentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) LikedContentIDs(_ context.Context, kind model.ContentKind, userID string) ([]string, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	var ids []string
	for _, l := range f.likes {
		if l.Content == kind && l.UserID == userID {
			ids = append(ids, l.ContentID)
		}
	}
	return ids, nil
}

// --- FollowRepository ---

func (f *fakeRepo) CreateFollowPair(_ context.Context, userID, targetID string, now time.Time) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	f.follows = append(f.follows,
		model.Follow{ID: f.genID(), UserID: userID, Type: model.FollowFollowing, FollowUser: targetID, Date: now},
		model.Follow{ID: f.genID(), UserID: targetID, Type: model.FollowFollowedBy, FollowUser: userID, Date: now},
	)
	return nil
}

func (f *fakeRepo) DeleteFollowPair(_ context.Context, userID, targetID string) error {
	if f.forcedErr != nil {
		return f.forcedErr
	}
	kept := f.follows[:0]
	for _, fl := range f.follows {
		following := fl.UserID == userID && fl.Type == model.FollowFollowing && fl.FollowUser == targetID
		followedBy := fl.UserID == targetID && fl.Type == model.FollowFollowedBy && fl.FollowUser == userID
		if !following && !followedBy {
			kept = append(kept, fl)
		}
	}
	f.follows = kept
	return nil
}

func (f *fakeRepo) listFollowEntries(userID string, ft model.FollowType, page repository.Page) []model.FollowEntry {
	entries := []model.FollowEntry{}
	for _, fl := range f.follows {
		if fl.UserID == userID && fl.Type == ft && fl.Date.Before(page.MaxDate) {
			entry := model.FollowEntry{ID: fl.FollowUser, Date: fl.Date}
			if user, ok := f.users[fl.FollowUser]; ok {
				entry.Username = user.Username
				entry.ProfilePic = user.ProfilePic
			}
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	if page.Limit > 0 && len(entries) > page.Limit {
		entries = entries[:page.Limit]
	}
	return entries
}

func (f *fakeRepo) Following(_ context.Context, userID string, page repository.Page) ([]model.FollowEntry, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	return f.listFollowEntries(userID, model.FollowFollowing, page), nil
}

func (f *fakeRepo) Followers(_ context.Context, userID string, page repository.Page) ([]model.FollowEntry, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	return f.listFollowEntries(userID, model.FollowFollowedBy, page), nil
}

func (f *fakeRepo) FollowingIDs(_ context.Context, userID string) ([]string, error) {
	if f.forcedErr != nil {
		return nil, f.forcedErr
	}
	var ids []string
	for _, fl := range f.follows {
		if fl.UserID == userID && fl.Type == model.FollowFollowing {
			ids = append(ids, fl.FollowUser)
		}
	}
	return ids, nil
}

func (f *fakeRepo) IsFollowing(_ context.Context, userID, targetID string) (bool, error) {
	if f.forcedErr != nil {
		return false, f.forcedErr
	}
	for _, fl := range f.follows {
		if fl.UserID == userID && fl.Type == model.FollowFollowing && fl.FollowUser == targetID {
			return true, nil
		}
	}
	return false, nil
}

// =========================================================================
// SHARED TEST HELPERS
// =========================================================================

// testLogger discards output — service logging is not under test here.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func addUser(t *testing.T, repo *fakeRepo, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "stored-hash",
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func addPost(t *testing.T, repo *fakeRepo, userID, text string, date time.Time) *model.Post {
	t.Helper()
	post := &model.Post{UserID: userID, Text: text, Date: date}
	if err := repo.CreatePost(context.Background(), post, nil); err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}
	return post
}

func widePage() repository.Page {
	return repository.Page{MaxDate: time.Now().Add(time.Hour), Limit: 100}
}
