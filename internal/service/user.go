package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

const maxDescriptionLength = 3000

// UserService handles profiles, the follow toggle, and the liked/following
// lookups.
type UserService struct {
	users     repository.UserRepository
	follows   repository.FollowRepository
	likes     repository.LikeRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	likes repository.LikeRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		follows:   follows,
		likes:     likes,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Get returns a user by id. The handler decides which fields go on the wire
// (the public profile exposes less than /me does).
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// Following lists who the user follows; Followers lists who follows them.
// Both 404 when the subject user doesn't exist.
func (s *UserService) Following(ctx context.Context, userID string, page repository.Page) ([]model.FollowEntry, error) {
	if err := s.requireUserExists(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.Following(ctx, userID, page)
}

func (s *UserService) Followers(ctx context.Context, userID string, page repository.Page) ([]model.FollowEntry, error) {
	if err := s.requireUserExists(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.Followers(ctx, userID, page)
}

func (s *UserService) requireUserExists(ctx context.Context, id string) error {
	exists, err := s.users.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NotFound("User")
	}
	return nil
}

// CheckLiked reports whether the caller has liked the given content.
// contentType comes straight off the query string and must name one of the
// two kinds.
func (s *UserService) CheckLiked(ctx context.Context, userID, contentID, contentType string) (bool, error) {
	kind := model.ContentKind(contentType)
	if !kind.Valid() {
		return false, apperror.ValidationFailed("type", `Specify "type=comment" or "type=post" in query`)
	}
	return s.likes.LikeExists(ctx, kind, userID, contentID)
}

// CheckFollowing reports whether the caller follows the given user.
func (s *UserService) CheckFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	return s.follows.IsFollowing(ctx, userID, targetID)
}

// FollowChange is the `following` payload of a profile update: the target
// user and the desired state. Follow is a pointer so "field absent or not a
// bool" is distinguishable from false.
type FollowChange struct {
	ID     string `json:"id"`
	Follow *bool  `json:"follow"`
}

// ProfileUpdate carries at most the one field a PATCH /users/me request sets.
// Pointers distinguish "absent" from "set to empty".
type ProfileUpdate struct {
	Email       *string       `json:"email"`
	Username    *string       `json:"username"`
	Description *string       `json:"description"`
	Password    *string       `json:"password"`
	ProfilePic  *string       `json:"profilePic"`
	Following   *FollowChange `json:"following"`
}

// UpdateResult is what a successful profile update hands back to the
// handler: the response body text and a fresh token (the token payload
// embeds username/email, so any profile change invalidates the old one).
type UpdateResult struct {
	Value string
	Token string
}

// UpdateProfile applies exactly one field of the update, chosen by fixed
// precedence: email, username, description, password, profilePic, following.
// A request carrying several fields silently updates only the first; a
// request carrying none is rejected.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*UpdateResult, error) {
	var (
		value string
		err   error
	)

	switch {
	case upd.Email != nil:
		value, err = s.updateEmail(ctx, userID, *upd.Email)
	case upd.Username != nil:
		value, err = s.updateUsername(ctx, userID, *upd.Username)
	case upd.Description != nil:
		value, err = s.updateDescription(ctx, userID, *upd.Description)
	case upd.Password != nil:
		value, err = s.updatePassword(ctx, userID, *upd.Password)
	case upd.ProfilePic != nil:
		value, err = s.updateProfilePic(ctx, userID, *upd.ProfilePic)
	case upd.Following != nil:
		value, err = s.updateFollowing(ctx, userID, *upd.Following)
	default:
		return nil, apperror.ValidationFailed("", "No data given to update")
	}
	if err != nil {
		return nil, err
	}

	// Reissue the token from the (possibly changed) stored profile.
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Generate(auth.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))

	return &UpdateResult{Value: value, Token: token}, nil
}

func (s *UserService) updateEmail(ctx context.Context, userID, email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Email == email {
		return "", apperror.Conflict("New email should not be the same as old")
	}

	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperror.Conflict("Email already taken")
	}

	if err := s.users.SetEmail(ctx, userID, email); err != nil {
		return "", err
	}
	return email, nil
}

func (s *UserService) updateUsername(ctx context.Context, userID, username string) (string, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Username == username {
		return "", apperror.Conflict("New username should not be the same as old")
	}

	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperror.Conflict("Username already taken")
	}

	if err := s.users.SetUsername(ctx, userID, username); err != nil {
		return "", err
	}
	return username, nil
}

func (s *UserService) updateDescription(ctx context.Context, userID, description string) (string, error) {
	description = strings.TrimSpace(description)
	// Empty is fine: clearing the description is a valid update.
	if len(description) > maxDescriptionLength {
		return "", apperror.ValidationFailed("description",
			fmt.Sprintf(`"description" length must be less than or equal to %d characters long`, maxDescriptionLength))
	}

	if err := s.users.SetDescription(ctx, userID, description); err != nil {
		return "", err
	}
	return description, nil
}

func (s *UserService) updatePassword(ctx context.Context, userID, password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	// Re-submitting the current password is a no-op; reject it like the
	// other no-op updates.
	if s.passwords.Verify(user.PasswordHash, password) == nil {
		return "", apperror.Conflict("New password should not be same as old")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return "", err
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		return "", err
	}
	// Never echo anything password-shaped back.
	return "Password Changed", nil
}

func (s *UserService) updateProfilePic(ctx context.Context, userID, profilePic string) (string, error) {
	if profilePic == "" {
		return "", apperror.ValidationFailed("profilePic", `"profilePic" is not allowed to be empty`)
	}

	if err := s.users.SetProfilePic(ctx, userID, profilePic); err != nil {
		return "", err
	}
	return profilePic, nil
}

func (s *UserService) updateFollowing(ctx context.Context, userID string, change FollowChange) (string, error) {
	exists, err := s.users.UserExists(ctx, change.ID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperror.ValidationFailed("following", "Cannot follow/unfollow a user that doesn't exist")
	}

	if change.Follow == nil {
		return "", apperror.ValidationFailed("following", `"following" must be true or false`)
	}

	if *change.Follow {
		if err := s.follows.CreateFollowPair(ctx, userID, change.ID, time.Now()); err != nil {
			return "", err
		}
		return "Following", nil
	}

	if err := s.follows.DeleteFollowPair(ctx, userID, change.ID); err != nil {
		return "", err
	}
	return "Unfollowed", nil
}
