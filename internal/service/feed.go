package service

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"waveline/internal/model"
	"waveline/internal/queue"
	"waveline/internal/state"
	"waveline/internal/store"
)

// FeedService implements the feed surface: the initial bulk load, post and
// comment mutations, like and follow toggles, and the in-memory searches
// that run against the loaded snapshot.
type FeedService struct {
	store     *store.Store
	state     *state.Store
	publisher *queue.Publisher // nil when the activity pipeline is not configured
}

func NewFeedService(st *store.Store, sn *state.Store, pub *queue.Publisher) *FeedService {
	return &FeedService{store: st, state: sn, publisher: pub}
}

// LoadAll runs the two initial queries concurrently, then fans out one like
// count and one comment count query per post. Either initial query failing
// aborts the whole load; the previous snapshot stays in place.
func (s *FeedService) LoadAll(ctx context.Context) error {
	start := time.Now()

	var users []model.User
	var posts []model.Post

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.store.Users.All(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.store.Posts.AllWithAuthors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("[Feed] LoadAll FAILED: err=%v", err)
		return err
	}

	if err := s.enrichCounts(ctx, posts); err != nil {
		log.Printf("[Feed] LoadAll counts FAILED: err=%v", err)
		return err
	}

	s.state.ReplaceAll(users, posts)
	log.Printf("[Feed] LoadAll OK: users=%d posts=%d duration=%v", len(users), len(posts), time.Since(start))
	return nil
}

// enrichCounts fills LikeCount and CommentCount on every post. Two queries
// per post; the two goroutines for one post write distinct fields.
func (s *FeedService) enrichCounts(ctx context.Context, posts []model.Post) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range posts {
		post := &posts[i]
		g.Go(func() error {
			n, err := s.store.Likes.CountForPost(gctx, post.ID)
			if err != nil {
				return err
			}
			post.LikeCount = n
			return nil
		})
		g.Go(func() error {
			n, err := s.store.Comments.CountForPost(gctx, post.ID)
			if err != nil {
				return err
			}
			post.CommentCount = n
			return nil
		})
	}
	return g.Wait()
}

// CreatePost inserts a post and prepends it to the snapshot. The author
// summary is filled from the acting user so no reload is needed.
func (s *FeedService) CreatePost(ctx context.Context, actor *model.User, content string) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxPostContentLength {
		return nil, model.ErrContentTooLong
	}

	post, err := s.store.Posts.Insert(ctx, actor.ID, content)
	if err != nil {
		return nil, err
	}

	post.Author = &model.UserSummary{
		ID:        actor.ID,
		Username:  actor.Username,
		AvatarURL: actor.AvatarURL,
		FullName:  actor.FullName,
	}
	s.state.PrependPost(*post)

	log.Printf("[Feed] CreatePost OK: post=%s user=%s", post.ID, actor.ID)
	return post, nil
}

// DeletePost removes the actor's own post from the backend and the snapshot.
func (s *FeedService) DeletePost(ctx context.Context, actor *model.User, postID string) error {
	ownerID, err := s.store.Posts.OwnerID(ctx, postID)
	if err != nil {
		return err
	}
	if ownerID != actor.ID {
		return model.ErrNotPostOwner
	}

	if err := s.store.Posts.Delete(ctx, postID); err != nil {
		return err
	}
	s.state.RemovePost(postID)

	log.Printf("[Feed] DeletePost OK: post=%s user=%s", postID, actor.ID)
	return nil
}

// ToggleLike flips the actor's like on a post and refreshes that post's
// like count in the snapshot. Returns whether the post is liked afterwards
// and the new count.
func (s *FeedService) ToggleLike(ctx context.Context, actor *model.User, postID string) (liked bool, count int, err error) {
	exists, err := s.store.Likes.Exists(ctx, postID, actor.ID)
	if err != nil {
		return false, 0, err
	}

	if exists {
		err = s.store.Likes.Delete(ctx, postID, actor.ID)
	} else {
		err = s.store.Likes.Insert(ctx, postID, actor.ID)
	}
	if err != nil {
		return false, 0, err
	}

	count, err = s.store.Likes.CountForPost(ctx, postID)
	if err != nil {
		return false, 0, err
	}
	s.state.SetLikeCount(postID, count)

	if !exists {
		s.publishForPost(ctx, postID, actor.ID, queue.NewPostLikedEvent)
	}
	return !exists, count, nil
}

// AddComment inserts a comment, refreshes the post's comment count in the
// snapshot, and returns the post's comments oldest first.
func (s *FeedService) AddComment(ctx context.Context, actor *model.User, postID, content string) ([]model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrCommentRequired
	}

	if err := s.store.Comments.Insert(ctx, postID, actor.ID, content); err != nil {
		return nil, err
	}

	count, err := s.store.Comments.CountForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.state.SetCommentCount(postID, count)

	s.publishForPost(ctx, postID, actor.ID, queue.NewPostCommentedEvent)

	return s.store.Comments.ForPost(ctx, postID)
}

// Comments returns a post's comments oldest first.
func (s *FeedService) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	return s.store.Comments.ForPost(ctx, postID)
}

// ToggleFollow flips the actor's follow on the target and refreshes the
// target's row in the snapshot. Returns whether the actor follows the
// target afterwards.
func (s *FeedService) ToggleFollow(ctx context.Context, actor *model.User, targetID string) (following bool, err error) {
	if targetID == actor.ID {
		return false, model.ErrCannotFollowSelf
	}

	exists, err := s.store.Follows.Exists(ctx, actor.ID, targetID)
	if err != nil {
		return false, err
	}

	if exists {
		err = s.store.Follows.Delete(ctx, actor.ID, targetID)
	} else {
		err = s.store.Follows.Insert(ctx, actor.ID, targetID)
	}
	if err != nil {
		return false, err
	}

	target, err := s.store.Users.GetByID(ctx, targetID)
	if err != nil {
		return false, err
	}
	s.state.UpsertUser(*target)

	if !exists && s.publisher != nil {
		event := queue.NewUserFollowedEvent(actor.ID, targetID)
		if perr := s.publisher.Publish(ctx, event); perr != nil {
			log.Printf("[Feed] publish follow event FAILED: err=%v", perr)
		}
	}
	return !exists, nil
}

// IsFollowing reports whether the actor currently follows the target.
func (s *FeedService) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	return s.store.Follows.Exists(ctx, actorID, targetID)
}

// UpdateProfile patches the actor's profile row and the snapshot, returning
// the updated user.
func (s *FeedService) UpdateProfile(ctx context.Context, actor *model.User, req model.UpdateProfileRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)

	if verr := ValidateUsername(username); verr != nil {
		return nil, verr
	}
	if fullName == "" {
		return nil, &ValidationError{Field: "full_name", Message: "Please fill in all required fields"}
	}

	fields := map[string]interface{}{
		"full_name":  fullName,
		"username":   username,
		"bio":        strings.TrimSpace(req.Bio),
		"avatar_url": strings.TrimSpace(req.AvatarURL),
	}
	if err := s.store.Users.Update(ctx, actor.ID, fields); err != nil {
		return nil, err
	}

	updated := *actor
	updated.Username = username
	updated.FullName = fullName
	updated.Bio = strings.TrimSpace(req.Bio)
	updated.AvatarURL = strings.TrimSpace(req.AvatarURL)
	s.state.UpsertUser(updated)

	log.Printf("[Feed] UpdateProfile OK: user=%s", actor.ID)
	return &updated, nil
}

// SearchUsers matches the query against usernames and full names in the
// loaded snapshot. No backend round trip.
func (s *FeedService) SearchUsers(query string) []model.User {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var results []model.User
	for _, u := range s.state.Users() {
		if strings.Contains(strings.ToLower(u.Username), query) ||
			strings.Contains(strings.ToLower(u.FullName), query) {
			results = append(results, u)
		}
	}
	return results
}

// SuggestedUsers returns up to limit users other than the actor, in
// snapshot order.
func (s *FeedService) SuggestedUsers(actorID string, limit int) []model.User {
	var results []model.User
	for _, u := range s.state.Users() {
		if u.ID == actorID {
			continue
		}
		results = append(results, u)
		if len(results) == limit {
			break
		}
	}
	return results
}

// publishForPost emits an activity event addressed to the post's owner. The
// owner is resolved from the snapshot; a post missing from it just skips
// the event.
func (s *FeedService) publishForPost(ctx context.Context, postID, actorID string, make func(postID, actorID, recipientID string) queue.ActivityEvent) {
	if s.publisher == nil {
		return
	}
	post, ok := s.state.Post(postID)
	if !ok {
		return
	}
	if err := s.publisher.Publish(ctx, make(postID, actorID, post.UserID)); err != nil {
		log.Printf("[Feed] publish event FAILED: post=%s err=%v", postID, err)
	}
}
