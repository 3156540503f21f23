package service

import (
	"context"

	"socialnet/internal/models"
	"socialnet/internal/repository"
)

// SocialService maintains the symmetric follow graph.
type SocialService struct {
	store repository.Store
}

func NewSocialService(store repository.Store) *SocialService {
	return &SocialService{store: store}
}

// ToggleFollow makes actor follow target, or unfollow when already following.
// Both rows change in one transaction so following and followers stay mirrored.
// It returns the actor's following set after the change.
func (s *SocialService) ToggleFollow(ctx context.Context, actorID, targetID string) (models.StringSet, error) {
	if actorID == targetID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}

	var following models.StringSet
	err := s.store.Tx(ctx, func(tx repository.Store) error {
		// Lock in id order so two opposite toggles cannot deadlock.
		firstID, secondID := actorID, targetID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		first, err := tx.Users().GetByIDForUpdate(ctx, firstID)
		if err != nil {
			return err
		}
		second, err := tx.Users().GetByIDForUpdate(ctx, secondID)
		if err != nil {
			return err
		}
		actor, target := first, second
		if actor.ID != actorID {
			actor, target = second, first
		}

		if actor.Following.Contains(target.ID) {
			actor.Following = actor.Following.Remove(target.ID)
			target.Followers = target.Followers.Remove(actor.ID)
		} else {
			actor.Following = actor.Following.Add(target.ID)
			target.Followers = target.Followers.Add(actor.ID)
		}

		if err := tx.Users().UpdateColumns(ctx, actor, "following"); err != nil {
			return err
		}
		if err := tx.Users().UpdateColumns(ctx, target, "followers"); err != nil {
			return err
		}
		following = actor.Following
		return nil
	})
	if err != nil {
		return nil, err
	}
	if following == nil {
		following = models.NewStringSet()
	}
	return following, nil
}
