package session

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

type Repository interface {
	// Get returns (nil, nil) when nobody is signed in.
	Get(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}
