package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
)

// AssociationRepository reads and maintains the records that reference a user.
// Has-one readers return ErrNotFound when no row exists.
type AssociationRepository interface {
	Post(ctx context.Context, userID int64) (*entity.Post, error)
	Comment(ctx context.Context, userID int64) (*entity.Comment, error)
	Fish(ctx context.Context, userID int64) (*entity.Fish, error)

	Posts(ctx context.Context, userID int64) ([]entity.Post, error)
	People(ctx context.Context, userID int64) ([]entity.Person, error)
	Spouses(ctx context.Context, userID int64) ([]entity.Spouse, error)
	Comments(ctx context.Context, userID int64) ([]entity.Comment, error)
	Projects(ctx context.Context, userID int64) ([]entity.Project, error)
	Teams(ctx context.Context, userID int64) ([]entity.MemberTeam, error)

	AddProject(ctx context.Context, userID, projectID int64) error
	RemoveProject(ctx context.Context, userID, projectID int64) error
	JoinTeam(ctx context.Context, m *entity.TeamMembership) error
	LeaveTeam(ctx context.Context, userID, teamID int64) error
}

// AttachmentRepository stores attachment metadata. Blobs live elsewhere.
type AttachmentRepository interface {
	// Attach stores a and returns the attachment it replaced, if any.
	Attach(ctx context.Context, a *entity.Attachment) (*entity.Attachment, error)
	Get(ctx context.Context, recordType string, recordID int64, name string) (*entity.Attachment, error)
	// Detach removes and returns the named attachment.
	Detach(ctx context.Context, recordType string, recordID int64, name string) (*entity.Attachment, error)
}
