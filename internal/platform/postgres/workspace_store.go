package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/platform/logger"
	"github.com/qaforge/qaforge/internal/store"
)

// WorkspaceStore implements store.WorkspaceStore over PostgreSQL.
type WorkspaceStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkspaceStore creates a PostgreSQL implementation of
// store.WorkspaceStore. It takes *sql.DB rather than DBTX because Create
// opens its own transaction for the workspace+owner pair.
func NewWorkspaceStore(db *sql.DB, logger *slog.Logger) *WorkspaceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkspaceStore{
		db:     db,
		logger: logger.With(slog.String("component", "workspace_store")),
	}
}

var _ store.WorkspaceStore = (*WorkspaceStore)(nil)

// Create implements store.WorkspaceStore.Create. The workspace and its first
// OWNER member are inserted in one transaction.
func (s *WorkspaceStore) Create(ctx context.Context, ws *domain.Workspace, owner *domain.WorkspaceMember) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := ws.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if owner == nil || owner.Role != domain.MemberRoleOwner || owner.WorkspaceID != ws.ID {
		return fmt.Errorf("%w: workspace must be created with an owner member", store.ErrInvalidEntity)
	}
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workspaces (id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, ws.ID, ws.Name, ws.Description, ws.CreatedAt, ws.UpdatedAt); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workspace_members (workspace_id, user_id, role, created_at)
			VALUES ($1, $2, $3, $4)
		`, owner.WorkspaceID, owner.UserID, owner.Role, owner.CreatedAt); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner user %s not found", store.ErrInvalidEntity, owner.UserID)
		}
		log.Error("failed to create workspace", "error", err, "workspace_id", ws.ID)
		return err
	}

	log.Info("workspace created", "workspace_id", ws.ID, "owner_id", owner.UserID)
	return nil
}

// GetByID implements store.WorkspaceStore.GetByID.
func (s *WorkspaceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM workspaces
		WHERE id = $1
	`, id).Scan(&ws.ID, &ws.Name, &ws.Description, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWorkspaceNotFound
		}
		return nil, err
	}
	return &ws, nil
}

// ListForUser implements store.WorkspaceStore.ListForUser.
func (s *WorkspaceStore) ListForUser(ctx context.Context, userID uuid.UUID, page store.PageRequest) ([]*store.WorkspaceMembership, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM workspace_members WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		log.Error("failed to count workspaces for user", "error", err, "user_id", userID)
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.description, w.created_at, w.updated_at, m.role
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		log.Error("failed to list workspaces for user", "error", err, "user_id", userID)
		return nil, 0, err
	}
	defer closeRows(rows, log)

	memberships := []*store.WorkspaceMembership{}
	for rows.Next() {
		var ws domain.Workspace
		var role string
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.CreatedAt, &ws.UpdatedAt, &role); err != nil {
			return nil, 0, err
		}
		memberships = append(memberships, &store.WorkspaceMembership{
			Workspace: &ws,
			Role:      domain.MemberRole(role),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return memberships, total, nil
}

// Update implements store.WorkspaceStore.Update.
func (s *WorkspaceStore) Update(ctx context.Context, ws *domain.Workspace) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	ws.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE workspaces
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`, ws.Name, ws.Description, ws.UpdatedAt, ws.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update workspace", "error", err, "workspace_id", ws.ID)
		return err
	}
	return requireRowAffected(result, store.ErrWorkspaceNotFound)
}

// Delete implements store.WorkspaceStore.Delete. Contained projects, members
// and their children go with it via ON DELETE CASCADE.
func (s *WorkspaceStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete workspace", "error", err, "workspace_id", id)
		return err
	}
	if err := requireRowAffected(result, store.ErrWorkspaceNotFound); err != nil {
		return err
	}
	log.Info("workspace deleted", "workspace_id", id)
	return nil
}

// GetMember implements store.WorkspaceStore.GetMember.
func (s *WorkspaceStore) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error) {
	var m domain.WorkspaceMember
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT workspace_id, user_id, role, created_at
		FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID).Scan(&m.WorkspaceID, &m.UserID, &role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMemberNotFound
		}
		return nil, err
	}
	m.Role = domain.MemberRole(role)
	return &m, nil
}

// ListMembers implements store.WorkspaceStore.ListMembers.
func (s *WorkspaceStore) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.WorkspaceMember, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT workspace_id, user_id, role, created_at
		FROM workspace_members
		WHERE workspace_id = $1
		ORDER BY created_at
	`, workspaceID)
	if err != nil {
		log.Error("failed to list workspace members", "error", err, "workspace_id", workspaceID)
		return nil, err
	}
	defer closeRows(rows, log)

	members := []*domain.WorkspaceMember{}
	for rows.Next() {
		var m domain.WorkspaceMember
		var role string
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.MemberRole(role)
		members = append(members, &m)
	}
	return members, rows.Err()
}

// AddMember implements store.WorkspaceStore.AddMember.
func (s *WorkspaceStore) AddMember(ctx context.Context, member *domain.WorkspaceMember) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := member.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, member.WorkspaceID, member.UserID, member.Role, member.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return store.ErrMemberExists
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: workspace or user not found", store.ErrInvalidEntity)
		}
		log.Error("failed to add workspace member", "error", err,
			"workspace_id", member.WorkspaceID, "user_id", member.UserID)
		return err
	}

	log.Info("workspace member added",
		"workspace_id", member.WorkspaceID, "user_id", member.UserID, "role", member.Role)
	return nil
}

// UpdateMemberRole implements store.WorkspaceStore.UpdateMemberRole. The
// last-owner guard runs inside a transaction so concurrent demotions cannot
// strip the final OWNER.
func (s *WorkspaceStore) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role domain.MemberRole) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if role != domain.MemberRoleOwner {
			if err := s.guardLastOwner(ctx, tx, workspaceID, userID); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE workspace_members SET role = $1
			WHERE workspace_id = $2 AND user_id = $3
		`, role, workspaceID, userID)
		if err != nil {
			return err
		}
		return requireRowAffected(result, store.ErrMemberNotFound)
	})
}

// RemoveMember implements store.WorkspaceStore.RemoveMember.
func (s *WorkspaceStore) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.guardLastOwner(ctx, tx, workspaceID, userID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			DELETE FROM workspace_members
			WHERE workspace_id = $1 AND user_id = $2
		`, workspaceID, userID)
		if err != nil {
			return err
		}
		return requireRowAffected(result, store.ErrMemberNotFound)
	})
}

// guardLastOwner fails with domain.ErrLastOwner when userID is the only
// OWNER of the workspace. The row lock keeps the check valid until commit.
func (s *WorkspaceStore) guardLastOwner(ctx context.Context, tx *sql.Tx, workspaceID, userID uuid.UUID) error {
	var isOwner bool
	err := tx.QueryRowContext(ctx, `
		SELECT role = 'OWNER'
		FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2
		FOR UPDATE
	`, workspaceID, userID).Scan(&isOwner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrMemberNotFound
		}
		return err
	}
	if !isOwner {
		return nil
	}

	var owners int
	if err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM workspace_members
		WHERE workspace_id = $1 AND role = 'OWNER'
	`, workspaceID).Scan(&owners); err != nil {
		return err
	}
	if owners <= 1 {
		return domain.ErrLastOwner
	}
	return nil
}
