package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/telehealth-booking/internal/logging"
)

// Entry is one append-only audit record.
type Entry struct {
	ID         int64
	ActorID    uuid.UUID
	ActorRole  string
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Metadata   []byte
	IPAddress  *string
	CreatedAt  time.Time
}

// Filter narrows admin audit queries. Zero values mean "no filter".
type Filter struct {
	ActorID    uuid.UUID
	Action     string
	EntityType string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Repository contains the DB interactions for the audit trail.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, actor_role, action, entity_type, entity_id, metadata, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`, e.ActorID, e.ActorRole, e.Action, e.EntityType, e.EntityID, e.Metadata, e.IPAddress)
	return err
}

func (r *PgRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, actor_role, action, entity_type, entity_id, metadata, ip_address, created_at
		FROM audit_logs
		WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR actor_id = $1)
		  AND ($2 = '' OR action ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR entity_type = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at <= $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7
	`, f.ActorID, f.Action, f.EntityType, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.EntityType, &e.EntityID, &e.Metadata, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Submitter offloads the write so audit recording never adds latency to the
// request path. The job queue satisfies this.
type Submitter interface {
	Submit(name string, task func(ctx context.Context) error) error
}

type Service struct {
	repo  Repository
	queue Submitter
	log   *logging.Logger
}

// NewService builds the audit recorder. queue may be nil, in which case
// writes happen inline.
func NewService(repo Repository, queue Submitter, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{repo: repo, queue: queue, log: log}
}

// Record satisfies consultation.Auditor. Failures are logged, never
// propagated.
func (s *Service) Record(ctx context.Context, actorID uuid.UUID, actorRole, action, entityType string, entityID uuid.UUID, metadata map[string]any) {
	data, err := json.Marshal(metadata)
	if err != nil {
		s.log.Error("marshal audit metadata", "action", action, "err", err.Error())
		data = nil
	}

	entry := Entry{
		ActorID:    actorID,
		ActorRole:  actorRole,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   data,
	}

	if s.queue != nil {
		err := s.queue.Submit("audit:"+action, func(taskCtx context.Context) error {
			return s.repo.Insert(taskCtx, entry)
		})
		if err == nil {
			return
		}
		s.log.Warn("audit queue full, writing inline", "action", action)
	}

	if err := s.repo.Insert(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Error("insert audit log", "action", action, "err", err.Error())
	}
}

// List is the admin-facing query.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, error) {
	return s.repo.List(ctx, f)
}
