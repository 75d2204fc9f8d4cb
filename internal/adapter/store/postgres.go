package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore implements port.Store on PostgreSQL with pgvector columns.
type PostgresStore struct {
	db        *sql.DB
	dimension int
}

// NewPostgresStore opens a connection and returns a store instance.
// dimension sizes the vector columns created by Migrate.
func NewPostgresStore(ctx context.Context, databaseURL string, dimension int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db, dimension: dimension}, nil
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := strings.ReplaceAll(schemaSQL, "{{DIM}}", strconv.Itoa(s.dimension))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// --- Candidates ---

const candidateColumns = `id, name, email, education, location, skills, experience, answers, embedding, embedding_fingerprint`

func scanCandidate(row scanner) (*domain.Candidate, error) {
	var (
		c               domain.Candidate
		skills, answers []byte
		emb             *pgvector.Vector
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Education, &c.Location,
		&skills, &c.Experience, &answers, &emb, &c.EmbeddingFingerprint); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skills, &c.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	if err := json.Unmarshal(answers, &c.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if emb != nil {
		c.Embedding = emb.Slice()
	}
	return &c, nil
}

// GetCandidate returns a candidate by its ID.
func (s *PostgresStore) GetCandidate(ctx context.Context, id string) (*domain.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, port.ErrCandidateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// ListCandidates returns a page of candidates in insertion order.
func (s *PostgresStore) ListCandidates(ctx context.Context, skip, limit int) ([]*domain.Candidate, error) {
	return s.queryCandidates(ctx, `SELECT `+candidateColumns+` FROM candidates
		ORDER BY created_at, id OFFSET $1 LIMIT $2`, max(skip, 0), sqlLimit(limit))
}

// CreateCandidate stores a new candidate, assigning an ID when empty.
func (s *PostgresStore) CreateCandidate(ctx context.Context, c *domain.Candidate) (*domain.Candidate, error) {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	skills, answers, err := candidateJSON(c)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO candidates (id, name, email, education, location, skills, experience, answers, embedding, embedding_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+candidateColumns,
		id, c.Name, c.Email, c.Education, c.Location, skills, c.Experience, answers,
		vectorValue(c.Embedding), c.EmbeddingFingerprint,
	)
	created, err := scanCandidate(row)
	if err != nil {
		return nil, fmt.Errorf("create candidate: %w", mapConstraint(err))
	}
	return created, nil
}

// UpdateCandidate replaces the stored candidate with id.
func (s *PostgresStore) UpdateCandidate(ctx context.Context, id string, c *domain.Candidate) (*domain.Candidate, error) {
	skills, answers, err := candidateJSON(c)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE candidates SET name = $2, email = $3, education = $4, location = $5, skills = $6,
			experience = $7, answers = $8, embedding = $9, embedding_fingerprint = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+candidateColumns,
		id, c.Name, c.Email, c.Education, c.Location, skills, c.Experience, answers,
		vectorValue(c.Embedding), c.EmbeddingFingerprint,
	)
	updated, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update %s: %w", id, port.ErrCandidateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update candidate: %w", err)
	}
	return updated, nil
}

// DeleteCandidate removes a candidate and reports whether it existed.
func (s *PostgresStore) DeleteCandidate(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "candidates", id)
}

// FindCandidatesByLocation returns candidates whose location matches, ignoring case.
func (s *PostgresStore) FindCandidatesByLocation(ctx context.Context, location string) ([]*domain.Candidate, error) {
	return s.queryCandidates(ctx, `SELECT `+candidateColumns+` FROM candidates
		WHERE lower(location) = lower($1) ORDER BY created_at, id`, location)
}

// UpdateCandidateEmbedding stores the candidate vector and the fingerprint it was computed from.
func (s *PostgresStore) UpdateCandidateEmbedding(ctx context.Context, id string, vec []float32, fingerprint string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET embedding = $2, embedding_fingerprint = $3 WHERE id = $1`,
		id, vectorValue(vec), fingerprint)
	if err != nil {
		return fmt.Errorf("update candidate embedding: %w", err)
	}
	return requireRow(res, id, port.ErrCandidateNotFound)
}

func (s *PostgresStore) queryCandidates(ctx context.Context, query string, args ...any) ([]*domain.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	out := []*domain.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func candidateJSON(c *domain.Candidate) (skills, answers []byte, err error) {
	sk := c.Skills
	if sk == nil {
		sk = []string{}
	}
	if skills, err = json.Marshal(sk); err != nil {
		return nil, nil, fmt.Errorf("encode skills: %w", err)
	}
	if answers, err = json.Marshal(nonNilMap(c.Answers)); err != nil {
		return nil, nil, fmt.Errorf("encode answers: %w", err)
	}
	return skills, answers, nil
}

// --- Jobs ---

const jobColumns = `id, title, description, responsibilities, requirements, salary,
	application_end_date, company, category, location, embedding`

func scanJob(row scanner) (*domain.Job, error) {
	var (
		j       domain.Job
		reqs    []byte
		salary  sql.NullFloat64
		endDate sql.NullTime
		emb     *pgvector.Vector
	)
	if err := row.Scan(&j.ID, &j.Title, &j.Description, &j.Responsibilities, &reqs, &salary,
		&endDate, &j.Company, &j.Category, &j.Location, &emb); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reqs, &j.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	if salary.Valid {
		v := salary.Float64
		j.Salary = &v
	}
	if endDate.Valid {
		d := domain.DateOf(endDate.Time)
		j.ApplicationEndDate = &d
	}
	if emb != nil {
		j.Embedding = emb.Slice()
	}
	return &j, nil
}

func jobArgs(j *domain.Job) ([]any, error) {
	reqs, err := json.Marshal(nonNilMap(j.Requirements))
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}
	var salary, endDate any
	if j.Salary != nil {
		salary = *j.Salary
	}
	if j.ApplicationEndDate != nil {
		endDate = j.ApplicationEndDate.String()
	}
	return []any{j.Title, j.Description, j.Responsibilities, reqs, salary, endDate,
		j.Company, j.Category, j.Location, vectorValue(j.Embedding)}, nil
}

// GetJob returns a job by its ID.
func (s *PostgresStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, port.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// ListJobs returns a page of jobs in insertion order.
func (s *PostgresStore) ListJobs(ctx context.Context, skip, limit int) ([]*domain.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs
		ORDER BY created_at, id OFFSET $1 LIMIT $2`, max(skip, 0), sqlLimit(limit))
}

// ListAllJobs returns every job.
func (s *PostgresStore) ListAllJobs(ctx context.Context) ([]*domain.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at, id`)
}

// CreateJob stores a new job, assigning an ID when empty.
func (s *PostgresStore) CreateJob(ctx context.Context, j *domain.Job) (*domain.Job, error) {
	id := j.ID
	if id == "" {
		id = uuid.NewString()
	}
	args, err := jobArgs(j)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, title, description, responsibilities, requirements, salary,
			application_end_date, company, category, location, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+jobColumns, append([]any{id}, args...)...)
	created, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", mapConstraint(err))
	}
	return created, nil
}

// UpdateJob replaces the stored job with id.
func (s *PostgresStore) UpdateJob(ctx context.Context, id string, j *domain.Job) (*domain.Job, error) {
	args, err := jobArgs(j)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE jobs SET title = $2, description = $3, responsibilities = $4, requirements = $5,
			salary = $6, application_end_date = $7, company = $8, category = $9, location = $10,
			embedding = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING `+jobColumns, append([]any{id}, args...)...)
	updated, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update %s: %w", id, port.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return updated, nil
}

// DeleteJob removes a job and reports whether it existed.
func (s *PostgresStore) DeleteJob(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "jobs", id)
}

// FindJobsByCategory returns jobs whose category matches, ignoring case.
func (s *PostgresStore) FindJobsByCategory(ctx context.Context, category string) ([]*domain.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE lower(category) = lower($1) ORDER BY created_at, id`, category)
}

// FindAvailableJobs returns jobs still open on the calendar day of asOf.
func (s *PostgresStore) FindAvailableJobs(ctx context.Context, asOf time.Time) ([]*domain.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE application_end_date IS NULL OR application_end_date >= $1::date
		ORDER BY created_at, id`, domain.DateOf(asOf).String())
}

// UpdateJobEmbedding stores the job vector.
func (s *PostgresStore) UpdateJobEmbedding(ctx context.Context, id string, vec []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET embedding = $2 WHERE id = $1`, id, vectorValue(vec))
	if err != nil {
		return fmt.Errorf("update job embedding: %w", err)
	}
	return requireRow(res, id, port.ErrJobNotFound)
}

// ListJobsWithoutEmbedding returns up to limit unembedded jobs with IDs after afterID, in ID order.
func (s *PostgresStore) ListJobsWithoutEmbedding(ctx context.Context, afterID string, limit int) ([]*domain.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE embedding IS NULL AND id > $1 ORDER BY id LIMIT $2`, afterID, sqlLimit(limit))
}

// CountJobsWithoutEmbedding returns how many jobs have no vector.
func (s *PostgresStore) CountJobsWithoutEmbedding(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE embedding IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs without embedding: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) queryJobs(ctx context.Context, query string, args ...any) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	out := []*domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// --- Requirements ---

const requirementColumns = `id, text, type, depends_on, sort_order`

func scanRequirement(row scanner) (*domain.Requirement, error) {
	var (
		r         domain.Requirement
		dependsOn []byte
	)
	if err := row.Scan(&r.ID, &r.Text, &r.Type, &dependsOn, &r.Order); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dependsOn, &r.DependsOn); err != nil {
		return nil, fmt.Errorf("decode depends_on: %w", err)
	}
	if len(r.DependsOn) == 0 {
		r.DependsOn = nil
	}
	r.Choices = []domain.Choice{}
	return &r, nil
}

// GetRequirement returns a requirement by its ID.
func (s *PostgresStore) GetRequirement(ctx context.Context, id string) (*domain.Requirement, error) {
	reqs, err := s.queryRequirements(ctx, `SELECT `+requirementColumns+` FROM requirements WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("get %s: %w", id, port.ErrRequirementNotFound)
	}
	return reqs[0], nil
}

// ListRequirements returns a page of requirements in insertion order.
func (s *PostgresStore) ListRequirements(ctx context.Context, skip, limit int) ([]*domain.Requirement, error) {
	return s.queryRequirements(ctx, `SELECT `+requirementColumns+` FROM requirements
		ORDER BY created_at, id OFFSET $1 LIMIT $2`, max(skip, 0), sqlLimit(limit))
}

// FindRequirementsOrdered returns every requirement sorted by display order.
func (s *PostgresStore) FindRequirementsOrdered(ctx context.Context) ([]*domain.Requirement, error) {
	return s.queryRequirements(ctx, `SELECT `+requirementColumns+` FROM requirements
		ORDER BY sort_order, created_at, id`)
}

// CreateRequirement inserts the requirement and its choices in one transaction.
func (s *PostgresStore) CreateRequirement(ctx context.Context, r *domain.Requirement) (*domain.Requirement, error) {
	stored := withChoiceIDs(r.Clone())
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	dependsOn, err := json.Marshal(nonNilMap(stored.DependsOn))
	if err != nil {
		return nil, fmt.Errorf("encode depends_on: %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO requirements (id, text, type, depends_on, sort_order) VALUES ($1, $2, $3, $4, $5)`,
			stored.ID, stored.Text, stored.Type, dependsOn, stored.Order); err != nil {
			return mapConstraint(err)
		}
		return insertChoices(ctx, tx, stored)
	})
	if err != nil {
		return nil, fmt.Errorf("create requirement: %w", err)
	}
	return s.GetRequirement(ctx, stored.ID)
}

// UpdateRequirement replaces the requirement and its whole choice list.
func (s *PostgresStore) UpdateRequirement(ctx context.Context, id string, r *domain.Requirement) (*domain.Requirement, error) {
	stored := withChoiceIDs(r.Clone())
	stored.ID = id
	dependsOn, err := json.Marshal(nonNilMap(stored.DependsOn))
	if err != nil {
		return nil, fmt.Errorf("encode depends_on: %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE requirements SET text = $2, type = $3, depends_on = $4, sort_order = $5 WHERE id = $1`,
			id, stored.Text, stored.Type, dependsOn, stored.Order)
		if err != nil {
			return err
		}
		if err := requireRow(res, id, port.ErrRequirementNotFound); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE requirement_id = $1`, id); err != nil {
			return err
		}
		return insertChoices(ctx, tx, stored)
	})
	if err != nil {
		return nil, fmt.Errorf("update requirement: %w", err)
	}
	return s.GetRequirement(ctx, id)
}

// DeleteRequirement removes the requirement; choices cascade.
func (s *PostgresStore) DeleteRequirement(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "requirements", id)
}

func insertChoices(ctx context.Context, tx *sql.Tx, r *domain.Requirement) error {
	for i, c := range r.Choices {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO choices (requirement_id, id, text, value, position) VALUES ($1, $2, $3, $4, $5)`,
			r.ID, c.ID, c.Text, c.Value, i); err != nil {
			return fmt.Errorf("insert choice %d: %w", i, mapConstraint(err))
		}
	}
	return nil
}

// queryRequirements loads requirements and attaches their choices with a
// single follow-up query.
func (s *PostgresStore) queryRequirements(ctx context.Context, query string, args ...any) ([]*domain.Requirement, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer rows.Close()

	out := []*domain.Requirement{}
	byID := map[string]*domain.Requirement{}
	ids := []string{}
	for rows.Next() {
		r, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		out = append(out, r)
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	crows, err := s.db.QueryContext(ctx, `SELECT requirement_id, id, text, value FROM choices
		WHERE requirement_id = ANY($1) ORDER BY requirement_id, position`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query choices: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var (
			reqID string
			c     domain.Choice
		)
		if err := crows.Scan(&reqID, &c.ID, &c.Text, &c.Value); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		if r, ok := byID[reqID]; ok {
			r.Choices = append(r.Choices, c)
		}
	}
	return out, crows.Err()
}

// --- helpers ---

func (s *PostgresStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteByID reports whether a row was removed. table is always a constant.
func (s *PostgresStore) deleteByID(ctx context.Context, table, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	return n > 0, nil
}

func requireRow(res sql.Result, id string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, notFound)
	}
	return nil
}

// mapConstraint turns duplicate-key violations into ErrInvalidInput.
func mapConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %s", port.ErrInvalidInput, pqErr.Detail)
	}
	return err
}

// vectorValue maps an empty embedding to SQL NULL.
func vectorValue(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	return pgvector.NewVector(vec)
}

// sqlLimit maps limit <= 0 to no limit (LIMIT NULL).
func sqlLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
