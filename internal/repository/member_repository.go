package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/internal/domain"
)

// MemberRepository 회원 레포지토리 인터페이스
type MemberRepository interface {
	SaveTx(ctx context.Context, tx *sql.Tx, member *domain.Member) error
	UpdateTx(ctx context.Context, tx *sql.Tx, member *domain.Member) error
	FindByID(ctx context.Context, id int64) (*domain.Member, error)
	FindAll(ctx context.Context) ([]*domain.Member, error)
	FindByName(ctx context.Context, name string) ([]*domain.Member, error)
}

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository 회원 레포지토리 생성
func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

// SaveTx 회원 저장. name 유니크 제약 위반은 DUPLICATE_MEMBER 로 변환한다.
func (r *memberRepository) SaveTx(ctx context.Context, tx *sql.Tx, member *domain.Member) error {
	query := `
		INSERT INTO members (name, city, street, zipcode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := toMillis(time.Now())
	err := tx.QueryRowContext(
		ctx,
		query,
		member.Name,
		member.Address.City,
		member.Address.Street,
		member.Address.Zipcode,
		now,
		now,
	).Scan(&member.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(errors.ErrCodeDuplicateMember, "member name already exists", err)
		}
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to save member", err)
	}

	return nil
}

// UpdateTx 회원 정보 수정
func (r *memberRepository) UpdateTx(ctx context.Context, tx *sql.Tx, member *domain.Member) error {
	query := `
		UPDATE members
		SET name = $1, city = $2, street = $3, zipcode = $4, updated_at = $5
		WHERE id = $6
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		member.Name,
		member.Address.City,
		member.Address.Street,
		member.Address.Zipcode,
		toMillis(time.Now()),
		member.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(errors.ErrCodeDuplicateMember, "member name already exists", err)
		}
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to update member", err)
	}

	return nil
}

// FindByID ID로 회원 조회
func (r *memberRepository) FindByID(ctx context.Context, id int64) (*domain.Member, error) {
	query := `
		SELECT id, name, city, street, zipcode
		FROM members
		WHERE id = $1
	`

	member := &domain.Member{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&member.ID,
		&member.Name,
		&member.Address.City,
		&member.Address.Street,
		&member.Address.Zipcode,
	)

	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeNotFound, "member not found: %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find member", err)
	}

	return member, nil
}

// FindAll 회원 전체 조회
func (r *memberRepository) FindAll(ctx context.Context) ([]*domain.Member, error) {
	query := `
		SELECT id, name, city, street, zipcode
		FROM members
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find members", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

// FindByName 이름으로 회원 조회
func (r *memberRepository) FindByName(ctx context.Context, name string) ([]*domain.Member, error) {
	query := `
		SELECT id, name, city, street, zipcode
		FROM members
		WHERE name = $1
	`

	rows, err := r.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find members by name", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

func scanMembers(rows *sql.Rows) ([]*domain.Member, error) {
	members := make([]*domain.Member, 0)
	for rows.Next() {
		member := &domain.Member{}
		if err := rows.Scan(
			&member.ID,
			&member.Name,
			&member.Address.City,
			&member.Address.Street,
			&member.Address.Zipcode,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan member", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate members", err)
	}
	return members, nil
}

// isUniqueViolation 유니크 제약 위반 여부.
// PostgreSQL 은 에러 코드 23505, 테스트용 SQLite 는 에러 메시지로 판별한다.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
