package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/common/events"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"go.uber.org/zap"
)

// MemberService 회원 서비스 인터페이스
type MemberService interface {
	Register(ctx context.Context, name string, address domain.Address) (int64, error)
	Update(ctx context.Context, id int64, name string, address domain.Address) error
	FindMembers(ctx context.Context) ([]*domain.Member, error)
	FindOne(ctx context.Context, id int64) (*domain.Member, error)
}

type memberService struct {
	db         *sql.DB
	memberRepo repository.MemberRepository
	outboxRepo repository.OutboxRepository
	logger     *zap.Logger
}

// NewMemberService 회원 서비스 생성
func NewMemberService(
	db *sql.DB,
	memberRepo repository.MemberRepository,
	outboxRepo repository.OutboxRepository,
	logger *zap.Logger,
) MemberService {
	return &memberService{
		db:         db,
		memberRepo: memberRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Register 회원 가입. 이름은 유일해야 한다.
// 조회 후 저장 사이의 경합은 UNIQUE 제약이 최종적으로 막는다.
func (s *memberService) Register(ctx context.Context, name string, address domain.Address) (int64, error) {
	if name == "" {
		return 0, errors.New(errors.ErrCodeInvalidOrder, "member name is required")
	}

	existing, err := s.memberRepo.FindByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, errors.Newf(errors.ErrCodeDuplicateMember, "member already exists: %s", name)
	}

	member := domain.NewMember(name, address)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.memberRepo.SaveTx(ctx, tx, member); err != nil {
		return 0, err
	}

	event := events.MemberRegisteredEvent{
		BaseEvent: newBaseEvent(events.EventMemberRegistered),
		MemberID:  member.ID,
		Name:      member.Name,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal event", err)
	}
	if err := s.outboxRepo.InsertTx(ctx, tx, &repository.OutboxEvent{
		AggregateType: "member",
		AggregateID:   member.ID,
		EventType:     string(events.EventMemberRegistered),
		Payload:       payload,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	s.logger.Info("member registered",
		zap.Int64("memberId", member.ID),
		zap.String("name", member.Name))

	return member.ID, nil
}

// Update 회원 정보 수정
func (s *memberService) Update(ctx context.Context, id int64, name string, address domain.Address) error {
	member, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	member.Change(name, address)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := s.memberRepo.UpdateTx(ctx, tx, member); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	return nil
}

// FindMembers 전체 회원 조회
func (s *memberService) FindMembers(ctx context.Context) ([]*domain.Member, error) {
	return s.memberRepo.FindAll(ctx)
}

// FindOne 회원 단건 조회
func (s *memberService) FindOne(ctx context.Context, id int64) (*domain.Member, error) {
	return s.memberRepo.FindByID(ctx, id)
}
